package suites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/database"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	pgImage    = "postgres:17.5-alpine3.21"
	pgPort     = "5432/tcp"
	pgName     = "marketcore"
	pgUser     = "marketcore"
	pgPassword = "marketcore-test"
)

// PostgresContainer is a throwaway postgres with its connection settings.
type PostgresContainer struct {
	testcontainers.Container
	Config database.Config
}

func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	cfg := database.Config{
		Driver:       database.DriverPostgres,
		User:         pgUser,
		Password:     pgPassword,
		Database:     pgName,
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	ready := func(host string, port nat.Port) string {
		c := cfg
		c.Host, c.Port = host, port.Port()
		return c.MigrationURL()
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{pgPort},
			Cmd:          []string{"postgres", "-c", "fsync=off"},
			Env: map[string]string{
				"POSTGRES_DB":       pgName,
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
			},
			WaitingFor: wait.ForSQL(pgPort, "postgres", ready).
				WithStartupTimeout(30 * time.Second).
				WithQuery("SELECT 1"),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, pgPort)
	if err != nil {
		return nil, fmt.Errorf("container port: %w", err)
	}

	cfg.Host, cfg.Port = host, port.Port()
	return &PostgresContainer{Container: container, Config: cfg}, nil
}

// RepositoryTestSuite runs against a migrated postgres container. Embed it
// and call SetupSuite from the child suite. Tables are truncated after every
// test unless SkipDatabaseCleanup is set.
type RepositoryTestSuite struct {
	suite.Suite
	Container           *PostgresContainer
	DB                  *gorm.DB
	SQLDB               *sql.DB
	AutoMigrate         bool
	MigrationsPath      string
	SkipDatabaseCleanup bool
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.T().Helper()

	if testing.Short() {
		s.T().Skip("Skipping database integration tests in short mode")
	}

	if s.MigrationsPath == "" {
		s.MigrationsPath = findMigrations()
	}

	ctx := context.Background()
	container, err := NewPostgresContainer(ctx)
	if err != nil {
		s.T().Fatalf("postgres container: %v", err)
	}
	s.Container = container
	s.T().Cleanup(s.cleanup)

	if s.AutoMigrate {
		if err := s.RunMigrations(); err != nil {
			s.T().Fatalf("run migrations: %v", err)
		}
	}

	db, err := database.New(&container.Config)
	if err != nil {
		s.T().Fatalf("open database: %v", err)
	}
	s.DB = db
	if s.SQLDB, err = db.DB(); err != nil {
		s.T().Fatalf("sql handle: %v", err)
	}
}

func (s *RepositoryTestSuite) cleanup() {
	if s.SQLDB != nil {
		_ = s.SQLDB.Close()
	}
	if s.Container != nil {
		_ = s.Container.Terminate(context.Background())
	}
}

// RunMigrations applies every up migration from MigrationsPath.
func (s *RepositoryTestSuite) RunMigrations() error {
	if _, err := os.Stat(s.MigrationsPath); s.MigrationsPath == "" || err != nil {
		return fmt.Errorf("migrations directory %q not found", s.MigrationsPath)
	}

	m, err := migrate.New("file://"+s.MigrationsPath, s.Container.Config.MigrationURL())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// findMigrations walks up to the module root.
func findMigrations() string {
	wd, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return filepath.Join(wd, "migrations")
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return ""
		}
		wd = parent
	}
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.SkipDatabaseCleanup || s.DB == nil {
		return
	}
	s.DB.Exec(`TRUNCATE TABLE ledger_entries, bets, markets, users RESTART IDENTITY CASCADE`)
}

// CountRecords counts the rows of table.
func (s *RepositoryTestSuite) CountRecords(table string) int64 {
	var c int64
	s.DB.Table(table).Count(&c)
	return c
}
