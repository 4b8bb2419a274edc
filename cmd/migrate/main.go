package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/joefazee/marketcore/app/database"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/nexus"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const usage = `usage: migrate [-path dir] <up|down|version|force N>`

type config struct {
	DB database.Config
}

func main() {
	path := flag.String("path", "migrations", "directory holding the SQL migrations")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	log := logger.NewZeroLogger(os.Stdout, logger.LevelInfo, logger.Fields{"service": "marketcore-migrate"})

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	var cfg config
	if err := nexus.NewLoader().Load(context.Background(), &cfg); err != nil {
		log.Fatal(err, map[string]interface{}{"op": "load configuration"})
	}
	if cfg.DB.Driver != database.DriverPostgres {
		log.Fatal(errors.New("migrations run against postgres only; sqlite schemas are created on open"), nil)
	}

	m, err := migrate.New("file://"+*path, cfg.DB.MigrationURL())
	if err != nil {
		log.Fatal(err, map[string]interface{}{"op": "create migrator"})
	}
	defer m.Close()

	if err := apply(m, flag.Args()); err != nil {
		log.Fatal(err, map[string]interface{}{"command": flag.Arg(0)})
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal(err, map[string]interface{}{"op": "read version"})
	}
	log.Info("migrations applied", map[string]interface{}{"version": version, "dirty": dirty})
}

func apply(m *migrate.Migrate, args []string) error {
	var err error
	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		return nil
	case "force":
		if len(args) < 2 {
			return errors.New(usage)
		}
		v, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return convErr
		}
		err = m.Force(v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
