package database

import (
	"testing"

	"github.com/joefazee/marketcore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"postgres ok", Config{Driver: DriverPostgres, Host: "h", User: "u", Password: "p", Database: "d"}, nil},
		{"postgres missing password", Config{Driver: DriverPostgres, Host: "h", User: "u", Database: "d"}, models.ErrDatabaseCredentialNotConfigured},
		{"sqlite ok", Config{Driver: DriverSQLite, SQLitePath: ":memory:"}, nil},
		{"sqlite no path", Config{Driver: DriverSQLite}, models.ErrDatabaseCredentialNotConfigured},
		{"unknown", Config{Driver: "mysql"}, models.ErrUnsupportedDatabaseDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDSN(t *testing.T) {
	c := Config{Host: "db", Port: "5432", User: "u", Password: "p", Database: "markets", UseSSL: true}
	assert.Equal(t, "host=db user=u password=p dbname=markets port=5432 sslmode=require", c.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/markets?sslmode=require", c.MigrationURL())
}

func TestNewInMemory(t *testing.T) {
	db, err := NewInMemory()
	require.NoError(t, err)
	assert.False(t, IsPostgres(db))
	assert.True(t, db.Migrator().HasTable(&models.LedgerEntry{}))
	assert.True(t, db.Migrator().HasTable(&models.Bet{}))
}
