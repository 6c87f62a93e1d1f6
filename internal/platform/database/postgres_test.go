package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		Host:     "db",
		Port:     "5432",
		User:     "ticketing",
		Password: "p@ss word",
		DBName:   "cinema",
	}

	assert.Equal(t, "postgres://ticketing:p%40ss%20word@db:5432/cinema?sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")

	assert.NoError(t, err)
	assert.NotEmpty(t, entries)
}
