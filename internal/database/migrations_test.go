package database

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func migrationTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewMigrationRunnerRejectsMissingMigrationsDir(t *testing.T) {
	_, err := NewMigrationRunner(
		"postgres://localhost:5432/audit?sslmode=disable",
		"/nonexistent/migrations",
		migrationTestLogger(),
	)
	assert.Error(t, err)
}

func TestNewMigrationRunnerRejectsUnknownDatabaseScheme(t *testing.T) {
	_, err := NewMigrationRunner("bogus://nowhere", "../../migrations", migrationTestLogger())
	assert.Error(t, err)
}
