package mocks

import (
	"github.com/Billy-Davies-2/chat-mock/internal/dal"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
)

// MockPostgresDAL stands in for the Postgres fixture store with a SQLite file,
// for development runs that select the postgres driver without a DATABASE_URL
type MockPostgresDAL struct {
	dal.FixtureDAL
}

// NewMockPostgresDAL opens (and seeds, if empty) the SQLite file
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	logger.Info("Using MOCK Postgres (SQLite) for local development", "file", sqliteFile)

	sqliteDAL, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, err
	}

	return &MockPostgresDAL{FixtureDAL: sqliteDAL}, nil
}
