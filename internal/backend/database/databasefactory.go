package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	TypeNone     = "none"
	TypeSQLite   = "sqlite"
	TypeDynamoDB = "dynamodb"
)

type Config struct {
	Type             string `yaml:"type" validate:"omitempty,oneof=none sqlite dynamodb"`
	ConnectionString string `yaml:"connectionString"`
	Table            string `yaml:"table"`
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"`
}

// NewDatabase returns the configured ledger. Type "none" (or empty) returns nil, meaning
// no ledger is kept.
func NewDatabase(ctx context.Context, cfg Config) (database DatabaseService, err error) {
	switch cfg.Type {
	case "", TypeNone:
		return nil, nil
	case TypeSQLite:
		database, err = NewSQLiteDatabase(cfg.ConnectionString)
	case TypeDynamoDB:
		database, err = NewDynamoDBDatabaseFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	// Ensure database schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing inspection ledger", "type", cfg.Type)
	if err = database.CreateDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}

// prepare fills in the generated fields of a new entry.
func prepare(inspection *Inspection) {
	if inspection.ID == "" {
		inspection.ID = uuid.NewString()
	}
	if inspection.CreatedAt.IsZero() {
		inspection.CreatedAt = time.Now().UTC()
	}
	if inspection.ModifiedKeys == nil {
		inspection.ModifiedKeys = []string{}
	}
	if inspection.PassedKeys == nil {
		inspection.PassedKeys = []string{}
	}
}
