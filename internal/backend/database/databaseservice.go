package database

import (
	"context"
	"errors"
)

var ErrInspectionNotFound = errors.New("inspection not found")

type DatabaseService interface {
	// CreateDatabase ensures the backing table exists (SQLite) or is reachable (DynamoDB).
	CreateDatabase(ctx context.Context) error
	DoesDatabaseExist(ctx context.Context) bool
	Close() error

	// RecordInspection stores the entry, assigning ID and CreatedAt when they are empty,
	// and returns the ID.
	RecordInspection(ctx context.Context, inspection *Inspection) (string, error)
	// GetInspections returns all entries, newest first.
	GetInspections(ctx context.Context) ([]*Inspection, error)
	GetInspectionByID(ctx context.Context, id string) (*Inspection, error)
}
