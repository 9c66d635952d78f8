package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// sortableTime has a fixed width so created_at orders lexicographically
const sortableTime = "2006-01-02T15:04:05.000000000Z"

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// In-memory databases exist per connection
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS inspections (
		id TEXT PRIMARY KEY,
		bucket TEXT NOT NULL,
		object_key TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		modified_keys TEXT NOT NULL,
		passed_keys TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist(ctx context.Context) bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	return s.db.PingContext(ctx) == nil
}

func (s *SQLiteDatabase) RecordInspection(ctx context.Context, inspection *Inspection) (string, error) {
	prepare(inspection)

	modified, err := json.Marshal(inspection.ModifiedKeys)
	if err != nil {
		return "", err
	}
	passed, err := json.Marshal(inspection.PassedKeys)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO inspections (id, bucket, object_key, page_count, modified_keys, passed_keys, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inspection.ID,
		inspection.Bucket,
		inspection.Key,
		inspection.PageCount,
		string(modified),
		string(passed),
		inspection.CreatedAt.UTC().Format(sortableTime),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert inspection: %w", err)
	}
	return inspection.ID, nil
}

func (s *SQLiteDatabase) GetInspections(ctx context.Context) ([]*Inspection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bucket, object_key, page_count, modified_keys, passed_keys, created_at
		FROM inspections ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var inspections []*Inspection
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		inspections = append(inspections, inspection)
	}
	return inspections, rows.Err()
}

func (s *SQLiteDatabase) GetInspectionByID(ctx context.Context, id string) (*Inspection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, bucket, object_key, page_count, modified_keys, passed_keys, created_at
		FROM inspections WHERE id = ?`, id)
	inspection, err := scanInspection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrInspectionNotFound, id)
	}
	return inspection, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInspection(row scanner) (*Inspection, error) {
	var (
		inspection Inspection
		modified   string
		passed     string
		createdAt  string
	)
	if err := row.Scan(&inspection.ID, &inspection.Bucket, &inspection.Key, &inspection.PageCount,
		&modified, &passed, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(modified), &inspection.ModifiedKeys); err != nil {
		return nil, fmt.Errorf("corrupt modified_keys for %s: %w", inspection.ID, err)
	}
	if err := json.Unmarshal([]byte(passed), &inspection.PassedKeys); err != nil {
		return nil, fmt.Errorf("corrupt passed_keys for %s: %w", inspection.ID, err)
	}
	t, err := time.Parse(sortableTime, createdAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at for %s: %w", inspection.ID, err)
	}
	inspection.CreatedAt = t
	return &inspection, nil
}
