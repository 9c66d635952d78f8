package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func newTestDB(t *testing.T) DatabaseService {
	t.Helper()

	ds, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	if err := ds.CreateDatabase(context.Background()); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestSQLite_DoesDatabaseExist(t *testing.T) {
	ds := newTestDB(t)
	if !ds.DoesDatabaseExist(context.Background()) {
		t.Fatalf("expected DoesDatabaseExist to return true")
	}
}

func TestSQLite_RecordAndGet(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	inspection := &Inspection{
		Bucket:       "covenants-deed-images",
		Key:          "raw/a.tif",
		PageCount:    2,
		ModifiedKeys: []string{"raw/a_SPLITPAGE_1.tif", "raw/a_SPLITPAGE_2.tif"},
	}
	id, err := ds.RecordInspection(ctx, inspection)
	if err != nil {
		t.Fatalf("RecordInspection error: %v", err)
	}
	if id == "" || inspection.ID != id {
		t.Fatalf("expected generated id to be returned and set, got %q / %q", id, inspection.ID)
	}
	if inspection.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := ds.GetInspectionByID(ctx, id)
	if err != nil {
		t.Fatalf("GetInspectionByID error: %v", err)
	}
	if got.Bucket != inspection.Bucket || got.Key != inspection.Key || got.PageCount != 2 {
		t.Errorf("unexpected inspection: %+v", got)
	}
	if !reflect.DeepEqual(got.ModifiedKeys, inspection.ModifiedKeys) {
		t.Errorf("expected modified keys %v, got %v", inspection.ModifiedKeys, got.ModifiedKeys)
	}
	if got.PassedKeys == nil || len(got.PassedKeys) != 0 {
		t.Errorf("expected empty passed keys, got %v", got.PassedKeys)
	}
	if !got.CreatedAt.Equal(inspection.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", inspection.CreatedAt, got.CreatedAt)
	}
}

func TestSQLite_GetInspectionByID_NotFound(t *testing.T) {
	ds := newTestDB(t)
	_, err := ds.GetInspectionByID(context.Background(), "missing")
	if !errors.Is(err, ErrInspectionNotFound) {
		t.Fatalf("expected ErrInspectionNotFound, got %v", err)
	}
}

func TestSQLite_GetInspections_NewestFirst(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 21, 15, 55, 50, 0, time.UTC)

	// Mixed fractional seconds must still sort chronologically
	times := []time.Time{base, base.Add(500 * time.Millisecond), base.Add(-time.Second)}
	var ids []string
	for i, ts := range times {
		id, err := ds.RecordInspection(ctx, &Inspection{Bucket: "b", Key: string(rune('a' + i)), PageCount: 1, CreatedAt: ts})
		if err != nil {
			t.Fatalf("RecordInspection #%d error: %v", i, err)
		}
		ids = append(ids, id)
	}

	inspections, err := ds.GetInspections(ctx)
	if err != nil {
		t.Fatalf("GetInspections error: %v", err)
	}
	if len(inspections) != 3 {
		t.Fatalf("expected 3 inspections, got %d", len(inspections))
	}
	expected := []string{ids[1], ids[0], ids[2]}
	for i, inspection := range inspections {
		if inspection.ID != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], inspection.ID)
		}
	}
}

func TestNewDatabase(t *testing.T) {
	ctx := context.Background()

	ds, err := NewDatabase(ctx, Config{Type: TypeNone})
	if err != nil || ds != nil {
		t.Errorf("expected nil ledger for type none, got %v (%v)", ds, err)
	}

	ds, err = NewDatabase(ctx, Config{Type: TypeSQLite, ConnectionString: ":memory:"})
	if err != nil {
		t.Fatalf("expected sqlite ledger, got error %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	if _, err := ds.GetInspections(ctx); err != nil {
		t.Errorf("expected schema to be created, got %v", err)
	}

	if _, err := NewDatabase(ctx, Config{Type: "postgres"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
