package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/downytube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUploadRepository_RecordAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUploadRepository(testPool)

	record := newTestUpload("dQw4w9WgXcQ", models.UploadKindClip, time.Now().UTC().Add(-time.Hour))
	if err := repo.Record(ctx, record); err != nil {
		t.Fatalf("record upload: %v", err)
	}

	dup := record
	if err := repo.Record(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict recording the same id twice, got %v", err)
	}

	fetched, err := repo.FindBySourceID(ctx, record.SourceID)
	if err != nil {
		t.Fatalf("find by source id: %v", err)
	}
	if fetched.ID != record.ID || fetched.VideoID != record.VideoID || fetched.Kind != record.Kind {
		t.Fatalf("unexpected record fetched: %+v", fetched)
	}

	if _, err := repo.FindBySourceID(ctx, "missing12345"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown source, got %v", err)
	}
}

func TestPostgresUploadRepository_FindReturnsMostRecent(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUploadRepository(testPool)

	older := newTestUpload("dQw4w9WgXcQ", models.UploadKindSync, time.Now().UTC().Add(-2*time.Hour))
	newer := newTestUpload("dQw4w9WgXcQ", models.UploadKindSync, time.Now().UTC().Add(-time.Minute))
	for _, record := range []models.UploadRecord{older, newer} {
		if err := repo.Record(ctx, record); err != nil {
			t.Fatalf("record upload %s: %v", record.ID, err)
		}
	}

	fetched, err := repo.FindBySourceID(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("find by source id: %v", err)
	}
	if fetched.ID != newer.ID {
		t.Fatalf("expected most recent upload %s, got %s", newer.ID, fetched.ID)
	}
}

func TestPostgresUploadRepository_List(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUploadRepository(testPool)

	base := time.Now().UTC().Add(-time.Hour)
	var records []models.UploadRecord
	for i := 0; i < 3; i++ {
		record := newTestUpload(fmt.Sprintf("source-%03d", i), models.UploadKindClip, base.Add(time.Duration(i)*time.Minute))
		records = append(records, record)
		if err := repo.Record(ctx, record); err != nil {
			t.Fatalf("record upload: %v", err)
		}
	}

	listed, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("list uploads: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 uploads, got %d", len(listed))
	}
	if listed[0].ID != records[2].ID || listed[2].ID != records[0].ID {
		t.Fatalf("unexpected order: %+v", listed)
	}

	limited, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("list uploads with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(limited))
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE uploads"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func newTestUpload(sourceID, kind string, createdAt time.Time) models.UploadRecord {
	videoID := uuid.NewString()[:11]
	return models.UploadRecord{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		VideoID:    videoID,
		YouTubeURL: "https://www.youtube.com/watch?v=" + videoID,
		Title:      "Test upload",
		Kind:       kind,
		CreatedAt:  createdAt.Truncate(time.Millisecond),
	}
}
