package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("EnsureProfile", func(t *testing.T) {
		t.Run("Creates Basic Profile", func(t *testing.T) {
			repo := NewProfileRepository(setupTestDB(t))

			if err := repo.EnsureProfile(ctx, 42, "alice"); err != nil {
				t.Fatalf("failed to ensure profile: %v", err)
			}

			profile, err := repo.GetProfile(ctx, 42)
			if err != nil {
				t.Fatalf("failed to get profile: %v", err)
			}
			if profile.UserID != 42 || profile.Username != "alice" {
				t.Errorf("unexpected profile %+v", profile)
			}
			if profile.Mode != models.ModeBasic {
				t.Errorf("expected basic mode, got %s", profile.Mode)
			}
			if profile.InteractionCount != 0 {
				t.Errorf("expected zero interactions, got %d", profile.InteractionCount)
			}
			if profile.CreatedAt.IsZero() {
				t.Error("expected created_at to be set")
			}
		})

		t.Run("Is Idempotent", func(t *testing.T) {
			repo := NewProfileRepository(setupTestDB(t))

			if err := repo.EnsureProfile(ctx, 7, "first"); err != nil {
				t.Fatalf("first ensure failed: %v", err)
			}
			if err := repo.SetMode(ctx, 7, models.ModeExtended); err != nil {
				t.Fatalf("set mode failed: %v", err)
			}
			if _, err := repo.AppendDownload(ctx, 7, models.Track{Artist: "a", Title: "b"}, time.Now()); err != nil {
				t.Fatalf("append failed: %v", err)
			}

			for range 3 {
				if err := repo.EnsureProfile(ctx, 7, "second"); err != nil {
					t.Fatalf("repeat ensure failed: %v", err)
				}
			}

			profile, err := repo.GetProfile(ctx, 7)
			if err != nil {
				t.Fatalf("failed to get profile: %v", err)
			}
			if profile.Username != "first" || profile.Mode != models.ModeExtended || profile.InteractionCount != 1 {
				t.Errorf("repeat ensure mutated profile: %+v", profile)
			}
		})
	})

	t.Run("GetProfile Not Found", func(t *testing.T) {
		repo := NewProfileRepository(setupTestDB(t))

		_, err := repo.GetProfile(ctx, 999)
		if !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("SetMode", func(t *testing.T) {
		t.Run("Overwrites", func(t *testing.T) {
			repo := NewProfileRepository(setupTestDB(t))
			repo.EnsureProfile(ctx, 1, "u")

			for _, mode := range []models.Mode{models.ModeExtended, models.ModeExtended, models.ModeBasic} {
				if err := repo.SetMode(ctx, 1, mode); err != nil {
					t.Fatalf("set mode %s failed: %v", mode, err)
				}
				profile, _ := repo.GetProfile(ctx, 1)
				if profile.Mode != mode {
					t.Errorf("expected mode %s, got %s", mode, profile.Mode)
				}
			}
		})

		t.Run("Rejects Unknown Mode", func(t *testing.T) {
			repo := NewProfileRepository(setupTestDB(t))
			repo.EnsureProfile(ctx, 1, "u")

			if err := repo.SetMode(ctx, 1, models.Mode("pro")); err == nil {
				t.Error("expected check constraint violation")
			}
		})

		t.Run("Missing Profile", func(t *testing.T) {
			repo := NewProfileRepository(setupTestDB(t))

			if err := repo.SetMode(ctx, 5, models.ModeBasic); !errors.Is(err, shared.ErrProfileNotFound) {
				t.Errorf("expected ErrProfileNotFound, got %v", err)
			}
		})
	})

	t.Run("AppendDownload", func(t *testing.T) {
		t.Run("Increments Counter", func(t *testing.T) {
			repo := NewProfileRepository(setupTestDB(t))
			repo.EnsureProfile(ctx, 1, "u")

			for want := 1; want <= 3; want++ {
				got, err := repo.AppendDownload(ctx, 1, models.Track{Artist: "Muse", Title: "Uprising"}, time.Now())
				if err != nil {
					t.Fatalf("append failed: %v", err)
				}
				if got != want {
					t.Errorf("expected count %d, got %d", want, got)
				}
			}
		})

		t.Run("Missing Profile Writes Nothing", func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewProfileRepository(db)

			_, err := repo.AppendDownload(ctx, 404, models.Track{Artist: "a", Title: "b"}, time.Now())
			if !errors.Is(err, shared.ErrProfileNotFound) {
				t.Fatalf("expected ErrProfileNotFound, got %v", err)
			}

			var n int
			if err := db.QueryRow("SELECT COUNT(*) FROM downloads").Scan(&n); err != nil {
				t.Fatal(err)
			}
			if n != 0 {
				t.Errorf("expected no download rows, got %d", n)
			}
		})

		t.Run("Concurrent Appends Do Not Lose Updates", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.db")
			db, err := shared.NewDatabase(path)
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			defer db.Close()
			if err := shared.RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}
			db.SetMaxOpenConns(1)

			repo := NewProfileRepository(db)
			repo.EnsureProfile(ctx, 1, "u")

			const n = 20
			counts := make(chan int, n)
			var wg sync.WaitGroup
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					c, err := repo.AppendDownload(ctx, 1, models.Track{Artist: "a", Title: "b"}, time.Now())
					if err != nil {
						t.Errorf("append failed: %v", err)
						return
					}
					counts <- c
				}()
			}
			wg.Wait()
			close(counts)

			seen := make(map[int]bool)
			for c := range counts {
				if seen[c] {
					t.Errorf("count %d returned twice", c)
				}
				seen[c] = true
			}

			profile, _ := repo.GetProfile(ctx, 1)
			if profile.InteractionCount != n {
				t.Errorf("expected %d interactions, got %d", n, profile.InteractionCount)
			}
		})
	})

	t.Run("ListRecentDownloads", func(t *testing.T) {
		repo := NewProfileRepository(setupTestDB(t))
		repo.EnsureProfile(ctx, 1, "u")
		repo.EnsureProfile(ctx, 2, "v")

		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		for i, title := range []string{"one", "two", "three", "four", "five", "six"} {
			if _, err := repo.AppendDownload(ctx, 1, models.Track{Artist: "A", Title: title}, base.Add(time.Duration(i)*time.Minute)); err != nil {
				t.Fatalf("append failed: %v", err)
			}
		}
		repo.AppendDownload(ctx, 2, models.Track{Artist: "B", Title: "other"}, base.Add(time.Hour))
		repo.AppendDownload(ctx, 1, models.Track{Artist: "A", Title: "tie"}, base.Add(5*time.Minute))

		t.Run("Newest First With Limit", func(t *testing.T) {
			records, err := repo.ListRecentDownloads(ctx, 1, 5)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}

			want := []string{"tie", "six", "five", "four", "three"}
			if len(records) != len(want) {
				t.Fatalf("expected %d records, got %d", len(want), len(records))
			}
			for i, title := range want {
				if records[i].Title != title {
					t.Errorf("record %d = %q, want %q", i, records[i].Title, title)
				}
				if records[i].UserID != 1 || records[i].Artist != "A" {
					t.Errorf("unexpected record %+v", records[i])
				}
			}
			if !records[1].DownloadedAt.Equal(base.Add(5 * time.Minute)) {
				t.Errorf("unexpected timestamp %v", records[1].DownloadedAt)
			}
		})

		t.Run("No Limit", func(t *testing.T) {
			records, _ := repo.ListRecentDownloads(ctx, 1, 0)
			if len(records) != 7 {
				t.Errorf("expected 7 records, got %d", len(records))
			}
		})

		t.Run("Empty History", func(t *testing.T) {
			records, err := repo.ListRecentDownloads(ctx, 3, 5)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if records == nil || len(records) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", records)
			}
		})
	})
}
