// package repositories provides the SQLite persistence layer for user profiles and download history.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

// ProfileRepository persists [models.UserProfile] and [models.DownloadRecord] rows.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// EnsureProfile creates the profile if it does not exist. Existing rows are left untouched.
func (r *ProfileRepository) EnsureProfile(ctx context.Context, userID int64, username string) error {
	query := `
		INSERT OR IGNORE INTO users (user_id, username, mode, interaction_count, created_at)
		VALUES (?, ?, ?, 0, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, userID, username, string(models.ModeBasic), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by user ID
func (r *ProfileRepository) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	query := `
		SELECT user_id, username, mode, interaction_count, created_at
		FROM users
		WHERE user_id = ?
	`

	var (
		profile models.UserProfile
		mode    string
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID, &profile.Username, &mode, &profile.InteractionCount, &profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	profile.Mode = models.Mode(mode)
	return &profile, nil
}

// SetMode overwrites the display mode.
func (r *ProfileRepository) SetMode(ctx context.Context, userID int64, mode models.Mode) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET mode = ? WHERE user_id = ?`, string(mode), userID)
	if err != nil {
		return fmt.Errorf("failed to update mode: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", shared.ErrProfileNotFound, userID)
	}
	return nil
}

// AppendDownload records a delivered track and bumps the interaction counter in one transaction.
// It returns the counter after the increment.
func (r *ProfileRepository) AppendDownload(ctx context.Context, userID int64, track models.Track, at time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET interaction_count = interaction_count + 1 WHERE user_id = ? RETURNING interaction_count`,
		userID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", shared.ErrProfileNotFound, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment interaction count: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO downloads (user_id, track_name, artist, downloaded_at) VALUES (?, ?, ?, ?)`,
		userID, track.Title, track.Artist, at.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert download: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit download transaction: %w", err)
	}
	return count, nil
}

// ListRecentDownloads returns up to limit records, newest first.
func (r *ProfileRepository) ListRecentDownloads(ctx context.Context, userID int64, limit int) ([]models.DownloadRecord, error) {
	query := `
		SELECT user_id, track_name, artist, downloaded_at
		FROM downloads
		WHERE user_id = ?
		ORDER BY downloaded_at DESC, id DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	records := make([]models.DownloadRecord, 0)
	for rows.Next() {
		var rec models.DownloadRecord
		if err := rows.Scan(&rec.UserID, &rec.Title, &rec.Artist, &rec.DownloadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate downloads: %w", err)
	}
	return records, nil
}
