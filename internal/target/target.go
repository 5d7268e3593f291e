// Package target writes meetings to the new relational database.
package target

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/charmbracelet/log"
)

// Store persists meetings and exposes the dedupe lookup the engine
// relies on for idempotent re-runs.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStore creates a Store over an open target database connection.
func NewStore(db *sql.DB, logger *log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ping verifies the target database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTargetUnavailable, err)
	}
	return nil
}

// FindExisting looks up a meeting by the exact five-column identity
// used for deduplication. It returns the existing id, or nil when no
// matching row exists.
func (s *Store) FindExisting(ctx context.Context, date time.Time, speaker, topic string, isGospel, isSpecial bool) (*string, error) {
	query := `
		SELECT id FROM meetings
		WHERE date = $1 AND speaker = $2 AND topic = $3
		AND is_gospel = $4 AND is_special_meeting = $5`

	var id string
	err := s.db.QueryRowContext(ctx, query, date.UTC(), speaker, topic, isGospel, isSpecial).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing meeting: %w", err)
	}
	return &id, nil
}

// Insert writes a new meeting row and returns its id. When the meeting
// carries no id one is generated.
func (s *Store) Insert(ctx context.Context, meeting *models.Meeting) (string, error) {
	if meeting.ID == "" {
		meeting.ID = shared.GenerateID()
	}

	if err := meeting.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}
	meeting.UpdatedAt = now

	query := `
		INSERT INTO meetings (id, date, speaker, topic, audio_object_key, video_url, is_gospel, is_special_meeting, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		meeting.ID,
		meeting.Date.UTC(),
		meeting.Speaker,
		meeting.Topic,
		nullable(meeting.AudioObjectKey),
		nullable(meeting.VideoURL),
		meeting.IsGospel,
		meeting.IsSpecialMeeting,
		meeting.CreatedAt,
		meeting.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert failed: %v", shared.ErrTargetWrite, err)
	}

	return meeting.ID, nil
}

// Get returns a meeting by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Meeting, error) {
	query := `
		SELECT id, date, speaker, topic, audio_object_key, video_url, is_gospel, is_special_meeting, created_at, updated_at
		FROM meetings WHERE id = $1`

	var (
		m        models.Meeting
		audioKey sql.NullString
		videoURL sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Date, &m.Speaker, &m.Topic, &audioKey, &videoURL,
		&m.IsGospel, &m.IsSpecialMeeting, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: meeting %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	m.AudioObjectKey = audioKey.String
	m.VideoURL = videoURL.String
	return &m, nil
}

// UpdateAudioObjectKey records the object store location of a meeting's
// audio after a successful transfer.
func (s *Store) UpdateAudioObjectKey(ctx context.Context, id, key string) error {
	return s.patch(ctx, id, "audio_object_key", key)
}

// UpdateVideoURL sets the embeddable video link for a meeting.
func (s *Store) UpdateVideoURL(ctx context.Context, id, url string) error {
	return s.patch(ctx, id, "video_url", url)
}

// UpdateSpeaker rewrites a meeting's speaker to a canonical name.
func (s *Store) UpdateSpeaker(ctx context.Context, id, speaker string) error {
	return s.patch(ctx, id, "speaker", speaker)
}

func (s *Store) patch(ctx context.Context, id, column, value string) error {
	query := fmt.Sprintf("UPDATE meetings SET %s = $1, updated_at = $2 WHERE id = $3", column)

	result, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: update %s failed: %v", shared.ErrTargetWrite, column, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update %s failed: %v", shared.ErrTargetWrite, column, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: meeting %s", shared.ErrRecordNotFound, id)
	}
	return nil
}

// Count returns the number of meetings in the target database.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM meetings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count meetings: %w", err)
	}
	return count, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
