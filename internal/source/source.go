// Package source reads the legacy message archive.
//
// Access is strictly read-only: the two message tables are snapshotted
// once per run, ordered by id, and never written to.
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/charmbracelet/log"
)

// Reader provides snapshot reads over the legacy database.
type Reader struct {
	db     *sql.DB
	logger *log.Logger
}

// NewReader creates a Reader over an open legacy database connection.
func NewReader(db *sql.DB, logger *log.Logger) *Reader {
	return &Reader{db: db, logger: logger}
}

// Ping verifies the legacy database is reachable. Failure is fatal for
// the whole run: there is no partial migration without the source.
func (r *Reader) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
	}
	return nil
}

// SundayMessages returns every row of the sunday message table in id order.
func (r *Reader) SundayMessages(ctx context.Context) ([]models.SourceMessage, error) {
	return r.messages(ctx, models.CollectionSunday, "ssca_sunday_msg")
}

// SpecialMessages returns every row of the special message table in id order.
func (r *Reader) SpecialMessages(ctx context.Context) ([]models.SourceMessage, error) {
	return r.messages(ctx, models.CollectionSpecial, "ssca_special_msg")
}

func (r *Reader) messages(ctx context.Context, collection models.Collection, table string) ([]models.SourceMessage, error) {
	query := fmt.Sprintf(`
		SELECT id, date, date_ts, speaker, theme, gospel, audio_file, youtube_link
		FROM %s
		ORDER BY id`, table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var messages []models.SourceMessage
	for rows.Next() {
		var (
			m           models.SourceMessage
			gospel      int
			audioFile   sql.NullString
			youtubeLink sql.NullString
		)

		if err := rows.Scan(&m.ID, &m.Date, &m.DateTS, &m.Speaker, &m.Theme, &gospel, &audioFile, &youtubeLink); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}

		m.Collection = collection
		m.Gospel = gospel == 1
		m.AudioFile = audioFile.String
		m.YoutubeLink = youtubeLink.String
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	r.logger.Info("loaded source messages", "collection", collection, "count", len(messages))
	return messages, nil
}

// Counts returns the row counts of both message tables.
func (r *Reader) Counts(ctx context.Context) (sunday, special int, err error) {
	if err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ssca_sunday_msg").Scan(&sunday); err != nil {
		return 0, 0, fmt.Errorf("failed to count sunday messages: %w", err)
	}
	if err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ssca_special_msg").Scan(&special); err != nil {
		return 0, 0, fmt.Errorf("failed to count special messages: %w", err)
	}
	return sunday, special, nil
}

// Speakers returns every speaker value from both tables, duplicates
// included, for frequency analysis.
func (r *Reader) Speakers(ctx context.Context) ([]string, error) {
	var speakers []string

	for _, table := range []string{"ssca_sunday_msg", "ssca_special_msg"} {
		rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT speaker FROM %s ORDER BY id", table))
		if err != nil {
			return nil, fmt.Errorf("failed to query speakers from %s: %w", table, err)
		}

		for rows.Next() {
			var speaker string
			if err := rows.Scan(&speaker); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan speaker: %w", err)
			}
			speakers = append(speakers, speaker)
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("row iteration error: %w", err)
		}
		rows.Close()
	}

	return speakers, nil
}
