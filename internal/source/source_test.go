package source

import (
	"context"
	"database/sql"
	"testing"

	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/charmbracelet/log"
)

func setupLegacyDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE ssca_sunday_msg (
			id INTEGER PRIMARY KEY,
			date TEXT NOT NULL,
			date_ts INTEGER NOT NULL,
			speaker TEXT NOT NULL,
			theme TEXT NOT NULL,
			gospel INTEGER NOT NULL DEFAULT 0,
			audio_file TEXT,
			youtube_link TEXT
		);
		CREATE TABLE ssca_special_msg (
			id INTEGER PRIMARY KEY,
			date TEXT NOT NULL,
			date_ts INTEGER NOT NULL,
			speaker TEXT NOT NULL,
			theme TEXT NOT NULL,
			gospel INTEGER NOT NULL DEFAULT 0,
			audio_file TEXT,
			youtube_link TEXT
		);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create legacy tables: %v", err)
	}

	return db
}

func TestReader_SundayMessages(t *testing.T) {
	db := setupLegacyDB(t)
	reader := NewReader(db, log.New(nil))
	ctx := context.Background()

	t.Run("empty table returns no messages", func(t *testing.T) {
		messages, err := reader.SundayMessages(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(messages) != 0 {
			t.Errorf("expected 0 messages, got %d", len(messages))
		}
	})

	t.Run("rows scan in id order", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO ssca_sunday_msg (id, date, date_ts, speaker, theme, gospel, audio_file, youtube_link) VALUES
			(2, '2021-03-14', 1615680000, 'Jane Doe', 'Grace', 1, '20210314.mp3', 'https://youtu.be/abc123'),
			(1, '2021-03-07', 1615075200, 'John Smith', 'Hope', 0, '20210307.mp3', NULL)`)
		if err != nil {
			t.Fatalf("failed to seed rows: %v", err)
		}

		messages, err := reader.SundayMessages(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(messages))
		}

		first := messages[0]
		if first.ID != 1 {
			t.Errorf("expected id 1 first, got %d", first.ID)
		}
		if first.Collection != models.CollectionSunday {
			t.Errorf("expected sunday collection, got %s", first.Collection)
		}
		if first.Gospel {
			t.Error("expected gospel false for first row")
		}
		if first.YoutubeLink != "" {
			t.Errorf("expected empty youtube link for NULL, got %q", first.YoutubeLink)
		}

		second := messages[1]
		if !second.Gospel {
			t.Error("expected gospel true for second row")
		}
		if second.YoutubeLink != "https://youtu.be/abc123" {
			t.Errorf("unexpected youtube link %q", second.YoutubeLink)
		}
	})
}

func TestReader_SpecialMessages(t *testing.T) {
	db := setupLegacyDB(t)
	reader := NewReader(db, log.New(nil))
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO ssca_special_msg (id, date, date_ts, speaker, theme, gospel, audio_file, youtube_link) VALUES
		(5, '2020-12-25', 1608854400, 'Guest Speaker', 'Christmas', 0, NULL, NULL)`)
	if err != nil {
		t.Fatalf("failed to seed row: %v", err)
	}

	messages, err := reader.SpecialMessages(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Collection != models.CollectionSpecial {
		t.Errorf("expected special collection, got %s", messages[0].Collection)
	}
	if messages[0].AudioFile != "" {
		t.Errorf("expected empty audio file for NULL, got %q", messages[0].AudioFile)
	}
	if messages[0].Key() != "special_5" {
		t.Errorf("unexpected record key %q", messages[0].Key())
	}
}

func TestReader_Speakers(t *testing.T) {
	db := setupLegacyDB(t)
	reader := NewReader(db, log.New(nil))
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO ssca_sunday_msg (id, date, date_ts, speaker, theme, gospel) VALUES
		(1, '2021-01-03', 1609632000, 'John Smith', 'A', 0),
		(2, '2021-01-10', 1610236800, 'John Smith', 'B', 0)`)
	if err != nil {
		t.Fatalf("failed to seed sunday rows: %v", err)
	}
	_, err = db.Exec(`INSERT INTO ssca_special_msg (id, date, date_ts, speaker, theme, gospel) VALUES
		(1, '2021-02-14', 1613260800, 'Jane Doe', 'C', 0)`)
	if err != nil {
		t.Fatalf("failed to seed special row: %v", err)
	}

	speakers, err := reader.Speakers(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(speakers) != 3 {
		t.Fatalf("expected 3 speaker values including duplicates, got %d", len(speakers))
	}
	if speakers[0] != "John Smith" || speakers[1] != "John Smith" || speakers[2] != "Jane Doe" {
		t.Errorf("unexpected speaker order: %v", speakers)
	}

	sunday, special, err := reader.Counts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sunday != 2 || special != 1 {
		t.Errorf("expected counts 2/1, got %d/%d", sunday, special)
	}
}

func TestReader_Ping(t *testing.T) {
	db := setupLegacyDB(t)
	reader := NewReader(db, log.New(nil))

	if err := reader.Ping(context.Background()); err != nil {
		t.Errorf("expected ping to succeed: %v", err)
	}
}
