package target

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/charmbracelet/log"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := shared.NewDatabase("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewStore(db, log.New(nil))
}

func sampleMeeting() *models.Meeting {
	return &models.Meeting{
		Date:    time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC),
		Speaker: "John Smith",
		Topic:   "Hope",
	}
}

func TestStore_Insert(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	t.Run("generates id and stamps timestamps", func(t *testing.T) {
		meeting := sampleMeeting()
		id, err := store.Insert(ctx, meeting)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == "" {
			t.Fatal("expected a generated id")
		}

		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to read back meeting: %v", err)
		}
		if got.Speaker != "John Smith" {
			t.Errorf("unexpected speaker %q", got.Speaker)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("expected created_at and updated_at to be set")
		}
	})

	t.Run("rejects meeting without speaker", func(t *testing.T) {
		meeting := sampleMeeting()
		meeting.Speaker = ""
		if _, err := store.Insert(ctx, meeting); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestStore_FindExisting(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	meeting := sampleMeeting()
	meeting.IsGospel = true
	id, err := store.Insert(ctx, meeting)
	if err != nil {
		t.Fatalf("failed to insert meeting: %v", err)
	}

	t.Run("exact match returns id", func(t *testing.T) {
		found, err := store.FindExisting(ctx, meeting.Date, "John Smith", "Hope", true, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found == nil || *found != id {
			t.Errorf("expected id %s, got %v", id, found)
		}
	})

	t.Run("any column mismatch returns nil", func(t *testing.T) {
		cases := []struct {
			name      string
			date      time.Time
			speaker   string
			topic     string
			isGospel  bool
			isSpecial bool
		}{
			{"different date", meeting.Date.AddDate(0, 0, 7), "John Smith", "Hope", true, false},
			{"different speaker", meeting.Date, "Jane Doe", "Hope", true, false},
			{"different topic", meeting.Date, "John Smith", "Grace", true, false},
			{"different gospel flag", meeting.Date, "John Smith", "Hope", false, false},
			{"different special flag", meeting.Date, "John Smith", "Hope", true, true},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				found, err := store.FindExisting(ctx, tc.date, tc.speaker, tc.topic, tc.isGospel, tc.isSpecial)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if found != nil {
					t.Errorf("expected no match, got id %s", *found)
				}
			})
		}
	})
}

func TestStore_Patches(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, sampleMeeting())
	if err != nil {
		t.Fatalf("failed to insert meeting: %v", err)
	}

	t.Run("update audio object key", func(t *testing.T) {
		if err := store.UpdateAudioObjectKey(ctx, id, "ssca_sunday_msg/2021/20210314.mp3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to read back meeting: %v", err)
		}
		if got.AudioObjectKey != "ssca_sunday_msg/2021/20210314.mp3" {
			t.Errorf("unexpected audio key %q", got.AudioObjectKey)
		}
	})

	t.Run("update video url", func(t *testing.T) {
		url := "https://www.youtube-nocookie.com/embed/abc123"
		if err := store.UpdateVideoURL(ctx, id, url); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to read back meeting: %v", err)
		}
		if got.VideoURL != url {
			t.Errorf("unexpected video url %q", got.VideoURL)
		}
	})

	t.Run("update speaker", func(t *testing.T) {
		if err := store.UpdateSpeaker(ctx, id, "Jonathan Smith"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to read back meeting: %v", err)
		}
		if got.Speaker != "Jonathan Smith" {
			t.Errorf("unexpected speaker %q", got.Speaker)
		}
	})

	t.Run("unknown id reports record not found", func(t *testing.T) {
		err := store.UpdateAudioObjectKey(ctx, "missing", "key")
		if !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})
}

func TestStore_Count(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 meetings, got %d", count)
	}

	if _, err := store.Insert(ctx, sampleMeeting()); err != nil {
		t.Fatalf("failed to insert meeting: %v", err)
	}

	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 meeting, got %d", count)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, shared.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}
