package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/assets"
	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/progress"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/charmbracelet/log"
)

type mockSource struct {
	sunday  []models.SourceMessage
	special []models.SourceMessage
	pingErr error
}

func (m *mockSource) Ping(ctx context.Context) error { return m.pingErr }
func (m *mockSource) SundayMessages(ctx context.Context) ([]models.SourceMessage, error) {
	return m.sunday, nil
}
func (m *mockSource) SpecialMessages(ctx context.Context) ([]models.SourceMessage, error) {
	return m.special, nil
}

type mockTarget struct {
	inserts    []*models.Meeting
	audioKeys  map[string]string
	videoURLs  map[string]string
	speakers   map[string]string
	existingID *string
	insertErr  error
	pingErr    error
	onInsert   func()
}

func newMockTarget() *mockTarget {
	return &mockTarget{
		audioKeys: map[string]string{},
		videoURLs: map[string]string{},
		speakers:  map[string]string{},
	}
}

func (m *mockTarget) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockTarget) FindExisting(ctx context.Context, date time.Time, speaker, topic string, isGospel, isSpecial bool) (*string, error) {
	return m.existingID, nil
}

func (m *mockTarget) Insert(ctx context.Context, meeting *models.Meeting) (string, error) {
	if m.insertErr != nil {
		return "", m.insertErr
	}
	meeting.ID = fmt.Sprintf("meeting-%d", len(m.inserts)+1)
	m.inserts = append(m.inserts, meeting)
	if m.onInsert != nil {
		m.onInsert()
	}
	return meeting.ID, nil
}

func (m *mockTarget) UpdateAudioObjectKey(ctx context.Context, id, key string) error {
	m.audioKeys[id] = key
	return nil
}

func (m *mockTarget) UpdateVideoURL(ctx context.Context, id, url string) error {
	m.videoURLs[id] = url
	return nil
}

func (m *mockTarget) UpdateSpeaker(ctx context.Context, id, speaker string) error {
	m.speakers[id] = speaker
	return nil
}

type mockAssets struct {
	transfers []string
	failures  int
	pingErr   error
}

func (m *mockAssets) PingStorage(ctx context.Context) error { return m.pingErr }
func (m *mockAssets) CheckWebsite(ctx context.Context) bool { return true }

func (m *mockAssets) ComposeSourceURL(collection models.Collection, filename string) string {
	return "https://legacy.example.com/" + filename
}

func (m *mockAssets) Transfer(ctx context.Context, sourceURL, targetKey string, overwrite bool) assets.Result {
	m.transfers = append(m.transfers, targetKey)
	if m.failures > 0 {
		m.failures--
		return assets.Result{Error: "download failed: HTTP 500"}
	}
	return assets.Result{Success: true, Bytes: 1024}
}

type identityNames struct{}

func (identityNames) Normalize(raw string) string { return raw }

type mappedNames map[string]string

func (m mappedNames) Normalize(raw string) string {
	if canonical, ok := m[raw]; ok {
		return canonical
	}
	return raw
}

func testLedger(t *testing.T, dryRun bool) *progress.Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.json")
	return progress.Load(path, dryRun, log.New(nil))
}

func testConfig() shared.MigrationConfig {
	return shared.MigrationConfig{
		BatchSize:  2,
		MaxRetries: 3,
	}
}

func sampleMessages() []models.SourceMessage {
	return []models.SourceMessage{
		{ID: 1, Collection: models.CollectionSunday, Date: "2021-03-07", Speaker: "John Smith", Theme: "Hope", AudioFile: "20210307.mp3"},
		{ID: 2, Collection: models.CollectionSunday, Date: "2021-03-14", Speaker: "Jane Doe", Theme: "Grace", Gospel: true, AudioFile: "20210314.mp3"},
		{ID: 3, Collection: models.CollectionSunday, Date: "2021-03-21", Speaker: "John Smith", Theme: "Peace"},
	}
}

func newTestEngine(source *mockSource, target *mockTarget, store *mockAssets, ledger *progress.Ledger, cfg shared.MigrationConfig) *Engine {
	return NewEngine(source, target, store, ledger, identityNames{}, cfg, log.New(nil))
}

func TestEngine_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("migrates both halves of every record", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()}
		target := newMockTarget()
		store := &mockAssets{}
		ledger := testLedger(t, false)
		engine := newTestEngine(source, target, store, ledger, testConfig())

		result, err := engine.Run(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Status != models.RunCompleted {
			t.Errorf("expected completed status, got %s", result.Status)
		}
		if len(target.inserts) != 3 {
			t.Errorf("expected 3 inserts, got %d", len(target.inserts))
		}
		if len(store.transfers) != 2 {
			t.Errorf("expected 2 transfers, got %d", len(store.transfers))
		}
		if result.Statistics.MigratedSundayMessages != 3 {
			t.Errorf("expected 3 migrated, got %d", result.Statistics.MigratedSundayMessages)
		}
		if result.Statistics.SkippedRecords != 1 {
			t.Errorf("expected 1 skipped asset, got %d", result.Statistics.SkippedRecords)
		}
		if result.Statistics.AudioBytesUploaded != 2048 {
			t.Errorf("expected 2048 bytes uploaded, got %d", result.Statistics.AudioBytesUploaded)
		}
		if store.transfers[0] != "sunday/2021/20210307.mp3" {
			t.Errorf("unexpected object key %q", store.transfers[0])
		}
		if len(target.audioKeys) != 2 {
			t.Errorf("expected 2 audio key patches, got %d", len(target.audioKeys))
		}
	})

	t.Run("insert carries the computed object key", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()}
		target := newMockTarget()
		store := &mockAssets{failures: 10}
		ledger := testLedger(t, false)
		engine := newTestEngine(source, target, store, ledger, testConfig())

		if _, err := engine.Run(ctx, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Rows carry the key even though every transfer failed.
		if got := target.inserts[0].AudioObjectKey; got != "sunday/2021/20210307.mp3" {
			t.Errorf("expected insert to carry object key, got %q", got)
		}
		if got := target.inserts[2].AudioObjectKey; got != "" {
			t.Errorf("expected empty key for record without audio, got %q", got)
		}
	})

	t.Run("resumes from ledger without duplicate inserts", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()}
		ledger := testLedger(t, false)

		id := "already-done"
		ledger.RecordDatabaseResult(models.CollectionSunday, 1, &id, true, "")
		ledger.RecordAssetResult(models.CollectionSunday, 1, "20210307.mp3", "sunday/2021/20210307.mp3", 512, true, "")

		target := newMockTarget()
		store := &mockAssets{}
		engine := newTestEngine(source, target, store, ledger, testConfig())

		if _, err := engine.Run(ctx, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(target.inserts) != 2 {
			t.Errorf("expected 2 inserts for remaining records, got %d", len(target.inserts))
		}
		if len(store.transfers) != 1 {
			t.Errorf("expected 1 transfer for remaining record, got %d", len(store.transfers))
		}
	})

	t.Run("adopts existing target row instead of inserting", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()[:1]}
		target := newMockTarget()
		existing := "pre-existing"
		target.existingID = &existing
		store := &mockAssets{}
		ledger := testLedger(t, false)
		engine := newTestEngine(source, target, store, ledger, testConfig())

		if _, err := engine.Run(ctx, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(target.inserts) != 0 {
			t.Errorf("expected no inserts, got %d", len(target.inserts))
		}
		if target.audioKeys["pre-existing"] != "sunday/2021/20210307.mp3" {
			t.Errorf("expected audio key patched onto existing row, got %v", target.audioKeys)
		}
	})

	t.Run("retry pass recovers transient transfer failures", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()[:1]}
		target := newMockTarget()
		store := &mockAssets{failures: 1}
		ledger := testLedger(t, false)
		engine := newTestEngine(source, target, store, ledger, testConfig())

		result, err := engine.Run(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Status != models.RunCompleted {
			t.Errorf("expected completed status after retry, got %s", result.Status)
		}
		if len(store.transfers) != 2 {
			t.Errorf("expected initial attempt plus retry, got %d transfers", len(store.transfers))
		}
		if result.Statistics.FailedRecords != 0 {
			t.Errorf("expected no failed records, got %d", result.Statistics.FailedRecords)
		}
	})

	t.Run("exhausted retries leave record failed", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()[:1]}
		target := newMockTarget()
		store := &mockAssets{failures: 10}
		ledger := testLedger(t, false)
		engine := newTestEngine(source, target, store, ledger, testConfig())

		result, err := engine.Run(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Status != models.RunCompletedWithErrors {
			t.Errorf("expected completed-with-errors, got %s", result.Status)
		}
		if len(result.FailedRecords) != 1 {
			t.Fatalf("expected 1 failed record, got %d", len(result.FailedRecords))
		}
		if result.FailedRecords[0].Key() != "sunday_1" {
			t.Errorf("unexpected failed record %s", result.FailedRecords[0].Key())
		}
	})

	t.Run("dry run touches nothing", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()}
		target := newMockTarget()
		store := &mockAssets{}
		ledger := testLedger(t, true)
		cfg := testConfig()
		cfg.DryRun = true
		engine := newTestEngine(source, target, store, ledger, cfg)

		result, err := engine.Run(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(target.inserts) != 0 {
			t.Errorf("expected no inserts in dry run, got %d", len(target.inserts))
		}
		if len(store.transfers) != 0 {
			t.Errorf("expected no transfers in dry run, got %d", len(store.transfers))
		}
		if result.Status != models.RunCompleted {
			t.Errorf("expected completed status, got %s", result.Status)
		}
		if result.Statistics.MigratedSundayMessages != 3 {
			t.Errorf("expected 3 simulated migrations, got %d", result.Statistics.MigratedSundayMessages)
		}
	})

	t.Run("source connection failure aborts the run", func(t *testing.T) {
		source := &mockSource{pingErr: fmt.Errorf("%w: connection refused", shared.ErrSourceUnavailable)}
		ledger := testLedger(t, false)
		engine := newTestEngine(source, newMockTarget(), &mockAssets{}, ledger, testConfig())

		_, err := engine.Run(ctx, nil)
		if !errors.Is(err, shared.ErrSourceUnavailable) {
			t.Errorf("expected ErrSourceUnavailable, got %v", err)
		}
		if ledger.Status() != models.RunFailed {
			t.Errorf("expected failed run status, got %s", ledger.Status())
		}
	})

	t.Run("abort mid-migration persists failed status", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		source := &mockSource{sunday: sampleMessages()}
		target := newMockTarget()
		target.onInsert = cancel
		ledger := testLedger(t, false)
		engine := newTestEngine(source, target, &mockAssets{}, ledger, testConfig())

		_, err := engine.Run(cancelCtx, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if ledger.Status() != models.RunFailed {
			t.Errorf("expected failed run status after abort, got %s", ledger.Status())
		}
	})

	t.Run("dry run still validates target connection", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()}
		target := newMockTarget()
		target.pingErr = fmt.Errorf("%w: connection refused", shared.ErrTargetUnavailable)
		ledger := testLedger(t, true)
		cfg := testConfig()
		cfg.DryRun = true
		engine := newTestEngine(source, target, &mockAssets{}, ledger, cfg)

		_, err := engine.Run(ctx, nil)
		if !errors.Is(err, shared.ErrTargetUnavailable) {
			t.Fatalf("expected ErrTargetUnavailable, got %v", err)
		}
		if ledger.Status() != models.RunFailed {
			t.Errorf("expected failed run status, got %s", ledger.Status())
		}
		if len(target.inserts) != 0 {
			t.Errorf("expected no inserts, got %d", len(target.inserts))
		}
	})

	t.Run("insert failure marks record failed but continues", func(t *testing.T) {
		source := &mockSource{sunday: sampleMessages()[:2]}
		target := newMockTarget()
		target.insertErr = fmt.Errorf("%w: disk full", shared.ErrTargetWrite)
		store := &mockAssets{}
		ledger := testLedger(t, false)
		engine := newTestEngine(source, target, store, ledger, testConfig())

		result, err := engine.Run(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Status != models.RunCompletedWithErrors {
			t.Errorf("expected completed-with-errors, got %s", result.Status)
		}
		if result.Statistics.FailedRecords != 2 {
			t.Errorf("expected 2 failed records, got %d", result.Statistics.FailedRecords)
		}
		if len(store.transfers) != 0 {
			t.Errorf("expected no transfers when database half failed, got %d", len(store.transfers))
		}
	})
}

func TestEngine_Run_ProgressUpdates(t *testing.T) {
	source := &mockSource{sunday: sampleMessages()[:1]}
	ledger := testLedger(t, false)
	engine := newTestEngine(source, newMockTarget(), &mockAssets{}, ledger, testConfig())

	progressCh := make(chan ProgressUpdate, 64)
	if _, err := engine.Run(context.Background(), progressCh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(progressCh)

	phases := map[Phase]bool{}
	for update := range progressCh {
		phases[update.Phase] = true
	}

	for _, phase := range []Phase{ConnectionCheck, LoadSource, MigrateSunday, Finalize} {
		if !phases[phase] {
			t.Errorf("expected a %s update", phase)
		}
	}
}

func TestEngine_LinkVideos(t *testing.T) {
	ctx := context.Background()

	messages := []models.SourceMessage{
		{ID: 1, Collection: models.CollectionSunday, Date: "2021-03-07", Speaker: "John Smith", Theme: "Hope", YoutubeLink: "https://youtu.be/abc123"},
		{ID: 2, Collection: models.CollectionSunday, Date: "2021-03-14", Speaker: "Jane Doe", Theme: "Grace", YoutubeLink: "https://youtu.be/def456"},
		{ID: 3, Collection: models.CollectionSunday, Date: "2021-03-21", Speaker: "John Smith", Theme: "Peace"},
	}

	source := &mockSource{sunday: messages}
	target := newMockTarget()
	ledger := testLedger(t, false)

	id := "meeting-1"
	ledger.RecordDatabaseResult(models.CollectionSunday, 1, &id, true, "")

	engine := newTestEngine(source, target, &mockAssets{}, ledger, testConfig())

	result, err := engine.LinkVideos(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Updated != 1 {
		t.Errorf("expected 1 update, got %d", result.Updated)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skip for unmigrated record, got %d", result.Skipped)
	}
	if target.videoURLs["meeting-1"] != "https://www.youtube-nocookie.com/embed/abc123" {
		t.Errorf("unexpected video url %q", target.videoURLs["meeting-1"])
	}
}

func TestEngine_NormalizeSpeakers(t *testing.T) {
	ctx := context.Background()

	messages := []models.SourceMessage{
		{ID: 1, Collection: models.CollectionSunday, Date: "2021-03-07", Speaker: "J. Smith", Theme: "Hope"},
		{ID: 2, Collection: models.CollectionSunday, Date: "2021-03-14", Speaker: "Jane Doe", Theme: "Grace"},
	}

	source := &mockSource{sunday: messages}
	target := newMockTarget()
	ledger := testLedger(t, false)

	id := "meeting-1"
	ledger.RecordDatabaseResult(models.CollectionSunday, 1, &id, true, "")

	names := mappedNames{"J. Smith": "John Smith"}
	engine := NewEngine(source, target, &mockAssets{}, ledger, names, testConfig(), log.New(nil))

	result, err := engine.NormalizeSpeakers(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Updated != 1 {
		t.Errorf("expected 1 update, got %d", result.Updated)
	}
	if target.speakers["meeting-1"] != "John Smith" {
		t.Errorf("unexpected speaker %q", target.speakers["meeting-1"])
	}
}
