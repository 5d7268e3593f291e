package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/assets"
	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/progress"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/HaoWang-SSCA/migrate/internal/youtube"
	"github.com/charmbracelet/log"
)

// SourceReader reads the legacy message tables.
type SourceReader interface {
	Ping(ctx context.Context) error
	SundayMessages(ctx context.Context) ([]models.SourceMessage, error)
	SpecialMessages(ctx context.Context) ([]models.SourceMessage, error)
}

// TargetStore writes meetings to the new database.
type TargetStore interface {
	Ping(ctx context.Context) error
	FindExisting(ctx context.Context, date time.Time, speaker, topic string, isGospel, isSpecial bool) (*string, error)
	Insert(ctx context.Context, meeting *models.Meeting) (string, error)
	UpdateAudioObjectKey(ctx context.Context, id, key string) error
	UpdateVideoURL(ctx context.Context, id, url string) error
	UpdateSpeaker(ctx context.Context, id, speaker string) error
}

// AssetMigrator moves audio files from the legacy website to the object
// store. Implemented by assets.Service.
type AssetMigrator interface {
	PingStorage(ctx context.Context) error
	CheckWebsite(ctx context.Context) bool
	ComposeSourceURL(collection models.Collection, filename string) string
	Transfer(ctx context.Context, sourceURL, targetKey string, overwrite bool) assets.Result
}

// NameNormalizer maps raw speaker names to canonical ones.
type NameNormalizer interface {
	Normalize(raw string) string
}

// RunResult summarizes a completed migration run.
type RunResult struct {
	Status        models.RunStatus
	Statistics    models.Statistics
	Duration      time.Duration
	FailedRecords []*models.RecordProgress
	DryRun        bool
}

// LinkResult summarizes a video link pass.
type LinkResult struct {
	Updated int
	Skipped int
	Failed  int
}

// SpeakerResult summarizes a speaker normalization pass.
type SpeakerResult struct {
	Updated int
	Skipped int
	Failed  int
}

// Engine orchestrates the migration passes. All state lives in the
// ledger, so any pass can be interrupted and resumed.
type Engine struct {
	source SourceReader
	target TargetStore
	assets AssetMigrator
	ledger *progress.Ledger
	names  NameNormalizer
	cfg    shared.MigrationConfig
	logger *log.Logger
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(source SourceReader, target TargetStore, assets AssetMigrator, ledger *progress.Ledger, names NameNormalizer, cfg shared.MigrationConfig, logger *log.Logger) *Engine {
	return &Engine{
		source: source,
		target: target,
		assets: assets,
		ledger: ledger,
		names:  names,
		cfg:    cfg,
		logger: logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run executes the full pipeline: connection checks, both collection
// passes, the retry pass, and finalization. Already-completed records
// in the ledger are skipped, so re-running after a crash picks up where
// the previous run stopped.
func (e *Engine) Run(ctx context.Context, progressCh chan<- ProgressUpdate) (*RunResult, error) {
	started := time.Now()

	result, err := e.run(ctx, progressCh, started)
	if err != nil {
		return nil, e.abort(err)
	}
	return result, nil
}

// abort forces the persisted status to failed so an interrupted run is
// never reported as still in progress.
func (e *Engine) abort(err error) error {
	e.ledger.SetStatus(models.RunFailed)
	if saveErr := e.ledger.Save(); saveErr != nil {
		e.logger.Error("failed to persist aborted run", "error", saveErr)
	}
	return err
}

func (e *Engine) run(ctx context.Context, progressCh chan<- ProgressUpdate, started time.Time) (*RunResult, error) {
	if err := e.checkConnections(ctx, progressCh); err != nil {
		return nil, err
	}

	e.ledger.SetStatus(models.RunInProgress)

	sunday, err := e.source.SundayMessages(ctx)
	if err != nil {
		return nil, err
	}
	special, err := e.source.SpecialMessages(ctx)
	if err != nil {
		return nil, err
	}

	e.ledger.SetTotals(len(sunday), len(special))
	e.sendProgress(progressCh, loadSourceUpdate(len(sunday), len(special)))
	if err := e.ledger.Save(); err != nil {
		return nil, err
	}

	if err := e.migrateCollection(ctx, progressCh, sunday); err != nil {
		return nil, err
	}
	if err := e.migrateCollection(ctx, progressCh, special); err != nil {
		return nil, err
	}

	if err := e.retryFailed(ctx, progressCh); err != nil {
		return nil, err
	}

	stats := e.ledger.Statistics()
	status := models.RunCompleted
	if stats.FailedRecords > 0 {
		status = models.RunCompletedWithErrors
	}
	e.ledger.SetStatus(status)
	if err := e.ledger.Save(); err != nil {
		return nil, err
	}

	e.sendProgress(progressCh, finalizeUpdate(stats))

	return &RunResult{
		Status:        status,
		Statistics:    stats,
		Duration:      time.Since(started),
		FailedRecords: e.failedRecords(),
		DryRun:        e.cfg.DryRun,
	}, nil
}

// checkConnections verifies every dependency before the first write.
// Dry runs check all of them too; validating connectivity is half the
// point of a dry run.
func (e *Engine) checkConnections(ctx context.Context, progressCh chan<- ProgressUpdate) error {
	e.sendProgress(progressCh, connectionUpdate(1, 4, "source database"))
	if err := e.source.Ping(ctx); err != nil {
		return err
	}

	e.sendProgress(progressCh, connectionUpdate(2, 4, "target database"))
	if err := e.target.Ping(ctx); err != nil {
		return err
	}

	e.sendProgress(progressCh, connectionUpdate(3, 4, "object storage"))
	if err := e.assets.PingStorage(ctx); err != nil {
		return err
	}

	// Advisory only. The website may block HEAD requests yet still
	// serve audio files.
	e.sendProgress(progressCh, connectionUpdate(4, 4, "legacy website"))
	if !e.assets.CheckWebsite(ctx) {
		e.logger.Warn("legacy website check failed, audio downloads may not work")
	}

	return nil
}

func (e *Engine) migrateCollection(ctx context.Context, progressCh chan<- ProgressUpdate, messages []models.SourceMessage) error {
	total := len(messages)

	for i, msg := range messages {
		if err := ctx.Err(); err != nil {
			e.ledger.Save()
			return err
		}

		e.sendProgress(progressCh, recordUpdate(i+1, total, msg))
		e.migrateRecord(ctx, progressCh, i+1, total, msg)

		if e.cfg.BatchSize > 0 && (i+1)%e.cfg.BatchSize == 0 {
			if err := e.ledger.Save(); err != nil {
				return err
			}
		}
	}

	return e.ledger.Save()
}

// migrateRecord runs the two halves of a single record. Each half is
// independently resumable: a crash between the database insert and the
// audio upload re-runs only the upload.
func (e *Engine) migrateRecord(ctx context.Context, progressCh chan<- ProgressUpdate, step, total int, msg models.SourceMessage) {
	if e.ledger.IsCompleted(msg.Collection, msg.ID) {
		return
	}

	date := ParseMessageDate(msg.Date, msg.DateTS, e.logger)

	if !e.ledger.IsDatabaseDone(msg.Collection, msg.ID) {
		if reason := e.databaseStep(ctx, msg, date); reason != "" {
			e.sendProgress(progressCh, recordFailedUpdate(step, total, msg, reason))
			return
		}
	}

	if !e.ledger.IsAssetDone(msg.Collection, msg.ID) {
		if reason := e.assetStep(ctx, msg, date); reason != "" {
			e.sendProgress(progressCh, recordFailedUpdate(step, total, msg, reason))
		}
	}
}

// databaseStep inserts the meeting row, or adopts an existing row when
// the five-column identity already exists in the target. Returns an
// empty string on success, otherwise the failure reason.
func (e *Engine) databaseStep(ctx context.Context, msg models.SourceMessage, date time.Time) string {
	speaker := e.names.Normalize(msg.Speaker)
	isSpecial := msg.Collection == models.CollectionSpecial

	if e.cfg.DryRun {
		id := shared.GenerateID()
		e.logger.Info("dry run: would insert meeting",
			"record", msg.Key(), "date", date.Format("2006-01-02"), "speaker", speaker)
		e.ledger.RecordDatabaseResult(msg.Collection, msg.ID, &id, true, "")
		return ""
	}

	existing, err := e.target.FindExisting(ctx, date, speaker, msg.Theme, msg.Gospel, isSpecial)
	if err != nil {
		e.ledger.RecordDatabaseResult(msg.Collection, msg.ID, nil, false, err.Error())
		return err.Error()
	}
	if existing != nil {
		e.logger.Debug("meeting already in target, adopting", "record", msg.Key(), "id", *existing)
		e.ledger.RecordDatabaseResult(msg.Collection, msg.ID, existing, true, "")
		return ""
	}

	meeting := &models.Meeting{
		Date:             date,
		Speaker:          speaker,
		Topic:            msg.Theme,
		IsGospel:         msg.Gospel,
		IsSpecialMeeting: isSpecial,
	}
	// The object key is deterministic, so the row carries it from the
	// start even when the upload itself fails or runs later.
	if msg.AudioFile != "" {
		meeting.AudioObjectKey = assets.ComposeObjectKey(msg.Collection, msg.AudioFile, date)
	}
	if youtube.IsYouTubeURL(msg.YoutubeLink) {
		meeting.VideoURL = youtube.ToEmbedURL(msg.YoutubeLink)
	}

	id, err := e.target.Insert(ctx, meeting)
	if err != nil {
		e.ledger.RecordDatabaseResult(msg.Collection, msg.ID, nil, false, err.Error())
		return err.Error()
	}

	e.ledger.RecordDatabaseResult(msg.Collection, msg.ID, &id, true, "")
	return ""
}

// assetStep downloads the audio file and uploads it to the object
// store, then stamps the object key on the target row. Returns an empty
// string on success or skip, otherwise the failure reason.
func (e *Engine) assetStep(ctx context.Context, msg models.SourceMessage, date time.Time) string {
	if msg.AudioFile == "" {
		e.ledger.SkipAsset(msg.Collection, msg.ID, "no audio file")
		return ""
	}

	key := assets.ComposeObjectKey(msg.Collection, msg.AudioFile, date)
	url := e.assets.ComposeSourceURL(msg.Collection, msg.AudioFile)

	if e.cfg.DryRun {
		e.logger.Info("dry run: would transfer audio", "record", msg.Key(), "url", url, "key", key)
		e.ledger.RecordAssetResult(msg.Collection, msg.ID, msg.AudioFile, key, 0, true, "")
		return ""
	}

	res := e.assets.Transfer(ctx, url, key, false)
	if !res.Success {
		e.ledger.RecordAssetResult(msg.Collection, msg.ID, msg.AudioFile, key, 0, false, res.Error)
		return res.Error
	}

	if err := e.stampObjectKey(ctx, msg.Collection, msg.ID, key); err != nil {
		e.ledger.RecordAssetResult(msg.Collection, msg.ID, msg.AudioFile, key, 0, false, err.Error())
		return err.Error()
	}

	e.ledger.RecordAssetResult(msg.Collection, msg.ID, msg.AudioFile, key, res.Bytes, true, "")
	return ""
}

func (e *Engine) stampObjectKey(ctx context.Context, collection models.Collection, sourceID int, key string) error {
	id := e.ledger.TargetID(collection, sourceID)
	if id == nil {
		return fmt.Errorf("%w: no target id for %s", shared.ErrRecordNotFound, models.RecordKey(collection, sourceID))
	}
	return e.target.UpdateAudioObjectKey(ctx, *id, key)
}

// retryFailed re-attempts the audio transfer for failed records that
// still have retries left. Database failures are not retried here; a
// fresh run resumes them from the ledger instead.
func (e *Engine) retryFailed(ctx context.Context, progressCh chan<- ProgressUpdate) error {
	if e.cfg.DryRun {
		return nil
	}

	candidates := e.ledger.RetryCandidates(e.cfg.MaxRetries)
	if len(candidates) == 0 {
		return nil
	}

	delay := time.Duration(e.cfg.RetryDelaySeconds) * time.Second
	total := len(candidates)
	e.logger.Info("retrying failed records", "count", total, "delay", delay)

	for i, rec := range candidates {
		if !rec.DatabaseDone || rec.SourceAudioFile == "" || rec.TargetObjectKey == "" {
			continue
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				e.ledger.Save()
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		e.sendProgress(progressCh, retryUpdate(i+1, total, rec.Key()))

		url := e.assets.ComposeSourceURL(rec.Collection, rec.SourceAudioFile)
		res := e.assets.Transfer(ctx, url, rec.TargetObjectKey, false)
		if !res.Success {
			e.ledger.RecordAssetResult(rec.Collection, rec.SourceID, rec.SourceAudioFile, rec.TargetObjectKey, 0, false, res.Error)
			continue
		}

		if err := e.stampObjectKey(ctx, rec.Collection, rec.SourceID, rec.TargetObjectKey); err != nil {
			e.ledger.RecordAssetResult(rec.Collection, rec.SourceID, rec.SourceAudioFile, rec.TargetObjectKey, 0, false, err.Error())
			continue
		}

		e.ledger.RecordAssetResult(rec.Collection, rec.SourceID, rec.SourceAudioFile, rec.TargetObjectKey, res.Bytes, true, "")
	}

	return e.ledger.Save()
}

// LinkVideos walks both collections and attaches embeddable video URLs
// to already-migrated meetings. Records without a target id or without
// a recognizable link are skipped.
func (e *Engine) LinkVideos(ctx context.Context, progressCh chan<- ProgressUpdate) (*LinkResult, error) {
	if err := e.source.Ping(ctx); err != nil {
		return nil, err
	}
	if !e.cfg.DryRun {
		if err := e.target.Ping(ctx); err != nil {
			return nil, err
		}
	}

	sunday, err := e.source.SundayMessages(ctx)
	if err != nil {
		return nil, err
	}
	special, err := e.source.SpecialMessages(ctx)
	if err != nil {
		return nil, err
	}

	messages := append(sunday, special...)
	result := &LinkResult{}
	total := len(messages)

	for i, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if msg.YoutubeLink == "" {
			continue
		}

		id := e.ledger.TargetID(msg.Collection, msg.ID)
		if id == nil {
			result.Skipped++
			continue
		}

		embed := youtube.ToEmbedURL(msg.YoutubeLink)
		if embed == "" {
			e.logger.Warn("unrecognized video link", "record", msg.Key(), "link", msg.YoutubeLink)
			result.Skipped++
			continue
		}

		e.sendProgress(progressCh, linkUpdate(i+1, total, msg.Key()))

		if e.cfg.DryRun {
			e.logger.Info("dry run: would link video", "record", msg.Key(), "url", embed)
			result.Updated++
			continue
		}

		if err := e.target.UpdateVideoURL(ctx, *id, embed); err != nil {
			e.logger.Error("failed to link video", "record", msg.Key(), "error", err)
			result.Failed++
			continue
		}
		result.Updated++
	}

	return result, nil
}

// NormalizeSpeakers rewrites migrated meetings whose speaker differs
// from its canonical form in the mappings file.
func (e *Engine) NormalizeSpeakers(ctx context.Context, progressCh chan<- ProgressUpdate) (*SpeakerResult, error) {
	if err := e.source.Ping(ctx); err != nil {
		return nil, err
	}
	if !e.cfg.DryRun {
		if err := e.target.Ping(ctx); err != nil {
			return nil, err
		}
	}

	sunday, err := e.source.SundayMessages(ctx)
	if err != nil {
		return nil, err
	}
	special, err := e.source.SpecialMessages(ctx)
	if err != nil {
		return nil, err
	}

	messages := append(sunday, special...)
	result := &SpeakerResult{}
	total := len(messages)

	for i, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		canonical := e.names.Normalize(msg.Speaker)
		if canonical == msg.Speaker {
			continue
		}

		id := e.ledger.TargetID(msg.Collection, msg.ID)
		if id == nil {
			result.Skipped++
			continue
		}

		e.sendProgress(progressCh, speakerUpdate(i+1, total, msg.Speaker, canonical))

		if e.cfg.DryRun {
			e.logger.Info("dry run: would rewrite speaker", "record", msg.Key(), "from", msg.Speaker, "to", canonical)
			result.Updated++
			continue
		}

		if err := e.target.UpdateSpeaker(ctx, *id, canonical); err != nil {
			e.logger.Error("failed to rewrite speaker", "record", msg.Key(), "error", err)
			result.Failed++
			continue
		}
		result.Updated++
	}

	return result, nil
}

// failedRecords returns the failed records sorted by key for stable
// report output.
func (e *Engine) failedRecords() []*models.RecordProgress {
	var failed []*models.RecordProgress
	for _, rec := range e.ledger.Run().Records {
		if rec.Status == models.RecordFailed {
			failed = append(failed, rec)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Key() < failed[j].Key() })
	return failed
}
