// Package progress owns the durable migration ledger.
//
// The ledger is a single JSON document holding every record's migration
// state plus aggregate statistics. It is read once at startup and
// rewritten wholesale on every save; a crash between saves loses at most
// the work since the last save, never the whole run. All mutation goes
// through the Ledger API, which recomputes derived status and statistics
// inside the same guarded section.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/charmbracelet/log"
)

// Ledger is the single owner of the Run state. The mutex makes each
// mutation-plus-recompute atomic; the pipeline itself is sequential, so
// the lock guards against accidental re-entrancy rather than real
// concurrent writers.
type Ledger struct {
	mu     sync.Mutex
	path   string
	run    *models.Run
	logger *log.Logger
}

// Load reads the ledger from path, or creates a fresh one when the file
// is absent, corrupt, or was written by a run in a different dry-run
// mode. Corruption is logged and treated as "start over", never fatal.
func Load(path string, dryRun bool, logger *log.Logger) *Ledger {
	l := &Ledger{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read progress file, starting fresh", "path", path, "error", err)
		} else {
			logger.Info("starting new migration progress", "path", path)
		}
		l.run = models.NewRun(dryRun)
		return l
	}

	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		logger.Warn("progress file is corrupt, starting fresh", "path", path, "error", err)
		l.run = models.NewRun(dryRun)
		return l
	}

	if run.Records == nil {
		run.Records = make(map[string]*models.RecordProgress)
	}

	// A dry-run ledger must never satisfy a real run's skip checks, and
	// vice versa.
	if run.DryRun != dryRun {
		logger.Info("progress file was written in a different mode, starting fresh",
			"path", path, "recorded_dry_run", run.DryRun, "dry_run", dryRun)
		l.run = models.NewRun(dryRun)
		return l
	}

	logger.Info("loaded existing progress file", "path", path, "records", len(run.Records))
	l.run = &run
	return l
}

// Save atomically serializes the full run state, replacing the previous
// snapshot. Written to a temp file first so a crash mid-write cannot
// corrupt the previous snapshot.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save()
}

func (l *Ledger) save() error {
	l.run.LastUpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(l.run, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerSave, err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerSave, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerSave, err)
	}

	return nil
}

// Run returns the underlying run state. Callers must treat it as
// read-only; all mutation goes through the Ledger methods.
func (l *Ledger) Run() *models.Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.run
}

// SetStatus updates the overall migration status.
func (l *Ledger) SetStatus(status models.RunStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.run.Status = status
}

// Status returns the overall migration status.
func (l *Ledger) Status() models.RunStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.run.Status
}

// SetTotals records the source snapshot sizes.
func (l *Ledger) SetTotals(sunday, special int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.run.Statistics.TotalSundayMessages = sunday
	l.run.Statistics.TotalSpecialMessages = special
}

// IsCompleted reports whether a record has fully migrated: both halves
// done and the status recomputed to completed.
func (l *Ledger) IsCompleted(collection models.Collection, sourceID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.run.Records[models.RecordKey(collection, sourceID)]
	if !ok {
		return false
	}
	return record.Status == models.RecordCompleted && record.DatabaseDone && record.AssetDone
}

// IsDatabaseDone reports whether the database half is done for a record.
func (l *Ledger) IsDatabaseDone(collection models.Collection, sourceID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.run.Records[models.RecordKey(collection, sourceID)]
	return ok && record.DatabaseDone
}

// IsAssetDone reports whether the asset half is done for a record.
func (l *Ledger) IsAssetDone(collection models.Collection, sourceID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.run.Records[models.RecordKey(collection, sourceID)]
	return ok && record.AssetDone
}

// TargetID returns the resolved target id for a record, or nil when the
// database step has not succeeded.
func (l *Ledger) TargetID(collection models.Collection, sourceID int) *string {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.run.Records[models.RecordKey(collection, sourceID)]
	if !ok {
		return nil
	}
	return record.TargetID
}

// RecordDatabaseResult records the outcome of a record's database step.
// On success targetID must carry the resolved id; on failure it is nil.
func (l *Ledger) RecordDatabaseResult(collection models.Collection, sourceID int, targetID *string, success bool, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.getOrCreate(collection, sourceID)
	record.TargetID = targetID
	record.DatabaseDone = success
	record.LastProcessedAt = time.Now().UTC()

	if success {
		record.ErrorMessage = ""
	} else {
		record.ErrorMessage = errMsg
		record.RetryCount++
	}

	l.recomputeStatus(record)
	l.recomputeStatistics()
}

// RecordAssetResult records the outcome of a record's asset step.
func (l *Ledger) RecordAssetResult(collection models.Collection, sourceID int, sourceFile, targetKey string, bytes int64, success bool, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.getOrCreate(collection, sourceID)
	record.SourceAudioFile = sourceFile
	record.TargetObjectKey = targetKey
	record.AssetDone = success
	record.LastProcessedAt = time.Now().UTC()

	if success {
		record.AssetSkipped = false
		record.ErrorMessage = ""
		l.run.Statistics.AudioBytesUploaded += bytes
	} else if errMsg != "" {
		record.ErrorMessage = errMsg
		record.RetryCount++
	}

	l.recomputeStatus(record)
	l.recomputeStatistics()
}

// SkipAsset marks a record's asset half as done with nothing to migrate.
func (l *Ledger) SkipAsset(collection models.Collection, sourceID int, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.getOrCreate(collection, sourceID)
	record.AssetDone = true
	record.AssetSkipped = true
	record.ErrorMessage = reason
	record.LastProcessedAt = time.Now().UTC()

	l.recomputeStatus(record)
	l.recomputeStatistics()
}

// RetryCandidates returns the failed records still under the retry bound.
func (l *Ledger) RetryCandidates(maxRetries int) []*models.RecordProgress {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*models.RecordProgress
	for _, record := range l.run.Records {
		if record.Status == models.RecordFailed && record.RetryCount < maxRetries {
			out = append(out, record)
		}
	}
	return out
}

// Statistics returns a copy of the current aggregate statistics.
func (l *Ledger) Statistics() models.Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.run.Statistics
}

func (l *Ledger) getOrCreate(collection models.Collection, sourceID int) *models.RecordProgress {
	key := models.RecordKey(collection, sourceID)
	record, ok := l.run.Records[key]
	if !ok {
		record = &models.RecordProgress{
			Collection: collection,
			SourceID:   sourceID,
			Status:     models.RecordPending,
		}
		l.run.Records[key] = record
	}
	return record
}

// recomputeStatus enforces the invariant: completed iff both halves done.
func (l *Ledger) recomputeStatus(record *models.RecordProgress) {
	switch {
	case record.DatabaseDone && record.AssetDone:
		record.Status = models.RecordCompleted
	case record.RetryCount > 0:
		record.Status = models.RecordFailed
	default:
		record.Status = models.RecordInProgress
	}
}

// recomputeStatistics rebuilds the aggregate counters from the full
// record set. Byte totals are accumulated at record time, not derived.
func (l *Ledger) recomputeStatistics() {
	stats := &l.run.Statistics

	stats.MigratedSundayMessages = 0
	stats.MigratedSpecialMessages = 0
	stats.FailedRecords = 0
	stats.SkippedRecords = 0
	stats.AudioFilesUploaded = 0
	stats.AudioFilesFailed = 0

	for _, record := range l.run.Records {
		switch {
		case record.Status == models.RecordCompleted && record.Collection == models.CollectionSunday:
			stats.MigratedSundayMessages++
		case record.Status == models.RecordCompleted && record.Collection == models.CollectionSpecial:
			stats.MigratedSpecialMessages++
		case record.Status == models.RecordFailed:
			stats.FailedRecords++
		}

		if record.AssetSkipped {
			stats.SkippedRecords++
		}
		if record.AssetDone && !record.AssetSkipped && record.TargetObjectKey != "" {
			stats.AudioFilesUploaded++
		}
		if !record.AssetDone && record.RetryCount > 0 {
			stats.AudioFilesFailed++
		}
	}
}
