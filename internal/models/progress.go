package models

import "time"

// RecordStatus is the per-record migration state.
type RecordStatus string

const (
	RecordPending    RecordStatus = "pending"
	RecordInProgress RecordStatus = "in-progress"
	RecordCompleted  RecordStatus = "completed"
	RecordFailed     RecordStatus = "failed"
	RecordSkipped    RecordStatus = "skipped"
)

// RunStatus is the overall migration state.
type RunStatus string

const (
	RunNotStarted          RunStatus = "not-started"
	RunInProgress          RunStatus = "in-progress"
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed-with-errors"
	RunFailed              RunStatus = "failed"
)

// RecordProgress tracks a single source record through the two migration
// halves. TargetID is nil until the database step resolves an id; a failed
// database step leaves it nil rather than recording a placeholder value.
type RecordProgress struct {
	Collection      Collection   `json:"collection"`
	SourceID        int          `json:"source_id"`
	TargetID        *string      `json:"target_id,omitempty"`
	Status          RecordStatus `json:"status"`
	DatabaseDone    bool         `json:"database_migrated"`
	AssetDone       bool         `json:"asset_migrated"`
	SourceAudioFile string       `json:"source_audio_file,omitempty"`
	TargetObjectKey string       `json:"target_object_key,omitempty"`
	AssetSkipped    bool         `json:"asset_skipped,omitempty"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	RetryCount      int          `json:"retry_count"`
	LastProcessedAt time.Time    `json:"last_processed_at"`
}

// Key returns the ledger key for this record.
func (r *RecordProgress) Key() string {
	return RecordKey(r.Collection, r.SourceID)
}

// Statistics are aggregate counters recomputed from the full record set.
type Statistics struct {
	TotalSundayMessages     int   `json:"total_sunday_messages"`
	TotalSpecialMessages    int   `json:"total_special_messages"`
	MigratedSundayMessages  int   `json:"migrated_sunday_messages"`
	MigratedSpecialMessages int   `json:"migrated_special_messages"`
	FailedRecords           int   `json:"failed_records"`
	SkippedRecords          int   `json:"skipped_records"`
	AudioFilesUploaded      int   `json:"audio_files_uploaded"`
	AudioFilesFailed        int   `json:"audio_files_failed"`
	AudioBytesUploaded      int64 `json:"audio_bytes_uploaded"`
}

// Run is the full migration ledger: overall status, every record's
// progress, and derived statistics. It is what the progress file holds.
//
// DryRun is stamped at creation so a dry-run ledger can never satisfy a
// real run's skip checks.
type Run struct {
	StartedAt     time.Time                  `json:"started_at"`
	LastUpdatedAt time.Time                  `json:"last_updated_at"`
	Status        RunStatus                  `json:"status"`
	DryRun        bool                       `json:"dry_run"`
	Records       map[string]*RecordProgress `json:"records"`
	Statistics    Statistics                 `json:"statistics"`
}

// NewRun creates an empty ledger.
func NewRun(dryRun bool) *Run {
	return &Run{
		StartedAt: time.Now().UTC(),
		Status:    RunNotStarted,
		DryRun:    dryRun,
		Records:   make(map[string]*RecordProgress),
	}
}
