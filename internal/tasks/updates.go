package tasks

import (
	"fmt"

	"github.com/HaoWang-SSCA/migrate/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ConnectionCheck Phase = iota
	LoadSource
	MigrateSunday
	MigrateSpecial
	RetryFailed
	LinkVideos
	ApplySpeakers
	Finalize
)

func (p Phase) String() string {
	switch p {
	case ConnectionCheck:
		return "connection_check"
	case LoadSource:
		return "load_source"
	case MigrateSunday:
		return "migrate_sunday"
	case MigrateSpecial:
		return "migrate_special"
	case RetryFailed:
		return "retry_failed"
	case LinkVideos:
		return "link_videos"
	case ApplySpeakers:
		return "apply_speakers"
	case Finalize:
		return "finalize"
	}
	return ""
}

func collectionPhase(collection models.Collection) Phase {
	if collection == models.CollectionSpecial {
		return MigrateSpecial
	}
	return MigrateSunday
}

func connectionUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ConnectionCheck,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Checking %s...", name),
	}
}

func loadSourceUpdate(sunday, special int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d sunday and %d special messages", sunday, special),
	}
}

func recordUpdate(step, total int, msg models.SourceMessage) ProgressUpdate {
	return ProgressUpdate{
		Phase:   collectionPhase(msg.Collection),
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s - %s", step, total, msg.Collection, msg.Date, msg.Speaker),
		Data:    msg,
	}
}

func recordFailedUpdate(step, total int, msg models.SourceMessage, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   collectionPhase(msg.Collection),
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, msg.Key(), reason),
	}
}

func retryUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RetryFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Retrying %s...", step, total, key),
	}
}

func linkUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LinkVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Linking video for %s...", step, total, key),
	}
}

func speakerUpdate(step, total int, from, to string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplySpeakers,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s → %s", step, total, from, to),
	}
}

func finalizeUpdate(stats models.Statistics) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finalize,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Migrated %d records, %d failed, %d skipped", stats.MigratedSundayMessages+stats.MigratedSpecialMessages, stats.FailedRecords, stats.SkippedRecords),
		Data:    stats,
	}
}
