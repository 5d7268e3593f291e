// package formatter renders migration results to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/tasks"
)

// SummaryText renders a run result as plain text for terminal output.
func SummaryText(result *tasks.RunResult) []byte {
	var buf bytes.Buffer

	title := "Migration complete"
	if result.DryRun {
		title = "Migration complete (dry run)"
	}
	buf.WriteString(fmt.Sprintf("%s\n", title))
	buf.WriteString(fmt.Sprintf("Status: %s\n", result.Status))
	buf.WriteString(fmt.Sprintf("Duration: %s\n\n", FormatDuration(result.Duration)))

	stats := result.Statistics
	buf.WriteString(fmt.Sprintf("Sunday messages: %d/%d\n", stats.MigratedSundayMessages, stats.TotalSundayMessages))
	buf.WriteString(fmt.Sprintf("Special messages: %d/%d\n", stats.MigratedSpecialMessages, stats.TotalSpecialMessages))
	buf.WriteString(fmt.Sprintf("Audio uploaded: %d files (%s)\n", stats.AudioFilesUploaded, FormatBytes(stats.AudioBytesUploaded)))
	buf.WriteString(fmt.Sprintf("Skipped: %d\n", stats.SkippedRecords))
	buf.WriteString(fmt.Sprintf("Failed: %d\n", stats.FailedRecords))

	if len(result.FailedRecords) > 0 {
		buf.WriteString("\nFailed records:\n")
		for _, rec := range result.FailedRecords {
			buf.WriteString(fmt.Sprintf("  %s: %s (retries: %d)\n", rec.Key(), rec.ErrorMessage, rec.RetryCount))
		}
	}

	return buf.Bytes()
}

// SummaryMarkdown renders a run result as a Markdown report.
func SummaryMarkdown(result *tasks.RunResult) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Migration Report\n\n")
	if result.DryRun {
		buf.WriteString("**Dry run**: no writes were performed\n\n")
	}
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", result.Status))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", FormatDuration(result.Duration)))

	stats := result.Statistics
	buf.WriteString("## Statistics\n\n")
	buf.WriteString("| Metric | Value |\n|---|---|\n")
	buf.WriteString(fmt.Sprintf("| Sunday messages | %d/%d |\n", stats.MigratedSundayMessages, stats.TotalSundayMessages))
	buf.WriteString(fmt.Sprintf("| Special messages | %d/%d |\n", stats.MigratedSpecialMessages, stats.TotalSpecialMessages))
	buf.WriteString(fmt.Sprintf("| Audio files uploaded | %d |\n", stats.AudioFilesUploaded))
	buf.WriteString(fmt.Sprintf("| Audio bytes uploaded | %s |\n", FormatBytes(stats.AudioBytesUploaded)))
	buf.WriteString(fmt.Sprintf("| Skipped | %d |\n", stats.SkippedRecords))
	buf.WriteString(fmt.Sprintf("| Failed | %d |\n", stats.FailedRecords))

	if len(result.FailedRecords) > 0 {
		buf.WriteString("\n## Failed Records\n\n")
		buf.WriteString("| Record | Error | Retries |\n|---|---|---|\n")
		for _, rec := range result.FailedRecords {
			buf.WriteString(fmt.Sprintf("| %s | %s | %d |\n", rec.Key(), rec.ErrorMessage, rec.RetryCount))
		}
	}

	return buf.Bytes()
}

// StatusText renders the current ledger state for the status command.
func StatusText(run *models.Run) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Status: %s\n", run.Status))
	if run.DryRun {
		buf.WriteString("Mode: dry run\n")
	}
	if !run.StartedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("Started: %s\n", run.StartedAt.Format(time.RFC3339)))
	}
	if !run.LastUpdatedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("Last updated: %s\n", run.LastUpdatedAt.Format(time.RFC3339)))
	}

	stats := run.Statistics
	buf.WriteString(fmt.Sprintf("\nSunday messages: %d/%d\n", stats.MigratedSundayMessages, stats.TotalSundayMessages))
	buf.WriteString(fmt.Sprintf("Special messages: %d/%d\n", stats.MigratedSpecialMessages, stats.TotalSpecialMessages))
	buf.WriteString(fmt.Sprintf("Audio uploaded: %d files (%s)\n", stats.AudioFilesUploaded, FormatBytes(stats.AudioBytesUploaded)))
	buf.WriteString(fmt.Sprintf("Skipped: %d\n", stats.SkippedRecords))
	buf.WriteString(fmt.Sprintf("Failed: %d\n", stats.FailedRecords))

	var failed []*models.RecordProgress
	for _, rec := range run.Records {
		if rec.Status == models.RecordFailed {
			failed = append(failed, rec)
		}
	}
	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].Key() < failed[j].Key() })
		buf.WriteString("\nFailed records:\n")
		for _, rec := range failed {
			buf.WriteString(fmt.Sprintf("  %s: %s (retries: %d)\n", rec.Key(), rec.ErrorMessage, rec.RetryCount))
		}
	}

	return buf.Bytes()
}

// FailedRecordsCSV converts failed records to CSV with columns:
// Key, Collection, SourceID, AudioFile, Retries, Error
func FailedRecordsCSV(records []*models.RecordProgress) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Key", "Collection", "SourceID", "AudioFile", "Retries", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Key(),
			string(rec.Collection),
			strconv.Itoa(rec.SourceID),
			rec.SourceAudioFile,
			strconv.Itoa(rec.RetryCount),
			rec.ErrorMessage,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFailureReport writes failed records to a CSV file.
//
// Defaults to failed_records.csv when no path is given.
func WriteFailureReport(records []*models.RecordProgress, path string) (string, error) {
	if path == "" {
		path = "failed_records.csv"
	}

	data, err := FailedRecordsCSV(records)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}

// FormatBytes renders a byte count in a human-readable unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders a duration rounded to the second.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
