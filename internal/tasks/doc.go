// package tasks implements the migration pipeline over the legacy archive.
//
// The core abstraction is Engine, which orchestrates the database pass, the
// audio transfer pass, and the follow-up retry, video link, and speaker
// passes. Operations emit progress updates via channels for non-blocking
// status reporting to CLI/UI layers.
package tasks
