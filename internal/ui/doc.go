// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow for running a migration:
//  1. [ConfirmView] : Review the resolved configuration before writing anything
//  2. [RunView] : Monitor real-time progress updates from the engine
//  3. [ResultView] : Display final statistics and browse failed records
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the Engine, providing non-blocking status reporting during the run.
package ui
