package ui

import (
	"context"
	"fmt"

	"github.com/HaoWang-SSCA/migrate/internal/formatter"
	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/HaoWang-SSCA/migrate/internal/tasks"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	RunView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.Engine
	cfg          *shared.Config
	dryRun       bool
	width        int
	height       int
	progressChan chan tasks.ProgressUpdate
	done         chan runCompleteMsg
	progress     tasks.ProgressUpdate
	result       *tasks.RunResult
	failedList   list.Model
	hasFailed    bool
	err          error
	help         help.Model
	keys         keyMap
}

// failedItem wraps [models.RecordProgress] to implement list.Item.
type failedItem struct {
	record *models.RecordProgress
}

func (i failedItem) FilterValue() string { return i.record.Key() }
func (i failedItem) Title() string       { return i.record.Key() }
func (i failedItem) Description() string {
	return fmt.Sprintf("%s (retries: %d)", i.record.ErrorMessage, i.record.RetryCount)
}

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	result *tasks.RunResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.Engine, cfg *shared.Config, dryRun bool) *Model {
	return &Model{
		ctx:    ctx,
		view:   ConfirmView,
		engine: engine,
		cfg:    cfg,
		dryRun: dryRun,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init satisfies tea.Model. The run starts only after confirmation.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.hasFailed {
			m.failedList.SetSize(msg.Width-4, msg.Height-12)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			return m.handleRunKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		if m.result != nil && len(m.result.FailedRecords) > 0 {
			items := make([]list.Item, len(m.result.FailedRecords))
			for i, rec := range m.result.FailedRecords {
				items[i] = failedItem{record: rec}
			}
			m.failedList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.failedList.Title = "Failed Records"
			m.failedList.SetSize(m.width-4, m.height-12)
			m.hasFailed = true
		}
		return m, nil
	}

	if m.view == ResultView && m.hasFailed {
		var cmd tea.Cmd
		m.failedList, cmd = m.failedList.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		return m, tea.Quit
	case "y":
		m.view = RunView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleRunKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		// The engine saves the ledger as it goes, so quitting
		// mid-run loses at most the current batch.
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	if m.hasFailed {
		var cmd tea.Cmd
		m.failedList, cmd = m.failedList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progressChan := m.progressChan

	done := make(chan runCompleteMsg, 1)
	go func() {
		result, err := m.engine.Run(m.ctx, progressChan)
		done <- runCompleteMsg{result: result, err: err}
		close(progressChan)
	}()
	m.done = done

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return <-m.done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Start migration?")

	mode := "full run"
	if m.dryRun {
		mode = styles.warn.Render("dry run")
	}

	info := fmt.Sprintf(
		"\nSource: %s\nTarget: %s\nBucket: %s\nProgress file: %s\nMode: %s\n",
		m.cfg.Source.Driver,
		m.cfg.Target.Driver,
		m.cfg.Storage.Bucket,
		m.cfg.Migration.ProgressFile,
		mode,
	)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Migrating")

	var phase string
	switch m.progress.Phase {
	case tasks.ConnectionCheck:
		phase = "Checking connections..."
	case tasks.LoadSource:
		phase = "Loading source messages..."
	case tasks.MigrateSunday:
		phase = fmt.Sprintf("Sunday messages (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.MigrateSpecial:
		phase = fmt.Sprintf("Special messages (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.RetryFailed:
		phase = fmt.Sprintf("Retrying failures (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Finalize:
		phase = "Finalizing..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Migration failed: %v\n\nPress q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	var title string
	if m.result.Status == models.RunCompleted {
		title = styles.ok.Render("✓ Migration Complete")
	} else {
		title = styles.warn.Render("Migration completed with errors")
	}

	stats := m.result.Statistics
	info := fmt.Sprintf(
		"\nSunday: %d/%d\nSpecial: %d/%d\nAudio uploaded: %d files (%s)\nSkipped: %d\nFailed: %d\n",
		stats.MigratedSundayMessages, stats.TotalSundayMessages,
		stats.MigratedSpecialMessages, stats.TotalSpecialMessages,
		stats.AudioFilesUploaded, formatter.FormatBytes(stats.AudioBytesUploaded),
		stats.SkippedRecords,
		stats.FailedRecords,
	)

	var failed string
	if m.hasFailed {
		failed = fmt.Sprintf("\n%s\n", m.failedList.View())
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	return fmt.Sprintf("%s\n%s%s\n%s", title, info, failed, helpView)
}
