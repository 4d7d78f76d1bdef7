package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg is sent periodically to refresh the elapsed clock.
type TickMsg time.Time

// FileStartedMsg marks an input as being analyzed.
type FileStartedMsg struct {
	Index int
}

// FileDoneMsg carries one input's final outcome.
type FileDoneMsg struct {
	Index      int
	Completed  int
	Failed     int
	Efficiency float64
	Elapsed    time.Duration
	Err        error
}

// BatchDoneMsg signals the whole batch has finished.
type BatchDoneMsg struct{}

// FileStatus is the lifecycle state of one input.
type FileStatus int

const (
	StatusPending FileStatus = iota
	StatusAnalyzing
	StatusDone
	StatusFailed
)

// FileState tracks one input's progress.
type FileState struct {
	Input      string
	Status     FileStatus
	Completed  int
	Failed     int
	Efficiency float64
	Elapsed    time.Duration
	Err        string
}

// Model is the TUI state for a batch run.
type Model struct {
	files     []FileState
	startTime time.Time

	width  int
	height int

	done     bool
	quitting bool
}

// New creates a model tracking the given inputs.
func New(inputs []string) Model {
	files := make([]FileState, len(inputs))
	for i, input := range inputs {
		files[i] = FileState{Input: input}
	}
	return Model{
		files:     files,
		startTime: time.Now(),
		width:     80,
		height:    24,
	}
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case FileStartedMsg:
		if msg.Index >= 0 && msg.Index < len(m.files) {
			m.files[msg.Index].Status = StatusAnalyzing
		}
		return m, nil

	case FileDoneMsg:
		if msg.Index >= 0 && msg.Index < len(m.files) {
			f := &m.files[msg.Index]
			f.Completed = msg.Completed
			f.Failed = msg.Failed
			f.Efficiency = msg.Efficiency
			f.Elapsed = msg.Elapsed
			if msg.Err != nil {
				f.Status = StatusFailed
				f.Err = msg.Err.Error()
			} else {
				f.Status = StatusDone
			}
		}
		return m, nil

	case BatchDoneMsg:
		// Stay up so the final state stays readable; the user exits with q.
		m.done = true
		return m, nil
	}

	return m, nil
}

// tickCmd schedules the next refresh.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Elapsed returns time since the batch started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// doneCount returns how many inputs have finished, either way.
func (m Model) doneCount() int {
	var n int
	for _, f := range m.files {
		if f.Status == StatusDone || f.Status == StatusFailed {
			n++
		}
	}
	return n
}
