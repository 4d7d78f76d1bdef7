package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNew(t *testing.T) {
	m := New([]string{"a.mp4", "b.mp4"})

	if len(m.files) != 2 {
		t.Fatalf("files = %d, want 2", len(m.files))
	}
	for _, f := range m.files {
		if f.Status != StatusPending {
			t.Errorf("initial status = %v, want pending", f.Status)
		}
	}
	if m.doneCount() != 0 {
		t.Errorf("doneCount = %d, want 0", m.doneCount())
	}
}

func TestUpdate_FileLifecycle(t *testing.T) {
	m := New([]string{"a.mp4", "b.mp4"})

	next, _ := m.Update(FileStartedMsg{Index: 0})
	m = next.(Model)
	if m.files[0].Status != StatusAnalyzing {
		t.Errorf("status = %v, want analyzing", m.files[0].Status)
	}

	next, _ = m.Update(FileDoneMsg{Index: 0, Completed: 3, Efficiency: 1.0, Elapsed: 2 * time.Second})
	m = next.(Model)
	if m.files[0].Status != StatusDone {
		t.Errorf("status = %v, want done", m.files[0].Status)
	}
	if m.files[0].Completed != 3 {
		t.Errorf("Completed = %d", m.files[0].Completed)
	}
	if m.doneCount() != 1 {
		t.Errorf("doneCount = %d, want 1", m.doneCount())
	}
}

func TestUpdate_FileFailure(t *testing.T) {
	m := New([]string{"a.mp4"})

	next, _ := m.Update(FileDoneMsg{Index: 0, Err: errors.New("no video stream")})
	m = next.(Model)

	if m.files[0].Status != StatusFailed {
		t.Errorf("status = %v, want failed", m.files[0].Status)
	}
	if m.files[0].Err != "no video stream" {
		t.Errorf("Err = %q", m.files[0].Err)
	}
}

func TestUpdate_OutOfRangeIndexIgnored(t *testing.T) {
	m := New([]string{"a.mp4"})

	next, _ := m.Update(FileDoneMsg{Index: 5, Completed: 3})
	m = next.(Model)
	if m.files[0].Status != StatusPending {
		t.Error("out-of-range index should not mutate state")
	}
}

func TestUpdate_QuitKeys(t *testing.T) {
	m := New([]string{"a.mp4"})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)
	if !m.quitting {
		t.Error("q should set quitting")
	}
	if cmd == nil {
		t.Error("q should return tea.Quit")
	}
}

func TestUpdate_BatchDone(t *testing.T) {
	m := New([]string{"a.mp4"})

	next, cmd := m.Update(BatchDoneMsg{})
	m = next.(Model)
	if !m.done {
		t.Error("BatchDoneMsg should mark the batch done")
	}
	if cmd != nil {
		t.Error("the dashboard should stay open until the user quits")
	}
	if !strings.Contains(m.View(), "batch complete") {
		t.Error("footer should announce completion")
	}
}

func TestView(t *testing.T) {
	m := New([]string{"/videos/movie.mp4"})

	next, _ := m.Update(FileStartedMsg{Index: 0})
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "movie.mp4") {
		t.Errorf("view should list the input:\n%s", view)
	}
	if !strings.Contains(view, "video-analytics") {
		t.Error("view should include the header title")
	}

	m.quitting = true
	if m.View() != "" {
		t.Error("quitting view should be empty")
	}
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "0:45"},
		{5 * time.Minute, "5:00"},
		{90 * time.Minute, "1:30:00"},
	}
	for _, tc := range testCases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	long := "/very/long/path/to/some/deeply/nested/video/file.mp4"
	got := truncate(long, 20)
	if len(got) > 22 { // the ellipsis rune adds bytes but not display width
		t.Errorf("truncate too long: %q", got)
	}
	if truncate("short.mp4", 20) != "short.mp4" {
		t.Error("short strings should pass through")
	}
}
