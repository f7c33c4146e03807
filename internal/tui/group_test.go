package tui

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

func job(id string, st provider.Status) provider.JobRecord {
	return provider.JobRecord{
		ID:          id,
		Label:       "t",
		JobName:     id + "-name",
		Status:      st,
		BlockSize:   1,
		SubmittedAt: time.Now(),
	}
}

func TestBuildGroupedItems(t *testing.T) {
	t.Run("empty jobs", func(t *testing.T) {
		items := buildGroupedItems(nil)
		if items != nil {
			t.Errorf("expected nil, got %d items", len(items))
		}
	})

	t.Run("single group", func(t *testing.T) {
		jobs := []provider.JobRecord{
			job("j1", provider.StatusRunning),
			job("j2", provider.StatusRunning),
		}
		items := buildGroupedItems(jobs)

		// Expect 1 header + 2 job items
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}

		h, ok := items[0].(headerItem)
		if !ok {
			t.Fatal("first item should be a headerItem")
		}
		if h.label != "RUNNING (2)" {
			t.Errorf("header label = %q, want %q", h.label, "RUNNING (2)")
		}

		for i, id := range []string{"j1", "j2"} {
			item, ok := items[i+1].(jobItem)
			if !ok {
				t.Fatalf("item %d should be a jobItem", i+1)
			}
			if item.record.ID != id {
				t.Errorf("item %d = %q, want %q", i+1, item.record.ID, id)
			}
		}
	})

	t.Run("groups in status order", func(t *testing.T) {
		jobs := []provider.JobRecord{
			job("done", provider.StatusCompleted),
			job("queued", provider.StatusPending),
			job("live", provider.StatusRunning),
		}
		items := buildGroupedItems(jobs)

		// Expect 3 headers + 3 jobs
		if len(items) != 6 {
			t.Fatalf("expected 6 items, got %d", len(items))
		}

		want := []string{"RUNNING (1)", "PENDING (1)", "COMPLETED (1)"}
		for i, label := range want {
			h, ok := items[i*2].(headerItem)
			if !ok {
				t.Fatalf("item %d should be a headerItem", i*2)
			}
			if h.label != label {
				t.Errorf("header %d = %q, want %q", i, h.label, label)
			}
		}
	})
}

func TestHeaderItem(t *testing.T) {
	h := headerItem{label: "Test Group"}

	if h.FilterValue() != "" {
		t.Error("headerItem.FilterValue() should return empty string")
	}
	if h.Title() != "Test Group" {
		t.Errorf("Title() = %q, want %q", h.Title(), "Test Group")
	}
	if h.Description() != "" {
		t.Errorf("Description() = %q, want empty", h.Description())
	}
}

func TestHeaderCount(t *testing.T) {
	items := []list.Item{
		headerItem{label: "RUNNING (2)"},
		jobItem{record: job("j1", provider.StatusRunning)},
		jobItem{record: job("j2", provider.StatusRunning)},
		headerItem{label: "FAILED (1)"},
		jobItem{record: job("j3", provider.StatusFailed)},
	}

	count := headerCount(items)
	if count != 2 {
		t.Errorf("headerCount() = %d, want 2", count)
	}
}

func TestSkipHeaders(t *testing.T) {
	items := []list.Item{
		headerItem{label: "RUNNING (1)"},
		jobItem{record: job("j1", provider.StatusRunning)},
		headerItem{label: "FAILED (1)"},
		jobItem{record: job("j2", provider.StatusFailed)},
	}

	tests := []struct {
		name      string
		start     int
		direction int
		want      int
	}{
		{"down from first header", 0, 1, 1},
		{"down onto second header", 2, 1, 3},
		{"up onto second header", 2, -1, 1},
		{"up from first header falls back", 0, -1, 1},
		{"job stays put", 3, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := list.New(items, newGroupedDelegate(), 80, 40)
			l.Select(tt.start)

			skipHeaders(&l, tt.direction)

			if got := l.Index(); got != tt.want {
				t.Errorf("Index() = %d, want %d", got, tt.want)
			}
			if isHeaderSelected(&l) {
				t.Error("a header is still selected")
			}
		})
	}
}

func TestNavigationDirection(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"k", -1},
		{"j", 1},
	}

	for _, tt := range tests {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)}
		if got := navigationDirection(msg); got != tt.want {
			t.Errorf("navigationDirection(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}

	if got := navigationDirection(tea.KeyMsg{Type: tea.KeyUp}); got != -1 {
		t.Errorf("navigationDirection(up) = %d, want -1", got)
	}
}
