package output_test

import (
	"bytes"
	"testing"

	"tasksync/internal/output"
	"tasksync/internal/service"
)

func TestFormatTask(t *testing.T) {
	tests := []struct {
		name string
		task service.Task
		want string
	}{
		{
			name: "pending",
			task: service.Task{ID: "7", Title: "Buy milk", Status: service.StatusPending},
			want: "   1  [ ] Buy milk  #7\n",
		},
		{
			name: "completed",
			task: service.Task{ID: "8", Title: "Walk dog", Status: service.StatusCompleted},
			want: "   1  [x] Walk dog  #8\n",
		},
		{
			name: "untitled",
			task: service.Task{ID: "9", Title: "  ", Status: service.StatusPending},
			want: "   1  [ ] (untitled)  #9\n",
		},
		{
			name: "newlines and description",
			task: service.Task{ID: "10", Title: "a\nb", Description: "two\r\nlines", Status: service.StatusPending},
			want: "   1  [ ] a b  #10\n          two  lines\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			output.FormatTask(&buf, output.Plain, 1, tt.task)
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestFormatCounts(t *testing.T) {
	var buf bytes.Buffer
	output.FormatCounts(&buf, 2, 1)
	if buf.String() != "2 pending, 1 completed\n" {
		t.Errorf("unexpected counts line %q", buf.String())
	}
}

func TestThemeForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if output.ThemeFor(&buf).Enabled {
		t.Error("buffers must not get a color theme")
	}
	if output.IsTerminal(&buf) {
		t.Error("buffer reported as terminal")
	}
}
