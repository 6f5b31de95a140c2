package main

import (
	"testing"
	"time"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/pkg/models"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("truncate() = %q, want abcde...", got)
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   orchestrator.Event
		want string
	}{
		{"plain", orchestrator.Event{Status: models.Status(models.StatusClassifying)}, "classifying"},
		{"step", orchestrator.Event{Status: models.Status(models.StatusSolved), StepID: 2, Message: "4"}, "step 2: solved 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEvent(tt.ev); got != tt.want {
				t.Errorf("formatEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatStep(t *testing.T) {
	s := models.StepRecord{
		ID:       1,
		Text:     "compute {{step_0}} * 2",
		Rendered: "compute 4 * 2",
		Kind:     models.StepMath,
		Strategy: "tool",
		Result:   "8",
	}
	want := "step 1 [math/tool] compute {{step_0}} * 2 (compute 4 * 2) => 8"
	if got := formatStep(s); got != want {
		t.Errorf("formatStep() = %q, want %q", got, want)
	}
}

func TestDurationFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"12h", 12 * time.Hour, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := durationFlag(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("durationFlag(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("durationFlag(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
