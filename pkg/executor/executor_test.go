package executor

import (
	"testing"
	"time"
)

func TestBackoffFor_Exponential(t *testing.T) {
	e := &Executor{cfg: Config{BaseBackoff: time.Second, MaxBackoff: time.Minute}}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, time.Minute}, // clamped by MaxBackoff
	}
	for _, tt := range tests {
		if got := e.backoffFor(tt.attempt); got != tt.want {
			t.Errorf("backoffFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestMergeCursor_PreservesOtherMetadata(t *testing.T) {
	metadata := map[string]any{
		"sync": map[string]any{
			"interval_seconds": 900,
		},
		"other_key": "untouched",
	}

	merged := mergeCursor(metadata, map[string]any{"page": "3"})

	if merged["other_key"] != "untouched" {
		t.Errorf("other_key was clobbered: %v", merged["other_key"])
	}
	sync := merged["sync"].(map[string]any)
	if sync["interval_seconds"] != 900 {
		t.Errorf("interval_seconds was clobbered: %v", sync["interval_seconds"])
	}
	if sync["cursor"].(map[string]any)["page"] != "3" {
		t.Errorf("cursor not merged: %v", sync["cursor"])
	}
}

func TestMergeCursor_NilMetadata(t *testing.T) {
	merged := mergeCursor(nil, map[string]any{"page": "1"})
	sync := merged["sync"].(map[string]any)
	if sync["cursor"].(map[string]any)["page"] != "1" {
		t.Errorf("expected cursor set on fresh metadata, got %v", merged)
	}
}
