package scheduler

import (
	"testing"
	"time"
)

func TestClampInterval(t *testing.T) {
	s := &Scheduler{cfg: Config{DefaultIntervalSeconds: 900, MaxOverriddenIntervalSeconds: 86400}}

	tests := []struct {
		name     string
		override *int
		want     int
	}{
		{"no override uses default", nil, 900},
		{"below minimum clamps up", intPtr(10), minIntervalSeconds},
		{"above max clamps down", intPtr(200000), 86400},
		{"within range passes through", intPtr(1800), 1800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.clampInterval(tt.override)
			if got != tt.want {
				t.Errorf("clampInterval(%v) = %d, want %d", tt.override, got, tt.want)
			}
		})
	}
}

func TestApplySyncMetadata(t *testing.T) {
	c := &activeConnection{}
	applySyncMetadata(c, []byte(`{"sync":{"interval_seconds":1800,"next_run_at":"2026-01-01T00:00:00Z"}}`))

	if c.intervalSeconds == nil || *c.intervalSeconds != 1800 {
		t.Errorf("intervalSeconds = %v, want 1800", c.intervalSeconds)
	}
	if c.nextRunAt == nil || !c.nextRunAt.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("nextRunAt = %v, want 2026-01-01", c.nextRunAt)
	}
}

func TestApplySyncMetadata_Empty(t *testing.T) {
	c := &activeConnection{}
	applySyncMetadata(c, nil)
	if c.intervalSeconds != nil || c.nextRunAt != nil {
		t.Errorf("expected zero-value connection, got %+v", c)
	}
}

func intPtr(v int) *int { return &v }
