package scheduler

import (
	"encoding/json"
	"time"
)

// applySyncMetadata extracts interval_seconds, next_run_at, and
// first_activated_at from a connection's metadata.sync JSONB blob into c.
// Absent or malformed fields are left nil and fall back to defaults.
func applySyncMetadata(c *activeConnection, metadataJSON []byte) {
	if len(metadataJSON) == 0 {
		return
	}
	var metadata map[string]any
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return
	}
	sync, ok := metadata["sync"].(map[string]any)
	if !ok {
		return
	}
	if v, ok := sync["interval_seconds"].(float64); ok {
		iv := int(v)
		c.intervalSeconds = &iv
	}
	if v, ok := sync["next_run_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.nextRunAt = &t
		}
	}
	if v, ok := sync["first_activated_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.firstActivatedAt = &t
		}
	}
}
