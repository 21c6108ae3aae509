package syncjob

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRow struct {
	values []any
}

func (f fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch v := d.(type) {
		case *uuid.UUID:
			*v = f.values[i].(uuid.UUID)
		case **uuid.UUID:
			id := f.values[i].(uuid.UUID)
			*v = &id
		case *string:
			*v = f.values[i].(string)
		case *JobType:
			*v = f.values[i].(JobType)
		case *Status:
			*v = f.values[i].(Status)
		case *int:
			*v = f.values[i].(int)
		case *time.Time:
			*v = f.values[i].(time.Time)
		case **time.Time:
			*v = f.values[i].(*time.Time)
		case *[]byte:
			*v = f.values[i].([]byte)
		default:
			panic("unhandled scan dest type")
		}
	}
	return nil
}

func TestScanJob_RoundTrip(t *testing.T) {
	id := uuid.New()
	tenantID := uuid.New()
	connID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	cursorJSON, err := json.Marshal(map[string]any{"page": "2"})
	if err != nil {
		t.Fatal(err)
	}

	row := fakeRow{values: []any{
		id, tenantID, "slack", connID, JobTypeIncremental, StatusQueued, 0, 0,
		now, (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), cursorJSON, "",
		now, now,
	}}

	j, err := scanJob(row)
	if err != nil {
		t.Fatalf("scanJob: %v", err)
	}
	if j.ID != id {
		t.Errorf("ID = %v, want %v", j.ID, id)
	}
	if j.Cursor["page"] != "2" {
		t.Errorf("Cursor[page] = %v, want 2", j.Cursor["page"])
	}
	if j.Status != StatusQueued {
		t.Errorf("Status = %v, want queued", j.Status)
	}
}

func TestScanJob_WebhookEnvelope(t *testing.T) {
	id := uuid.New()
	tenantID := uuid.New()
	connID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	envelopeJSON, err := json.Marshal(map[string]any{
		"webhook_payload": map[string]any{"event": "push"},
		"received_at":     now.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatal(err)
	}

	row := fakeRow{values: []any{
		id, tenantID, "github", connID, JobTypeWebhook, StatusQueued, 0, 0,
		now, (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), envelopeJSON, "",
		now, now,
	}}

	j, err := scanJob(row)
	if err != nil {
		t.Fatalf("scanJob: %v", err)
	}
	if j.JobType != JobTypeWebhook {
		t.Errorf("JobType = %v, want webhook", j.JobType)
	}
	payload, ok := j.Cursor["webhook_payload"].(map[string]any)
	if !ok || payload["event"] != "push" {
		t.Errorf("Cursor[webhook_payload] = %v, want event=push", j.Cursor["webhook_payload"])
	}
}
