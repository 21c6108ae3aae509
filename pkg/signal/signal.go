// Package signal implements the signal store (C13) and normalization
// (C14): the append-only record of canonicalized provider events, deduped
// at the database via a unique index (§5(iv)), never in application
// memory.
package signal

import (
	"time"

	"github.com/google/uuid"
)

// Kind is a canonical signal kind. The set is a closed registry (§9's Open
// Question decision: extending the taxonomy requires a code change here,
// never silent widening from an unrecognized provider event).
type Kind string

const (
	KindMessagePosted    Kind = "message_posted"
	KindMessageReceived  Kind = "message_received"
	KindIssueOpened      Kind = "issue_opened"
	KindIssueClosed      Kind = "issue_closed"
	KindPullRequestOpened Kind = "pull_request_opened"
	KindPullRequestMerged Kind = "pull_request_merged"
	KindCommentPosted    Kind = "comment_posted"
	KindFileShared       Kind = "file_shared"
	KindMeetingScheduled Kind = "meeting_scheduled"
	KindUnknown          Kind = "unknown"
)

// Signal is the §3 Signal entity. ConnectionID is nil for a signal that
// arrived via a webhook request carrying no X-Connection-Id (§4.8).
type Signal struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	ProviderSlug string         `json:"provider_slug"`
	ConnectionID *uuid.UUID     `json:"connection_id,omitempty"`
	Kind         Kind           `json:"kind"`
	OccurredAt   time.Time      `json:"occurred_at"`
	Payload      map[string]any `json:"payload"`
	DedupeKey    string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}
