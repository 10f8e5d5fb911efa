package model

import (
	"encoding/json"
	"time"
)

const (
	MutationPending    = "pending"
	MutationProcessing = "processing"
	MutationCompleted  = "completed"
	MutationFailed     = "failed"
)

const MutationKindCompletion = "focus_completion"

// PendingMutation is one buffered write awaiting replay. IDs are ULIDs, so
// lexical order matches creation order.
type PendingMutation struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	LastError      string          `json:"lastError,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
