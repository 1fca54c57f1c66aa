// ABOUTME: Ledger entry and capture-result types for idempotent credit debits
// ABOUTME: At most one successful debit exists per idempotency key; replays are no-ops
package models

import "time"

// LedgerEntry records one applied credit movement
type LedgerEntry struct {
	EntryID        string            `json:"entry_id"`
	UserCode       string            `json:"user_code"`
	Amount         int64             `json:"amount"`
	IdempotencyKey string            `json:"idempotency_key"`
	Reason         string            `json:"reason"`
	Meta           map[string]string `json:"meta,omitempty"`
	ConversationID int64             `json:"conversation_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CaptureResult is the outcome of a credit capture attempt
type CaptureResult struct {
	OK             bool  `json:"ok"`
	Balance        int64 `json:"balance"`
	AlreadyApplied bool  `json:"already_applied"`
}
