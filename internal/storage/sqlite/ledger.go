// ABOUTME: Idempotent credit-ledger operations for SQLite
// ABOUTME: Capture runs in a single transaction; replays of an idempotency key are no-ops
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kokorohq/compass/internal/models"
)

// ErrInsufficientCredit maps to the payment-required error class
var ErrInsufficientCredit = errors.New("insufficient credit")

// LedgerStore handles credit balances and debit entries
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new LedgerStore
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Capture debits amount from userCode exactly once per idempotency key.
// The whole check-insert-update sequence runs inside one transaction so
// concurrent turns for the same key cannot double-debit. A replay returns
// the already-applied balance with AlreadyApplied set.
func (s *LedgerStore) Capture(userCode string, amount int64, idempotencyKey, reason string, meta map[string]string, refConversationID int64) (*models.CaptureResult, error) {
	if userCode == "" {
		return nil, fmt.Errorf("user code is required")
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	if amount < 0 {
		return nil, fmt.Errorf("capture amount must be non-negative, got %d", amount)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Replay check first: same key applied before means no-op, same result
	var applied int64
	err = tx.QueryRow(
		"SELECT balance_after FROM ledger_entries WHERE idempotency_key = ?", idempotencyKey,
	).Scan(&applied)
	if err == nil {
		return &models.CaptureResult{OK: true, Balance: applied, AlreadyApplied: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	var balance int64
	err = tx.QueryRow(
		"SELECT balance FROM credit_balances WHERE user_code = ?", userCode,
	).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	if balance < amount {
		return nil, fmt.Errorf("user %s has %d, needs %d: %w", userCode, balance, amount, ErrInsufficientCredit)
	}

	newBalance := balance - amount

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal meta: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO ledger_entries (id, user_code, amount, idempotency_key, reason, meta, conversation_id, balance_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), userCode, amount, idempotencyKey, reason, string(metaJSON), refConversationID, newBalance)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race on the same key; the other writer's debit stands
			return s.replayResult(idempotencyKey)
		}
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO credit_balances (user_code, balance, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_code) DO UPDATE SET
			balance = excluded.balance,
			updated_at = CURRENT_TIMESTAMP
	`, userCode, newBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit capture: %w", err)
	}

	return &models.CaptureResult{OK: true, Balance: newBalance}, nil
}

// replayResult fetches the balance recorded by an earlier capture of the key
func (s *LedgerStore) replayResult(idempotencyKey string) (*models.CaptureResult, error) {
	var applied int64
	err := s.db.QueryRow(
		"SELECT balance_after FROM ledger_entries WHERE idempotency_key = ?", idempotencyKey,
	).Scan(&applied)
	if err != nil {
		return nil, fmt.Errorf("failed to load replayed capture: %w", err)
	}
	return &models.CaptureResult{OK: true, Balance: applied, AlreadyApplied: true}, nil
}

// Grant adds credit to a user's balance (operator/top-up path)
func (s *LedgerStore) Grant(userCode string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("grant amount must be non-negative, got %d", amount)
	}
	_, err := s.db.Exec(`
		INSERT INTO credit_balances (user_code, balance, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_code) DO UPDATE SET
			balance = credit_balances.balance + excluded.balance,
			updated_at = CURRENT_TIMESTAMP
	`, userCode, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to grant credit: %w", err)
	}
	return s.Balance(userCode)
}

// Balance returns the current balance for a user (0 if unknown)
func (s *LedgerStore) Balance(userCode string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(
		"SELECT balance FROM credit_balances WHERE user_code = ?", userCode,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// Entries returns a user's ledger entries, newest first
func (s *LedgerStore) Entries(userCode string, limit int) ([]models.LedgerEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_code, amount, idempotency_key, reason, meta, conversation_id, created_at
		FROM ledger_entries
		WHERE user_code = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userCode, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry    models.LedgerEntry
			metaJSON sql.NullString
			convID   sql.NullInt64
		)
		if err := rows.Scan(&entry.EntryID, &entry.UserCode, &entry.Amount,
			&entry.IdempotencyKey, &entry.Reason, &metaJSON, &convID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &entry.Meta)
		}
		entry.ConversationID = convID.Int64
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
