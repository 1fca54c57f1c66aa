// ABOUTME: Conversation storage operations for SQLite
// ABOUTME: Resolves user-facing reference aliases to internal conversation ids
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrConversationNotFound is returned when a reference resolves to nothing
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is one stored conversation row
type Conversation struct {
	ID        int64
	PublicRef string
	UserCode  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationStore handles conversation persistence
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a new ConversationStore
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Resolve maps a user-facing reference to the internal conversation id.
// Returns ErrConversationNotFound if the reference is unknown.
func (s *ConversationStore) Resolve(publicRef string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM conversations WHERE public_ref = ?", publicRef,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrConversationNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve conversation %q: %w", publicRef, err)
	}
	return id, nil
}

// ResolveOrCreate resolves a reference, creating the conversation on first use
func (s *ConversationStore) ResolveOrCreate(publicRef, userCode string) (int64, error) {
	id, err := s.Resolve(publicRef)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return 0, err
	}

	// INSERT OR IGNORE so a concurrent creator wins cleanly
	_, err = s.db.Exec(
		"INSERT OR IGNORE INTO conversations (public_ref, user_code) VALUES (?, ?)",
		publicRef, userCode,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation %q: %w", publicRef, err)
	}

	return s.Resolve(publicRef)
}

// Get retrieves a conversation by internal id
func (s *ConversationStore) Get(id int64) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(
		"SELECT id, public_ref, user_code, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&conv.ID, &conv.PublicRef, &conv.UserCode, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %d: %w", id, err)
	}
	return &conv, nil
}

// Touch updates a conversation's updated_at timestamp
func (s *ConversationStore) Touch(id int64) error {
	_, err := s.db.Exec(
		"UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", id,
	)
	return err
}

// ListByUser returns conversations for a user, newest first
func (s *ConversationStore) ListByUser(userCode string, limit int) ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, public_ref, user_code, created_at, updated_at
		FROM conversations
		WHERE user_code = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, userCode, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.PublicRef, &conv.UserCode, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}
