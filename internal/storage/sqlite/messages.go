// ABOUTME: Message storage operations for SQLite
// ABOUTME: Enforces duplicate suppression for user turns and the single-writer marker for assistant turns
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kokorohq/compass/internal/models"
)

// Single-writer marker: assistant writes must carry this meta key/value
// to prove they come from the one authorized write path for the turn.
const (
	WriterMetaKey  = "writer"
	WriterMarker   = "turn_orchestrator"
	TurnKeyMetaKey = "turn_key"
)

// SaveStatus classifies the outcome of a message write attempt
type SaveStatus string

const (
	// SaveOK - the row was inserted
	SaveOK SaveStatus = "saved"
	// SaveSkippedDuplicate - identical to the most recent stored user message; not an error
	SaveSkippedDuplicate SaveStatus = "skipped_duplicate"
	// SaveBlocked - assistant write without the single-writer marker, or turn already written
	SaveBlocked SaveStatus = "blocked"
	// SaveRejectedEmpty - content was empty, whitespace, or ellipsis-only
	SaveRejectedEmpty SaveStatus = "rejected_empty"
)

// SaveResult reports what happened to a message write
type SaveResult struct {
	Status    SaveStatus
	MessageID string
}

// Message is one persisted conversation message
type Message struct {
	ID             string
	ConversationID int64
	Role           models.Role
	Content        string
	Meta           map[string]string
	UserCode       string
	CreatedAt      time.Time
}

// MessageStore handles message persistence
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// SaveUserTurn persists a user message with duplicate suppression.
// A write identical to the most recent stored user message in the same
// conversation is skipped (SaveSkippedDuplicate), not failed.
func (s *MessageStore) SaveUserTurn(conversationID int64, userCode, content string, meta map[string]string) (*SaveResult, error) {
	if userCode == "" {
		return nil, fmt.Errorf("user code is required")
	}
	if models.IsDegenerateText(content) {
		return &SaveResult{Status: SaveRejectedEmpty}, nil
	}

	last, err := s.lastContentByRole(conversationID, models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to check last user message: %w", err)
	}
	if last == content {
		return &SaveResult{Status: SaveSkippedDuplicate}, nil
	}

	return s.insert(conversationID, models.RoleUser, content, meta, userCode, "")
}

// SaveAssistantTurn persists an assistant message. The caller must present the
// single-writer marker in meta; any other caller gets SaveBlocked rather than
// a silent success, which keeps two code paths from double-persisting a turn.
func (s *MessageStore) SaveAssistantTurn(conversationID int64, userCode, content string, meta map[string]string) (*SaveResult, error) {
	if userCode == "" {
		return nil, fmt.Errorf("user code is required")
	}
	if meta == nil || meta[WriterMetaKey] != WriterMarker {
		return &SaveResult{Status: SaveBlocked}, nil
	}
	if models.IsDegenerateText(content) {
		return &SaveResult{Status: SaveRejectedEmpty}, nil
	}

	return s.insert(conversationID, models.RoleAssistant, content, meta, userCode, meta[TurnKeyMetaKey])
}

// insert writes one row; a unique turn_key conflict means the turn was
// already persisted by another attempt, which surfaces as SaveBlocked.
func (s *MessageStore) insert(conversationID int64, role models.Role, content string, meta map[string]string, userCode, turnKey string) (*SaveResult, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal meta: %w", err)
	}

	var turnKeyVal interface{}
	if turnKey != "" {
		turnKeyVal = turnKey
	}

	messageID := fmt.Sprintf("msg_%s_%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	_, err = s.db.Exec(`
		INSERT INTO messages (id, conversation_id, role, content, meta, user_code, turn_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, messageID, conversationID, string(role), content, string(metaJSON), userCode, turnKeyVal)
	if err != nil {
		if isUniqueViolation(err) {
			return &SaveResult{Status: SaveBlocked}, nil
		}
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return &SaveResult{Status: SaveOK, MessageID: messageID}, nil
}

// lastContentByRole returns the content of the most recent message with the
// given role in a conversation, or "" if none exists.
func (s *MessageStore) lastContentByRole(conversationID int64, role models.Role) (string, error) {
	var content string
	err := s.db.QueryRow(`
		SELECT content FROM messages
		WHERE conversation_id = ? AND role = ?
		ORDER BY rowid DESC
		LIMIT 1
	`, conversationID, string(role)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return content, err
}

// GetByConversation retrieves all messages for a conversation, oldest first
func (s *MessageStore) GetByConversation(conversationID int64) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, meta, user_code, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY rowid ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var messages []Message
	for rows.Next() {
		var (
			msg      Message
			role     string
			metaJSON sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &metaJSON, &msg.UserCode, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = models.Role(role)
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &msg.Meta); err != nil {
				msg.Meta = map[string]string{}
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// History converts stored messages into the orchestrator's history shape
func (s *MessageStore) History(conversationID int64) ([]models.HistoryMessage, error) {
	messages, err := s.GetByConversation(conversationID)
	if err != nil {
		return nil, err
	}
	history := make([]models.HistoryMessage, 0, len(messages))
	for _, msg := range messages {
		history = append(history, models.HistoryMessage{Role: msg.Role, Content: msg.Content})
	}
	return history, nil
}

// LastMeta returns the meta of the most recent message with the given role
func (s *MessageStore) LastMeta(conversationID int64, role models.Role) (map[string]string, error) {
	var metaJSON sql.NullString
	err := s.db.QueryRow(`
		SELECT meta FROM messages
		WHERE conversation_id = ? AND role = ?
		ORDER BY rowid DESC
		LIMIT 1
	`, conversationID, string(role)).Scan(&metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !metaJSON.Valid || metaJSON.String == "" {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
		return nil, nil
	}
	return meta, nil
}

// isUniqueViolation reports whether err is a sqlite unique-constraint failure
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
