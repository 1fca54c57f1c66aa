// ABOUTME: Unified Storage layer wrapping the SQLite stores
// ABOUTME: Single entry point for conversations, messages, person states, and the credit ledger
package storage

import (
	"fmt"
	"sync"

	"github.com/kokorohq/compass/internal/models"
	"github.com/kokorohq/compass/internal/storage/sqlite"
)

// Storage manages all persistent data for the turn core using SQLite
type Storage struct {
	db            *sqlite.DB
	conversations *sqlite.ConversationStore
	messages      *sqlite.MessageStore
	persons       *sqlite.PersonStore
	ledger        *sqlite.LedgerStore
	mu            sync.RWMutex
}

// NewStorage initializes storage at the default XDG path
func NewStorage() (*Storage, error) {
	return NewStorageWithPath(sqlite.DefaultDBPath())
}

// NewStorageWithPath initializes storage with a custom database path
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := sqlite.OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStorage(db), nil
}

func newStorage(db *sqlite.DB) *Storage {
	return &Storage{
		db:            db,
		conversations: sqlite.NewConversationStore(db),
		messages:      sqlite.NewMessageStore(db),
		persons:       sqlite.NewPersonStore(db),
		ledger:        sqlite.NewLedgerStore(db),
	}
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DBPath returns the backing database file path
func (s *Storage) DBPath() string {
	return s.db.Path()
}

// --- Conversation operations ---

// ResolveConversation maps a user-facing reference to the internal id
func (s *Storage) ResolveConversation(publicRef string) (int64, error) {
	return s.conversations.Resolve(publicRef)
}

// ResolveOrCreateConversation resolves a reference, creating it on first use
func (s *Storage) ResolveOrCreateConversation(publicRef, userCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations.ResolveOrCreate(publicRef, userCode)
}

// ListConversations returns a user's conversations, newest first
func (s *Storage) ListConversations(userCode string, limit int) ([]sqlite.Conversation, error) {
	return s.conversations.ListByUser(userCode, limit)
}

// --- Message operations ---

// SaveUserTurn persists a user message with duplicate suppression
func (s *Storage) SaveUserTurn(conversationID int64, userCode, content string, meta map[string]string) (*sqlite.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.messages.SaveUserTurn(conversationID, userCode, content, meta)
	if err != nil {
		return nil, err
	}
	if result.Status == sqlite.SaveOK {
		_ = s.conversations.Touch(conversationID)
	}
	return result, nil
}

// SaveAssistantTurn persists an assistant message behind the single-writer marker
func (s *Storage) SaveAssistantTurn(conversationID int64, userCode, content string, meta map[string]string) (*sqlite.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.messages.SaveAssistantTurn(conversationID, userCode, content, meta)
	if err != nil {
		return nil, err
	}
	if result.Status == sqlite.SaveOK {
		_ = s.conversations.Touch(conversationID)
	}
	return result, nil
}

// History returns a conversation's messages in orchestrator shape, oldest first
func (s *Storage) History(conversationID int64) ([]models.HistoryMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages.History(conversationID)
}

// Messages returns a conversation's full stored messages, oldest first
func (s *Storage) Messages(conversationID int64) ([]sqlite.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages.GetByConversation(conversationID)
}

// LastAssistantMeta returns the metadata of the newest assistant message
func (s *Storage) LastAssistantMeta(conversationID int64) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages.LastMeta(conversationID, models.RoleAssistant)
}

// --- Person intent-state operations ---

// UpsertPersonState creates or updates the intent profile for a target
func (s *Storage) UpsertPersonState(state *models.PersonState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persons.Upsert(state)
}

// GetPersonState loads the intent profile for one (owner, target) pair
func (s *Storage) GetPersonState(ownerUserCode, targetType, targetLabel string) (*models.PersonState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persons.Get(ownerUserCode, targetType, targetLabel)
}

// ListPersonStates returns all intent profiles an owner keeps
func (s *Storage) ListPersonStates(ownerUserCode string) ([]models.PersonState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persons.ListByOwner(ownerUserCode)
}

// --- Ledger operations ---

// CaptureCredit debits a user exactly once per idempotency key.
// The capture is atomic inside the store; callers never read-then-write.
func (s *Storage) CaptureCredit(userCode string, amount int64, idempotencyKey, reason string, meta map[string]string, refConversationID int64) (*models.CaptureResult, error) {
	return s.ledger.Capture(userCode, amount, idempotencyKey, reason, meta, refConversationID)
}

// GrantCredit adds credit to a user's balance
func (s *Storage) GrantCredit(userCode string, amount int64) (int64, error) {
	return s.ledger.Grant(userCode, amount)
}

// CreditBalance returns the user's current balance
func (s *Storage) CreditBalance(userCode string) (int64, error) {
	return s.ledger.Balance(userCode)
}

// LedgerEntries returns a user's debit history, newest first
func (s *Storage) LedgerEntries(userCode string, limit int) ([]models.LedgerEntry, error) {
	return s.ledger.Entries(userCode, limit)
}
