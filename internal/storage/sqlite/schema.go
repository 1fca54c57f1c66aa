// ABOUTME: SQLite database schema for the turn-orchestration core
// ABOUTME: Creates conversations, messages, person states, and ledger tables
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Conversations table (internal id plus user-facing reference alias)
CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    public_ref TEXT NOT NULL UNIQUE,
    user_code TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Messages table (persisted turns, one row per accepted turn per role)
CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    meta TEXT,
    user_code TEXT NOT NULL,
    turn_key TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Person intent states, unique per (owner, target type, target label)
CREATE TABLE IF NOT EXISTS person_states (
    id TEXT PRIMARY KEY,
    owner_user_code TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_label TEXT NOT NULL,
    q TEXT,
    depth TEXT,
    phase TEXT,
    intent_band TEXT,
    direction TEXT,
    focus_layer TEXT,
    core_need TEXT,
    guidance_hint TEXT,
    t_layer_hint TEXT,
    self_acceptance REAL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(owner_user_code, target_type, target_label)
);

-- Ledger entries, at most one successful debit per idempotency key
CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    user_code TEXT NOT NULL,
    amount INTEGER NOT NULL,
    idempotency_key TEXT NOT NULL UNIQUE,
    reason TEXT,
    meta TEXT,
    conversation_id INTEGER,
    balance_after INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Credit balances, one row per user
CREATE TABLE IF NOT EXISTS credit_balances (
    user_code TEXT PRIMARY KEY,
    balance INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for efficient querying
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_turn_key
    ON messages(conversation_id, role, turn_key) WHERE turn_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_person_states_owner ON person_states(owner_user_code);
CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_code, created_at);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
