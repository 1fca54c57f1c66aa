// ABOUTME: Tests for the unified storage layer over in-memory SQLite
// ABOUTME: Covers write invariants: dedupe, single-writer marker, idempotent credit capture
package storage

import (
	"errors"
	"testing"

	"github.com/kokorohq/compass/internal/models"
	"github.com/kokorohq/compass/internal/storage/sqlite"
)

func setupTestStorage(t *testing.T) (*Storage, int64) {
	t.Helper()

	store, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	conversationID, err := store.ResolveOrCreateConversation("conv-1", "user-1")
	if err != nil {
		t.Fatalf("ResolveOrCreateConversation() error = %v", err)
	}
	return store, conversationID
}

func assistantMeta(turnKey string) map[string]string {
	return map[string]string{
		sqlite.WriterMetaKey:  sqlite.WriterMarker,
		sqlite.TurnKeyMetaKey: turnKey,
	}
}

func TestResolveOrCreateConversation_Idempotent(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	again, err := store.ResolveOrCreateConversation("conv-1", "user-1")
	if err != nil {
		t.Fatalf("ResolveOrCreateConversation() error = %v", err)
	}
	if again != conversationID {
		t.Errorf("second resolve = %d, want same id %d", again, conversationID)
	}

	other, err := store.ResolveOrCreateConversation("conv-2", "user-1")
	if err != nil {
		t.Fatalf("ResolveOrCreateConversation() error = %v", err)
	}
	if other == conversationID {
		t.Error("distinct refs should map to distinct conversations")
	}
}

func TestResolveConversation_UnknownRef(t *testing.T) {
	store, _ := setupTestStorage(t)

	_, err := store.ResolveConversation("nope")
	if !errors.Is(err, sqlite.ErrConversationNotFound) {
		t.Errorf("ResolveConversation() error = %v, want ErrConversationNotFound", err)
	}
}

func TestSaveUserTurn_DuplicateSuppression(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	first, err := store.SaveUserTurn(conversationID, "user-1", "the same message", nil)
	if err != nil {
		t.Fatalf("SaveUserTurn() error = %v", err)
	}
	if first.Status != sqlite.SaveOK {
		t.Fatalf("first save status = %q, want %q", first.Status, sqlite.SaveOK)
	}

	second, err := store.SaveUserTurn(conversationID, "user-1", "the same message", nil)
	if err != nil {
		t.Fatalf("SaveUserTurn() error = %v", err)
	}
	if second.Status != sqlite.SaveSkippedDuplicate {
		t.Errorf("duplicate save status = %q, want %q", second.Status, sqlite.SaveSkippedDuplicate)
	}

	messages, err := store.Messages(conversationID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("stored %d messages, want exactly 1", len(messages))
	}
}

func TestSaveUserTurn_DuplicateNotAdjacent(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	saves := []string{"first thought", "second thought", "first thought"}
	for _, content := range saves {
		result, err := store.SaveUserTurn(conversationID, "user-1", content, nil)
		if err != nil {
			t.Fatalf("SaveUserTurn(%q) error = %v", content, err)
		}
		if result.Status != sqlite.SaveOK {
			t.Errorf("SaveUserTurn(%q) status = %q, want saved", content, result.Status)
		}
	}
}

func TestSaveUserTurn_RejectsDegenerateContent(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	for _, content := range []string{"", "   ", "...", "……"} {
		result, err := store.SaveUserTurn(conversationID, "user-1", content, nil)
		if err != nil {
			t.Fatalf("SaveUserTurn(%q) error = %v", content, err)
		}
		if result.Status != sqlite.SaveRejectedEmpty {
			t.Errorf("SaveUserTurn(%q) status = %q, want %q", content, result.Status, sqlite.SaveRejectedEmpty)
		}
	}
}

func TestSaveAssistantTurn_RequiresWriterMarker(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	noMeta, err := store.SaveAssistantTurn(conversationID, "user-1", "a reply", nil)
	if err != nil {
		t.Fatalf("SaveAssistantTurn() error = %v", err)
	}
	if noMeta.Status != sqlite.SaveBlocked {
		t.Errorf("status without meta = %q, want %q", noMeta.Status, sqlite.SaveBlocked)
	}

	wrongWriter, err := store.SaveAssistantTurn(conversationID, "user-1", "a reply", map[string]string{
		sqlite.WriterMetaKey: "someone_else",
	})
	if err != nil {
		t.Fatalf("SaveAssistantTurn() error = %v", err)
	}
	if wrongWriter.Status != sqlite.SaveBlocked {
		t.Errorf("status with wrong writer = %q, want %q", wrongWriter.Status, sqlite.SaveBlocked)
	}

	marked, err := store.SaveAssistantTurn(conversationID, "user-1", "a reply", assistantMeta("turn-a"))
	if err != nil {
		t.Fatalf("SaveAssistantTurn() error = %v", err)
	}
	if marked.Status != sqlite.SaveOK {
		t.Errorf("status with marker = %q, want %q", marked.Status, sqlite.SaveOK)
	}
}

func TestSaveAssistantTurn_OneWritePerTurnKey(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	first, err := store.SaveAssistantTurn(conversationID, "user-1", "reply one", assistantMeta("turn-x"))
	if err != nil {
		t.Fatalf("SaveAssistantTurn() error = %v", err)
	}
	if first.Status != sqlite.SaveOK {
		t.Fatalf("first write status = %q, want saved", first.Status)
	}

	// A second write for the same turn loses to the unique turn-key index
	second, err := store.SaveAssistantTurn(conversationID, "user-1", "reply two", assistantMeta("turn-x"))
	if err != nil {
		t.Fatalf("SaveAssistantTurn() error = %v", err)
	}
	if second.Status != sqlite.SaveBlocked {
		t.Errorf("second write status = %q, want %q", second.Status, sqlite.SaveBlocked)
	}

	messages, err := store.Messages(conversationID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("turn persisted %d assistant rows, want exactly 1", len(messages))
	}
	if messages[0].Content != "reply one" {
		t.Errorf("surviving content = %q, want the first write", messages[0].Content)
	}
}

func TestSaveAssistantTurn_ConcurrentWritersOneWins(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	type outcome struct {
		status sqlite.SaveStatus
		err    error
	}
	results := make(chan outcome, 2)

	// Two write paths race for the same turn; only one presents the marker
	save := func(content string, meta map[string]string) {
		r, err := store.SaveAssistantTurn(conversationID, "user-1", content, meta)
		if err != nil {
			results <- outcome{err: err}
			return
		}
		results <- outcome{status: r.Status}
	}
	go save("authorized reply", assistantMeta("turn-race"))
	go save("rogue reply", map[string]string{sqlite.TurnKeyMetaKey: "turn-race"})

	var saved, blocked int
	for i := 0; i < 2; i++ {
		got := <-results
		if got.err != nil {
			t.Fatalf("SaveAssistantTurn() error = %v", got.err)
		}
		switch got.status {
		case sqlite.SaveOK:
			saved++
		case sqlite.SaveBlocked:
			blocked++
		default:
			t.Errorf("unexpected status %q", got.status)
		}
	}
	if saved != 1 || blocked != 1 {
		t.Errorf("saved = %d, blocked = %d, want exactly one of each", saved, blocked)
	}

	messages, err := store.Messages(conversationID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("persisted %d rows, want 1", len(messages))
	}
	if messages[0].Content != "authorized reply" {
		t.Errorf("surviving content = %q, want the marked writer's", messages[0].Content)
	}
}

func TestHistory_OrderAndShape(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	if _, err := store.SaveUserTurn(conversationID, "user-1", "hello there", nil); err != nil {
		t.Fatalf("SaveUserTurn() error = %v", err)
	}
	if _, err := store.SaveAssistantTurn(conversationID, "user-1", "hello back", assistantMeta("turn-1")); err != nil {
		t.Fatalf("SaveAssistantTurn() error = %v", err)
	}
	if _, err := store.SaveUserTurn(conversationID, "user-1", "how are you", nil); err != nil {
		t.Fatalf("SaveUserTurn() error = %v", err)
	}

	history, err := store.History(conversationID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries, want 3", len(history))
	}

	wantRoles := []models.Role{models.RoleUser, models.RoleAssistant, models.RoleUser}
	for i, want := range wantRoles {
		if history[i].Role != want {
			t.Errorf("history[%d].Role = %q, want %q", i, history[i].Role, want)
		}
	}
	if history[0].Content != "hello there" {
		t.Errorf("history[0].Content = %q, want oldest first", history[0].Content)
	}
}

func TestLastAssistantMeta(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	meta, err := store.LastAssistantMeta(conversationID)
	if err != nil {
		t.Fatalf("LastAssistantMeta() error = %v", err)
	}
	if meta != nil {
		t.Errorf("meta before any write = %v, want nil", meta)
	}

	saved := assistantMeta("turn-1")
	saved["anchor_key"] = "SUN"
	if _, err := store.SaveAssistantTurn(conversationID, "user-1", "a reply", saved); err != nil {
		t.Fatalf("SaveAssistantTurn() error = %v", err)
	}

	meta, err = store.LastAssistantMeta(conversationID)
	if err != nil {
		t.Fatalf("LastAssistantMeta() error = %v", err)
	}
	if meta["anchor_key"] != "SUN" {
		t.Errorf("meta[anchor_key] = %q, want %q", meta["anchor_key"], "SUN")
	}
}

func TestCaptureCredit_IdempotentPerKey(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	if _, err := store.GrantCredit("user-1", 10); err != nil {
		t.Fatalf("GrantCredit() error = %v", err)
	}

	first, err := store.CaptureCredit("user-1", 3, "turn-key-1", "turn", nil, conversationID)
	if err != nil {
		t.Fatalf("CaptureCredit() error = %v", err)
	}
	if first.AlreadyApplied {
		t.Error("first capture reported AlreadyApplied")
	}
	if first.Balance != 7 {
		t.Errorf("balance after first capture = %d, want 7", first.Balance)
	}

	// Replaying the same key is a no-op returning the applied balance
	replay, err := store.CaptureCredit("user-1", 3, "turn-key-1", "turn", nil, conversationID)
	if err != nil {
		t.Fatalf("replay CaptureCredit() error = %v", err)
	}
	if !replay.AlreadyApplied {
		t.Error("replay should report AlreadyApplied")
	}
	if replay.Balance != 7 {
		t.Errorf("replay balance = %d, want 7", replay.Balance)
	}

	balance, err := store.CreditBalance("user-1")
	if err != nil {
		t.Fatalf("CreditBalance() error = %v", err)
	}
	if balance != 7 {
		t.Errorf("stored balance = %d, want 7 (debited once)", balance)
	}

	entries, err := store.LedgerEntries("user-1", 10)
	if err != nil {
		t.Fatalf("LedgerEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ledger has %d entries, want exactly 1", len(entries))
	}
}

func TestCaptureCredit_InsufficientBalance(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	if _, err := store.GrantCredit("user-1", 2); err != nil {
		t.Fatalf("GrantCredit() error = %v", err)
	}

	_, err := store.CaptureCredit("user-1", 5, "turn-key-1", "turn", nil, conversationID)
	if !errors.Is(err, sqlite.ErrInsufficientCredit) {
		t.Fatalf("CaptureCredit() error = %v, want ErrInsufficientCredit", err)
	}

	// A failed capture must not leave a ledger entry or move the balance
	balance, _ := store.CreditBalance("user-1")
	if balance != 2 {
		t.Errorf("balance = %d, want 2 after failed capture", balance)
	}
	entries, _ := store.LedgerEntries("user-1", 10)
	if len(entries) != 0 {
		t.Errorf("ledger has %d entries after failed capture, want 0", len(entries))
	}
}

func TestCaptureCredit_ZeroAmountStillRecordsKey(t *testing.T) {
	store, conversationID := setupTestStorage(t)

	result, err := store.CaptureCredit("user-1", 0, "turn-key-free", "turn", nil, conversationID)
	if err != nil {
		t.Fatalf("CaptureCredit() error = %v", err)
	}
	if !result.OK || result.Balance != 0 {
		t.Errorf("zero capture = %+v, want OK at balance 0", result)
	}

	replay, err := store.CaptureCredit("user-1", 0, "turn-key-free", "turn", nil, conversationID)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if !replay.AlreadyApplied {
		t.Error("zero-amount replay should still be recognized by key")
	}
}

func TestPersonState_UpsertAndGet(t *testing.T) {
	store, _ := setupTestStorage(t)

	missing, err := store.GetPersonState("user-1", models.TargetSelf, models.TargetSelf)
	if err != nil {
		t.Fatalf("GetPersonState() error = %v", err)
	}
	if missing != nil {
		t.Errorf("state before upsert = %+v, want nil", missing)
	}

	state := &models.PersonState{
		OwnerUserCode: "user-1",
		TargetType:    models.TargetSelf,
		TargetLabel:   models.TargetSelf,
		Q:             models.Q2,
		Depth:         "S2",
		Phase:         models.PhaseInner,
		CoreNeed:      "落ち着ける時間",
	}
	if err := store.UpsertPersonState(state); err != nil {
		t.Fatalf("UpsertPersonState() error = %v", err)
	}

	loaded, err := store.GetPersonState("user-1", models.TargetSelf, models.TargetSelf)
	if err != nil {
		t.Fatalf("GetPersonState() error = %v", err)
	}
	if loaded == nil || loaded.Q != models.Q2 || loaded.CoreNeed != "落ち着ける時間" {
		t.Fatalf("loaded state = %+v", loaded)
	}

	// Upsert with the same key updates in place
	state.Q = models.Q4
	if err := store.UpsertPersonState(state); err != nil {
		t.Fatalf("second UpsertPersonState() error = %v", err)
	}
	updated, err := store.GetPersonState("user-1", models.TargetSelf, models.TargetSelf)
	if err != nil {
		t.Fatalf("GetPersonState() error = %v", err)
	}
	if updated.Q != models.Q4 {
		t.Errorf("updated.Q = %q, want Q4", updated.Q)
	}

	all, err := store.ListPersonStates("user-1")
	if err != nil {
		t.Fatalf("ListPersonStates() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListPersonStates returned %d states, want 1", len(all))
	}
}

func TestPersonState_SeparateTargets(t *testing.T) {
	store, _ := setupTestStorage(t)

	selfState := &models.PersonState{
		OwnerUserCode: "user-1",
		TargetType:    models.TargetSelf,
		TargetLabel:   models.TargetSelf,
		Q:             models.Q1,
	}
	otherState := &models.PersonState{
		OwnerUserCode: "user-1",
		TargetType:    models.TargetOther,
		TargetLabel:   "coworker",
		Q:             models.Q3,
	}
	if err := store.UpsertPersonState(selfState); err != nil {
		t.Fatalf("UpsertPersonState(self) error = %v", err)
	}
	if err := store.UpsertPersonState(otherState); err != nil {
		t.Fatalf("UpsertPersonState(other) error = %v", err)
	}

	all, err := store.ListPersonStates("user-1")
	if err != nil {
		t.Fatalf("ListPersonStates() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListPersonStates returned %d states, want 2", len(all))
	}
}
