// ABOUTME: Turn orchestrator sequencing classification, gates, generation, and persistence
// ABOUTME: Decides per turn between recall, locked plan, scaffold+generation, and the emergency path
package core

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kokorohq/compass/internal/models"
	"github.com/kokorohq/compass/internal/storage"
	"github.com/kokorohq/compass/internal/storage/sqlite"
)

// emptyTurnPlaceholder is returned for input that is empty after
// normalization; no generation call, no assistant row with real content.
const emptyTurnPlaceholder = "……ここにいますよ。"

// creditReasonTurn tags ledger entries produced by the turn pipeline
const creditReasonTurn = "turn"

// GenerationClient is the collaborator that turns a prompt into text.
// Treated as potentially slow or unavailable; one call, then fallback.
type GenerationClient interface {
	GenerateTurn(ctx context.Context, messages []models.HistoryMessage) (*models.GenerationReply, error)
}

// PersonMirror optionally replicates person states to a secondary store
type PersonMirror interface {
	MirrorPersonState(state *models.PersonState) error
}

// Orchestrator sequences one turn end to end
type Orchestrator struct {
	storage       *storage.Storage
	generator     GenerationClient
	mirror        PersonMirror
	creditPerTurn int64
}

// NewOrchestrator creates an Orchestrator. generator may be nil, in which
// case every generation-bound turn takes the emergency path.
func NewOrchestrator(store *storage.Storage, generator GenerationClient, creditPerTurn int64) *Orchestrator {
	return &Orchestrator{
		storage:       store,
		generator:     generator,
		creditPerTurn: creditPerTurn,
	}
}

// SetPersonMirror wires an optional secondary person-state store
func (o *Orchestrator) SetPersonMirror(mirror PersonMirror) {
	o.mirror = mirror
}

// HandleTurn produces the next agent turn for one user utterance.
// The reply is always valid when result is non-nil; a non-nil error alongside
// a result reports bookkeeping failures (e.g. insufficient credit) that do
// not retract the already-computed reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, input models.TurnInput) (*models.TurnResult, error) {
	if input.UserCode == "" {
		return nil, models.NewTurnError(models.ErrCodeUnauthorized, errors.New("user code is required"))
	}

	conversationID, err := o.storage.ResolveConversation(input.ConversationRef)
	if err != nil {
		if errors.Is(err, sqlite.ErrConversationNotFound) {
			return nil, models.NewTurnError(models.ErrCodeBadConversation, err)
		}
		return nil, models.NewTurnError(models.ErrCodeInternal, err)
	}

	tc := NewTurnContext(conversationID)

	// Step 1: normalize; empty input short-circuits without side effects
	userText := models.NormalizeText(input.UserText)
	if userText == "" {
		return &models.TurnResult{
			TurnID:   tc.TurnID,
			Text:     emptyTurnPlaceholder,
			Strategy: models.StrategyEmptyTurn,
		}, nil
	}

	history := input.History
	if len(history) == 0 {
		stored, err := o.storage.History(conversationID)
		if err != nil {
			log.Printf("[Orchestrator] failed to load history: %v", err)
		} else {
			history = stored
		}
	}

	o.hydrateTurnContext(tc, input.UserCode, conversationID)

	result := o.decideReply(ctx, tc, userText, history, input)

	// Cancellation before persistence leaves no partial state behind;
	// everything up to here was pure or read-only.
	if ctx.Err() != nil {
		return result, nil
	}

	o.persistTurn(tc, input, userText, result)

	if captureErr := o.captureCredit(tc, input, result); captureErr != nil {
		return result, captureErr
	}
	return result, nil
}

// decideReply runs the strategy ladder: recall, locked plan, scaffold +
// generation, emergency.
func (o *Orchestrator) decideReply(ctx context.Context, tc *TurnContext, userText string, history []models.HistoryMessage, input models.TurnInput) *models.TurnResult {
	result := &models.TurnResult{TurnID: tc.TurnID, Meta: map[string]string{}}

	// Step 2: recall gate answers directly from history
	if recall := AnswerRecall(userText, history); recall != "" {
		result.Text = recall
		result.Strategy = models.StrategyRecall
		return result
	}

	anchor := o.resolveAnchor(tc)
	result.Meta[AnchorKeyMetaKey] = anchor.Key
	result.Meta[AnchorPhraseMetaKey] = anchor.Phrase

	// Steps 3-4: a fixed-format diagnostic plan is FINAL; render verbatim,
	// never send it for rewriting
	if WantsDiagnosis(userText) {
		plan := BuildDiagnosticPlan(tc, anchor)
		result.Text = plan.Render()
		result.Strategy = models.StrategyFinalPlan
		return result
	}

	// Degenerate (symbol-only) input never reaches the generation service
	if models.IsDegenerateText(userText) {
		result.Text = EmergencyReply(userText)
		result.Strategy = models.StrategyEmergency
		return result
	}

	moment := DetectExpansionMoment(userText, recentUserTexts(history, 3))
	scaffold, hasMomentPlan := BuildExpansionPlan(moment)
	if !hasMomentPlan {
		scaffold = BuildDefaultScaffold()
	}
	if moment.Decision != ExpansionNone {
		result.Meta["expansion"] = string(moment.Decision)
	}

	// Step 5: build and inject the digest once, then call the service with
	// the scaffold as the safety default
	digest := BuildDigest(DigestArgs{
		Anchor:       anchor,
		State:        tc.Classification,
		TopicLabel:   topicLabelFor(tc),
		TopicSummary: topicSummaryFor(tc),
		History:      history,
		CurrentText:  userText,
	})

	prompt := append([]models.HistoryMessage{}, history...)
	prompt = append(prompt, models.HistoryMessage{Role: models.RoleUser, Content: userText})
	prompt, _ = InjectDigest(prompt, digest)

	if o.generator == nil {
		result.Text = EmergencyReply(userText)
		result.Strategy = models.StrategyEmergency
		return result
	}

	reply, err := o.generator.GenerateTurn(ctx, prompt)
	if err != nil {
		// Step 6: collaborator unavailable → emergency path, logged only
		log.Printf("[Orchestrator] generation failed, using emergency responder: %v", err)
		result.Text = EmergencyReply(userText)
		result.Strategy = models.StrategyEmergency
		return result
	}

	if reply == nil || models.IsDegenerateText(reply.Text) {
		// Malformed output → keep the scaffold content unchanged
		result.Text = scaffold.Render()
		result.Strategy = models.StrategyScaffold
		return result
	}

	result.Text = reply.Text
	result.Strategy = models.StrategyGenerated
	o.absorbClassification(tc, input.UserCode, reply.Meta)

	// A confirmed choice in the response payload re-anchors the conversation;
	// the new key is persisted with this turn and governs the next resolve
	if evidence := ExtractAnchorEvidence(AnchorPayload{Extra: reply.Extra}); evidence.ChoiceID != "" {
		anchor = models.Anchor{Key: evidence.ChoiceID, Phrase: anchor.Phrase}
		tc.SessionAnchor = anchor
		result.Meta[AnchorKeyMetaKey] = anchor.Key
		result.Meta[AnchorPhraseMetaKey] = anchor.Phrase
		result.Meta["anchor_source"] = evidence.Source
	}
	return result
}

// hydrateTurnContext loads the cached person state and classification tags
func (o *Orchestrator) hydrateTurnContext(tc *TurnContext, userCode string, conversationID int64) {
	state, err := o.storage.GetPersonState(userCode, models.TargetSelf, models.TargetSelf)
	if err != nil {
		log.Printf("[Orchestrator] failed to load person state: %v", err)
		return
	}
	if state == nil {
		return
	}
	tc.PersonState = state
	tc.Classification = models.ClassificationState{
		Q:     state.Q,
		Depth: state.Depth,
		Phase: state.Phase,
	}.Normalized()
}

// resolveAnchor applies the fixed anchor priority using persisted turn metadata
func (o *Orchestrator) resolveAnchor(tc *TurnContext) models.Anchor {
	persistedMeta, err := o.storage.LastAssistantMeta(tc.ConversationID)
	if err != nil {
		log.Printf("[Orchestrator] failed to load persisted anchor: %v", err)
		persistedMeta = nil
	}
	return ResolveAnchor(tc, persistedMeta)
}

// absorbClassification upserts the person profile after a confident classification
func (o *Orchestrator) absorbClassification(tc *TurnContext, userCode string, meta *models.GenerationMeta) {
	if meta == nil || !meta.Confident {
		return
	}

	state := tc.PersonState
	if state == nil {
		state = &models.PersonState{
			OwnerUserCode: userCode,
			TargetType:    models.TargetSelf,
			TargetLabel:   models.TargetSelf,
		}
	}
	state.Q = firstQCode(meta.Q, tc.Classification.Q)
	state.Depth = firstDepth(meta.Depth, tc.Classification.Depth)
	state.Phase = firstPhase(meta.Phase, tc.Classification.Phase)
	if meta.IntentBand != "" {
		state.IntentBand = meta.IntentBand
	}
	if meta.Direction != "" {
		state.Direction = meta.Direction
	}
	if meta.FocusLayer != "" {
		state.FocusLayer = meta.FocusLayer
	}
	if meta.CoreNeed != "" {
		state.CoreNeed = meta.CoreNeed
	}

	if err := o.storage.UpsertPersonState(state); err != nil {
		log.Printf("[Orchestrator] failed to upsert person state: %v", err)
		return
	}
	tc.PersonState = state

	if o.mirror != nil {
		if err := o.mirror.MirrorPersonState(state); err != nil {
			log.Printf("[Orchestrator] person-state mirror failed: %v", err)
		}
	}
}

// persistTurn writes the user and assistant rows, in that order. Failures are
// logged and recorded in result meta; the reply is never held hostage by
// bookkeeping.
func (o *Orchestrator) persistTurn(tc *TurnContext, input models.TurnInput, userText string, result *models.TurnResult) {
	if result.Meta == nil {
		result.Meta = map[string]string{}
	}

	userResult, err := o.storage.SaveUserTurn(tc.ConversationID, input.UserCode, userText, map[string]string{
		sqlite.TurnKeyMetaKey: tc.TurnID,
	})
	if err != nil {
		log.Printf("[Orchestrator] failed to persist user turn: %v", err)
		result.Meta["persist_user"] = "error"
	} else {
		result.Meta["persist_user"] = string(userResult.Status)
	}

	assistantMeta := map[string]string{
		sqlite.WriterMetaKey:  sqlite.WriterMarker,
		sqlite.TurnKeyMetaKey: tc.TurnID,
		"strategy":            result.Strategy,
	}
	if key, ok := result.Meta[AnchorKeyMetaKey]; ok && key != "" {
		assistantMeta[AnchorKeyMetaKey] = key
		if phrase := result.Meta[AnchorPhraseMetaKey]; phrase != "" {
			assistantMeta[AnchorPhraseMetaKey] = phrase
		}
	}

	assistantResult, err := o.storage.SaveAssistantTurn(tc.ConversationID, input.UserCode, result.Text, assistantMeta)
	if err != nil {
		log.Printf("[Orchestrator] failed to persist assistant turn: %v", err)
		result.Meta["persist_assistant"] = "error"
	} else {
		result.Meta["persist_assistant"] = string(assistantResult.Status)
	}
}

// captureCredit debits one turn's worth of credit, keyed by the turn id so
// retries and at-least-once delivery cannot double-debit.
func (o *Orchestrator) captureCredit(tc *TurnContext, input models.TurnInput, result *models.TurnResult) error {
	if o.creditPerTurn <= 0 {
		return nil
	}

	capture, err := o.storage.CaptureCredit(input.UserCode, o.creditPerTurn, tc.TurnID, creditReasonTurn, map[string]string{
		"strategy": result.Strategy,
	}, tc.ConversationID)
	if err != nil {
		if errors.Is(err, sqlite.ErrInsufficientCredit) {
			return models.NewTurnError(models.ErrCodeInsufficientCredit, err)
		}
		return models.NewTurnError(models.ErrCodeInternal, fmt.Errorf("credit capture failed: %w", err))
	}

	result.Meta["balance"] = fmt.Sprintf("%d", capture.Balance)
	return nil
}

// recentUserTexts collects up to max user utterances from history, newest first
func recentUserTexts(history []models.HistoryMessage, max int) []string {
	var texts []string
	for i := len(history) - 1; i >= 0 && len(texts) < max; i-- {
		if history[i].Role == models.RoleUser {
			texts = append(texts, history[i].Content)
		}
	}
	return texts
}

func topicLabelFor(tc *TurnContext) string {
	if tc.PersonState != nil && tc.PersonState.FocusLayer != "" {
		return tc.PersonState.FocusLayer
	}
	return ""
}

func topicSummaryFor(tc *TurnContext) string {
	if tc.PersonState != nil {
		return tc.PersonState.CoreNeed
	}
	return ""
}

func firstQCode(values ...models.QCode) models.QCode {
	for _, v := range values {
		if v.IsValid() {
			return v
		}
	}
	return models.DefaultQCode
}

func firstDepth(values ...models.DepthStage) models.DepthStage {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return models.DefaultDepthStage
}

func firstPhase(values ...models.Phase) models.Phase {
	for _, v := range values {
		if v.IsValid() {
			return v
		}
	}
	return models.DefaultPhase
}
