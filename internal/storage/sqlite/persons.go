// ABOUTME: Person intent-state storage operations for SQLite
// ABOUTME: Upsert-on-conflict per (owner, target type, target label); records are never deleted here
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kokorohq/compass/internal/models"
)

// PersonStore handles person intent-state persistence
type PersonStore struct {
	db *DB
}

// NewPersonStore creates a new PersonStore
func NewPersonStore(db *DB) *PersonStore {
	return &PersonStore{db: db}
}

// Upsert creates the record on first classification of a target and updates
// (never appends) on every subsequent confident classification.
func (s *PersonStore) Upsert(state *models.PersonState) error {
	if state.OwnerUserCode == "" || state.TargetType == "" || state.TargetLabel == "" {
		return fmt.Errorf("person state key fields are required")
	}

	state.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO person_states (
			id, owner_user_code, target_type, target_label,
			q, depth, phase, intent_band, direction, focus_layer,
			core_need, guidance_hint, t_layer_hint, self_acceptance, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_user_code, target_type, target_label) DO UPDATE SET
			q = excluded.q,
			depth = excluded.depth,
			phase = excluded.phase,
			intent_band = excluded.intent_band,
			direction = excluded.direction,
			focus_layer = excluded.focus_layer,
			core_need = excluded.core_need,
			guidance_hint = excluded.guidance_hint,
			t_layer_hint = excluded.t_layer_hint,
			self_acceptance = excluded.self_acceptance,
			updated_at = excluded.updated_at
	`, uuid.New().String(), state.OwnerUserCode, state.TargetType, state.TargetLabel,
		string(state.Q), string(state.Depth), string(state.Phase),
		state.IntentBand, state.Direction, state.FocusLayer,
		state.CoreNeed, state.GuidanceHint, state.TLayerHint,
		state.SelfAcceptance, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert person state: %w", err)
	}
	return nil
}

// Get retrieves the state for one (owner, target) pair, or nil if absent
func (s *PersonStore) Get(ownerUserCode, targetType, targetLabel string) (*models.PersonState, error) {
	row := s.db.QueryRow(`
		SELECT owner_user_code, target_type, target_label,
		       q, depth, phase, intent_band, direction, focus_layer,
		       core_need, guidance_hint, t_layer_hint, self_acceptance, updated_at
		FROM person_states
		WHERE owner_user_code = ? AND target_type = ? AND target_label = ?
	`, ownerUserCode, targetType, targetLabel)

	state, err := scanPersonState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person state: %w", err)
	}
	return state, nil
}

// ListByOwner returns all states an owner keeps, most recently updated first
func (s *PersonStore) ListByOwner(ownerUserCode string) ([]models.PersonState, error) {
	rows, err := s.db.Query(`
		SELECT owner_user_code, target_type, target_label,
		       q, depth, phase, intent_band, direction, focus_layer,
		       core_need, guidance_hint, t_layer_hint, self_acceptance, updated_at
		FROM person_states
		WHERE owner_user_code = ?
		ORDER BY updated_at DESC
	`, ownerUserCode)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var states []models.PersonState
	for rows.Next() {
		state, err := scanPersonState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

// scanner covers both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPersonState(row scanner) (*models.PersonState, error) {
	var (
		state               models.PersonState
		q, depth, phase     sql.NullString
		band, direction     sql.NullString
		focus, need         sql.NullString
		guidance, tLayer    sql.NullString
	)
	err := row.Scan(&state.OwnerUserCode, &state.TargetType, &state.TargetLabel,
		&q, &depth, &phase, &band, &direction, &focus,
		&need, &guidance, &tLayer, &state.SelfAcceptance, &state.UpdatedAt)
	if err != nil {
		return nil, err
	}
	state.Q = models.QCode(q.String)
	state.Depth = models.DepthStage(depth.String)
	state.Phase = models.Phase(phase.String)
	state.IntentBand = band.String
	state.Direction = direction.String
	state.FocusLayer = focus.String
	state.CoreNeed = need.String
	state.GuidanceHint = guidance.String
	state.TLayerHint = tLayer.String
	return &state, nil
}
