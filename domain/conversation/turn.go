// Package conversation defines chat turns and the history store.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Turn is one question and its answer.
type Turn struct {
	ID    string `json:"id"`
	Query string `json:"query"`
	// Answer is the final text shown to the user.
	Answer string `json:"answer"`
	// Data is the structured extraction the answer was built from.
	Data string `json:"data,omitempty"`
	// Visualization is the raw chart proposal, empty when none was requested.
	Visualization string `json:"visualization,omitempty"`
	// ChartID is the stored chart artifact, empty when no chart was saved.
	ChartID   string    `json:"chart_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn creates a turn with a fresh ID and timestamp.
func NewTurn(query, answer string) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Query:     query,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the fields every store requires.
func (t Turn) Validate() error {
	if t.ID == "" {
		return ErrInvalidTurn
	}
	if t.Query == "" {
		return ErrEmptyQuery
	}
	return nil
}

// Store persists conversation turns.
type Store interface {
	// Append records a turn.
	Append(ctx context.Context, turn Turn) error

	// Get returns the turn with the given ID.
	Get(ctx context.Context, id string) (Turn, error)

	// Recent returns up to limit turns, newest first. A non-positive limit
	// returns every turn.
	Recent(ctx context.Context, limit int) ([]Turn, error)

	// Clear removes every turn.
	Clear(ctx context.Context) error
}
