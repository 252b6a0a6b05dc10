package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/hoopstats/domain/conversation"
)

// HistoryStore is an in-memory conversation.Store. When a limit is set the
// oldest turns are dropped once it is exceeded.
type HistoryStore struct {
	mu    sync.RWMutex
	turns []conversation.Turn // oldest first
	limit int
}

// NewHistoryStore creates a history store keeping at most limit turns.
// A non-positive limit keeps every turn.
func NewHistoryStore(limit int) *HistoryStore {
	return &HistoryStore{limit: limit}
}

// Append records a turn.
func (s *HistoryStore) Append(ctx context.Context, turn conversation.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := turn.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.turns {
		if t.ID == turn.ID {
			return conversation.ErrDuplicateTurn
		}
	}
	s.turns = append(s.turns, turn)
	if s.limit > 0 && len(s.turns) > s.limit {
		s.turns = append([]conversation.Turn(nil), s.turns[len(s.turns)-s.limit:]...)
	}
	return nil
}

// Get returns the turn with the given ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (conversation.Turn, error) {
	if err := ctx.Err(); err != nil {
		return conversation.Turn{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.turns {
		if t.ID == id {
			return t, nil
		}
	}
	return conversation.Turn{}, conversation.ErrTurnNotFound
}

// Recent returns up to limit turns, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]conversation.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.turns)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]conversation.Turn, 0, n)
	for i := len(s.turns) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.turns[i])
	}
	return out, nil
}

// Clear removes every turn.
func (s *HistoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	return nil
}

var _ conversation.Store = (*HistoryStore)(nil)
