package conversation

import (
	"errors"
	"testing"
)

func TestNewTurn(t *testing.T) {
	t.Parallel()

	turn := NewTurn("Who leads the league in assists?", "Tyrese Haliburton.")
	if err := turn.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if turn.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if other := NewTurn("q", "a"); other.ID == turn.ID {
		t.Error("NewTurn() reused an ID")
	}
}

func TestTurn_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		turn Turn
		want error
	}{
		{"missing id", Turn{Query: "q"}, ErrInvalidTurn},
		{"missing query", Turn{ID: "1"}, ErrEmptyQuery},
		{"valid", Turn{ID: "1", Query: "q"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.turn.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
