package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/hoopstats/domain/conversation"
)

// HistoryStore is a SQLite-backed conversation.Store.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore opens the database in cfg and returns a history store.
func NewHistoryStore(cfg Config, opts ...Option) (*HistoryStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &HistoryStore{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *HistoryStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS turns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			query TEXT NOT NULL,
			answer TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '',
			visualization TEXT NOT NULL DEFAULT '',
			chart_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Append records a turn.
func (s *HistoryStore) Append(ctx context.Context, turn conversation.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, query, answer, data, visualization, chart_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.Query, turn.Answer, turn.Data, turn.Visualization, turn.ChartID,
		turn.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return conversation.ErrDuplicateTurn
		}
		return errors.Join(conversation.ErrConnectionFailed, err)
	}
	return nil
}

const turnColumns = "id, query, answer, data, visualization, chart_id, created_at"

// Get returns the turn with the given ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (conversation.Turn, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+turnColumns+" FROM turns WHERE id = ?", id)
	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.Turn{}, conversation.ErrTurnNotFound
	}
	if err != nil {
		return conversation.Turn{}, errors.Join(conversation.ErrConnectionFailed, err)
	}
	return turn, nil
}

// Recent returns up to limit turns, newest first. Insertion order breaks
// timestamp ties.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]conversation.Turn, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+turnColumns+" FROM turns ORDER BY created_at DESC, seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.Join(conversation.ErrConnectionFailed, err)
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Clear removes every turn.
func (s *HistoryStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM turns")
	return err
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(row scanner) (conversation.Turn, error) {
	var t conversation.Turn
	var created int64
	if err := row.Scan(&t.ID, &t.Query, &t.Answer, &t.Data, &t.Visualization, &t.ChartID, &created); err != nil {
		return conversation.Turn{}, err
	}
	t.CreatedAt = time.Unix(0, created).UTC()
	return t, nil
}

var _ conversation.Store = (*HistoryStore)(nil)
