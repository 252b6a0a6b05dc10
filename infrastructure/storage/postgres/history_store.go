package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/hoopstats/domain/conversation"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// HistoryStore is a PostgreSQL-backed conversation.Store.
type HistoryStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewHistoryStore creates a history store writing to schema.turns.
func NewHistoryStore(pool *pgxpool.Pool, schema string) *HistoryStore {
	return &HistoryStore{pool: pool, table: tableName(schema, "turns")}
}

// tableName returns a quoted, schema-qualified table name.
func tableName(schema, table string) string {
	if schema == "" {
		schema = "public"
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

// Migrate creates the turns table if it does not exist.
func (s *HistoryStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id            TEXT PRIMARY KEY,
			query         TEXT NOT NULL,
			answer        TEXT NOT NULL,
			data          TEXT NOT NULL DEFAULT '',
			visualization TEXT NOT NULL DEFAULT '',
			chart_id      TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS turns_created_at_idx ON %[1]s (created_at DESC);
	`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Append records a turn.
func (s *HistoryStore) Append(ctx context.Context, turn conversation.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, query, answer, data, visualization, chart_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.table)

	_, err := s.pool.Exec(ctx, query,
		turn.ID,
		turn.Query,
		turn.Answer,
		turn.Data,
		turn.Visualization,
		turn.ChartID,
		turn.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return conversation.ErrDuplicateTurn
		}
		return s.wrapError(err)
	}
	return nil
}

// Get returns the turn with the given ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (conversation.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, query, answer, data, visualization, chart_id, created_at
		FROM %s WHERE id = $1
	`, s.table)

	turn, err := scanTurn(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conversation.Turn{}, conversation.ErrTurnNotFound
		}
		return conversation.Turn{}, s.wrapError(err)
	}
	return turn, nil
}

// Recent returns up to limit turns, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]conversation.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, query, answer, data, visualization, chart_id, created_at
		FROM %s ORDER BY created_at DESC, id DESC
	`, s.table)
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, s.wrapError(err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return turns, nil
}

// Clear removes every turn.
func (s *HistoryStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM "+s.table); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Close releases the pool.
func (s *HistoryStore) Close() error {
	s.pool.Close()
	return nil
}

func scanTurn(row pgx.Row) (conversation.Turn, error) {
	var t conversation.Turn
	err := row.Scan(&t.ID, &t.Query, &t.Answer, &t.Data, &t.Visualization, &t.ChartID, &t.CreatedAt)
	return t, err
}

func (s *HistoryStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(conversation.ErrOperationTimeout, err)
	}
	return errors.Join(conversation.ErrConnectionFailed, err)
}

var _ conversation.Store = (*HistoryStore)(nil)
