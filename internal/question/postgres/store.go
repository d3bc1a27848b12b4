package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	selectAll = `SELECT id, category, subcategory, question, answer, asked FROM questions ORDER BY id`

	selectByCategory = `SELECT id, category, subcategory, question, answer, asked FROM questions
WHERE category = ANY($1) ORDER BY id`

	markAsked = `UPDATE questions SET asked = TRUE WHERE id = $1`

	resetAll = `UPDATE questions SET asked = FALSE`
)

// Store reads and updates the questions table directly over pgx. Each call is
// one statement; nothing is cached.
type Store struct {
	db querier
}

var _ question.Store = (*Store)(nil)

func NewStore(db querier) *Store {
	return &Store{db: db}
}

func (s *Store) LoadAll(ctx context.Context) ([]question.Question, error) {
	return s.query(ctx, selectAll)
}

func (s *Store) FilterByCategory(ctx context.Context, categories []string) ([]question.Question, error) {
	if len(categories) == 0 {
		return s.query(ctx, selectAll)
	}
	return s.query(ctx, selectByCategory, categories)
}

// MarkAsked relies on Postgres counting matched rows, so re-marking an asked
// question still reports one row and succeeds.
func (s *Store) MarkAsked(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, markAsked, id)
	if err != nil {
		return fmt.Errorf("%w: mark asked %d: %v", question.ErrBackendUnavailable, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark asked %d: %w", id, question.ErrNotFound)
	}
	return nil
}

func (s *Store) ResetAll(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, resetAll); err != nil {
		return fmt.Errorf("%w: reset asked: %v", question.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]question.Question, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query questions: %v", question.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	out := make([]question.Question, 0)
	for rows.Next() {
		var q question.Question
		if err := rows.Scan(&q.ID, &q.Category, &q.Subcategory, &q.Question, &q.Answer, &q.Asked); err != nil {
			return nil, fmt.Errorf("%w: scan question: %v", question.ErrBackendUnavailable, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate questions: %v", question.ErrBackendUnavailable, err)
	}
	return out, nil
}
