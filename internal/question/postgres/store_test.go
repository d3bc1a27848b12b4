package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	called := m.Called(ctx, sql, args)
	rows, _ := called.Get(0).(pgx.Rows)
	return rows, called.Error(1)
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgconn.CommandTag), called.Error(1)
}

// fakeRows serves question rows in the column order of the select queries.
type fakeRows struct {
	data    []question.Question
	pos     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	q := r.data[r.pos-1]
	*dest[0].(*int64) = q.ID
	*dest[1].(*string) = q.Category
	*dest[2].(**string) = q.Subcategory
	*dest[3].(*string) = q.Question
	*dest[4].(*string) = q.Answer
	*dest[5].(*bool) = q.Asked
	return nil
}

func strPtr(s string) *string { return &s }

func TestStore_LoadAll(t *testing.T) {
	ctx := context.Background()
	rows := &fakeRows{data: []question.Question{
		{ID: 1, Category: "Renal", Question: "q1", Answer: "a1"},
		{ID: 2, Category: "Cardio", Subcategory: strPtr("Valves"), Question: "q2", Answer: "a2", Asked: true},
	}}
	db := &mockQuerier{}
	db.On("Query", ctx, selectAll, []any(nil)).Return(rows, nil)

	qs, err := NewStore(db).LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows.data, qs)
	assert.True(t, rows.closed)
	db.AssertExpectations(t)
}

func TestStore_FilterByCategory(t *testing.T) {
	ctx := context.Background()
	db := &mockQuerier{}
	db.On("Query", ctx, selectByCategory, []any{[]string{"Renal"}}).Return(&fakeRows{}, nil)
	db.On("Query", ctx, selectAll, []any(nil)).Return(&fakeRows{}, nil)

	s := NewStore(db)
	qs, err := s.FilterByCategory(ctx, []string{"Renal"})
	require.NoError(t, err)
	assert.NotNil(t, qs)
	assert.Empty(t, qs)

	_, err = s.FilterByCategory(ctx, nil)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestStore_QueryErrors(t *testing.T) {
	ctx := context.Background()

	db := &mockQuerier{}
	db.On("Query", ctx, selectAll, []any(nil)).Return(nil, errors.New("dial tcp: connection refused")).Once()
	_, err := NewStore(db).LoadAll(ctx)
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)
	assert.ErrorContains(t, err, "connection refused")

	db = &mockQuerier{}
	db.On("Query", ctx, selectAll, []any(nil)).Return(&fakeRows{
		data:    []question.Question{{ID: 1}},
		scanErr: errors.New("cannot scan NULL"),
	}, nil)
	_, err = NewStore(db).LoadAll(ctx)
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)

	db = &mockQuerier{}
	db.On("Query", ctx, selectAll, []any(nil)).Return(&fakeRows{err: errors.New("conn reset")}, nil)
	_, err = NewStore(db).LoadAll(ctx)
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)
}

func TestStore_MarkAsked(t *testing.T) {
	ctx := context.Background()
	db := &mockQuerier{}
	db.On("Exec", ctx, markAsked, []any{int64(4)}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	db.On("Exec", ctx, markAsked, []any{int64(999)}).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
	db.On("Exec", ctx, markAsked, []any{int64(5)}).Return(pgconn.CommandTag{}, errors.New("timeout"))

	s := NewStore(db)
	assert.NoError(t, s.MarkAsked(ctx, 4))
	assert.ErrorIs(t, s.MarkAsked(ctx, 999), question.ErrNotFound)

	err := s.MarkAsked(ctx, 5)
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)
	assert.NotErrorIs(t, err, question.ErrNotFound)
	db.AssertExpectations(t)
}

func TestStore_ResetAll(t *testing.T) {
	ctx := context.Background()
	db := &mockQuerier{}
	db.On("Exec", ctx, resetAll, []any(nil)).Return(pgconn.NewCommandTag("UPDATE 3"), nil).Once()
	db.On("Exec", ctx, resetAll, []any(nil)).Return(pgconn.CommandTag{}, errors.New("read only")).Once()

	s := NewStore(db)
	assert.NoError(t, s.ResetAll(ctx))
	assert.ErrorIs(t, s.ResetAll(ctx), question.ErrBackendUnavailable)
}

func TestStore_PingWithoutPinger(t *testing.T) {
	assert.NoError(t, NewStore(&mockQuerier{}).Ping(context.Background()))
}
