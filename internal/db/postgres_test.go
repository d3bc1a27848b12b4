package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

// fakeTx records commit and rollback; every other pgx.Tx method is unused.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestTransactor_Commits(t *testing.T) {
	tx := &fakeTx{}
	err := NewTransactor(&fakeBeginner{tx: tx}).WithinTx(context.Background(), func(ctx context.Context, got pgx.Tx) error {
		assert.Same(t, tx, got)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, tx.committed)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	boom := errors.New("insert failed")
	err := NewTransactor(&fakeBeginner{tx: tx}).WithinTx(context.Background(), func(context.Context, pgx.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestTransactor_BeginError(t *testing.T) {
	called := false
	err := NewTransactor(&fakeBeginner{err: errors.New("pool closed")}).WithinTx(context.Background(), func(context.Context, pgx.Tx) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "pool closed")
	assert.False(t, called)
}
