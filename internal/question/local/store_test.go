package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

const sampleBankJSON = `[
  {"id": 2, "category": "Cardio", "subcategory": "Valves", "question": "q2", "answer": "a2", "asked": false},
  {"id": 1, "category": "Renal", "subcategory": null, "question": "q1", "answer": "a1", "asked": false},
  {"id": 3, "category": "Renal", "question": "q3", "answer": "a3", "asked": true}
]`

func writeBank(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type failingPersister struct {
	restoreErr error
	saveErr    error
	saves      int
}

func (p *failingPersister) Restore(context.Context, []question.Question) error { return p.restoreErr }

func (p *failingPersister) MarkAsked(context.Context, []question.Question, int64) error {
	p.saves++
	return p.saveErr
}

func (p *failingPersister) Reset(context.Context, []question.Question) error {
	p.saves++
	return p.saveErr
}

func TestReadBank(t *testing.T) {
	bank, err := ReadBank(writeBank(t, sampleBankJSON))
	require.NoError(t, err)
	require.Len(t, bank, 3)

	assert.Equal(t, int64(1), bank[0].ID)
	assert.Nil(t, bank[0].Subcategory)
	assert.Equal(t, int64(2), bank[1].ID)
	require.NotNil(t, bank[1].Subcategory)
	assert.Equal(t, "Valves", *bank[1].Subcategory)
	assert.True(t, bank[2].Asked)
}

func TestReadBank_AssignsMissingIDs(t *testing.T) {
	bank, err := ReadBank(writeBank(t, `[{"category":"A","question":"x","answer":"y"},{"category":"B","question":"z","answer":"w"}]`))
	require.NoError(t, err)
	require.Len(t, bank, 2)
	assert.Equal(t, int64(1), bank[0].ID)
	assert.Equal(t, int64(2), bank[1].ID)
}

func TestReadBank_Errors(t *testing.T) {
	_, err := ReadBank(writeBank(t, `[{"id":1,"category":"A"},{"id":1,"category":"B"}]`))
	assert.ErrorContains(t, err, "duplicate question id 1")

	_, err = ReadBank(writeBank(t, `{not json`))
	assert.Error(t, err)

	bank, err := ReadBank(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, bank)
}

func TestStore_LoadAllAndFilter(t *testing.T) {
	ctx := context.Background()
	s := NewStore(writeBank(t, sampleBankJSON), nil, zerolog.Nop())

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	renal, err := s.FilterByCategory(ctx, []string{"Renal"})
	require.NoError(t, err)
	require.Len(t, renal, 2)
	for _, q := range renal {
		assert.Equal(t, "Renal", q.Category)
	}

	unfiltered, err := s.FilterByCategory(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, all, unfiltered)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(writeBank(t, sampleBankJSON), nil, zerolog.Nop())

	first, err := s.LoadAll(ctx)
	require.NoError(t, err)
	first[0].Asked = true
	*first[1].Subcategory = "mutated"

	second, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.False(t, second[0].Asked)
	assert.Equal(t, "Valves", *second[1].Subcategory)
}

func TestStore_MarkAskedAndReset(t *testing.T) {
	ctx := context.Background()
	s := NewStore(writeBank(t, sampleBankJSON), nil, zerolog.Nop())

	require.NoError(t, s.MarkAsked(ctx, 1))
	require.NoError(t, s.MarkAsked(ctx, 1))

	err := s.MarkAsked(ctx, 999)
	assert.ErrorIs(t, err, question.ErrNotFound)

	all, _ := s.LoadAll(ctx)
	assert.True(t, all[0].Asked)
	assert.False(t, all[1].Asked)
	assert.True(t, all[2].Asked)

	require.NoError(t, s.ResetAll(ctx))
	all, _ = s.LoadAll(ctx)
	for _, q := range all {
		assert.False(t, q.Asked)
	}
}

func TestStore_FileIsNotTouchedWithoutPersister(t *testing.T) {
	path := writeBank(t, sampleBankJSON)
	s := NewStore(path, nil, zerolog.Nop())
	require.NoError(t, s.MarkAsked(context.Background(), 1))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleBankJSON, string(data))
}

func TestStore_RollsBackWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	p := &failingPersister{saveErr: errors.New("disk full")}
	s := NewStore(writeBank(t, sampleBankJSON), p, zerolog.Nop())

	err := s.MarkAsked(ctx, 1)
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)

	err = s.ResetAll(ctx)
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.False(t, all[0].Asked)
	assert.True(t, all[2].Asked)
	assert.Equal(t, 2, p.saves)
}

func TestStore_AlreadyAskedSkipsSave(t *testing.T) {
	p := &failingPersister{}
	s := NewStore(writeBank(t, sampleBankJSON), p, zerolog.Nop())

	require.NoError(t, s.MarkAsked(context.Background(), 3))
	assert.Zero(t, p.saves)
}

func TestStore_LoadFailures(t *testing.T) {
	s := NewStore(writeBank(t, `[{"id":1},{"id":1}]`), nil, zerolog.Nop())
	_, err := s.LoadAll(context.Background())
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)
	assert.ErrorIs(t, s.Ping(context.Background()), question.ErrBackendUnavailable)

	p := &failingPersister{restoreErr: errors.New("redis down")}
	s = NewStore(writeBank(t, sampleBankJSON), p, zerolog.Nop())
	_, err = s.LoadAll(context.Background())
	assert.ErrorIs(t, err, question.ErrBackendUnavailable)
}

func TestStore_CloseReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	s := NewStore(writeBank(t, sampleBankJSON), nil, zerolog.Nop())

	require.NoError(t, s.MarkAsked(ctx, 1))
	require.NoError(t, s.Close())

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.False(t, all[0].Asked)
}

func TestStore_InstancesAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := writeBank(t, sampleBankJSON)
	a := NewStore(path, nil, zerolog.Nop())
	b := NewStore(path, nil, zerolog.Nop())

	require.NoError(t, a.MarkAsked(ctx, 1))

	all, err := b.LoadAll(ctx)
	require.NoError(t, err)
	assert.False(t, all[0].Asked)
}

func TestStore_ConcurrentReveals(t *testing.T) {
	ctx := context.Background()
	s := NewStore(writeBank(t, sampleBankJSON), nil, zerolog.Nop())

	var wg sync.WaitGroup
	for _, id := range []int64{1, 2, 1, 2, 3} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, s.MarkAsked(ctx, id))
		}(id)
	}
	wg.Wait()

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	for _, q := range all {
		assert.True(t, q.Asked)
	}
}
