package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

// Persister keeps the asked flags of an in-memory bank durable.
type Persister interface {
	// Restore overlays previously saved asked flags onto bank in place.
	Restore(ctx context.Context, bank []question.Question) error
	// MarkAsked records that id was asked. bank already carries the new flag.
	MarkAsked(ctx context.Context, bank []question.Question, id int64) error
	// Reset records that every question is unasked again.
	Reset(ctx context.Context, bank []question.Question) error
}

// sharedPersister is implemented by persisters whose state other processes
// can change. Stores backed by one re-read asked flags before every operation.
type sharedPersister interface {
	Shared() bool
}

// Store is the file-backed in-memory backend. The bank file is read on first
// access and cached until the store is closed.
type Store struct {
	path      string
	persister Persister
	logger    zerolog.Logger

	mu     sync.RWMutex
	bank   []question.Question
	byID   map[int64]int
	loaded bool
}

var _ question.Store = (*Store)(nil)

// NewStore creates a store for the bank at path. persister may be nil, in
// which case mutations live only in memory.
func NewStore(path string, persister Persister, logger zerolog.Logger) *Store {
	return &Store{
		path:      path,
		persister: persister,
		logger:    logger.With().Str("component", "local_store").Logger(),
	}
}

// LoadAll returns a copy of the whole bank ordered by id.
func (s *Store) LoadAll(ctx context.Context) ([]question.Question, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBank(s.bank), nil
}

func (s *Store) FilterByCategory(ctx context.Context, categories []string) ([]question.Question, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBank(question.FilterCategories(s.bank, categories)), nil
}

func (s *Store) MarkAsked(ctx context.Context, id int64) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("mark asked %d: %w", id, question.ErrNotFound)
	}
	if err := s.restoreLocked(ctx); err != nil {
		return err
	}
	if s.bank[i].Asked {
		return nil
	}

	s.bank[i].Asked = true
	if err := s.persistMark(ctx, id); err != nil {
		s.bank[i].Asked = false
		return err
	}
	return nil
}

func (s *Store) ResetAll(ctx context.Context) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make([]bool, len(s.bank))
	for i := range s.bank {
		previous[i] = s.bank[i].Asked
		s.bank[i].Asked = false
	}
	if err := s.persistReset(ctx); err != nil {
		for i := range s.bank {
			s.bank[i].Asked = previous[i]
		}
		return err
	}
	return nil
}

// Ping forces the initial load so readiness reflects a readable bank.
func (s *Store) Ping(ctx context.Context) error {
	return s.ensureLoaded(ctx)
}

// Close drops the cached bank; the next access reloads it from disk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank = nil
	s.byID = nil
	s.loaded = false
	return nil
}

func (s *Store) persistMark(ctx context.Context, id int64) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.MarkAsked(ctx, s.bank, id); err != nil {
		return fmt.Errorf("%w: persist asked state: %v", question.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) persistReset(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Reset(ctx, s.bank); err != nil {
		return fmt.Errorf("%w: persist asked state: %v", question.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) shared() bool {
	sp, ok := s.persister.(sharedPersister)
	return ok && sp.Shared()
}

// refresh pulls asked flags written by other instances into the cached bank.
func (s *Store) refresh(ctx context.Context) error {
	if !s.shared() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(ctx)
}

func (s *Store) restoreLocked(ctx context.Context) error {
	if !s.shared() {
		return nil
	}
	if err := s.persister.Restore(ctx, s.bank); err != nil {
		return fmt.Errorf("%w: restore asked state: %v", question.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	bank, err := ReadBank(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", question.ErrBackendUnavailable, err)
	}
	if s.persister != nil {
		if err := s.persister.Restore(ctx, bank); err != nil {
			return fmt.Errorf("%w: restore asked state: %v", question.ErrBackendUnavailable, err)
		}
	}

	s.bank = bank
	s.byID = make(map[int64]int, len(bank))
	for i, q := range bank {
		s.byID[q.ID] = i
	}
	s.loaded = true

	s.logger.Info().Str("path", s.path).Int("questions", len(bank)).Msg("question bank loaded")
	return nil
}

// ReadBank parses a JSON bank file. A missing file is an empty bank. Records
// without an id get 1-based sequential ids by position; duplicate ids are
// rejected. The result is ordered by id.
func ReadBank(path string) ([]question.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []question.Question{}, nil
		}
		return nil, fmt.Errorf("read bank %s: %w", path, err)
	}

	var bank []question.Question
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("decode bank %s: %w", path, err)
	}

	seen := make(map[int64]struct{}, len(bank))
	for i := range bank {
		if bank[i].ID == 0 {
			bank[i].ID = int64(i + 1)
		}
		if _, dup := seen[bank[i].ID]; dup {
			return nil, fmt.Errorf("decode bank %s: duplicate question id %d", path, bank[i].ID)
		}
		seen[bank[i].ID] = struct{}{}
	}

	sort.SliceStable(bank, func(i, j int) bool { return bank[i].ID < bank[j].ID })
	return bank, nil
}

func copyBank(qs []question.Question) []question.Question {
	out := make([]question.Question, len(qs))
	copy(out, qs)
	for i := range out {
		if out[i].Subcategory != nil {
			sub := *out[i].Subcategory
			out[i].Subcategory = &sub
		}
	}
	return out
}
