package question

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"
)

// Selector picks random unasked questions for a category filter.
type Selector struct {
	store Store
	intn  func(n int) int
}

// NewSelector builds a Selector. intn must return a uniform value in [0, n);
// nil uses math/rand.
func NewSelector(store Store, intn func(n int) int) *Selector {
	if intn == nil {
		intn = rand.Intn
	}
	return &Selector{store: store, intn: intn}
}

// Next returns a random unasked question and the counts for the same filter,
// both computed from a single store read. Previously skipped questions stay
// eligible until they are revealed.
func (s *Selector) Next(ctx context.Context, categories []string) (Pick, error) {
	qs, err := s.store.FilterByCategory(ctx, categories)
	if err != nil {
		return Pick{}, fmt.Errorf("filter questions: %w", err)
	}

	unasked := make([]Question, 0, len(qs))
	for _, q := range qs {
		if !q.Asked {
			unasked = append(unasked, q)
		}
	}

	pick := Pick{Counts: Counts{Remaining: len(unasked), Total: len(qs)}}
	if len(unasked) > 0 {
		chosen := unasked[s.intn(len(unasked))]
		pick.Question = &chosen
	}
	return pick, nil
}

// PickRandomUnasked returns nil when every matching question has been asked.
func (s *Selector) PickRandomUnasked(ctx context.Context, categories []string) (*Question, error) {
	pick, err := s.Next(ctx, categories)
	if err != nil {
		return nil, err
	}
	return pick.Question, nil
}

// Counts reports remaining/total for the filter regardless of any pick.
func (s *Selector) Counts(ctx context.Context, categories []string) (Counts, error) {
	pick, err := s.Next(ctx, categories)
	if err != nil {
		return Counts{}, err
	}
	return pick.Counts, nil
}

// Aggregator computes category summaries and the asked history.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Summarize groups the whole bank by category, sorted by ordinal name.
func (a *Aggregator) Summarize(ctx context.Context) (Summary, error) {
	qs, err := a.store.LoadAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load questions: %w", err)
	}
	return summarize(qs), nil
}

// History returns asked questions, newest id first.
func (a *Aggregator) History(ctx context.Context) ([]Question, error) {
	qs, err := a.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	asked := make([]Question, 0)
	for _, q := range qs {
		if q.Asked {
			asked = append(asked, q)
		}
	}
	sort.Slice(asked, func(i, j int) bool { return asked[i].ID > asked[j].ID })
	return asked, nil
}

func summarize(qs []Question) Summary {
	index := make(map[string]int)
	categories := make([]CategoryCount, 0)
	remaining := 0

	for _, q := range qs {
		i, ok := index[q.Category]
		if !ok {
			i = len(categories)
			index[q.Category] = i
			categories = append(categories, CategoryCount{Category: q.Category})
		}
		categories[i].Total++
		if !q.Asked {
			categories[i].Remaining++
			remaining++
		}
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Category < categories[j].Category
	})

	return Summary{
		Categories:     categories,
		TotalQuestions: len(qs),
		TotalRemaining: remaining,
	}
}

// StateService applies reveal and reset, then publishes the new summary.
type StateService struct {
	store      Store
	aggregator *Aggregator
	notifier   Notifier
	logger     zerolog.Logger
}

// NewStateService wires the mutation service. notifier may be nil.
func NewStateService(store Store, aggregator *Aggregator, notifier Notifier, logger zerolog.Logger) *StateService {
	return &StateService{
		store:      store,
		aggregator: aggregator,
		notifier:   notifier,
		logger:     logger.With().Str("component", "question_state").Logger(),
	}
}

// Reveal marks a question asked. Unknown ids return ErrNotFound, which
// callers treat as stale client state.
func (s *StateService) Reveal(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: question id required", ErrValidation)
	}
	if err := s.store.MarkAsked(ctx, id); err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

// ResetSession clears the asked history for every question.
func (s *StateService) ResetSession(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

func (s *StateService) publish(ctx context.Context) {
	if s.notifier == nil || s.aggregator == nil {
		return
	}
	summary, err := s.aggregator.Summarize(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("summary for notification failed")
		return
	}
	if err := s.notifier.SummaryChanged(ctx, summary); err != nil {
		s.logger.Warn().Err(err).Msg("summary notification failed")
	}
}
