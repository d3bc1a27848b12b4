package question

import "context"

// Store is the contract every backend satisfies. Implementations return
// copies; callers never hold references into backend state.
type Store interface {
	// LoadAll returns every question ordered by id ascending.
	LoadAll(ctx context.Context) ([]Question, error)
	// MarkAsked sets asked=true. Unknown ids yield ErrNotFound. Repeating the
	// call on an asked question succeeds without side effect.
	MarkAsked(ctx context.Context, id int64) error
	// ResetAll clears the asked flag on every question.
	ResetAll(ctx context.Context) error
	// FilterByCategory returns questions whose category is in categories.
	// An empty set means no filter.
	FilterByCategory(ctx context.Context, categories []string) ([]Question, error)
}

// Pinger is implemented by backends that can report their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Notifier receives a fresh summary after the bank state changes.
type Notifier interface {
	SummaryChanged(ctx context.Context, summary Summary) error
}

// MatchesCategory reports whether category passes the filter set.
func MatchesCategory(category string, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// FilterCategories applies MatchesCategory over qs, preserving order.
func FilterCategories(qs []Question, categories []string) []Question {
	if len(categories) == 0 {
		return qs
	}
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if MatchesCategory(q.Category, categories) {
			out = append(out, q)
		}
	}
	return out
}
