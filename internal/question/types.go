package question

import "errors"

// Question is a single question/answer pair in the bank.
// Only Asked ever changes after the bank is loaded.
type Question struct {
	ID          int64   `json:"id"`
	Category    string  `json:"category"`
	Subcategory *string `json:"subcategory"`
	Question    string  `json:"question"`
	Answer      string  `json:"answer"`
	Asked       bool    `json:"asked"`
}

// CategoryCount is derived from the bank on demand and never stored.
type CategoryCount struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
}

// Summary is the per-category breakdown plus grand totals over the whole bank.
type Summary struct {
	Categories     []CategoryCount `json:"categories"`
	TotalQuestions int             `json:"totalQuestions"`
	TotalRemaining int             `json:"totalRemaining"`
}

// Counts reports how many questions match a filter and how many are still unasked.
type Counts struct {
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

// Pick is the result of a selection: the chosen question (nil when the
// filtered set is exhausted) and the counts for the same filter.
type Pick struct {
	Question *Question `json:"question"`
	Counts
}

var (
	// ErrNotFound means no question in the bank has the requested id.
	ErrNotFound = errors.New("question not found")
	// ErrBackendUnavailable wraps any failure talking to durable storage.
	ErrBackendUnavailable = errors.New("question backend unavailable")
	// ErrValidation marks requests rejected before reaching the backend.
	ErrValidation = errors.New("validation failed")
)

// Backend modes reported to clients.
const (
	ModeLocal    = "local"
	ModeSupabase = "supabase"
	ModePostgres = "postgres"
)
