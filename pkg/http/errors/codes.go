package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeMissingField     = "missing_field"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Resource errors
	ErrCodeNotFound         = "not_found"
	ErrCodeQuestionNotFound = "question_not_found"

	// Backend errors
	ErrCodeSummaryFailed      = "summary_failed"
	ErrCodeSelectionFailed    = "selection_failed"
	ErrCodeRevealFailed       = "reveal_failed"
	ErrCodeResetFailed        = "reset_failed"
	ErrCodeHistoryFailed      = "history_failed"
	ErrCodeServiceUnavailable = "service_unavailable"
)
