package question

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/lightning-rounds/internal/metrics"
	httperrors "github.com/gokatarajesh/lightning-rounds/pkg/http/errors"
)

// HTTPHandler exposes the question services over REST.
type HTTPHandler struct {
	selector   *Selector
	aggregator *Aggregator
	state      *StateService
	mode       string
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewHTTPHandler constructs the question HTTP handler. mode is echoed back on
// mutations so clients can tell which backend served them. m may be nil.
func NewHTTPHandler(selector *Selector, aggregator *Aggregator, state *StateService, mode string, m *metrics.Metrics, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		selector:   selector,
		aggregator: aggregator,
		state:      state,
		mode:       mode,
		metrics:    m,
		logger:     logger.With().Str("component", "question_http").Logger(),
	}
}

// RevealRequest is the body of POST /question.
type RevealRequest struct {
	ID int64 `json:"id"`
}

type mutationResponse struct {
	Success bool   `json:"success"`
	Mode    string `json:"mode"`
}

type historyResponse struct {
	Questions []Question `json:"questions"`
	Mode      string     `json:"mode"`
}

// Categories handles GET /categories
func (h *HTTPHandler) Categories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	summary, err := h.aggregator.Summarize(r.Context())
	if err != nil {
		h.respondStoreError(w, "summarize", httperrors.ErrCodeSummaryFailed, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Question handles GET /question (next unasked) and POST /question (reveal).
func (h *HTTPHandler) Question(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.next(w, r)
	case http.MethodPost:
		h.reveal(w, r)
	default:
		httperrors.RespondMethodNotAllowed(w)
	}
}

func (h *HTTPHandler) next(w http.ResponseWriter, r *http.Request) {
	categories := ParseCategories(r.URL.Query())

	pick, err := h.selector.Next(r.Context(), categories)
	if err != nil {
		h.respondStoreError(w, "select", httperrors.ErrCodeSelectionFailed, err)
		return
	}
	h.metrics.QuestionServed(pick.Question == nil)

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, pick)
}

func (h *HTTPHandler) reveal(w http.ResponseWriter, r *http.Request) {
	var req RevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.Reveal("invalid")
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	if err := h.state.Reveal(r.Context(), req.ID); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			h.metrics.Reveal("invalid")
		case errors.Is(err, ErrNotFound):
			h.metrics.Reveal("not_found")
		default:
			h.metrics.Reveal("error")
		}
		h.respondStoreError(w, "mark_asked", httperrors.ErrCodeRevealFailed, err)
		return
	}

	h.metrics.Reveal("ok")
	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Mode: h.mode})
}

// Reset handles POST /reset
func (h *HTTPHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	if err := h.state.ResetSession(r.Context()); err != nil {
		h.metrics.Reset("error")
		h.respondStoreError(w, "reset", httperrors.ErrCodeResetFailed, err)
		return
	}

	h.metrics.Reset("ok")
	h.logger.Info().Str("mode", h.mode).Msg("session reset")
	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Mode: h.mode})
}

// History handles GET /history
func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	asked, err := h.aggregator.History(r.Context())
	if err != nil {
		h.respondStoreError(w, "history", httperrors.ErrCodeHistoryFailed, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, historyResponse{Questions: asked, Mode: h.mode})
}

// respondStoreError maps service errors onto the JSON error envelope.
// Backend failures pass the underlying message through unchanged.
func (h *HTTPHandler) respondStoreError(w http.ResponseWriter, operation, code string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Question ID required", "id")
	case errors.Is(err, ErrNotFound):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeQuestionNotFound, err.Error())
	default:
		h.metrics.BackendError(operation)
		h.logger.Error().Err(err).Str("operation", operation).Msg("question backend failed")
		httperrors.RespondInternalError(w, code, err.Error())
	}
}

// ParseCategories reads the filter from ?category=<name> or
// ?categories=<c1,c2>. Values are matched exactly, so only empty entries
// are dropped; no filter yields nil.
func ParseCategories(query map[string][]string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(c string) {
		if c == "" {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for _, v := range query["category"] {
		add(v)
	}
	for _, v := range query["categories"] {
		for _, c := range strings.Split(v, ",") {
			add(c)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
