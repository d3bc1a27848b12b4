package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

// Config points the store at a PostgREST endpoint (e.g. a Supabase project).
type Config struct {
	BaseURL    string
	ServiceKey string
	Table      string
	Timeout    time.Duration
}

// Store talks to the remote questions table over the PostgREST HTTP API.
// Every call is a fresh request; nothing is cached.
type Store struct {
	baseURL    string
	serviceKey string
	table      string
	httpClient *http.Client
}

var _ question.Store = (*Store)(nil)

func NewStore(cfg Config, httpClient *http.Client) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	table := cfg.Table
	if table == "" {
		table = "questions"
	}
	return &Store{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		table:      table,
		httpClient: httpClient,
	}
}

func (s *Store) LoadAll(ctx context.Context) ([]question.Question, error) {
	return s.fetch(ctx, nil)
}

func (s *Store) FilterByCategory(ctx context.Context, categories []string) ([]question.Question, error) {
	return s.fetch(ctx, categories)
}

// MarkAsked patches a single row and asks for the updated representation so
// an unknown id can be told apart from a successful no-op.
func (s *Store) MarkAsked(ctx context.Context, id int64) error {
	values := url.Values{}
	values.Set("id", "eq."+strconv.FormatInt(id, 10))

	var updated []question.Question
	if err := s.do(ctx, http.MethodPatch, values, map[string]bool{"asked": true}, "return=representation", &updated); err != nil {
		return fmt.Errorf("mark asked %d: %w", id, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("mark asked %d: %w", id, question.ErrNotFound)
	}
	return nil
}

// ResetAll patches every row; PostgREST refuses unfiltered updates, so the
// filter matches all positive ids.
func (s *Store) ResetAll(ctx context.Context) error {
	values := url.Values{}
	values.Set("id", "neq.0")
	if err := s.do(ctx, http.MethodPatch, values, map[string]bool{"asked": false}, "return=minimal", nil); err != nil {
		return fmt.Errorf("reset asked: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	values := url.Values{}
	values.Set("select", "id")
	values.Set("limit", "1")
	var rows []struct {
		ID int64 `json:"id"`
	}
	return s.do(ctx, http.MethodGet, values, nil, "", &rows)
}

func (s *Store) fetch(ctx context.Context, categories []string) ([]question.Question, error) {
	values := url.Values{}
	values.Set("select", "*")
	values.Set("order", "id.asc")
	if len(categories) > 0 {
		values.Set("category", inFilter(categories))
	}

	var rows []question.Question
	if err := s.do(ctx, http.MethodGet, values, nil, "", &rows); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	if rows == nil {
		rows = []question.Question{}
	}
	return rows, nil
}

func (s *Store) do(ctx context.Context, method string, values url.Values, body interface{}, prefer string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, s.table, values.Encode())
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", question.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(text))
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("%w: %s", question.ErrBackendUnavailable, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", question.ErrBackendUnavailable, err)
	}
	return nil
}

// inFilter renders a PostgREST in.(...) list with every value quoted.
func inFilter(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		quoted[i] = `"` + v + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}
