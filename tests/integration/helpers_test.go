//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

type categoryCount struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
}

type summaryResponse struct {
	Categories     []categoryCount `json:"categories"`
	TotalQuestions int             `json:"totalQuestions"`
	TotalRemaining int             `json:"totalRemaining"`
}

type questionResponse struct {
	Question *struct {
		ID       int64  `json:"id"`
		Category string `json:"category"`
		Asked    bool   `json:"asked"`
	} `json:"question"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

func getJSON(t *testing.T, path string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s%s", baseURL(), path))
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response failed: %v", path, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}

	resp, err := http.Post(fmt.Sprintf("%s%s", baseURL(), path), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s response failed: %v", path, err)
	}
	return resp.StatusCode, out
}

func resetSession(t *testing.T) {
	t.Helper()
	if status, body := postJSON(t, "/api/reset", nil); status != http.StatusOK {
		t.Fatalf("reset failed: %d %v", status, body)
	}
}
