//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
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

// seedSection inserts n fresh questions under a new section and returns the
// section id. Tests scope their quotas to that section so they never see each
// other's questions.
func seedSection(t *testing.T, n int, difficulty string) string {
	t.Helper()
	dsn := os.Getenv("INTEGRATION_DATABASE_URL")
	if dsn == "" {
		t.Skip("INTEGRATION_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	section := uuid.NewString()
	for i := 0; i < n; i++ {
		_, err := pool.Exec(ctx,
			`INSERT INTO questions (section_id, difficulty, content) VALUES ($1::text::uuid, $2, $3::jsonb)`,
			section, difficulty, fmt.Sprintf(`{"prompt":"seeded %d"}`, i))
		if err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
	return section
}

type allocationResponse struct {
	AllocationID string         `json:"allocation_id"`
	QuestionIDs  []string       `json:"question_ids"`
	Generation   int64          `json:"generation"`
	Shortfall    map[string]int `json:"shortfall"`
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request %s failed: %v", url, err)
	}
	return resp
}

func allocate(t *testing.T, quizID string, payload map[string]interface{}) (*http.Response, allocationResponse) {
	t.Helper()
	resp := postJSON(t, fmt.Sprintf("%s/v1/quizzes/%s/allocations", baseURL(), quizID), payload)
	var out allocationResponse
	if resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode allocation: %v", err)
		}
	}
	resp.Body.Close()
	return resp, out
}
