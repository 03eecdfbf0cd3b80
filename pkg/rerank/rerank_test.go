package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pressrag-ai/pressrag/pkg/rag"
)

func TestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Query != "5g rollout" || len(req.Texts) != 3 {
			t.Errorf("request = %+v", req)
		}
		// Out of order on purpose; the client maps by index.
		_ = json.NewEncoder(w).Encode([]rerankResult{
			{Index: 2, Score: 0.9},
			{Index: 0, Score: 0.1},
			{Index: 1, Score: 0.5},
		})
	}))
	defer server.Close()

	c, err := NewHTTP(&HTTPConfig{BaseURL: server.URL, Model: "cross-encoder"})
	if err != nil {
		t.Fatal(err)
	}

	scores, err := c.Score(context.Background(), "5g rollout", []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.1, 0.5, 0.9}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores = %v, want %v", scores, want)
			break
		}
	}
}

func TestScoreEmptyCandidates(t *testing.T) {
	c, err := NewHTTP(&HTTPConfig{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatal(err)
	}
	scores, err := c.Score(context.Background(), "q", nil)
	if err != nil || scores != nil {
		t.Errorf("empty candidates should be a no-op, got %v, %v", scores, err)
	}
}

func TestScoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, _ := NewHTTP(&HTTPConfig{BaseURL: server.URL})
	_, err := c.Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, rag.ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestScoreUnreachable(t *testing.T) {
	c, _ := NewHTTP(&HTTPConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, rag.ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestScoreCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]rerankResult{{Index: 0, Score: 1}})
	}))
	defer server.Close()

	c, _ := NewHTTP(&HTTPConfig{BaseURL: server.URL})
	_, err := c.Score(context.Background(), "q", []string{"a", "b"})
	if !errors.Is(err, rag.ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestNewHTTPValidation(t *testing.T) {
	if _, err := NewHTTP(nil); err == nil {
		t.Error("nil config should be rejected")
	}
	if _, err := NewHTTP(&HTTPConfig{}); err == nil {
		t.Error("missing base URL should be rejected")
	}
}
