package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sharederrors "github.com/Jbase16/AraUltra/internal/shared/errors"
)

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3" {
			t.Errorf("model = %q, want llama3", req.Model)
		}
		if req.Stream {
			t.Error("stream must be disabled")
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "two open ports look notable"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3")
	got, err := c.Generate(context.Background(), "summarize this scan")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "two open ports look notable" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGenerateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Generate(context.Background(), "prompt"); err == nil {
		t.Error("Generate() should fail on a non-200 status")
	}
}

func TestGenerateMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Generate(context.Background(), "prompt"); err == nil {
		t.Error("Generate() should fail on malformed JSON")
	}
}

func TestGenerateServerReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "model is loading"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Generate(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "model is loading") {
		t.Errorf("error = %v, want the server-reported message", err)
	}
}

func TestGenerateUnreachableEndpoint(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	_, err := c.Generate(context.Background(), "prompt")
	if !errors.Is(err, sharederrors.ErrAnalystUnavailable) {
		t.Errorf("error = %v, want ErrAnalystUnavailable", err)
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if !NewClient(srv.URL, "").Available(context.Background()) {
		t.Error("reachable endpoint reported unavailable")
	}
	if NewClient("http://127.0.0.1:1", "").Available(context.Background()) {
		t.Error("unreachable endpoint reported available")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", "")
	if c.baseURL == "" || c.model == "" {
		t.Error("defaults not applied for empty arguments")
	}
	if strings.HasSuffix(c.baseURL, "/") {
		t.Errorf("base URL %q keeps trailing slash", c.baseURL)
	}
}
