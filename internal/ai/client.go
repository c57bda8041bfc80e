// Package ai hosts the analyst: deterministic summarization and reasoning
// over the run's stores, optionally elaborated by a local LLM server.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Jbase16/AraUltra/internal/shared/constants"
	sharederrors "github.com/Jbase16/AraUltra/internal/shared/errors"
)

// Client talks to a local Ollama-compatible inference server. All failures
// are plain errors; callers must degrade to their deterministic output and
// never let a bad response abort the pipeline.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient builds a client for the given endpoint. Empty arguments fall
// back to the defaults in constants.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultAnalystURL
	}
	if model == "" {
		model = constants.DefaultAnalystModel
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: constants.AnalystTimeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate sends one non-streaming prompt and returns the model's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sharederrors.ErrAnalystUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analyst endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("malformed analyst response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("analyst error: %s", decoded.Error)
	}
	return decoded.Response, nil
}

// Available reports whether the endpoint answers at all.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
