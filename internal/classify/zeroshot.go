package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ZeroShotClient talks to an external zero-shot classification service over
// HTTP (any HuggingFace-inference-compatible endpoint works).
type ZeroShotClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ Classifier = (*ZeroShotClient)(nil)

// NewZeroShotClient creates a reusable HTTP client for the given endpoint.
func NewZeroShotClient(endpoint, apiKey string, timeout time.Duration) *ZeroShotClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ZeroShotClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Classify posts the text and candidate labels and decodes the ranked
// label/score response.
func (c *ZeroShotClient) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"candidate_labels": labels,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	return result, nil
}
