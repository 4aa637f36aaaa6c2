// Package sink delivers successful results to external collectors: an
// HTTP endpoint and a Firestore document store.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/suno-tools/sunograb/internal/run"
)

// SubmitClient posts successful results to an HTTP endpoint: one POST
// per run, JSON array body, successes only.
type SubmitClient struct {
	endpoint string
	runID    string
	hc       *http.Client
}

// NewSubmitClient returns a client for endpoint. runID tags the
// submission so the receiver can de-duplicate passes.
func NewSubmitClient(endpoint, runID string) *SubmitClient {
	return &SubmitClient{
		endpoint: endpoint,
		runID:    runID,
		hc:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit sends the successful subset of results. With no successes it
// sends nothing and returns nil.
func (c *SubmitClient) Submit(ctx context.Context, results []run.Result) error {
	successes := make([]run.Result, 0, len(results))
	for _, r := range results {
		if r.Success {
			successes = append(successes, r)
		}
	}
	if len(successes) == 0 {
		return nil
	}

	body, err := json.Marshal(successes)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Run-ID", c.runID)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("submit results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submit results: status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
