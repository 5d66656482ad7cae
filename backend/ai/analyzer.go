// Package ai wraps the external text-analysis service that turns free-form
// journal text into an emission estimate. The core treats its output as an
// opaque upstream input: numeric ranges are not validated here or downstream.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skmehra/ecotrace/models"
)

// Analysis is what the service derives from one day's journal text.
type Analysis struct {
	Impact  models.ImpactVector `json:"impact"`
	Points  int                 `json:"points"`
	Comment string              `json:"comment"`
	Actions []string            `json:"actions,omitempty"`
}

// Analyzer scores free-text journal entries.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

// HTTPAnalyzer calls the analysis service over HTTP.
type HTTPAnalyzer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAnalyzer creates an analyzer that POSTs to baseURL/analyze.
func NewHTTPAnalyzer(baseURL string) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Analyze sends the journal text to the analysis service and decodes its
// verdict. The response is returned as-is; callers own any range checks
// they care to do (currently none, by contract).
func (a *HTTPAnalyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, body)
	}

	analysis := &Analysis{}
	if err := json.NewDecoder(resp.Body).Decode(analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis response: %w", err)
	}
	return analysis, nil
}
