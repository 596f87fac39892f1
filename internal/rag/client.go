// Package rag talks to the external retrieval store that persists analysis
// reports and serves nearest-neighbor search for the question path.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/minwoopark/alarmsense/pkg/models"
)

// Sentinel errors for retrieval-store failures.
var (
	ErrRagUnreachable = errors.New("retrieval store unreachable")
	ErrRagTimeout     = errors.New("retrieval store timeout")
	ErrRagQueryError  = errors.New("retrieval store query error")
)

// Report is a persisted analysis report document.
type Report struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Client is the interface for the retrieval store.
type Client interface {
	SaveReport(ctx context.Context, report Report) error
	Search(ctx context.Context, query string, limit int) ([]models.SimilarReport, error)
	GetReport(ctx context.Context, id string) (*Report, bool, error)
	CountReports(ctx context.Context) (int, error)
	Ready(ctx context.Context) error
}

// HTTPClient implements Client using the store's HTTP API.
type HTTPClient struct {
	baseURL    string
	collection string
	client     *http.Client
}

// NewHTTPClient creates a new retrieval-store HTTP client.
func NewHTTPClient(baseURL, collection string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SaveReport(ctx context.Context, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	u := fmt.Sprintf("%s/collections/%s/reports", c.baseURL, url.PathEscape(c.collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: status %d", ErrRagQueryError, resp.StatusCode)
	}

	return nil
}

func (c *HTTPClient) Search(ctx context.Context, query string, limit int) ([]models.SimilarReport, error) {
	if limit <= 0 {
		limit = 3
	}
	body, err := json.Marshal(searchRequest{Query: query, NResults: limit})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	u := fmt.Sprintf("%s/collections/%s/search", c.baseURL, url.PathEscape(c.collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRagQueryError, resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return parseResults(out.Results), nil
}

func (c *HTTPClient) GetReport(ctx context.Context, id string) (*Report, bool, error) {
	u := fmt.Sprintf("%s/collections/%s/reports/%s", c.baseURL, url.PathEscape(c.collection), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: status %d", ErrRagQueryError, resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, false, fmt.Errorf("decoding report: %w", err)
	}

	return &report, true, nil
}

func (c *HTTPClient) CountReports(ctx context.Context) (int, error) {
	u := fmt.Sprintf("%s/collections/%s/count", c.baseURL, url.PathEscape(c.collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrRagQueryError, resp.StatusCode)
	}

	var out countResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}

	return out.Count, nil
}

func (c *HTTPClient) Ready(ctx context.Context) error {
	u := fmt.Sprintf("%s/ready", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRagUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: store not ready (status %d)", ErrRagUnreachable, resp.StatusCode)
	}

	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrRagTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrRagTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrRagUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrRagUnreachable, err)
}

// parseResults converts raw search hits into SimilarReport values, trimming
// document bodies to a short preview.
func parseResults(hits []searchHit) []models.SimilarReport {
	reports := make([]models.SimilarReport, 0, len(hits))
	for _, h := range hits {
		preview := h.Document
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		reports = append(reports, models.SimilarReport{
			ID:       h.ID,
			Distance: h.Distance,
			Metadata: h.Metadata,
			Preview:  preview,
		})
	}
	return reports
}

// --- retrieval store wire types ---

type searchRequest struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

type searchHit struct {
	ID       string            `json:"id"`
	Distance float64           `json:"distance"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

type countResponse struct {
	Count int `json:"count"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
