package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yoockh/ameena/internal/providers/httpx"
)

// HTTPSearcher talks to a remote search service exposing
// POST /search {query, limit} and GET /health.
type HTTPSearcher struct {
	BaseURL string
	Client  *http.Client
	Retry   httpx.Policy
}

func NewHTTPSearcher(baseURL string, hc *http.Client) *HTTPSearcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPSearcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  hc,
		Retry:   httpx.DefaultPolicy(),
	}
}

func (s *HTTPSearcher) Backend() string { return "http" }
func (s *HTTPSearcher) Close() error    { return nil }

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results []Document `json:"results"`
}

func (s *HTTPSearcher) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	if s.BaseURL == "" {
		return nil, errors.New("rag: base url not configured")
	}
	body, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}

	resp, err := httpx.Post(ctx, s.Client, httpx.Request{
		URL:         s.BaseURL + "/search",
		ContentType: "application/json",
		Body:        body,
	}, s.Retry)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}
	defer resp.Body.Close()

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Results) > limit && limit > 0 {
		out.Results = out.Results[:limit]
	}
	return out.Results, nil
}

func (s *HTTPSearcher) Ping(ctx context.Context) error {
	if s.BaseURL == "" {
		return errors.New("rag: base url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("rag: ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return &httpx.StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
