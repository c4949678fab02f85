package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const searchPath = "/v1/search"

// HTTPClient calls a networked search service with a JSON body.
type HTTPClient struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPClient constructs an HTTPClient for the service rooted at endpoint.
func NewHTTPClient(endpoint, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(endpoint, "/") + searchPath,
		token:  token,
	}
}

type searchResponse struct {
	Results []Passage `json:"results"`
}

// Search posts the query and returns passages at or above the similarity floor, best first.
func (h *HTTPClient) Search(ctx context.Context, q Query) ([]Passage, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &SearchError{Status: resp.StatusCode}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}
	return rank(decoded.Results, q), nil
}

// SearchError represents a non-successful search response.
type SearchError struct {
	Status int
}

func (e *SearchError) Error() string {
	return "retrieval search failed with status " + http.StatusText(e.Status)
}

// Unwrap lets callers match SearchError against ErrSearchFailed.
func (e *SearchError) Unwrap() error { return ErrSearchFailed }
