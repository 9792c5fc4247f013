// Package backend encapsulates the HTTP+JSON contract with the Jarvis
// reasoning service. It is the only package in the client that talks to
// the network. Every operation is fire-once: no retries, no coalescing,
// no caching. Retry policy, if any, belongs to the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL matches the backend's default bind address.
const DefaultBaseURL = "http://localhost:5000"

// Health classifications reported by Status.
const (
	StatusHealthy = "healthy"
	StatusOffline = "offline"
)

// Health is the decoded /health response. Components and Version are
// informational; the liveness signal derives from Status alone.
type Health struct {
	Status     string          `json:"status"`
	Version    string          `json:"version,omitempty"`
	Components map[string]bool `json:"components,omitempty"`
}

// Online reports whether the backend classified itself healthy.
func (h Health) Online() bool { return h.Status == StatusHealthy }

// ChatResult is one resolved chat turn.
type ChatResult struct {
	Response       string  `json:"response"`
	ProcessingTime float64 `json:"processing_time"`
	ContextUsed    bool    `json:"context_used"`
}

// Ack is the backend's acknowledgement of an ingested document.
type Ack struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// SearchHit is one match from the knowledge-base search endpoint.
type SearchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// SearchResults is the decoded /search response.
type SearchResults struct {
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

type chatRequest struct {
	Message    string `json:"message"`
	UseContext bool   `json:"use_context"`
}

type knowledgeMetadata struct {
	Source string `json:"source"`
}

type knowledgeRequest struct {
	Text     string            `json:"text"`
	Metadata knowledgeMetadata `json:"metadata"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Client issues requests against a single backend instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client. A zero timeout means requests
// never time out, matching the backend contract's silent-hang behavior;
// callers wanting bounded calls pass a positive timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CheckHealth classifies backend liveness. It never fails outward: any
// transport error, decode error, or non-success status is reported as
// the offline classification so callers need no failure branch.
func (c *Client) CheckHealth(ctx context.Context) Health {
	offline := Health{Status: StatusOffline}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return offline
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return offline
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return offline
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return offline
	}
	return h
}

// SendChatTurn submits one chat message. useContext asks the backend to
// enrich the request with retrieved knowledge. Fails with a collapsed
// ErrBackendUnavailable condition; never retries.
func (c *Client) SendChatTurn(ctx context.Context, message string, useContext bool) (ChatResult, error) {
	var out ChatResult
	if err := c.post(ctx, "chat", "/chat", chatRequest{Message: message, UseContext: useContext}, &out); err != nil {
		return ChatResult{}, err
	}
	return out, nil
}

// SubmitKnowledge stores raw text in the backend's long-term knowledge
// store under the given source identifier.
func (c *Client) SubmitKnowledge(ctx context.Context, text, source string) (Ack, error) {
	var out Ack
	req := knowledgeRequest{Text: text, Metadata: knowledgeMetadata{Source: source}}
	if err := c.post(ctx, "knowledge", "/knowledge", req, &out); err != nil {
		return Ack{}, err
	}
	return out, nil
}

// SearchKnowledge queries the knowledge store directly. topK <= 0 lets
// the backend pick its default.
func (c *Client) SearchKnowledge(ctx context.Context, query string, topK int) (SearchResults, error) {
	var out SearchResults
	if err := c.post(ctx, "search", "/search", searchRequest{Query: query, TopK: topK}, &out); err != nil {
		return SearchResults{}, err
	}
	return out, nil
}

// post issues exactly one JSON request and decodes the success body
// into out. All failure modes collapse to *UnavailableError.
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UnavailableError{Op: op, HTTPStatus: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	return nil
}
