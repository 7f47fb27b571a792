// Package vectorstore is the HTTP client for the mem0-compatible vector
// store (memory add/search/delete), and the bounded worker pool C7 routes
// every call through so a slow vector-store round-trip never stalls a
// session's event loop.
//
// Grounded on internal/adapters/embedding/client.go's retry/circuit-breaker
// wrapped POST idiom, generalized to the three mem0 operations. Response
// shape normalization is intentionally NOT done here — see
// internal/adapters/mem0 (C2), the one place that's allowed to branch on
// the raw wire shape.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/johnbuck/voxbridge/internal/adapters/circuitbreaker"
	"github.com/johnbuck/voxbridge/internal/adapters/retry"
)

// Client is a direct (non-pooled) HTTP client for the vector store. Pool
// wraps it to bound concurrency; callers on the hot path should go through
// Pool, not Client, directly.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryConfig retry.BackoffConfig
	breaker     *circuitbreaker.CircuitBreaker
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		retryConfig: retry.HTTPConfig(),
		breaker:     circuitbreaker.New(5, 30*time.Second),
	}
}

type addRequest struct {
	Messages []addMessage `json:"messages"`
	UserID   string       `json:"user_id"`
	Infer    bool         `json:"infer"`
}

type addMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Limit  int    `json:"limit"`
}

// Add calls the vector store's add endpoint and returns the raw decoded
// response body (either wire shape) for the caller to pass to
// mem0.NormalizeAddResponse.
func (c *Client) Add(ctx context.Context, messages []addMessage, userID string, infer bool) (any, error) {
	return c.post(ctx, "/v1/memories", addRequest{Messages: messages, UserID: userID, Infer: infer})
}

// Search calls the vector store's search endpoint and returns the raw
// decoded response body for mem0.NormalizeSearchResponse.
func (c *Client) Search(ctx context.Context, query, userID string, limit int) (any, error) {
	return c.post(ctx, "/v1/memories/search", searchRequest{Query: query, UserID: userID, Limit: limit})
}

// Delete removes one vector by id.
func (c *Client) Delete(ctx context.Context, vectorID string) error {
	var lastErr error
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/memories/"+vectorID, nil)
		if err != nil {
			return fmt.Errorf("build delete request: %w", err)
		}
		c.setAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			body, _ := io.ReadAll(resp.Body)
			lastErr = fmt.Errorf("vector store delete %s: status %d: %s", vectorID, resp.StatusCode, string(body))
			return lastErr
		}
		return nil
	})
	if err != nil {
		slog.Error("vectorstore: delete failed", "vector_id", vectorID, "error", err)
	}
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var respBody []byte
	var result any
	err = c.breaker.Execute(func() error {
		return retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
			if err != nil {
				return 0, fmt.Errorf("build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			c.setAuth(req)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return 0, fmt.Errorf("send request: %w", err)
			}
			defer resp.Body.Close()

			respBody, err = io.ReadAll(resp.Body)
			if err != nil {
				return resp.StatusCode, fmt.Errorf("read response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return resp.StatusCode, fmt.Errorf("vector store %s: status %d: %s", endpoint, resp.StatusCode, string(respBody))
			}
			return resp.StatusCode, nil
		})
	})
	if err != nil {
		return nil, err
	}

	if len(respBody) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
