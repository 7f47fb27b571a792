package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_URLNormalization(t *testing.T) {
	tests := []struct {
		name        string
		inputURL    string
		expectedURL string
	}{
		{name: "no trailing slash", inputURL: "http://localhost:8000", expectedURL: "http://localhost:8000"},
		{name: "trailing slash", inputURL: "http://localhost:8000/", expectedURL: "http://localhost:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.inputURL, "")
			if c.baseURL != tt.expectedURL {
				t.Errorf("expected baseURL %s, got %s", tt.expectedURL, c.baseURL)
			}
		})
	}
}

func TestClientAdd_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/memories" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("expected authorization header to be set")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{map[string]any{"id": "vec1", "memory": "Portland", "event": "ADD"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key")
	raw, err := c.Add(context.Background(), []addMessage{{Role: "user", Content: "I live in Portland"}}, "user-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw == nil {
		t.Fatal("expected non-nil response")
	}
}

func TestClientSearch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad query"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	c.retryConfig.MaxRetries = 0
	_, err := c.Search(context.Background(), "where do I live", "user-1", 5)
	if err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestClientDelete_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	if err := c.Delete(context.Background(), "vec1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
