package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateText(t *testing.T) {
	var gotPath string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "4"}}}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	answer, err := client.GenerateText(context.Background(), "gemini-1.5-flash", "2+2?")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "4" {
		t.Fatalf("answer = %q, want 4", answer)
	}
	if gotPath != "/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "2+2?" {
		t.Fatalf("prompt not sent verbatim: %+v", gotBody)
	}
}

func TestGenerateTextModelPrefixStripped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "models/models/") {
			t.Errorf("model prefix not normalized: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "ok"}}}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.GenerateText(context.Background(), "models/gemini-1.5-flash", "hi"); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestGenerateTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GenerateText(context.Background(), "gemini-1.5-flash", "hi")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error should surface upstream message, got %v", err)
	}
}

func TestGenerateTextEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.GenerateText(context.Background(), "gemini-1.5-flash", "hi"); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient("  "); err == nil {
		t.Fatalf("expected error for blank api key")
	}
}
