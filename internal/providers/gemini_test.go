package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGemini_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("missing api key header")
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("responseMimeType = %q", req.GenerationConfig.ResponseMimeType)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "a\n\nb" {
			t.Errorf("systemInstruction = %+v", req.SystemInstruction)
		}
		if len(req.Contents) != 2 || req.Contents[0].Role != "user" || req.Contents[1].Role != "model" {
			t.Errorf("contents = %+v", req.Contents)
		}
		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: `{"comments":`}, {Text: `[]}`}}}}},
		})
	}))
	defer server.Close()

	c := newClient(&gemini{apiKey: "test-key", model: "gemini-2.5-flash", baseURL: server.URL}, "gemini-2.5-flash", Options{})
	text, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleUser, Content: "diff"},
		{Role: RoleAssistant, Content: "previous"},
	}, 100)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if text != `{"comments":[]}` {
		t.Errorf("text = %q", text)
	}
}

func TestGemini_ResourceExhaustedIsRetryable(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(429)
			w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{Content: geminiContent{Parts: []geminiPart{{Text: "{}"}}}}},
		})
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	c := newClient(&gemini{apiKey: "k", model: "m", baseURL: server.URL}, "m", Options{
		Backoff: Backoff{Sleep: rec.sleep, Jitter: func() float64 { return 0 }},
	})
	if _, err := c.Complete(context.Background(), nil, 10); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if attempts != 2 || len(rec.waits) != 1 {
		t.Errorf("attempts = %d sleeps = %d, want 2 and 1", attempts, len(rec.waits))
	}
}

const geminiDailyQuotaBody = `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","details":[
  {"@type":"type.googleapis.com/google.rpc.QuotaFailure","violations":[
    {"quotaMetric":"generativelanguage.googleapis.com/generate_content_free_tier_requests",
     "quotaId":"GenerateRequestsPerDayPerProjectPerModel-FreeTier"}]},
  {"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"30s"}]}}`

func TestGemini_DailyQuotaIsFatal(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(429)
		w.Write([]byte(geminiDailyQuotaBody))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	c := newClient(&gemini{apiKey: "k", model: "m", baseURL: server.URL}, "m", Options{
		Backoff: Backoff{Sleep: rec.sleep, Jitter: func() float64 { return 0 }},
	})
	_, err := c.Complete(context.Background(), nil, 10)
	if !IsQuotaError(err) {
		t.Fatalf("err = %v, want FatalQuotaError", err)
	}
	if attempts != 1 || len(rec.waits) != 0 {
		t.Errorf("attempts = %d sleeps = %d, want 1 and 0", attempts, len(rec.waits))
	}
}

func TestGemini_QuotaExhausted(t *testing.T) {
	g := &gemini{}
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"daily quota", geminiDailyQuotaBody, true},
		{"per-minute quota", `{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.QuotaFailure","violations":[{"quotaId":"GenerateRequestsPerMinutePerProjectPerModel"}]}]}}`, false},
		{"no details", `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, false},
		{"not json", `upstream timeout`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.quotaExhausted([]byte(tt.body)); got != tt.want {
				t.Errorf("quotaExhausted = %v, want %v", got, tt.want)
			}
		})
	}
}
