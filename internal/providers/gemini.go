package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

type gemini struct {
	apiKey  string
	model   string
	baseURL string
}

func newGemini(model string) (*gemini, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return nil, &authError{message: "GEMINI_API_KEY (or GOOGLE_API_KEY) environment variable is not set"}
	}
	return &gemini{apiKey: key, model: model, baseURL: geminiAPIURL}, nil
}

func (g *gemini) name() string { return "gemini" }

func (g *gemini) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var system []string
	var contents []geminiContent
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	temperature := req.Temperature
	body := geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiGenConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     &temperature,
		},
	}
	if len(system) > 0 {
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}},
		}
	}
	if req.JSONMode {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	return httpReq, nil
}

func (g *gemini) decode(body []byte) (string, error) {
	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var content strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}
	return content.String(), nil
}

// quotaExhausted reports a QuotaFailure on a per-day quota. Gemini uses the
// same RESOURCE_EXHAUSTED status for per-minute limits, which stay retryable.
func (g *gemini) quotaExhausted(body []byte) bool {
	var env geminiErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return false
	}
	for _, d := range env.Error.Details {
		if !strings.HasSuffix(d.Type, "google.rpc.QuotaFailure") {
			continue
		}
		for _, v := range d.Violations {
			if strings.Contains(strings.ToLower(v.QuotaID), "perday") {
				return true
			}
		}
	}
	return false
}

type geminiErrorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			Violations []struct {
				QuotaID     string `json:"quotaId"`
				QuotaMetric string `json:"quotaMetric"`
			} `json:"violations"`
		} `json:"details"`
	} `json:"error"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsage struct {
	TotalTokenCount int `json:"totalTokenCount"`
}
