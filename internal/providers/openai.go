package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

const (
	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
	openAIQuotaCode  = "insufficient_quota"
	jsonObjectFormat = "json_object"
)

// openAI speaks the chat-completions API. Ollama and LM Studio reuse it
// through their OpenAI-compatible endpoints.
type openAI struct {
	label   string
	apiKey  string
	baseURL string
}

func newOpenAI() (*openAI, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, &authError{message: "OPENAI_API_KEY environment variable is not set"}
	}
	baseURL := os.Getenv("PATCHPILOT_OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &openAI{label: "openai", apiKey: key, baseURL: baseURL}, nil
}

func (o *openAI) name() string { return o.label }

func (o *openAI) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	messages := make([]openaiMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openaiMessage{Role: m.Role, Content: m.Content}
	}
	temperature := req.Temperature
	body := openaiRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &openaiResponseFormat{Type: jsonObjectFormat}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	return httpReq, nil
}

func (o *openAI) decode(body []byte) (string, error) {
	var result openaiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	if result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty text content in API response")
	}
	return result.Choices[0].Message.Content, nil
}

func (o *openAI) quotaExhausted(body []byte) bool {
	var env openaiErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return false
	}
	return env.Error.Code == openAIQuotaCode || env.Error.Type == openAIQuotaCode
}

type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens"`
	Temperature    *float64              `json:"temperature,omitempty"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiResponseFormat struct {
	Type string `json:"type"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type openaiErrorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
