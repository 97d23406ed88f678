package providers

import (
	"os"
	"strings"
)

const defaultOllamaURL = "http://localhost:11434"

// newOllama targets a local OpenAI-compatible server. No API key is required
// by default.
func newOllama() (*openAI, error) {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	// Normalize URL: strip trailing /, /v1, /v1/chat/completions
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	return &openAI{
		label:   "ollama",
		apiKey:  os.Getenv("PATCHPILOT_OLLAMA_API_KEY"),
		baseURL: baseURL + "/v1/chat/completions",
	}, nil
}
