package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dshills/patchpilot/internal/cache"
)

// Message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the backend-neutral form of one completion call.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// Completer returns raw generated text for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message, maxOutputTokens int) (string, error)
	Name() string
}

// backend adapts a Request to one vendor's HTTP API.
type backend interface {
	name() string
	newRequest(ctx context.Context, req Request) (*http.Request, error)
	decode(body []byte) (string, error)
	quotaExhausted(body []byte) bool
}

// Options tunes a Client. Zero values select defaults.
type Options struct {
	Temperature float64
	Backoff     Backoff
	Cache       *cache.Cache
	HTTPClient  *http.Client
}

// Known returns the provider names accepted by New.
func Known() []string {
	return []string{"openai", "gemini", "ollama"}
}

// New creates a completion client for the named provider.
func New(provider, model string, opts Options) (*Client, error) {
	var b backend
	var err error
	switch provider {
	case "openai":
		b, err = newOpenAI()
	case "gemini", "google":
		b, err = newGemini(model)
	case "ollama", "lmstudio":
		b, err = newOllama()
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}
	return newClient(b, model, opts), nil
}
