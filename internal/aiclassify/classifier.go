// Package aiclassify suggests categories for transactions that no rule or
// built-in pattern matched, by asking an external language model.
package aiclassify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key is available. It is always
// returned before any network or database access.
var ErrNotConfigured = errors.New("AI classifier is not configured: missing API key")

const (
	ProviderChat   = "chat"
	ProviderGemini = "gemini"

	DefaultTimeout = 30 * time.Second
)

// Request is one classification call.
type Request struct {
	System string
	Prompt string
}

// Classifier sends a prompt to a model and returns the text of its reply.
type Classifier interface {
	Classify(ctx context.Context, req Request) (string, error)
}

// Options selects and configures a Classifier.
type Options struct {
	Provider string // "chat" (default) or "gemini"
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// NewClassifier builds the Classifier named by o.Provider.
func NewClassifier(ctx context.Context, o Options) (Classifier, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	switch strings.ToLower(o.Provider) {
	case "", ProviderChat:
		return NewChatClient(o.Endpoint, o.Model, o.APIKey, o.Timeout), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, o.APIKey, o.Model, o.Timeout)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", o.Provider)
	}
}
