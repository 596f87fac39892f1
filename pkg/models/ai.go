package models

import "context"

// LLMProvider is the core interface that all language-model integrations must
// implement. Never call specific providers directly — always inject this
// interface. Complete is the only blocking operation in the analysis path:
// given a prompt it returns raw model text, and it must honor ctx deadlines.
type LLMProvider interface {
	// Complete sends a prompt and returns the raw completion text.
	Complete(ctx context.Context, prompt string) (string, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
}
