package ai

import (
	"fmt"

	"github.com/minwoopark/alarmsense/internal/ai/anthropic"
	"github.com/minwoopark/alarmsense/internal/ai/ollama"
	"github.com/minwoopark/alarmsense/internal/ai/openai"
	"github.com/minwoopark/alarmsense/internal/config"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// NewProvider constructs the appropriate LLM provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of ollama, openai, anthropic", cfg.Provider)
	}
}
