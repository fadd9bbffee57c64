package llm

import (
	"context"
	"fmt"

	"icarus-backend/config"
	"icarus-backend/logger"
	"icarus-backend/vectorstore"
)

// Provider bundles the generator and embedder chosen by configuration.
type Provider struct {
	Generator Generator
	Embedder  vectorstore.Embedder
	close     func() error
}

func (p *Provider) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// New selects the provider from cfg.Provider. Unknown names fall back to
// gemini.
func New(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (*Provider, error) {
	switch cfg.Provider {
	case "ollama":
		o := NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaEmbedModel, log)
		return &Provider{Generator: o, Embedder: o}, nil
	case "gemini":
	default:
		log.Warn("unknown LLM provider, falling back to gemini", "provider", cfg.Provider)
	}
	g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbedModel, log)
	if err != nil {
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	return &Provider{Generator: g, Embedder: g, close: g.Close}, nil
}
