package llm

import (
	"fmt"

	"farmlink/internal/config"
)

// New picks the provider named in cfg.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "azure":
		p, err := NewAzureOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Deployment)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai", "":
		p, err := NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
}
