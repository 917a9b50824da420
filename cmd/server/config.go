package main

import (
	"fmt"
	"log/slog"
	"os"

	"chat-relay/internal/handlers"
	"chat-relay/internal/services"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort        = "8080"
	defaultTemperature = 0.7
	defaultMaxTokens   = 4000
)

type llmConfig interface {
	llm(systemPrompt string, params services.SamplingParams, logger *slog.Logger) (handlers.LLM, error)
}

type config struct {
	Port         string  `yaml:"port"`
	SystemPrompt string  `yaml:"systemPrompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"maxTokens"`
	LLM          llmConfig
}

type openRouterConfig struct {
	APIKey string `yaml:"apiKey"`
}

type openAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

type anthropicConfig struct {
	APIKey string `yaml:"apiKey"`
}

type ollamaConfig struct {
	Host string `yaml:"host"`
}

func defaultConfig() config {
	return config{
		Port:        defaultPort,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		LLM:         &openRouterConfig{},
	}
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port         string         `yaml:"port"`
		SystemPrompt string         `yaml:"systemPrompt"`
		Temperature  *float64       `yaml:"temperature"`
		MaxTokens    *int           `yaml:"maxTokens"`
		LLM          map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	*c = defaultConfig()
	if rawConfig.Port != "" {
		c.Port = rawConfig.Port
	}
	c.SystemPrompt = rawConfig.SystemPrompt
	if rawConfig.Temperature != nil {
		c.Temperature = *rawConfig.Temperature
	}
	if rawConfig.MaxTokens != nil {
		c.MaxTokens = *rawConfig.MaxTokens
	}

	if rawConfig.LLM == nil {
		return nil
	}

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "openrouter":
		llm = &openRouterConfig{}
	case "openai":
		llm = &openAIConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	case "ollama":
		llm = &ollamaConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm
	return nil
}

// llm builds the OpenRouter backend. A missing credential yields a nil LLM so
// the relay answers with a configuration error instead of calling upstream.
func (o openRouterConfig) llm(
	systemPrompt string,
	params services.SamplingParams,
	logger *slog.Logger,
) (handlers.LLM, error) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, nil
	}
	return services.NewOpenRouter(apiKey, systemPrompt, params, logger), nil
}

func (o openAIConfig) llm(
	systemPrompt string,
	params services.SamplingParams,
	logger *slog.Logger,
) (handlers.LLM, error) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, nil
	}
	return services.NewOpenAI(apiKey, o.BaseURL, systemPrompt, params, logger), nil
}

func (a anthropicConfig) llm(
	systemPrompt string,
	params services.SamplingParams,
	_ *slog.Logger,
) (handlers.LLM, error) {
	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, nil
	}
	return services.NewAnthropic(apiKey, systemPrompt, params), nil
}

func (o ollamaConfig) llm(
	systemPrompt string,
	params services.SamplingParams,
	_ *slog.Logger,
) (handlers.LLM, error) {
	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		return nil, nil
	}
	return services.NewOllama(host, systemPrompt, params), nil
}

func loadConfig(path string) (config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	cfg := config{}
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}
