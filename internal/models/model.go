package models

// Model describes one entry of the static model catalog. The catalog is
// read-only at runtime.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// DefaultModels returns the built-in model catalog. The first entry is used as
// the default selection.
func DefaultModels() []Model {
	return []Model{
		{ID: "openai/gpt-4o", Name: "GPT-4o", Provider: "OpenAI"},
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini", Provider: "OpenAI"},
		{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Provider: "Anthropic"},
		{ID: "google/gemini-pro-1.5", Name: "Gemini Pro 1.5", Provider: "Google"},
		{ID: "meta-llama/llama-3.1-8b-instruct", Name: "Llama 3.1 8B", Provider: "Meta"},
	}
}
