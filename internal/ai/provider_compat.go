package ai

import "strings"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a provider for OpenRouter, which speaks the
// OpenAI chat completions API and wants attribution headers. Response
// schemas pass through as json_schema response formats; whether the routed
// model honours them depends on the model.
func NewOpenRouterProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(defaultOpenRouterBaseURL),
		WithProviderName("openrouter"),
		WithDefaultModel("google/gemini-2.5-flash"),
		WithHeader("HTTP-Referer", "https://pandai.org"),
		WithHeader("X-Title", "P&AI Course"),
		WithModels([]ModelInfo{
			{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash (OpenRouter)", MaxTokens: 1048576, Description: "Structured output via OpenRouter"},
			{ID: "qwen/qwen-2.5-72b-instruct", Name: "Qwen 2.5 72B", MaxTokens: 32768, Description: "Large open-weight model via OpenRouter"},
		}),
	}, opts...)
	return NewOpenAIProvider(apiKey, opts...)
}

// NewOllamaProvider creates a provider for a self-hosted Ollama server at
// baseURL (e.g. http://localhost:11434), using its OpenAI-compatible /v1 API.
// No API key is sent.
func NewOllamaProvider(baseURL string, opts ...OpenAIOption) *OpenAIProvider {
	opts = append([]OpenAIOption{
		WithBaseURL(strings.TrimRight(baseURL, "/") + "/v1"),
		WithProviderName("ollama"),
		WithDefaultModel("llama3.1:8b"),
		WithModels([]ModelInfo{
			{ID: "llama3.1:8b", Name: "Llama 3.1 8B", MaxTokens: 131072, Description: "Free self-hosted model via Ollama"},
		}),
	}, opts...)
	return NewOpenAIProvider("", opts...)
}
