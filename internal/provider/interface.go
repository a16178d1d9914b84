// Package provider selects and constructs the completion service backend at
// runtime. Supported backends: Ollama, OpenAI, Azure OpenAI, Volcano Engine
// Ark and Google Gemini. The special backend "none" runs the assistant
// offline, answering every request from the canned fallback.
package provider

import (
	"context"
	"time"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendNone disables the completion service.
	BackendNone Backend = "none"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects Volcano Engine Ark.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Defaults for the shared tuning knobs. They mirror the values the chat
// widget has always used: short answers with moderate creativity.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = float32(0.7)
	DefaultTimeout     = 10 * time.Second
)

// ProviderOllama holds Ollama connection settings.
type ProviderOllama struct {
	// Host is the Ollama base URL (OLLAMA_HOST).
	Host string
	// Model is the model tag to run (OLLAMA_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI API settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI secret key (OPENAI_API_KEY).
	APIKey string
	// Model is the model name (OPENAI_MODEL).
	Model string
	// BaseURL overrides the API endpoint for OpenAI-compatible gateways
	// (OPENAI_BASE_URL). Empty uses the public API.
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is the Azure resource key (AZURE_OPENAI_API_KEY).
	APIKey string
	// Endpoint is the resource endpoint (AZURE_OPENAI_ENDPOINT).
	Endpoint string
	// Deployment is the deployment name (AZURE_OPENAI_DEPLOYMENT).
	Deployment string
	// APIVersion is the REST API version (AZURE_OPENAI_API_VERSION).
	APIVersion string
}

// ProviderArk holds Volcano Engine Ark settings.
type ProviderArk struct {
	// APIKey is the Ark API key (ARK_API_KEY).
	APIKey string
	// Model is the endpoint or model id (ARK_MODEL).
	Model string
	// BaseURL overrides the regional endpoint (ARK_BASE_URL).
	BaseURL string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is the AI Studio key (GOOGLE_API_KEY).
	APIKey string
	// Model is the model name (GEMINI_MODEL).
	Model string
}

// SharedTuning holds knobs applied to every backend that supports them.
type SharedTuning struct {
	// MaxTokens caps the completion length (MODEL_MAX_TOKENS).
	MaxTokens int
	// Temperature controls response randomness (MODEL_TEMPERATURE).
	Temperature float32
	// Timeout bounds a single completion call (MODEL_TIMEOUT).
	Timeout time.Duration
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ark         ProviderArk
	Gemini      ProviderGemini

	Tuning SharedTuning
}

// HealthCheckConfig is implemented by backends that expose a zero-cost
// reachability probe (typically a model listing endpoint). Backends without
// one make readiness fall back to a single-token generate call.
type HealthCheckConfig interface {
	// HealthCheck returns nil when the backend is reachable and accepts the
	// configured credentials.
	HealthCheck(ctx context.Context) error
}
