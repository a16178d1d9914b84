package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// httpCheck probes a backend with a single GET request. Any 2xx status is
// healthy.
type httpCheck struct {
	url    string
	header http.Header
	client *http.Client
}

// HealthCheck implements [HealthCheckConfig].
func (h *httpCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// HealthChecker returns a zero-cost probe for the configured backend, or nil
// when the backend offers none (callers then fall back to a generate call).
func (c *Config) HealthChecker() HealthCheckConfig {
	client := &http.Client{Timeout: 5 * time.Second}
	switch c.Backend {
	case BackendOllama:
		return &httpCheck{
			url:    strings.TrimRight(c.Ollama.Host, "/") + "/api/tags",
			client: client,
		}
	case BackendOpenAI:
		base := c.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &httpCheck{
			url:    strings.TrimRight(base, "/") + "/models",
			header: http.Header{"Authorization": {"Bearer " + c.OpenAI.APIKey}},
			client: client,
		}
	case BackendAzure:
		return &httpCheck{
			url: strings.TrimRight(c.AzureOpenAI.Endpoint, "/") + "/openai/models?api-version=" +
				url.QueryEscape(c.AzureOpenAI.APIVersion),
			header: http.Header{"Api-Key": {c.AzureOpenAI.APIKey}},
			client: client,
		}
	case BackendGemini:
		return &httpCheck{
			url:    "https://generativelanguage.googleapis.com/v1beta/models",
			header: http.Header{"X-Goog-Api-Key": {c.Gemini.APIKey}},
			client: client,
		}
	default:
		return nil
	}
}
