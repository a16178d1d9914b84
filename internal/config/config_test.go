package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// unsetAll clears keys for the duration of the test.
func unsetAll(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("KBCHAT_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	path, err := Load("", slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml", slog.Default())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: azure
  max_tokens: 400
  temperature: 0.3
  timeout: 15s
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
    api_version: "2025-04-01-preview"
knowledge:
  corpus: ./company.yaml
  fallback_rules: ./rules.yaml
  top_k: 5
  max_context_tokens: 1500
server:
  host: 0.0.0.0
  port: 9090
  cors_origins:
    - https://www.example.com
    - https://shop.example.com
logging:
  level: debug
  format: text
transcripts:
  db_path: disabled
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	unsetAll(t,
		"MODEL_PROVIDER", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE", "MODEL_TIMEOUT",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
		EnvCorpus, EnvFallbackRules, EnvTopK, EnvMaxContextTokens,
		EnvHost, EnvPort, EnvCORSOrigins, EnvTranscriptDB,
		"LOG_LEVEL", "LOG_FORMAT",
	)

	loaded, err := Load(cfgPath, slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"MODEL_PROVIDER":           "azure",
		"MODEL_MAX_TOKENS":         "400",
		"MODEL_TEMPERATURE":        "0.3",
		"MODEL_TIMEOUT":            "15s",
		"AZURE_OPENAI_ENDPOINT":    "https://my-resource.openai.azure.com",
		"AZURE_OPENAI_DEPLOYMENT":  "gpt-4o",
		"AZURE_OPENAI_API_VERSION": "2025-04-01-preview",
		EnvCorpus:                  "./company.yaml",
		EnvFallbackRules:           "./rules.yaml",
		EnvTopK:                    "5",
		EnvMaxContextTokens:        "1500",
		EnvHost:                    "0.0.0.0",
		EnvPort:                    "9090",
		EnvCORSOrigins:             "https://www.example.com,https://shop.example.com",
		EnvTranscriptDB:            "disabled",
		"LOG_LEVEL":                "debug",
		"LOG_FORMAT":               "text",
	}
	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
knowledge:
  top_k: 7
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set before loading; these must NOT be overwritten.
	t.Setenv("MODEL_PROVIDER", "azure")
	t.Setenv(EnvTopK, "2")

	if _, err := Load(cfgPath, slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_PROVIDER"); got != "azure" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "azure", got)
	}
	if got := os.Getenv(EnvTopK); got != "2" {
		t.Errorf("%s: expected env override %q, got %q", EnvTopK, "2", got)
	}
}

func TestLoad_SearchOrder(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KBCHAT_CONFIG", "")
	t.Chdir(work)

	if err := os.WriteFile(filepath.Join(work, "kbchat.yaml"), []byte("model:\n  provider: none\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := resolveConfigPath(""); got != "kbchat.yaml" {
		t.Errorf("working directory file: got %q", got)
	}

	homeCfg := filepath.Join(home, ".kbchat", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(homeCfg), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(homeCfg, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := resolveConfigPath(""); got != homeCfg {
		t.Errorf("home file should win over working directory: got %q", got)
	}

	envCfg := filepath.Join(work, "env.yaml")
	if err := os.WriteFile(envCfg, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KBCHAT_CONFIG", envCfg)
	if got := resolveConfigPath(""); got != envCfg {
		t.Errorf("KBCHAT_CONFIG should win over home: got %q", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath, slog.Default()); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("KBCHAT_TOP_K=4\nMODEL_PROVIDER=openai\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	unsetAll(t, EnvTopK)
	t.Setenv("MODEL_PROVIDER", "gemini")

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath)
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if !slices.Equal(loaded, []string{envPath}) {
		t.Errorf("loaded: got %v", loaded)
	}
	if got := os.Getenv(EnvTopK); got != "4" {
		t.Errorf("%s: got %q, want 4", EnvTopK, got)
	}
	if got := os.Getenv("MODEL_PROVIDER"); got != "gemini" {
		t.Errorf(".env must not override existing env: got %q", got)
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.7, "0.7"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
