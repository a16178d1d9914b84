package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables owned by kbchat itself. Provider variables are read
// by the provider package.
const (
	EnvCorpus           = "KBCHAT_CORPUS"
	EnvFallbackRules    = "KBCHAT_FALLBACK_RULES"
	EnvTopK             = "KBCHAT_TOP_K"
	EnvMaxContextTokens = "KBCHAT_MAX_CONTEXT_TOKENS"
	EnvHost             = "KBCHAT_HOST"
	EnvPort             = "KBCHAT_PORT"
	EnvCORSOrigins      = "KBCHAT_CORS_ORIGINS"
	EnvTranscriptDB     = "KBCHAT_TRANSCRIPT_DB"
)

// TranscriptsDisabled is the KBCHAT_TRANSCRIPT_DB value that turns the
// transcript log off.
const TranscriptsDisabled = "disabled"

// Settings is the resolved application configuration after all layers have
// been applied to the environment.
type Settings struct {
	// CorpusPath is the business document; empty selects the built-in sample.
	CorpusPath string
	// FallbackRulesPath replaces the built-in fallback rules when set.
	FallbackRulesPath string
	// TopK is the number of entries retrieved per request; zero selects the
	// assistant default.
	TopK int
	// MaxContextTokens is the prompt budget; zero selects the default and a
	// negative value disables trimming.
	MaxContextTokens int
	// Host and Port form the HTTP listen address; zero values select the
	// server defaults.
	Host string
	Port int
	// CORSOrigins lists allowed browser origins; empty allows all.
	CORSOrigins []string
	// TranscriptDB is the SQLite path; empty selects the default location and
	// TranscriptsDisabled turns the log off.
	TranscriptDB string
}

// TranscriptsEnabled reports whether turns should be recorded.
func (s *Settings) TranscriptsEnabled() bool {
	return !strings.EqualFold(s.TranscriptDB, TranscriptsDisabled)
}

// SettingsFromEnv reads Settings from the environment. Malformed numbers are
// reported rather than silently replaced by defaults.
func SettingsFromEnv() (*Settings, error) {
	s := &Settings{
		CorpusPath:        strings.TrimSpace(os.Getenv(EnvCorpus)),
		FallbackRulesPath: strings.TrimSpace(os.Getenv(EnvFallbackRules)),
		Host:              strings.TrimSpace(os.Getenv(EnvHost)),
		CORSOrigins:       splitList(os.Getenv(EnvCORSOrigins)),
		TranscriptDB:      strings.TrimSpace(os.Getenv(EnvTranscriptDB)),
	}

	var err error
	if s.TopK, err = envInt(EnvTopK); err != nil {
		return nil, err
	}
	if s.TopK < 0 {
		return nil, fmt.Errorf("config: %s must not be negative, got %d", EnvTopK, s.TopK)
	}
	if s.MaxContextTokens, err = envInt(EnvMaxContextTokens); err != nil {
		return nil, err
	}
	if s.Port, err = envInt(EnvPort); err != nil {
		return nil, err
	}
	if s.Port < 0 || s.Port > 65535 {
		return nil, fmt.Errorf("config: %s out of range: %d", EnvPort, s.Port)
	}
	return s, nil
}

// envInt parses an optional integer variable. Unset yields zero.
func envInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
