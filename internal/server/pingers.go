package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kbchat-go/internal/logging"
	"github.com/54b3r/kbchat-go/internal/provider"
)

// LLMPinger probes the completion service. It satisfies the Pinger interface
// and is used by GET /api/ready.
type LLMPinger struct {
	// model is probed with a single tiny generate call when no health check
	// is available.
	model model.BaseChatModel
	// healthCheck is the zero-cost probe for backends that expose one.
	healthCheck provider.HealthCheckConfig
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewLLMPinger constructs an LLMPinger. hc may be nil.
func NewLLMPinger(m model.BaseChatModel, hc provider.HealthCheckConfig, name string) *LLMPinger {
	return &LLMPinger{model: m, healthCheck: hc, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Advisory reports true: chat answers from the fallback rules while the
// completion service is unreachable.
func (p *LLMPinger) Advisory() bool { return true }

// Ping probes the backend. When a HealthCheckConfig is available it is used
// exclusively; otherwise it falls back to a single-token Generate call, which
// consumes tokens.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck != nil {
		if err := p.healthCheck.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}
	if p.model == nil {
		return errors.New("no completion model configured")
	}

	logging.FromContext(ctx).Warn("pinger: falling back to Generate-based health check, tokens will be consumed",
		slog.String("backend", p.name),
	)
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")}, model.WithMaxTokens(1))
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return errors.New("generate returned nil response")
	}
	return nil
}

// TranscriptPinger probes the transcript database.
type TranscriptPinger struct {
	// db is anything that can report its reachability.
	db interface {
		PingContext(ctx context.Context) error
	}
}

// NewTranscriptPinger constructs a TranscriptPinger.
func NewTranscriptPinger(db interface {
	PingContext(ctx context.Context) error
}) *TranscriptPinger {
	return &TranscriptPinger{db: db}
}

// Name returns the dependency label used in readiness responses.
func (p *TranscriptPinger) Name() string { return "transcripts" }

// Ping checks the database connection.
func (p *TranscriptPinger) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
