package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/54b3r/kbchat-go/internal/logging"
)

// probeTimeout bounds each dependency probe run by GET /api/ready.
const probeTimeout = 5 * time.Second

// Pinger is a dependency that can report its own reachability.
// Implementations must be safe for concurrent use.
type Pinger interface {
	// Ping returns nil when the dependency is reachable.
	Ping(ctx context.Context) error
	// Name labels the dependency in readiness responses.
	Name() string
}

// advisory is implemented by pingers whose failure degrades answers instead
// of taking the service out of rotation. The completion service is one: chat
// keeps answering from the fallback rules while it is down.
type advisory interface {
	Advisory() bool
}

func isAdvisory(p Pinger) bool {
	a, ok := p.(advisory)
	return ok && a.Advisory()
}

// Answer modes reported by GET /api/ready.
const (
	// modeModel means replies come from the completion service.
	modeModel = "model"
	// modeFallback means a completion service is configured but failed its
	// probe, so replies currently come from the fallback rules.
	modeFallback = "fallback"
	// modeOffline means no completion service is configured.
	modeOffline = "offline"
)

// readyCheck is the result of one dependency probe.
type readyCheck struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Advisory bool   `json:"advisory,omitempty"`
	Error    string `json:"error,omitempty"`
}

// readyResponse is the JSON body returned by GET /api/ready.
type readyResponse struct {
	// Ready is false when any non-advisory probe failed.
	Ready bool `json:"ready"`
	// Mode tells where chat replies are currently coming from.
	Mode   string       `json:"mode"`
	Checks []readyCheck `json:"checks"`
}

// handleReady handles GET /api/ready. Probes run concurrently, each with
// its own timeout, and are reported in registration order. The response is
// 503 only when a required dependency is down.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	checks := make([]readyCheck, len(s.pingers))
	var wg sync.WaitGroup
	for i, p := range s.pingers {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			defer cancel()
			check := readyCheck{Name: p.Name(), Advisory: isAdvisory(p)}
			if err := p.Ping(ctx); err != nil {
				check.Error = err.Error()
				log.Warn("readiness probe failed",
					slog.String("dependency", check.Name),
					slog.Bool("advisory", check.Advisory),
					slog.Any("error", err),
				)
			} else {
				check.OK = true
			}
			checks[i] = check
		})
	}
	wg.Wait()

	resp := readyResponse{Ready: true, Mode: modeModel, Checks: checks}
	if s.assistant.Offline() {
		resp.Mode = modeOffline
	}
	for _, c := range checks {
		switch {
		case c.OK:
		case c.Advisory:
			if resp.Mode == modeModel {
				resp.Mode = modeFallback
			}
		default:
			resp.Ready = false
		}
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(r.Context(), w, status, resp)
}
