package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/kbchat-go/internal/chat"
	"github.com/54b3r/kbchat-go/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// exceed CompletionTimeout so fallback replies still get written. Zero
	// means the larger of 30s and CompletionTimeout plus writeHeadroom.
	WriteTimeout time.Duration
	// CompletionTimeout is the assistant's per-call model timeout
	// (default: chat.DefaultTimeout).
	CompletionTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps request bodies (default: 64 KiB).
	MaxBodyBytes int64
	// CORSOrigins lists the origins allowed to call the API from a browser.
	// Empty allows any origin, which suits a public chat widget.
	CORSOrigins []string
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// MetricsRegistry receives the server's metrics. If nil,
	// prometheus.DefaultRegisterer is used.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. If nil, prometheus.DefaultGatherer
	// is used.
	MetricsGatherer prometheus.Gatherer
}

// answerer is the interface the handlers call. *chat.Assistant satisfies it;
// tests may inject a fake.
type answerer interface {
	// Answer runs the chat pipeline and always returns a reply.
	Answer(ctx context.Context, req chat.Request) chat.Response
	// Draft builds an inquiry message from form metadata.
	Draft(meta rag.Metadata) string
	// Search returns ranked knowledge entries for query.
	Search(query string, topK int) ([]rag.RankedEntry, error)
	// Offline reports whether no completion model is configured.
	Offline() bool
}

// Server is the HTTP server that exposes the chat assistant.
type Server struct {
	// assistant answers chat, draft and search requests.
	assistant answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
}

// metadataPayload is the caller identity accepted by /api/chat and
// /api/draft. Field limits mirror the inquiry form.
type metadataPayload struct {
	Name    string `json:"name" validate:"max=100"`
	Company string `json:"company" validate:"max=200"`
	Email   string `json:"email" validate:"omitempty,max=254,email"`
	Phone   string `json:"phone" validate:"omitempty,max=30,phone"`
	Service string `json:"service" validate:"max=64"`
	Message string `json:"message" validate:"max=2000"`
}

// chatRequest is the JSON body for POST /api/chat. The embeddable widget
// historically sent message/formData; query/metadata are preferred.
type chatRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// Message is the legacy name for Query.
	Message string `json:"message"`
	// Metadata is the optional caller identity.
	Metadata *metadataPayload `json:"metadata"`
	// FormData is the legacy name for Metadata.
	FormData *metadataPayload `json:"formData"`
}

// chatInput is a chatRequest after legacy aliases are resolved. It is the
// value that gets validated.
type chatInput struct {
	Query    string          `json:"query" validate:"required,max=2000"`
	Metadata metadataPayload `json:"metadata"`
}

// chatResponse is the JSON body returned by POST /api/chat.
type chatResponse struct {
	// Text is the reply shown to the user.
	Text string `json:"text"`
	// Succeeded is true when Text holds an answer.
	Succeeded bool `json:"succeeded"`
	// SourceTag is "model" or "fallback".
	SourceTag string `json:"sourceTag"`
	// Timestamp is when the reply was produced (RFC 3339).
	Timestamp string `json:"timestamp"`
}

// draftRequest is the JSON body for POST /api/draft.
type draftRequest struct {
	Metadata *metadataPayload `json:"metadata"`
	FormData *metadataPayload `json:"formData"`
}

// draftResponse is the JSON body returned by POST /api/draft.
type draftResponse struct {
	Draft string `json:"draft"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
	// TopK overrides the configured number of results.
	TopK int `json:"topK" validate:"omitempty,min=1,max=50"`
}

// searchResult is one ranked knowledge entry returned by POST /api/search.
type searchResult struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// searchResponse is the JSON body returned by POST /api/search.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

// errorResponse is the JSON body of every 4xx/5xx reply.
type errorResponse struct {
	// Error is a short human-readable description.
	Error string `json:"error"`
	// Fields maps request fields to validation messages.
	Fields map[string]string `json:"fields,omitempty"`
}
