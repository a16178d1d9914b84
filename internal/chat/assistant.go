// Package chat wires the retrieval core, the completion service and the
// canned fallback into the per-request answer pipeline.
//
// Every request rebuilds the knowledge base from the corpus, retrieves the
// best matching entries, assembles a prompt and makes exactly one completion
// call. Any failure of that call, including an empty completion, is logged and
// converted into a fallback reply built from the same retrieval results, so
// callers always receive text and never a raw error.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kbchat-go/internal/budget"
	"github.com/54b3r/kbchat-go/internal/corpus"
	"github.com/54b3r/kbchat-go/internal/fallback"
	"github.com/54b3r/kbchat-go/internal/logging"
	"github.com/54b3r/kbchat-go/internal/rag"
	"github.com/54b3r/kbchat-go/internal/store"
)

// DefaultTopK is the number of knowledge entries offered to the model.
const DefaultTopK = 3

// DefaultTimeout bounds a single completion call when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Source tags where a reply came from.
type Source string

const (
	// SourceModel marks a reply generated by the completion service.
	SourceModel Source = "model"
	// SourceFallback marks a canned reply.
	SourceFallback Source = "fallback"
)

// FallbackReason explains why a request was answered from the fallback.
type FallbackReason string

const (
	// ReasonNone is used for model replies.
	ReasonNone FallbackReason = ""
	// ReasonOffline means no completion model is configured.
	ReasonOffline FallbackReason = "offline"
	// ReasonError means the completion call failed or timed out.
	ReasonError FallbackReason = "error"
	// ReasonEmpty means the completion service returned no text.
	ReasonEmpty FallbackReason = "empty"
	// ReasonEmptyQuery means the query had no text to send.
	ReasonEmptyQuery FallbackReason = "empty_query"
)

var (
	errOffline         = errors.New("chat: no completion model configured")
	errEmptyCompletion = errors.New("chat: completion service returned no text")
)

// Request is one chat turn.
type Request struct {
	// Query is the user's question.
	Query string
	// Metadata is the optional caller identity from the inquiry form.
	Metadata rag.Metadata
	// RequestID correlates the turn with transport logs. May be empty.
	RequestID string
}

// Response is the answer to a Request.
type Response struct {
	// Text is the reply shown to the user. Never empty.
	Text string
	// Succeeded is true whenever Text holds an answer for the user, whichever
	// path produced it.
	Succeeded bool
	// Source tags whether the model or the fallback produced Text.
	Source Source
	// Rule names the fallback rule that answered. Empty for model replies.
	Rule string
	// Reason explains a fallback reply. Empty for model replies.
	Reason FallbackReason
	// Matches are the retrieval results used as context, best first.
	Matches []rag.RankedEntry
	// Duration is the end-to-end handling time.
	Duration time.Duration
}

// Config holds the dependencies required to construct an Assistant.
type Config struct {
	// Corpus is the business document. If nil, [corpus.Default] is used.
	Corpus *corpus.Corpus
	// ChatModel is the completion service. If nil the assistant runs
	// offline and answers every request from the fallback.
	ChatModel model.BaseChatModel
	// Fallback produces canned replies. If nil, the built-in rules are used.
	Fallback *fallback.Responder
	// Strategy vectorizes and scores text. If nil, term frequency is used.
	Strategy rag.Strategy
	// TopK is the number of entries retrieved per request. Defaults to
	// DefaultTopK if zero.
	TopK int
	// MaxContextTokens is the estimated token budget for the system prompt.
	// Lowest-ranked matches are dropped to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero; negative disables trimming.
	MaxContextTokens int
	// MaxTokens caps the completion length. Zero leaves the backend default.
	MaxTokens int
	// Timeout bounds the single completion call. Defaults to DefaultTimeout
	// if zero.
	Timeout time.Duration
	// Transcripts is the optional store every turn is recorded to. Failures
	// to record are logged and never affect the reply.
	Transcripts store.TranscriptStore
}

// Assistant answers chat requests. It holds no per-request state and is
// safe for concurrent use.
type Assistant struct {
	corpus           *corpus.Corpus
	model            model.BaseChatModel
	fallback         *fallback.Responder
	strategy         rag.Strategy
	assembler        rag.Assembler
	topK             int
	maxContextTokens int
	maxTokens        int
	timeout          time.Duration
	transcripts      store.TranscriptStore
}

// New constructs an Assistant from cfg. Items of the corpus that cannot be
// turned into knowledge entries are logged once here.
func New(ctx context.Context, cfg *Config) (*Assistant, error) {
	c := cfg.Corpus
	if c == nil {
		c = corpus.Default()
	}

	topK := cfg.TopK
	switch {
	case topK == 0:
		topK = DefaultTopK
	case topK < 0:
		return nil, fmt.Errorf("chat: top-k %d: %w", topK, rag.ErrInvalidTopK)
	}

	fb := cfg.Fallback
	if fb == nil {
		var err error
		if fb, err = fallback.New(c, nil); err != nil {
			return nil, fmt.Errorf("chat: failed to build fallback rules: %w", err)
		}
	}

	strategy := cfg.Strategy
	if strategy == nil {
		strategy = rag.TermFrequency{}
	}

	maxCtx := cfg.MaxContextTokens
	if maxCtx == 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	kb, skipped := rag.BuildWith(c, strategy)
	log := logging.FromContext(ctx)
	for _, s := range skipped {
		log.Warn("corpus: item skipped", slog.String("item", s.Item), slog.String("reason", s.Reason))
	}
	log.Debug("knowledge base ready", slog.Int("entries", kb.Len()), slog.Int("skipped", len(skipped)))

	return &Assistant{
		corpus:           c,
		model:            cfg.ChatModel,
		fallback:         fb,
		strategy:         strategy,
		assembler:        rag.NewAssembler(c),
		topK:             topK,
		maxContextTokens: maxCtx,
		maxTokens:        cfg.MaxTokens,
		timeout:          timeout,
		transcripts:      cfg.Transcripts,
	}, nil
}

// Offline reports whether the assistant answers from the fallback only.
func (a *Assistant) Offline() bool { return a.model == nil }

// Corpus returns the corpus the assistant answers from.
func (a *Assistant) Corpus() *corpus.Corpus { return a.corpus }

// Search returns the ranked knowledge entries for query. topK <= 0 uses the
// configured default.
func (a *Assistant) Search(query string, topK int) ([]rag.RankedEntry, error) {
	if topK <= 0 {
		topK = a.topK
	}
	kb, _ := rag.BuildWith(a.corpus, a.strategy)
	return rag.Retrieve(query, kb, topK)
}

// Answer runs the full pipeline for req. It never returns an error: every
// failure is converted into a fallback reply.
func (a *Assistant) Answer(ctx context.Context, req Request) Response {
	start := time.Now()
	log := logging.FromContext(ctx)

	results, err := a.Search(req.Query, a.topK)
	if err != nil {
		// Unreachable with a validated topK; answer without context.
		log.Error("retrieval failed", slog.Any("error", err))
		results = nil
	}

	render := func(r []rag.RankedEntry) string {
		return a.assembler.Build(req.Query, rag.FormatContext(r), req.Metadata)
	}
	fitted := budget.FitResults(results, render, a.maxContextTokens)
	if dropped := len(results) - len(fitted); dropped > 0 {
		log.Warn("budget: dropped matches to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(fitted)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	resp := Response{Matches: fitted}

	var reason FallbackReason
	if strings.TrimSpace(req.Query) == "" {
		reason = ReasonEmptyQuery
	} else {
		text, err := a.complete(ctx, render(fitted), req.Query)
		switch {
		case err == nil:
			resp.Text = text
			resp.Source = SourceModel
		case errors.Is(err, errOffline):
			reason = ReasonOffline
		case errors.Is(err, errEmptyCompletion):
			reason = ReasonEmpty
			log.Warn("completion empty, using fallback")
		default:
			reason = ReasonError
			log.Warn("completion failed, using fallback", slog.Any("error", err))
		}
	}

	if resp.Source != SourceModel {
		reply := a.fallback.Respond(req.Query, req.Metadata, fitted)
		resp.Text = reply.Text
		resp.Source = SourceFallback
		resp.Rule = reply.Rule
		resp.Reason = reason
	}
	resp.Succeeded = resp.Text != ""
	resp.Duration = time.Since(start)

	log.Info("chat answered",
		slog.String("source", string(resp.Source)),
		slog.String("rule", resp.Rule),
		slog.Int("matches", len(resp.Matches)),
		slog.Duration("duration", resp.Duration),
	)

	a.record(ctx, req, resp)
	return resp
}

// complete makes the single completion call: the assembled prompt as the
// system message and the raw query as the user message.
func (a *Assistant) complete(ctx context.Context, prompt, query string) (string, error) {
	if a.model == nil {
		return "", errOffline
	}

	msgs := []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(query),
	}
	logging.FromContext(ctx).Debug("completion request",
		slog.Int("estimated_tokens", budget.EstimateMessages(msgs)),
	)

	var opts []model.Option
	if a.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(a.maxTokens))
	}

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg, err := a.model.Generate(cctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("chat: completion failed: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(msg.Content), nil
}

// record persists the turn to the transcript store (non-fatal on error).
func (a *Assistant) record(ctx context.Context, req Request, resp Response) {
	if a.transcripts == nil {
		return
	}
	_, err := a.transcripts.Append(ctx, store.Turn{
		RequestID: req.RequestID,
		Query:     req.Query,
		Reply:     resp.Text,
		Source:    string(resp.Source),
		Rule:      resp.Rule,
		Succeeded: resp.Succeeded,
		Matches:   rag.IDs(resp.Matches),
		Duration:  resp.Duration,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("transcript: failed to persist turn", slog.Any("error", err))
	}
}
