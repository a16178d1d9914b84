package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/cobra"

	"github.com/54b3r/kbchat-go/internal/chat"
	"github.com/54b3r/kbchat-go/internal/config"
	"github.com/54b3r/kbchat-go/internal/corpus"
	"github.com/54b3r/kbchat-go/internal/fallback"
	"github.com/54b3r/kbchat-go/internal/logging"
	"github.com/54b3r/kbchat-go/internal/provider"
	"github.com/54b3r/kbchat-go/internal/rag"
	"github.com/54b3r/kbchat-go/internal/store"
)

// runtimeOptions selects the optional parts of a runtime.
type runtimeOptions struct {
	// offline skips the completion service entirely.
	offline bool
	// transcripts opens the transcript store unless it is disabled.
	transcripts bool
}

// runtime bundles everything a command needs to answer questions.
type runtime struct {
	settings    *config.Settings
	provider    *provider.Config
	model       model.BaseChatModel
	transcripts *store.SQLiteStore
	assistant   *chat.Assistant
}

// Close releases the transcript store, if any.
func (r *runtime) Close() error {
	if r.transcripts == nil {
		return nil
	}
	return r.transcripts.Close()
}

// buildRuntime resolves settings from the environment and constructs the
// assistant. A misconfigured provider is an error; MODEL_PROVIDER=none runs
// offline.
func buildRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	log := logging.FromContext(ctx)

	settings, err := config.SettingsFromEnv()
	if err != nil {
		return nil, err
	}

	c, err := corpus.LoadOrDefault(settings.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	if settings.CorpusPath == "" {
		log.Debug("corpus: using built-in sample")
	}

	var rules []fallback.Rule
	if settings.FallbackRulesPath != "" {
		if rules, err = fallback.LoadRules(settings.FallbackRulesPath); err != nil {
			return nil, err
		}
	}
	responder, err := fallback.New(c, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build fallback rules: %w", err)
	}

	rt := &runtime{settings: settings, provider: provider.ConfigFromEnv()}
	if opts.offline {
		rt.provider.Backend = provider.BackendNone
	}

	rt.model, err = provider.New(ctx, rt.provider)
	switch {
	case errors.Is(err, provider.ErrOffline):
		log.Info("provider: offline, every reply comes from the fallback rules")
	case err != nil:
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	default:
		log.Info("provider initialised",
			slog.String("provider", string(rt.provider.Backend)),
			slog.String("model", rt.provider.ModelName()),
		)
	}

	if opts.transcripts && settings.TranscriptsEnabled() {
		rt.transcripts = openTranscripts(log, settings.TranscriptDB)
	}

	// A nil *SQLiteStore must not become a non-nil interface value.
	var transcripts store.TranscriptStore
	if rt.transcripts != nil {
		transcripts = rt.transcripts
	}

	rt.assistant, err = chat.New(ctx, &chat.Config{
		Corpus:           c,
		ChatModel:        rt.model,
		Fallback:         responder,
		TopK:             settings.TopK,
		MaxContextTokens: settings.MaxContextTokens,
		MaxTokens:        rt.provider.Tuning.MaxTokens,
		Timeout:          rt.provider.Tuning.Timeout,
		Transcripts:      transcripts,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to initialise assistant: %w", err)
	}
	return rt, nil
}

// openTranscripts opens the transcript store at path (default location when
// empty). Failures disable recording rather than aborting the command.
func openTranscripts(log *slog.Logger, path string) *store.SQLiteStore {
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			log.Warn("transcripts: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	s, err := store.Open(path)
	if err != nil {
		log.Warn("transcripts: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("transcripts: store opened", slog.String("path", path))
	return s
}

// metadataFlags binds the customer metadata fields to command flags.
func metadataFlags(cmd *cobra.Command, meta *rag.Metadata) {
	cmd.Flags().StringVar(&meta.Name, "name", "", "Customer name")
	cmd.Flags().StringVar(&meta.Company, "company", "", "Customer company")
	cmd.Flags().StringVar(&meta.Email, "email", "", "Customer email")
	cmd.Flags().StringVar(&meta.Phone, "phone", "", "Customer phone number")
	cmd.Flags().StringVar(&meta.Service, "service", "", "Service of interest (service id from the corpus)")
	cmd.Flags().StringVar(&meta.Message, "message", "", "Free-form inquiry text")
}
