package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/kbchat-go/internal/logging"
	"github.com/54b3r/kbchat-go/internal/server"
	"github.com/54b3r/kbchat-go/internal/tracing"
)

// NewServeCmd constructs the `kbchat serve` command, which starts the HTTP
// API used by the chat widget.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kbchat HTTP server",
		Long: `Start the kbchat HTTP server.

Endpoints:
  POST /api/chat     {query, metadata} -> {text, succeeded, sourceTag}
  POST /api/draft    {metadata} -> {draft}
  POST /api/search   {query, topK} -> ranked knowledge entries
  GET  /api/health   liveness
  GET  /api/ready    readiness of the completion service and transcript log
  GET  /metrics      Prometheus metrics

Examples:
  kbchat serve
  kbchat serve --port 9090
  MODEL_PROVIDER=openai KBCHAT_CORPUS=./company.yaml kbchat serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)

			// Setup Langfuse tracing: opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup(tracing.ConfigFromEnv())
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
			}

			rt, err := buildRuntime(ctx, runtimeOptions{transcripts: true})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = rt.Close() }()

			var pingers []server.Pinger
			if rt.model != nil {
				pingers = append(pingers, server.NewLLMPinger(rt.model, rt.provider.HealthChecker(), string(rt.provider.Backend)))
			}
			if rt.transcripts != nil {
				pingers = append(pingers, server.NewTranscriptPinger(rt.transcripts))
			}

			cfg := &server.Config{
				Host:              rt.settings.Host,
				Port:              rt.settings.Port,
				CORSOrigins:       rt.settings.CORSOrigins,
				Logger:            log,
				Pingers:           pingers,
				CompletionTimeout: rt.provider.Tuning.Timeout,
			}
			if cmd.Flags().Changed("host") || cfg.Host == "" {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") || cfg.Port == 0 {
				cfg.Port = port
			}

			srv, err := server.New(rt.assistant, cfg)
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("addr", srv.Addr()),
				slog.Bool("offline", rt.assistant.Offline()),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env: KBCHAT_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (env: KBCHAT_PORT)")

	return cmd
}
