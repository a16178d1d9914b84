// Package commands defines all Cobra CLI commands for the kbchat binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/kbchat-go/internal/audit"
	"github.com/54b3r/kbchat-go/internal/config"
	"github.com/54b3r/kbchat-go/internal/logging"
)

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "kbchat",
		Short: "kbchat answers customer questions from your company knowledge base",
		Long: `kbchat is a customer-facing chat backend.

Each question is matched against a small knowledge base built from your
company document (services, FAQ, case studies, contact details). The best
matches are handed to a hosted LLM together with the question. When no model
is configured or the model fails, a canned keyword-matched reply is returned
instead, so the customer always gets an answer.

The model provider is selected via the MODEL_PROVIDER environment variable,
a .env file, or a YAML config file (~/.kbchat/config.yaml).
See 'kbchat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env first so LOG_LEVEL and friends apply to the logger below.
			dotEnv, err := config.LoadDotEnv()
			if err != nil {
				return err
			}

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			if path != "" {
				// The YAML file may have set LOG_LEVEL or LOG_FORMAT.
				log = logging.New()
			}

			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), path, dotEnv)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.kbchat/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewSearchCmd(),
		NewDraftCmd(),
		NewServeCmd(),
		NewTranscriptsCmd(),
		NewVersionCmd(),
	)

	return root
}
