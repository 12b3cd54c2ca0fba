package cli

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"intent-trader/internal/audit"
	"intent-trader/internal/config"
	"intent-trader/internal/logging"
	"intent-trader/internal/parser"
	"intent-trader/internal/store"
	"intent-trader/internal/workflow"
	"intent-trader/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Audit    *audit.Logger
	Handler  *workflow.Handler
	Registry *workflow.Registry
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: workflow.NewRegistry(),
	}

	// Initialize SQLite store
	dbPath := config.DefaultConfigDir() + "/trader.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, receipts will not persist")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	// Initialize audit trail
	if cfg.Audit.Enabled {
		auditLog, err := audit.NewLogger(audit.Config{
			LogDir:     cfg.Audit.LogDir,
			MaxSize:    cfg.Audit.MaxSize,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAge:     cfg.Audit.MaxAge,
			Compress:   true,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize audit trail")
		} else {
			app.Audit = auditLog
			logger.Debug().Msg("Audit trail initialized")
		}
	}

	// Initialize parser and workflow handler
	strategyParser := newParser(cfg, logger)
	if strategyParser != nil {
		handler, err := workflow.NewHandler(cfg, strategyParser, nil, app.Audit, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize workflow handler")
		} else {
			app.Handler = handler
			logger.Debug().Msg("Workflow handler initialized")
		}
	}

	rootCmd := &cobra.Command{
		Use:   "intent-trader",
		Short: "Policy-guarded encrypted-intent trading pipeline",
		Long: `intent-trader turns natural-language trading instructions into sealed,
policy-checked trade intents.

An untrusted parser proposes a strategy; hard limits are enforced before the
strategy is encrypted, and re-checked after decryption, so no strategy can
exceed budget, slippage, pair or expiry policy regardless of what the parser
returns. Execution is simulation-only.

Use 'intent-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/intent-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addRunCommands(rootCmd, app)
	addReceiptCommands(rootCmd, app)

	return rootCmd
}

// newParser selects the parser implementation from config.
func newParser(cfg *config.Config, logger zerolog.Logger) parser.Parser {
	timeout := time.Duration(cfg.Parser.TimeoutSeconds) * time.Second
	switch cfg.Parser.Provider {
	case "openai":
		if cfg.Credentials.OpenAI.APIKey == "" {
			logger.Warn().Msg("OpenAI parser selected but no API key configured")
			return nil
		}
		return parser.NewOpenAIParser(cfg.Credentials.OpenAI.APIKey, cfg.Parser.Model)
	default:
		if cfg.Parser.Endpoint == "" {
			logger.Warn().Msg("HTTP parser selected but no endpoint configured")
			return nil
		}
		return parser.NewHTTPParser(cfg.Parser.Endpoint, timeout)
	}
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("intent-trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View the active limits and pipeline configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			// Credentials never leave the process unmasked.
			shown := *app.Config
			shown.Credentials.OpenAI.APIKey = logging.MaskSecret(shown.Credentials.OpenAI.APIKey)

			if output.IsJSON() {
				return output.JSON(shown)
			}
			output.Bold("Hard limits")
			output.Printf("  Allowed pairs:    %v\n", shown.Limits.AllowedPairs)
			output.Printf("  Max spend:        %s\n", utils.FormatUSDC(shown.Limits.MaxSpend()))
			output.Printf("  Max slippage:     %s\n", utils.FormatBps(shown.Limits.MaxSlippageBps))
			if shown.Limits.MaxExpiryMinutes > 0 {
				output.Printf("  Max expiry:       %d minutes\n", shown.Limits.MaxExpiryMinutes)
			}
			output.Bold("Signal budget")
			output.Printf("  Budget:           %s per run\n", utils.FormatUSDC(shown.Budget.SignalBudget()))
			output.Bold("Parser")
			output.Printf("  Provider:         %s\n", shown.Parser.Provider)
			if shown.Credentials.OpenAI.APIKey != "" {
				output.Printf("  OpenAI key:       %s\n", shown.Credentials.OpenAI.APIKey)
			}
			return nil
		},
	})

	return cmd
}
