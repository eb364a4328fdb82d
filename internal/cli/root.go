package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tiger-trader/internal/agents"
	"tiger-trader/internal/broker"
	"tiger-trader/internal/config"
	"tiger-trader/internal/journal"
	"tiger-trader/internal/logging"
	"tiger-trader/internal/safety"
	"tiger-trader/internal/security"
	"tiger-trader/internal/tools"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Broker    broker.Broker
	State     *safety.DailyState
	Plans     *safety.TradePlanStore
	Audit     *security.AuditLogger
	Journal   *journal.Journal
	Executor  *tools.Executor
	LLMClient agents.LLMClient
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Broker: live Tiger gateway client, or in-memory simulation.
	if cfg.IsPaperMode() {
		app.Broker = broker.NewPaperBroker(broker.PaperBrokerConfig{})
		logger.Debug().Msg("Paper broker initialized")
	} else {
		tigerBroker, err := broker.NewTigerBroker(broker.TigerConfig{
			TigerID:        cfg.Tiger.TigerID,
			Account:        cfg.Tiger.Account,
			PrivateKeyPath: cfg.Tiger.PrivateKeyPath,
			Logger:         logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Tiger broker unavailable, trading commands will fail")
		} else {
			app.Broker = tigerBroker
			logger.Debug().Msg("Tiger broker initialized")
		}
	}

	// Safety state and trade plans.
	app.State = safety.NewDailyState(cfg.Safety.StateDir, logger)
	plans, err := safety.NewTradePlanStore(cfg.Safety.StateDir, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Trade plan store unavailable")
	} else {
		app.Plans = plans
	}

	// Audit log.
	audit, err := security.NewAuditLogger(security.DefaultAuditConfig())
	if err != nil {
		logger.Warn().Err(err).Msg("Audit logger unavailable")
	} else {
		audit.SetAccount(cfg.Tiger.Account)
		app.Audit = audit
	}

	// Order journal (SQLite).
	dbPath := filepath.Join(config.DefaultConfigDir(), "journal.db")
	j, err := journal.Open(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Journal unavailable, order history will not persist")
	} else {
		app.Journal = j
	}

	if app.Broker != nil {
		app.Executor = tools.NewExecutor(tools.ExecutorConfig{
			Broker:  app.Broker,
			State:   app.State,
			Plans:   app.Plans,
			Limits:  cfg.SafetyLimits(),
			Audit:   app.Audit,
			Journal: app.Journal,
			Logger:  logger,
		})
	}

	if cfg.Agent.OpenAIAPIKey != "" {
		app.LLMClient = agents.NewOpenAIClient(cfg.Agent.OpenAIAPIKey, cfg.Agent.Model)
		logger.Debug().Str("model", cfg.Agent.Model).Msg("OpenAI LLM client initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "tiger-trader",
		Short: "Tiger Trader - safety-gated brokerage CLI with an AI assistant",
		Long: `Tiger Trader is a brokerage CLI for Tiger Brokers accounts.

Every order passes a pre-trade safety gate (short-sell block, buying
power, order value and concentration limits, daily loss limit, and
duplicate detection) before it reaches the broker. An optional AI
assistant drives the same tools through OpenAI function calling.

Use 'tiger-trader help <command>' for more information about a command.`,
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

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tiger-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addOrderCommands(rootCmd, app)
	addPlanCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addAgentCommands(rootCmd, app)

	return rootCmd
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
				output.Printf("Tiger Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Tiger Configuration")
	output.Printf("  Tiger ID:        %s\n", security.MaskSensitive(cfg.Tiger.TigerID))
	output.Printf("  Account:         %s\n", security.MaskSensitive(cfg.Tiger.Account))
	output.Printf("  Private Key:     %s\n", cfg.Tiger.PrivateKeyPath)
	output.Println()

	output.Bold("Safety Limits")
	output.Printf("  Max Order Value:  %s\n", limitOrDisabled(cfg.Safety.MaxOrderValue))
	output.Printf("  Daily Loss Limit: %s\n", limitOrDisabled(cfg.Safety.DailyLossLimit))
	if cfg.Safety.MaxPositionPct > 0 {
		output.Printf("  Max Position %%:   %.1f%%\n", cfg.Safety.MaxPositionPct*100)
	} else {
		output.Printf("  Max Position %%:   disabled\n")
	}
	output.Printf("  State Dir:        %s\n", cfg.Safety.StateDir)
	output.Println()

	output.Bold("Agent Configuration")
	output.Printf("  Model:           %s\n", cfg.Agent.Model)
	output.Println()

	output.Bold("Trading")
	output.Printf("  Mode:            %s\n", cfg.Trading.Mode)
	return nil
}

func limitOrDisabled(v float64) string {
	if v <= 0 {
		return "disabled"
	}
	return FormatCurrency(v)
}
