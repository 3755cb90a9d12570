package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pricebook/internal/config"
	"pricebook/internal/logging"
	"pricebook/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-01-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.PriceStore

	configDir string
}

// NewApp creates the application with a no-op logger until config is loaded.
func NewApp() *App {
	return &App{Logger: zerolog.Nop()}
}

// Execute runs the CLI and closes the price store however the command ends.
func Execute(ctx context.Context) error {
	app := NewApp()
	return run(ctx, app, NewRootCmd(app))
}

// run executes cmd and then closes app's store. A command error takes
// precedence over a close error.
func run(ctx context.Context, app *App, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if cerr := app.Close(); err == nil {
		err = cerr
	}
	return err
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pricebook",
		Short: "Adjusted daily price history for NSE equities",
		Long: `pricebook keeps a daily equity price history consistent with corporate actions.

It rescales prices recorded before face value splits, bonus issues and rights
issues, keeps an audit log so every adjustment is applied once, and maintains
4, 12 and 52 week rolling highs and lows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.configDir, _ = cmd.Flags().GetString("config")
			cfg, err := config.Load(app.configDir)
			if err != nil {
				return err
			}
			app.Config = cfg
			app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())

			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/pricebook)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAdjustCmd(app))
	rootCmd.AddCommand(newRollingCmd(app))
	rootCmd.AddCommand(newActionsCmd(app))

	return rootCmd
}

// openStore opens the configured price store on first use.
func (app *App) openStore() (store.PriceStore, error) {
	if app.Store != nil {
		return app.Store, nil
	}
	s, err := store.NewSQLiteStore(app.Config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening price store %s: %w", app.Config.Database.Path, err)
	}
	app.Logger.Debug().Str("path", app.Config.Database.Path).Msg("SQLite store initialized")
	app.Store = s
	return s, nil
}

// Close releases the price store if a command opened it.
func (app *App) Close() error {
	if app.Store == nil {
		return nil
	}
	err := app.Store.Close()
	app.Store = nil
	return err
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
				output.Printf("pricebook v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
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
			dir := app.configDir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
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
	output.Bold("Database")
	output.Printf("  Path:            %s\n", cfg.Database.Path)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  Console:         %v\n", cfg.Logging.Console)
	output.Printf("  File:            %v (%s)\n", cfg.Logging.File, cfg.Logging.FilePath)
	output.Println()

	output.Bold("Adjustments")
	output.Printf("  Notices Dir:     %s\n", cfg.Adjust.NoticesDir)
	output.Printf("  Auto Confirm:    %v\n", cfg.Adjust.AutoConfirm)
	output.Println()

	output.Bold("Rolling Windows")
	output.Printf("  Windows (weeks): %v\n", cfg.Rolling.Windows)
	output.Printf("  Overwrite:       %v\n", cfg.Rolling.Overwrite)

	return nil
}
