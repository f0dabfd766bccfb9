// Package cli provides the command-line interface for trademind.
package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/DieselDot/Trademind/internal/cache"
	"github.com/DieselDot/Trademind/internal/config"
	"github.com/DieselDot/Trademind/internal/dashboard"
	"github.com/DieselDot/Trademind/internal/logging"
	"github.com/DieselDot/Trademind/internal/notify"
	"github.com/DieselDot/Trademind/internal/store"
	"github.com/DieselDot/Trademind/internal/tracker"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-03-01"
)

const commandTimeout = 30 * time.Second

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Location *time.Location
	UserID   string

	Store    store.DataStore
	Composer *dashboard.Composer
	Tracker  *tracker.Service

	// LoadConfig reads configuration for a config directory.
	LoadConfig func(dir string) (*config.Config, error)
	// OpenStore opens the configured data store.
	OpenStore func(cfg *config.Config) (store.DataStore, error)
	Now       func() time.Time

	// ConfigureLogging rebuilds Logger from the [logging] section.
	ConfigureLogging bool
}

// NewApp creates an App that loads its configuration on first use.
func NewApp(logger zerolog.Logger) *App {
	return &App{
		Logger:     logger,
		LoadConfig: config.Load,
		OpenStore:  openStore,
		Now:        time.Now,
	}
}

func openStore(cfg *config.Config) (store.DataStore, error) {
	return store.NewSQLStore(cfg.Database.Driver, cfg.Database.DSN)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trademind",
		Short: "Trademind - trading discipline tracker",
		Long: `Trademind tracks trading discipline rather than trading itself.

Check in before a session, log each trade with the emotion behind it and
the rules it broke, reflect when the session ends, and get a 0-100
discipline score. The dashboard shows streaks, trends and how each
emotion correlates with winning.

Use 'trademind help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfig"] != "true" {
				dir, _ := cmd.Flags().GetString("config")
				user, _ := cmd.Flags().GetString("user")
				if err := app.init(dir, user); err != nil {
					return err
				}
			}

			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trademind)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("user", "", "user id (default: [user] id from config)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addRulesCommands(rootCmd, app)
	addSessionCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addInsightCommands(rootCmd, app)
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

// init loads configuration and wires the services.
func (a *App) init(configDir, user string) error {
	if a.Config == nil {
		cfg, err := a.LoadConfig(configDir)
		if err != nil {
			return err
		}
		a.Config = cfg
		if a.ConfigureLogging {
			a.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
		}
	}

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}
	a.Location = loc

	a.UserID = a.Config.User.ID
	if user != "" {
		a.UserID = user
	}

	if a.Store == nil {
		ds, err := a.OpenStore(a.Config)
		if err != nil {
			return err
		}
		a.Store = ds
		a.Logger.Debug().Str("driver", a.Config.Database.Driver).Msg("Data store opened")
	}

	a.Composer = dashboard.NewComposer(a.Store,
		dashboard.WithCache(a.dashboardCache()),
		dashboard.WithClock(a.Now),
		dashboard.WithLocation(loc),
		dashboard.WithLogger(a.Logger),
	)
	a.Tracker = tracker.NewService(a.Store,
		tracker.WithInvalidator(a.Composer),
		tracker.WithClock(a.Now),
		tracker.WithLocation(loc),
		tracker.WithLogger(a.Logger),
		tracker.WithNotifier(a.notifier()),
	)
	return nil
}

func (a *App) notifier() notify.Notifier {
	nc := a.Config.Notifications
	if !nc.Enabled {
		return notify.NewNoOpNotifier()
	}
	a.Logger.Debug().Str("level", nc.Level).Msg("Webhook notifications enabled")
	return notify.NewMultiNotifier(a.Config.NotifyConfig())
}

func (a *App) dashboardCache() cache.Cache[dashboard.Data] {
	cc := a.Config.Cache
	if !cc.Enabled {
		return cache.NewNop[dashboard.Data]()
	}
	client := cache.NewRedisClient(cache.Options{
		Addr:     cc.Addr,
		Password: cc.Password,
		DB:       cc.DB,
		TTL:      cc.TTL,
	})
	a.Logger.Debug().Str("addr", cc.Addr).Dur("ttl", cc.TTL).Msg("Dashboard cache enabled")
	return cache.NewRedis[dashboard.Data](client, "trademind:dashboard:", cc.TTL, a.Logger)
}

// Close waits for pending notifications and releases the data store.
func (a *App) Close() error {
	if a.Tracker != nil {
		a.Tracker.Wait()
	}
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

// context returns a context bounded by the command timeout.
func (a *App) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(logging.WithLogger(parent, a.Logger), commandTimeout)
}

// output creates an Output using the configured currency symbol.
func (a *App) output(cmd *cobra.Command) *Output {
	out := NewOutput(cmd)
	if a.Config != nil {
		if a.Config.UI.CurrencySymbol != "" {
			out.currency = a.Config.UI.CurrencySymbol
		}
		if !a.Config.UI.ColorEnabled {
			out.colorEnabled = false
		}
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipConfig": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Trademind v%s\n", Version)
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
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(redacted(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := app.output(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.Path()})
			} else {
				output.Println(app.Config.Path())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Cache.Password != "" {
		out.Cache.Password = "********"
	}
	if out.Notifications.WebhookURL != "" {
		out.Notifications.WebhookURL = "********"
	}
	return out
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("User")
	output.Printf("  ID:        %s\n", cfg.User.ID)
	output.Printf("  Timezone:  %s\n", cfg.User.Timezone)
	output.Println()

	output.Bold("Database")
	output.Printf("  Driver:    %s\n", cfg.Database.Driver)
	if cfg.Database.Driver == "sqlite3" {
		output.Printf("  Path:      %s\n", cfg.Database.DSN)
	}
	output.Println()

	output.Bold("Cache")
	output.Printf("  Enabled:   %v\n", cfg.Cache.Enabled)
	if cfg.Cache.Enabled {
		output.Printf("  Redis:     %s (db %d)\n", cfg.Cache.Addr, cfg.Cache.DB)
		output.Printf("  TTL:       %s\n", cfg.Cache.TTL)
	}
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:   %s\n", cfg.Server.Addr)
	output.Printf("  Dev mode:  %v\n", cfg.Server.DevMode)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:   %v\n", cfg.Notifications.Enabled)
	if cfg.Notifications.Enabled {
		output.Printf("  Level:     %s\n", cfg.Notifications.Level)
	}
	output.Println()

	output.Bold("Display")
	output.Printf("  Currency:  %s\n", cfg.UI.CurrencySymbol)
	output.Printf("  Colors:    %v\n", cfg.UI.ColorEnabled)
	output.Printf("  Log level: %s\n", cfg.Logging.Level)
}
