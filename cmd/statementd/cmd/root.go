package cmd

import (
	"fmt"
	"os"

	"statement-reconciliation-service/cmd/statementd/config"
	"statement-reconciliation-service/internal/classifier"
	"statement-reconciliation-service/internal/reconciler"
	"statement-reconciliation-service/internal/store"
	"statement-reconciliation-service/internal/summary"
	"statement-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "statementd",
	Short: "Bank statement reconciliation and classification tool",
	Long: `Statementd manages extracted bank statements: it ingests parsed
statement snapshots, applies partial updates with atomic summary
recomputation, classifies transactions against a learned knowledge base,
and grows that knowledge base from manual corrections.

Examples:
  statementd ingest --file snapshot.json
  statementd statement show 42
  statementd statement update 42 --file update.json
  statementd classify --account 42
  statementd correct 1337 "Owner Draw"
  statementd client create --name "Acme LLC"`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("db", config.DefaultDatabasePath, "SQLite database path")
	rootCmd.PersistentFlags().Duration("lock-wait", config.DefaultLockWait, "max wait for the per-account lock")
	rootCmd.PersistentFlags().Float64("min-score", config.DefaultMinScore, "classification confidence floor (0-1]")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("lock-wait", rootCmd.PersistentFlags().Lookup("lock-wait"))
	viper.BindPFlag("min-score", rootCmd.PersistentFlags().Lookup("min-score"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("STATEMENTD")
	viper.AutomaticEnv()
}

// app bundles the wired service components for one command invocation.
type app struct {
	cfg        *config.Config
	store      *store.Store
	reconciler *reconciler.Coordinator
	classifier *classifier.Engine
}

// newApp loads configuration, configures logging and opens the store.
// The caller must Close the returned app.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = string(logger.DebugLevel)
	}

	log, err := logger.NewLogger(cfg.LoggerConfig())
	if err != nil {
		return nil, err
	}
	logger.SetGlobalLogger(log)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		store:      st,
		reconciler: reconciler.NewCoordinator(st, summary.NewCalculator(), cfg.LockWait),
		classifier: classifier.NewEngine(st, nil, cfg.MinScore, cfg.LockWait),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.GetGlobalLogger().WithError(err).Warn("Failed to close store")
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
