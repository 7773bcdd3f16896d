package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"itsite/auth"
	"itsite/config"
	"itsite/crypto"
	"itsite/db"
	"itsite/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	jsonOutput bool

	log = slog.Default()
)

const defaultConfigPath = "config.json"

var rootCmd = &cobra.Command{
	Use:   "itsite",
	Short: "IT services site backend and command-line client",
	Long: `itsite serves the IT services site API and lets you drive the same
session and content flows from a terminal.

Configuration is read from config.json (see --config), then .env, then
ITSITE_* environment variables. ITSITE_API_BASE_URL must be set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Flags().Changed("config"))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the JSON config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// setup loads configuration and installs the logger. A missing default config
// file is not an error; environment variables may carry everything.
func setup(explicit bool) error {
	path := configPath
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	if err := config.LoadConfig(path); err != nil {
		return err
	}
	log = logger.Init(config.AppConfig.LogLevel, config.AppConfig.LogFormat)
	return nil
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

func adminCredentials(cfg config.Config) auth.Credentials {
	return auth.Credentials{Email: cfg.AdminEmail, Password: cfg.AdminPassword}
}

// openStore opens the sqlite store holding the registry and the CLI's own session.
func openStore(cfg config.Config) (*db.Store, error) {
	return db.Open(cfg.DBPath, crypto.StorageKey(cfg.SessionKey))
}
