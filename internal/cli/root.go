package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marketpay-backend/internal/config"
	"marketpay-backend/internal/env"
)

type rootOptions struct {
	configPath  string
	envName     string
	port        int
	logJSON     bool
	databaseURL string
}

// Execute runs the marketpay-backend command line.
func Execute(version string) error {
	cmd := newRootCmd(version)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:           "marketpay-backend",
		Short:         "Marketplace payment orchestration service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file")
	pf.StringVar(&opts.envName, "env", defaults.Env, "environment name (dev enables debug logs)")
	pf.IntVar(&opts.port, "port", defaults.Port, "HTTP listen port")
	pf.BoolVar(&opts.logJSON, "log-json", defaults.LogJSON, "log as JSON")
	pf.StringVar(&opts.databaseURL, "database-url", "", "Postgres DSN; empty uses the in-memory store")

	root.AddCommand(
		newServeCmd(opts),
		newSeedCmd(opts),
		newOrderCmd(opts),
		newSellerCmd(opts),
		newVersionCmd(version),
	)
	return root
}

// load layers .env files, the YAML file, MARKETPAY_* variables and finally
// any flags the user set explicitly.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	if err := env.Load(".env", ".env.local"); err != nil {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("env") {
		cfg.Env = o.envName
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = o.logJSON
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = o.databaseURL
	}
	return cfg, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
