package main

import (
	"fmt"
	"os"

	"github.com/aretw0/reviewlink"
	"github.com/aretw0/reviewlink/internal/config"
	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reviewlink",
	Short: "reviewlink delivers diff review comments to coding agents",
	Long: `reviewlink takes review comments written against a diff and hands them to
the agent that should act on them: a tmux pane, a connected MCP client, or the
clipboard. Open review pages receive live updates over Server-Sent Events.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "Print machine readable JSON")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	return cfg, nil
}

// newApp wires an App that logs to stderr.
func newApp(cmd *cobra.Command) (*reviewlink.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithFormat(cmd.ErrOrStderr(), level, cfg.LogFormat)
	return reviewlink.New(cfg, reviewlink.WithLogger(logger), reviewlink.WithTerminal(cmd.OutOrStdout()))
}
