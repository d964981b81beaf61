package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/termlink/termlink/internal/config"
	"github.com/termlink/termlink/internal/console"
)

const (
	appName    = "termlink"
	appVersion = "0.3.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Remote command-execution client",
	Long: `Termlink runs shell commands against a remote execution host:
  - persistent streaming channel with incremental output
  - automatic fallback to the request/response transport
  - session management with transparent renewal
  - remote file operations (list, upload, download, mkdir, delete)`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config.kdl")
	rootCmd.PersistentFlags().String("server", "", "Server base URL (overrides config)")
	rootCmd.PersistentFlags().String("api-key", "", "API credential (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(sessionCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from file and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadConfigFile(path)
	} else {
		cfg, err = config.LoadGlobalConfig()
	}
	if err != nil {
		return nil, err
	}

	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.ServerURL = server
	}
	if key, _ := cmd.Flags().GetString("api-key"); key != "" {
		cfg.APIKey = key
	}
	return cfg, nil
}

// newClient builds the wired console client for a subcommand.
func newClient(cmd *cobra.Command) (*console.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return console.New(cfg)
}
