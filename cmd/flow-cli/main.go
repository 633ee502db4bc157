package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/infrastructure/logger"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flow-cli",
	Short: "Operator CLI for the flow API",
	Long: `flow-cli talks to the Flow upstream and the local flow-api state
with the same configuration the server uses (.env, environment, settings file).

Examples:
  flow-cli credits
  flow-cli project latest
  flow-cli cache get https://example.com/cat.png
  flow-cli settings set flow.session_token=...`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(settingsCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().Bool("json", false, "Print machine readable JSON")
}

// environment is what every subcommand starts from.
type environment struct {
	cfg *config.Config
	log zerolog.Logger
}

func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg).Level(zerolog.WarnLevel)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log = log.Level(zerolog.DebugLevel)
	}
	return &environment{cfg: cfg, log: log}, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool("json")
	return enabled
}
