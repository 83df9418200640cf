// Command hydroctl uploads and manages hydromet data files from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hydromet/internal/client"
	"hydromet/internal/config"
	"hydromet/internal/logging"
	"hydromet/internal/upload"
)

var (
	// CLI flags
	apiURL  string
	verbose bool
	output  string
)

var rootCmd = &cobra.Command{
	Use:   "hydroctl",
	Short: "Upload and manage hydromet data files",
	Long: `hydroctl talks to the hydromet API. Uploads go straight to object storage
through a presigned URL and are then committed as data-file records.

Without --file, upload commands create the record from metadata alone.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (default from HYDROMET_CLIENT_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format for listings (table, json)")

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDeleteCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError tells a stored-but-unrecorded object apart from every other
// failure, since only the former leaves something behind to clean up.
func reportError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	if key, ok := upload.OrphanedKey(err); ok {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Commit failed:"), err)
		fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("Object stored without a record:"), key)
		return
	}
	if phase, ok := upload.FailedPhase(err); ok {
		fmt.Fprintf(os.Stderr, "%s %v\n", red(fmt.Sprintf("Upload failed during %s:", phase)), err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
}

func newLogger() (zerolog.Logger, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logging.NewWithWriter(config.LogConfig{Level: level, Format: "console"}, os.Stderr)
}

func newClient() (*client.Client, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
	}
	return client.NewFromConfig(cfg.Client, logger)
}
