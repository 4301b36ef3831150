package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/logger"
	"github.com/oshokin/gtk-bootstrap/internal/service/bootstrap"
	"github.com/oshokin/gtk-bootstrap/internal/version"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitFatal   = 2
)

var (
	// configPath is an optional YAML settings overlay.
	configPath string
	// recipeName selects a built-in recipe.
	recipeName string
	// logLevel is the minimum level of printed log lines.
	logLevel string
	// allowConcurrent skips the instance lock.
	allowConcurrent bool

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd represents the base command that runs the setup.
	rootCmd = &cobra.Command{
		Use:   "gtk-bootstrap",
		Short: "Prepare this Windows PC for GTK4 development.",
		Long: `Installs everything needed to build GTK4 applications with the UCRT64 toolchain.

Steps, each skipped when already satisfied:
  1. Visual C++ runtime (downloaded and installed silently).
  2. MSYS2 (latest installer from GitHub, then waits until its shell is ready).
  3. Package-manager steps of the selected recipe (pacman through bash).
  4. ucrt64/bin appended to the persistent user PATH.

The first failing step stops the run; nothing is rolled back.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			report, err := bootstrap.Run(ctx, &bootstrap.Options{
				ConfigPath:      configPath,
				RecipeName:      recipeName,
				AllowConcurrent: allowConcurrent,
			})

			printOutcome(cmd.OutOrStdout(), err)

			if err == nil && report != nil && report.ExitDelay > 0 {
				pause(ctx, report.ExitDelay)
			}

			return err
		},
	}
)

// Execute runs the gtk-bootstrap CLI and exits with a status describing the outcome.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(newStatusCommand(), newRecipesCommand())

	err := rootCmd.Execute()

	logger.Sync()

	if code := exitCode(err); code != exitOK {
		os.Exit(code)
	}
}

// exitCode maps a run error to the process status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case provision.IsFatal(err):
		return exitFatal
	default:
		return exitFailure
	}
}

// printOutcome writes the final banner. A failure names the step when known.
func printOutcome(w io.Writer, err error) {
	if err == nil {
		_, _ = color.New(color.FgGreen, color.Bold).Fprintln(w, "GTK4 setup completed successfully")
		return
	}

	headline := "GTK4 setup failed"
	if step, ok := provision.FailedStep(err); ok {
		headline = fmt.Sprintf("GTK4 setup failed at step %q", step)
	}

	_, _ = color.New(color.FgRed, color.Bold).Fprintln(w, headline)
	_, _ = fmt.Fprintf(w, "  %v\n", err)
}

// pause keeps the console open for d unless interrupted.
func pause(ctx context.Context, d time.Duration) {
	logger.Infof(ctx, "Closing in %s", d)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML settings file overlaid onto the defaults")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.Flags().StringVarP(&recipeName, "recipe", "r", "", "built-in recipe to run (see the recipes command)")
	rootCmd.Flags().BoolVar(&allowConcurrent, "allow-concurrent", false, "run even if another setup run holds the instance lock")
}
