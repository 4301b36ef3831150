package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/service/bootstrap"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last run.",
		Long:  "Prints the journal written by the previous run: who ran it, which recipe, and how each step ended.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			journal, err := bootstrap.LastJournal(cmd.Context(), configPath)
			if err != nil {
				return err
			}

			printJournal(cmd.OutOrStdout(), journal)

			return nil
		},
	}
}

// printJournal renders a journal as a short human-readable report.
func printJournal(w io.Writer, journal *provision.Journal) {
	outcome := color.New(color.FgGreen).Sprint("succeeded")
	if !journal.Succeeded {
		outcome = color.New(color.FgRed).Sprint("failed")
	}

	_, _ = fmt.Fprintf(w, "Recipe:   %s\n", journal.Recipe)
	_, _ = fmt.Fprintf(w, "Outcome:  %s\n", outcome)

	if !journal.StartedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Started:  %s\n", journal.StartedAt.Local().Format(time.DateTime))
	}

	if !journal.FinishedAt.IsZero() && !journal.StartedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Duration: %s\n", journal.FinishedAt.Sub(journal.StartedAt).Round(time.Second))
	}

	if journal.Actor != nil {
		_, _ = fmt.Fprintf(w, "Actor:    %s@%s\n", journal.Actor.Username, journal.Actor.Hostname)
	}

	_, _ = fmt.Fprintln(w, "Steps:")

	for _, step := range journal.Steps {
		line := fmt.Sprintf("  %-18s %s", step.Name, statusColor(step.Status).Sprint(step.Status))
		if step.Detail != "" {
			line += " (" + step.Detail + ")"
		}

		_, _ = fmt.Fprintln(w, line)
	}
}

func statusColor(status provision.StepStatus) *color.Color {
	switch status {
	case provision.StepDone:
		return color.New(color.FgGreen)
	case provision.StepSkipped:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
