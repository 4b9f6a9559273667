package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/specstore"
	"github.com/specloom/specloom/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the spec document for external edits",
	Long: "Watches the spec document and replays out-of-band edits (your editor, another\n" +
		"process) through the normal mutation path, regenerating affected tasks live.\n" +
		"Runs until interrupted.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	c.Subscribe(func(ev specstore.ChangeEvent) {
		printer.Event(ev)
		printer.RegenSummary(c.Plan())
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer.Info("watching " + c.Spec().ProjectName + " — ctrl-c to stop")
	if err := c.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		printer.Error(err.Error())
		return err
	}
	return nil
}
