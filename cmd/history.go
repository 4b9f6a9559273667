package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the durable change journal",
	Long:  "Prints journaled change events, newest first. Unlike 'versions', the journal survives restarts.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := c.History(cmd.Context(), limit)
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	if len(entries) == 0 {
		printer.Info("journal is empty (or journaling is disabled)")
		return nil
	}

	for _, e := range entries {
		affected := strings.Join(e.Affected, ", ")
		if affected == "" {
			affected = "(metadata)"
		}
		fmt.Fprintf(os.Stdout, "%s  %-18s %-12s %s\n",
			e.OccurredAt.Local().Format(time.DateTime), e.Type, e.Author, affected)
	}
	return nil
}
