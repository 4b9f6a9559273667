package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/ui"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the in-memory rollback history",
	Long: "Prints the version snapshots recorded this session, oldest first. History is\n" +
		"bounded and not persisted across restarts; use the journal for the durable trail.",
	Args: cobra.NoArgs,
	RunE: runVersions,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <index>",
	Short: "Restore a version snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollback,
}

func init() {
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(rollbackCmd)
}

func runVersions(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	printer.Versions(c.Versions())
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	index, err := strconv.Atoi(args[0])
	if err != nil {
		printer.Error("index must be an integer")
		return err
	}

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	ev, err := c.Rollback(index)
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	printer.Event(*ev)
	return nil
}
