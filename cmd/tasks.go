package cmd

import (
	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/ui"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks and their statuses",
	Args:  cobra.NoArgs,
	RunE:  runTasks,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current spec",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	tasksCmd.Flags().Bool("ready", false, "only tasks whose dependencies are satisfied")
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(showCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	if ready, _ := cmd.Flags().GetBool("ready"); ready {
		printer.Tasks(c.ReadyTasks())
		return nil
	}
	printer.Tasks(c.Tasks())
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	printer.SpecSummary(c.Spec())
	return nil
}
