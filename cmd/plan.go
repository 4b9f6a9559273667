package cmd

import (
	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the leveled execution plan",
	Long:  "Decomposes the current spec into tasks and prints the parallel execution levels, each ordered by scheduler priority.",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	levels, err := c.ExecutionPlan()
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	printer.Plan(levels, c.Tasks())
	return nil
}
