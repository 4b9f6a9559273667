package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/controller"
	"github.com/specloom/specloom/internal/ui"
)

var tellCmd = &cobra.Command{
	Use:   "tell <instruction>",
	Short: "Change the spec with a natural-language instruction",
	Long: "Interprets an instruction like \"add authentication feature\" or \"make search\n" +
		"critical\" and applies the resulting spec change. The task plan regenerates\n" +
		"before the command returns.",
	Args: cobra.MinimumNArgs(1),
	RunE: runTell,
}

func init() {
	tellCmd.Flags().String("author", "cli", "author recorded in the change event")
	rootCmd.AddCommand(tellCmd)
}

func runTell(cmd *cobra.Command, args []string) error {
	printer := ui.New()
	text := strings.Join(args, " ")
	author, _ := cmd.Flags().GetString("author")

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	ev, err := c.Tell(text, author)
	if err != nil {
		if errors.Is(err, controller.ErrUninterpretable) {
			printer.Error("could not interpret instruction; try \"add <name> feature\", \"remove <name>\", or \"make <name> <priority>\"")
		} else {
			printer.Error(err.Error())
		}
		return err
	}

	printer.Event(*ev)
	printer.RegenSummary(c.Plan())
	return nil
}
