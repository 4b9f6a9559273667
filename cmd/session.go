package cmd

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/specloom/specloom/internal/controller"
	"github.com/specloom/specloom/internal/ui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start the interactive planning REPL",
	Long: "Opens the spec and keeps the plan live while you issue instructions. The\n" +
		"document watcher runs in the background, so edits from your editor show up\n" +
		"in the same session — and the rollback history stays available.",
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	printer := ui.New()

	c, err := buildController(cmd.Context())
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Follow external edits for the lifetime of the session.
	go func() { _ = c.Watch(ctx) }()

	printer.Banner()
	printer.Info("type an instruction, 'help', or 'quit'")
	printer.SpecSummary(c.Spec())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		printer.Prompt()
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if quit := sessionDispatch(ctx, c, printer, input); quit {
			return nil
		}
	}
	return nil
}

// sessionDispatch runs one REPL input. Returns true when the session
// should end.
func sessionDispatch(ctx context.Context, c *controller.Controller, printer *ui.Printer, input string) bool {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q":
		printer.Info("goodbye")
		return true
	case "help", "h", "?":
		printer.ShowHelp()
	case "show":
		printer.SpecSummary(c.Spec())
	case "plan":
		levels, err := c.ExecutionPlan()
		if err != nil {
			printer.Error(err.Error())
			break
		}
		printer.Plan(levels, c.Tasks())
	case "tasks":
		printer.Tasks(c.Tasks())
	case "ready":
		printer.Tasks(c.ReadyTasks())
	case "versions":
		printer.Versions(c.Versions())
	case "rollback":
		if len(fields) != 2 {
			printer.Error("usage: rollback <index>")
			break
		}
		index, err := strconv.Atoi(fields[1])
		if err != nil {
			printer.Error("index must be an integer")
			break
		}
		ev, err := c.Rollback(index)
		if err != nil {
			printer.Error(err.Error())
			break
		}
		printer.Event(*ev)
	case "start", "done", "fail":
		if len(fields) != 2 {
			printer.Error("usage: " + fields[0] + " <task-id>")
			break
		}
		var err error
		switch fields[0] {
		case "start":
			err = c.StartTask(fields[1])
		case "done":
			err = c.CompleteTask(fields[1])
		case "fail":
			err = c.FailTask(fields[1])
		}
		if err != nil {
			printer.Error(err.Error())
		}
	default:
		// Anything else is a spec instruction.
		ev, err := c.Tell(input, "session")
		if err != nil {
			if errors.Is(err, controller.ErrUninterpretable) {
				printer.Error("could not interpret; type 'help' for commands")
			} else {
				printer.Error(err.Error())
			}
			break
		}
		printer.Event(*ev)
		printer.RegenSummary(c.Plan())
	}
	return false
}
