package cmd

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/littleutils/cvmod/tui"
)

var errNotATerminal = errors.New("labels needs an interactive terminal")

var labelsCmd = &cobra.Command{
	Use:   "labels <patch.hcl>",
	Short: "Pick the labels of teleport outputs while the patch runs.",
	Args:  cobra.ExactArgs(1),
	RunE:  pickLabels,
}

func init() {
	rootCmd.AddCommand(labelsCmd)

	flags := labelsCmd.Flags()
	flags.Float64("sample-rate", 0, "Override the sample rate of the patch")
	flags.String("state", "", "Restore a state file before running")
	flags.String("save", "", "Save the state to this file on exit")
}

func pickLabels(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) ||
		!term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotATerminal
	}

	s, err := buildSimulation(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Terminate()

	if err := restoreState(cmd, s); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, 0)
	}()

	outs := s.TeleportOuts()
	consumers := make([]tui.Consumer, 0, len(outs))
	for _, o := range outs {
		consumers = append(consumers, o)
	}

	uiErr := tui.Run(consumers, tea.WithAltScreen())

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if uiErr != nil {
		return uiErr
	}

	return saveState(cmd, s)
}
