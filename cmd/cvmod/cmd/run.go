package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/littleutils/cvmod/patch"
	"github.com/littleutils/cvmod/sim"
	"github.com/littleutils/cvmod/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run <patch.hcl>",
	Short: "Run a patch.",
	Long: "`run` processes a patch for a number of frames or seconds, or " +
		"until interrupted when neither is given.",
	Args: cobra.ExactArgs(1),
	RunE: runPatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Uint64("frames", 0, "Number of frames to process")
	flags.Float64("seconds", 0, "Number of seconds to process")
	flags.Float64("sample-rate", 0, "Override the sample rate of the patch")
	flags.String("state", "", "Restore a state file before running")
	flags.String("save", "", "Save the state to this file after running")
	flags.String("record", "", "Record events to <record>.sqlite3")
	flags.StringSlice("sample-port", nil,
		"Record the voltages of a port (module.port), needs --record")
	flags.Uint64("sample-interval", 1, "Frames between two port samples")
	flags.Bool("monitor", false, "Serve the monitoring API")
	flags.Int("monitor-port", 0, "Port of the monitoring server")
	flags.Bool("open", false, "Open the monitor in a browser")
}

func runPatch(cmd *cobra.Command, args []string) error {
	s, err := buildSimulation(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Terminate()

	if err := restoreState(cmd, s); err != nil {
		return err
	}

	if open, _ := cmd.Flags().GetBool("open"); open {
		if s.MonitorURL() == "" {
			return errors.New("--open needs --monitor")
		}

		if err := browser.OpenURL(s.MonitorURL()); err != nil {
			logger.Warn("failed to open browser", "err", err)
		}
	}

	frames, err := framesToRun(cmd, s.GetEngine().SampleRate())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = s.Run(ctx, frames)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if path := s.OutputPath(); path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Recorded to %s\n", path)
	}

	return saveState(cmd, s)
}

func buildSimulation(cmd *cobra.Command, path string) (*simulation.Simulation, error) {
	p, err := patch.LoadFile(path)
	if err != nil {
		return nil, err
	}

	logger.Info("patch loaded",
		"path", path, "modules", len(p.Modules), "cables", len(p.Cables))

	b := simulation.MakeBuilder().WithPatch(p).WithLogger(logger)

	flags := cmd.Flags()

	if rate, _ := flags.GetFloat64("sample-rate"); rate > 0 {
		b = b.WithSampleRate(sim.SampleRate(rate))
	}

	if record, _ := flags.GetString("record"); record != "" {
		b = b.WithRecording().WithOutputFileName(record)

		ports, _ := flags.GetStringSlice("sample-port")
		if len(ports) > 0 {
			interval, _ := flags.GetUint64("sample-interval")
			b = b.WithPortSampling(interval, ports...)
		}
	} else if ports, _ := flags.GetStringSlice("sample-port"); len(ports) > 0 {
		return nil, errors.New("--sample-port needs --record")
	}

	if monitor, _ := flags.GetBool("monitor"); monitor {
		b = b.WithMonitoring()

		port, _ := flags.GetInt("monitor-port")
		b = b.WithMonitorPort(port)
	}

	return b.Build()
}

func framesToRun(cmd *cobra.Command, rate sim.SampleRate) (uint64, error) {
	frames, _ := cmd.Flags().GetUint64("frames")
	seconds, _ := cmd.Flags().GetFloat64("seconds")

	switch {
	case frames > 0 && seconds > 0:
		return 0, errors.New("--frames and --seconds are exclusive")
	case seconds < 0:
		return 0, fmt.Errorf("invalid --seconds %v", seconds)
	case seconds > 0:
		return rate.Frames(seconds), nil
	default:
		return frames, nil
	}
}

func restoreState(cmd *cobra.Command, s *simulation.Simulation) error {
	path, _ := cmd.Flags().GetString("state")
	if path == "" {
		return nil
	}

	return s.LoadState(path)
}

func saveState(cmd *cobra.Command, s *simulation.Simulation) error {
	path, _ := cmd.Flags().GetString("save")
	if path == "" {
		return nil
	}

	return s.SaveState(path)
}
