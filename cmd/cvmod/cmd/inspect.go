package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/littleutils/cvmod/datarecording"
	"github.com/littleutils/cvmod/simulation"
	"github.com/littleutils/cvmod/tracing"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

var inspectCmd = &cobra.Command{
	Use:   "inspect [patch.hcl]",
	Short: "Print the modules, ports and labels of a patch, or the events of a recording.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  inspectPatch,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("state", "", "Restore a state file first")
	inspectCmd.Flags().String("recording", "",
		"Print the events of a recording written by run --record")
	inspectCmd.Flags().Int("limit", 20,
		"Rows to print per recorded table, 0 for all")
}

func inspectPatch(cmd *cobra.Command, args []string) error {
	recording, _ := cmd.Flags().GetString("recording")
	if len(args) == 0 && recording == "" {
		return errors.New("inspect needs a patch or --recording")
	}

	w := cmd.OutOrStdout()

	if len(args) == 1 {
		s, err := buildSimulation(cmd, args[0])
		if err != nil {
			return err
		}
		defer s.Terminate()

		if err := restoreState(cmd, s); err != nil {
			return err
		}

		printModules(w, s)
		printLabels(w, s)
	}

	if recording == "" {
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")

	return printRecording(cmd.Context(), w, recording, limit)
}

type recordedTable struct {
	name    string
	entry   any
	headers []string
	row     func(any) []string
}

var recordedTables = []recordedTable{
	{
		name:    tracing.RampEventTable,
		entry:   tracing.RampEventEntry{},
		headers: []string{"FRAME", "TIME", "MODULE", "EVENT", "CHANNEL", "DURATION"},
		row: func(e any) []string {
			ev := e.(*tracing.RampEventEntry)
			return []string{
				strconv.FormatUint(ev.Frame, 10), formatFloat(ev.Time),
				ev.Module, ev.Kind, strconv.Itoa(ev.Channel),
				formatFloat(ev.Duration),
			}
		},
	},
	{
		name:    tracing.TeleportEventTable,
		entry:   tracing.TeleportEventEntry{},
		headers: []string{"FRAME", "TIME", "MODULE", "EVENT", "LABEL"},
		row: func(e any) []string {
			ev := e.(*tracing.TeleportEventEntry)
			return []string{
				strconv.FormatUint(ev.Frame, 10), formatFloat(ev.Time),
				ev.Module, ev.Kind, ev.Label,
			}
		},
	},
	{
		name:    tracing.PortSampleTable,
		entry:   tracing.PortSampleEntry{},
		headers: []string{"FRAME", "TIME", "PORT", "CHANNEL", "VOLTAGE"},
		row: func(e any) []string {
			s := e.(*tracing.PortSampleEntry)
			return []string{
				strconv.FormatUint(s.Frame, 10), formatFloat(s.Time),
				s.Port, strconv.Itoa(s.Channel), formatFloat(s.Voltage),
			}
		},
	},
}

// printRecording prints the first limit rows of every known table present in
// the recording, ordered by frame.
func printRecording(
	ctx context.Context,
	w io.Writer,
	file string,
	limit int,
) error {
	reader, err := datarecording.NewReader(file)
	if err != nil {
		return err
	}
	defer reader.Close()

	present, err := reader.Tables(ctx)
	if err != nil {
		return err
	}

	for _, rt := range recordedTables {
		if !slices.Contains(present, rt.name) {
			continue
		}

		reader.MapTable(rt.name, rt.entry)

		rows, total, err := reader.Query(ctx, rt.name,
			datarecording.QueryParams{OrderBy: "Frame", Limit: limit})
		if err != nil {
			return fmt.Errorf("query %s: %w", rt.name, err)
		}

		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf(
			"%s (%d of %d)", rt.name, len(rows), total)))

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(rt.headers...)
		for _, r := range rows {
			t.Row(rt.row(r)...)
		}

		fmt.Fprintln(w, t.Render())
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func printModules(w io.Writer, s *simulation.Simulation) {
	engine := s.GetEngine()

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf(
		"Modules (sample rate %g)", float64(engine.SampleRate()))))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MODULE", "MODEL", "PORTS", "PARAMS")

	for _, m := range engine.Modules() {
		ports := make([]string, 0, len(m.Ports()))
		for _, p := range m.Ports() {
			ports = append(ports, p.Direction().String()+":"+p.Name())
		}

		params := make([]string, 0, len(m.Params()))
		for _, p := range m.Params() {
			params = append(params,
				p.Name()+"="+strconv.FormatFloat(p.Value(), 'g', -1, 64))
		}

		t.Row(m.Name(), m.Model(),
			strings.Join(ports, " "), strings.Join(params, " "))
	}

	fmt.Fprintln(w, t.Render())
}

func printLabels(w io.Writer, s *simulation.Simulation) {
	fmt.Fprintln(w, titleStyle.Render("Labels"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LABEL", "VALUE", "CONSUMERS")

	consumers := make(map[string][]string)
	for _, out := range s.TeleportOuts() {
		consumers[out.Label()] = append(consumers[out.Label()], out.Name())
	}

	for _, e := range s.GetRegistry().Entries() {
		t.Row(e.Label,
			strconv.FormatFloat(float64(e.Value), 'g', -1, 32),
			strings.Join(consumers[e.Label], " "))
	}

	fmt.Fprintln(w, t.Render())
}
