// Package midigate turns the notes of a standard MIDI file into a gate and a
// trigger signal.
package midigate

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/littleutils/cvmod/dsp/pulse"
	"github.com/littleutils/cvmod/sim"
)

// Model is the model name of the module.
const Model = "MidiGate"

// Port and option names.
const (
	OutputGate    = "gate"
	OutputTrigger = "trigger"
	OptionFile    = "file"
)

// High is the voltage of an active output.
const High = 10.0

// TriggerDuration is the length of a trigger pulse in seconds.
const TriggerDuration = 1e-3

type noteEvent struct {
	at      float64
	start   bool
	channel uint8
	key     uint8
}

type state struct {
	File string `json:"file"`
}

// A Module plays a MIDI file once. The gate is high while any note is held
// and every note start emits a trigger pulse.
type Module struct {
	*sim.ModuleBase

	gate    *sim.Port
	trigger *sim.Port

	file   string
	events []noteEvent
	next   int
	time   float64
	held   [16][128]bool
	nHeld  int
	pulse  *pulse.Generator
	logger *slog.Logger
}

// New creates a module with no notes.
func New(name string, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Module{
		ModuleBase: sim.NewModuleBase(name, Model),
		pulse:      pulse.NewGenerator(),
		logger:     logger,
	}

	m.gate = m.AddOutput(OutputGate)
	m.trigger = m.AddOutput(OutputTrigger)

	return m
}

// LoadFile reads the notes of a MIDI file and rewinds.
func (m *Module) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := m.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	m.file = path

	return nil
}

// Load reads the notes of all tracks of a MIDI file and rewinds.
func (m *Module) Load(r io.Reader) error {
	var events []noteEvent

	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		var ch, key, vel uint8

		msg := midi.Message(te.Message)
		at := float64(te.AbsMicroSeconds) / 1e6

		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			events = append(events, noteEvent{at: at, start: true, channel: ch, key: key})
		case msg.GetNoteEnd(&ch, &key):
			events = append(events, noteEvent{at: at, channel: ch, key: key})
		}
	}).Error()
	if err != nil {
		return err
	}

	// Ends sort before starts at the same instant so that a repeated note
	// is held again.
	slices.SortStableFunc(events, func(a, b noteEvent) int {
		switch {
		case a.at < b.at:
			return -1
		case a.at > b.at:
			return 1
		case !a.start && b.start:
			return -1
		case a.start && !b.start:
			return 1
		}

		return 0
	})

	m.events = events
	m.Rewind()

	m.logger.Debug("midi notes loaded", "module", m.Name(), "events", len(events))

	return nil
}

// Rewind restarts playback from the beginning with no notes held.
func (m *Module) Rewind() {
	m.next = 0
	m.time = 0
	m.held = [16][128]bool{}
	m.nHeld = 0
	m.pulse.Reset()
}

// Done reports whether every note event has been played.
func (m *Module) Done() bool {
	return m.next >= len(m.events)
}

// Step processes one frame.
func (m *Module) Step(args sim.ProcessArgs) {
	for m.next < len(m.events) && m.events[m.next].at <= m.time {
		m.apply(m.events[m.next])
		m.next++
	}

	m.time += args.SampleTime

	triggerHigh := m.pulse.Active()
	m.pulse.Advance(args.SampleTime)

	m.gate.SetChannels(1)
	m.trigger.SetChannels(1)
	m.gate.SetVoltage(level(m.nHeld > 0), 0)
	m.trigger.SetVoltage(level(triggerHigh), 0)
}

func (m *Module) apply(e noteEvent) {
	held := &m.held[e.channel&0x0f][e.key&0x7f]

	if e.start {
		if !*held {
			*held = true
			m.nHeld++
		}

		m.pulse.Trigger(TriggerDuration)

		return
	}

	if *held {
		*held = false
		m.nHeld--
	}
}

func level(high bool) float32 {
	if high {
		return High
	}

	return 0
}

// SetOption implements sim.Configurable.
func (m *Module) SetOption(key, value string) error {
	if key != OptionFile {
		return fmt.Errorf("%w: %s on %s", sim.ErrUnknownOption, key, m.Name())
	}

	return m.LoadFile(value)
}

// DataToJSON implements sim.Persistent.
func (m *Module) DataToJSON() json.RawMessage {
	data, err := json.Marshal(state{File: m.file})
	if err != nil {
		panic(err)
	}

	return data
}

// DataFromJSON reloads the persisted file. A file that cannot be read leaves
// the module silent.
func (m *Module) DataFromJSON(data json.RawMessage) {
	var s state
	if err := json.Unmarshal(data, &s); err != nil || s.File == "" {
		return
	}

	if err := m.LoadFile(s.File); err != nil {
		m.logger.Warn("cannot reload midi file",
			"module", m.Name(), "file", s.File, "error", err)
	}
}
