package tracing

import (
	"log/slog"

	"github.com/littleutils/cvmod/datarecording"
	"github.com/littleutils/cvmod/modules/miniramp"
	"github.com/littleutils/cvmod/modules/teleport"
	"github.com/littleutils/cvmod/sim"
)

// Table names used by the EventTracer.
const (
	RampEventTable     = "ramp_events"
	TeleportEventTable = "teleport_events"
)

// RampEventEntry is one row of the ramp event table.
type RampEventEntry struct {
	Module   string
	Kind     string
	Channel  int
	Frame    uint64
	Time     float64
	Duration float64
}

// TeleportEventEntry is one row of the teleport event table.
type TeleportEventEntry struct {
	Module string
	Kind   string
	Label  string
	Frame  uint64
	Time   float64
}

// An EventTracer stores ramp and teleport events. Registered on an engine it
// also starts tracing every module added later.
type EventTracer struct {
	backend    datarecording.DataRecorder
	sampleRate sim.SampleRate
	logger     *slog.Logger
}

// NewEventTracer creates the event tables in backend.
func NewEventTracer(
	backend datarecording.DataRecorder,
	sampleRate sim.SampleRate,
	logger *slog.Logger,
) *EventTracer {
	if logger == nil {
		logger = slog.Default()
	}

	backend.CreateTable(RampEventTable, RampEventEntry{})
	backend.CreateTable(TeleportEventTable, TeleportEventEntry{})

	return &EventTracer{
		backend:    backend,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// Attach traces every module of the engine that raises events, and the
// modules added after the call.
func (t *EventTracer) Attach(engine sim.Engine) {
	for _, m := range engine.Modules() {
		t.attachModule(m)
	}

	engine.AcceptHook(t)
}

func (t *EventTracer) attachModule(m sim.Module) {
	switch m.Model() {
	case miniramp.Model, teleport.OutModel:
	default:
		return
	}

	domain, ok := m.(NamedHookable)
	if !ok {
		return
	}

	CollectTrace(domain, t)
	t.logger.Debug("tracing module", "module", m.Name())
}

// Func records the event raised by a hook.
func (t *EventTracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosModuleAdded:
		t.attachModule(ctx.Item.(sim.Module))
	case miniramp.HookPosRampStart, miniramp.HookPosRampEnd, miniramp.HookPosEOC:
		t.recordRampEvent(ctx)
	case teleport.HookPosDisconnected:
		t.recordTeleportEvent(ctx)
	}
}

func (t *EventTracer) recordRampEvent(ctx sim.HookCtx) {
	ev := ctx.Item.(miniramp.Event)

	t.backend.InsertData(RampEventTable, RampEventEntry{
		Module:   ctx.Domain.(sim.Named).Name(),
		Kind:     ctx.Pos.Name,
		Channel:  ev.Channel,
		Frame:    ev.Frame,
		Time:     t.sampleRate.Time(ev.Frame),
		Duration: ev.Duration,
	})
}

func (t *EventTracer) recordTeleportEvent(ctx sim.HookCtx) {
	frame, _ := ctx.Detail.(uint64)

	t.backend.InsertData(TeleportEventTable, TeleportEventEntry{
		Module: ctx.Domain.(sim.Named).Name(),
		Kind:   ctx.Pos.Name,
		Label:  ctx.Item.(string),
		Frame:  frame,
		Time:   t.sampleRate.Time(frame),
	})
}
