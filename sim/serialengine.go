package sim

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// A SerialEngine is an Engine that steps modules one after another in the
// order they were added.
type SerialEngine struct {
	HookableBase

	sampleRate  SampleRate
	idGenerator IDGenerator

	lock    sync.Mutex
	modules []Module
	cables  []*Cable
	args    ProcessArgs
	frame   atomic.Uint64

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex
	resumed      chan struct{}

	singleRunLock sync.Mutex

	simulationEndHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine running at the given sample rate.
func NewSerialEngine(rate SampleRate) *SerialEngine {
	e := new(SerialEngine)

	e.sampleRate = rate
	e.idGenerator = NewSequentialIDGenerator()
	e.args = ProcessArgs{
		SampleRate: rate,
		SampleTime: rate.SampleTime(),
	}

	return e
}

// SampleRate returns the rate the engine runs at.
func (e *SerialEngine) SampleRate() SampleRate {
	return e.sampleRate
}

// CurrentFrame returns the number of frames processed so far.
func (e *SerialEngine) CurrentFrame() uint64 {
	return e.frame.Load()
}

// CurrentTime returns the time at which the next frame starts.
func (e *SerialEngine) CurrentTime() float64 {
	return e.sampleRate.Time(e.frame.Load())
}

// Tick processes one frame.
func (e *SerialEngine) Tick() {
	e.pauseLock.Lock()
	e.step()
	e.pauseLock.Unlock()
}

func (e *SerialEngine) step() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.args.Frame = e.frame.Load()

	if e.NumHooks() > 0 {
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosBeforeTick, Item: &e.args})
	}

	for _, m := range e.modules {
		m.Step(e.args)
	}

	for _, c := range e.cables {
		c.Transfer()
	}

	if e.NumHooks() > 0 {
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosAfterTick, Item: &e.args})
	}

	e.frame.Add(1)
}

// Run processes frames until frames have been processed or ctx is done. A
// cancelled ctx also ends a run that is held by Pause.
func (e *SerialEngine) Run(ctx context.Context, frames uint64) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for n := uint64(0); frames == 0 || n < frames; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for !e.pauseLock.TryLock() {
			if err := e.waitContinue(ctx); err != nil {
				return err
			}
		}

		e.step()
		e.pauseLock.Unlock()
	}

	return nil
}

func (e *SerialEngine) waitContinue(ctx context.Context) error {
	e.isPausedLock.Lock()
	resumed := e.resumed
	e.isPausedLock.Unlock()

	// Not paused, so a Tick from elsewhere holds the lock.
	if resumed == nil {
		runtime.Gosched()
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-resumed:
		return nil
	}
}

// Pause prevents the SerialEngine from processing more frames.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
	e.resumed = make(chan struct{})
}

// Continue allows the SerialEngine to process frames again.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
	close(e.resumed)
	e.resumed = nil
}

// IsPaused reports whether Pause is in effect.
func (e *SerialEngine) IsPaused() bool {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	return e.isPaused
}

// Do runs fn while no frame is being processed.
func (e *SerialEngine) Do(fn func()) {
	e.lock.Lock()
	defer e.lock.Unlock()

	fn()
}

// AddModule appends a module to the processing order.
func (e *SerialEngine) AddModule(m Module) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.findModule(m.Name()) >= 0 {
		return fmt.Errorf("%w: %s", ErrModuleExists, m.Name())
	}

	e.modules = append(e.modules, m)

	if e.NumHooks() > 0 {
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosModuleAdded, Item: m})
	}

	return nil
}

// RemoveModule unplugs every cable of the module, drops it from the
// processing order and calls OnRemove if the module implements Remover.
func (e *SerialEngine) RemoveModule(name string) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	idx := e.findModule(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	m := e.modules[idx]
	e.modules = append(e.modules[:idx], e.modules[idx+1:]...)
	e.unplugModule(m)

	if r, ok := m.(Remover); ok {
		r.OnRemove()
	}

	if e.NumHooks() > 0 {
		e.InvokeHook(HookCtx{Domain: e, Pos: HookPosModuleRemoved, Item: m})
	}

	return nil
}

func (e *SerialEngine) unplugModule(m Module) {
	owned := make(map[*Port]bool)
	for _, p := range m.Ports() {
		owned[p] = true
	}

	kept := e.cables[:0]
	for _, c := range e.cables {
		if owned[c.From] || owned[c.To] {
			c.unplug()
			continue
		}

		kept = append(kept, c)
	}

	for i := len(kept); i < len(e.cables); i++ {
		e.cables[i] = nil
	}

	e.cables = kept

	for _, p := range m.Ports() {
		p.connected = false
	}

	e.refreshOutputs()
}

func (e *SerialEngine) refreshOutputs() {
	for _, m := range e.modules {
		for _, p := range m.Ports() {
			if p.Direction() == Output {
				p.connected = false
			}
		}
	}

	for _, c := range e.cables {
		c.From.connected = true
	}
}

// Module finds a module by name.
func (e *SerialEngine) Module(name string) (Module, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()

	idx := e.findModule(name)
	if idx < 0 {
		return nil, false
	}

	return e.modules[idx], true
}

// Modules returns the modules in processing order.
func (e *SerialEngine) Modules() []Module {
	e.lock.Lock()
	defer e.lock.Unlock()

	out := make([]Module, len(e.modules))
	copy(out, e.modules)

	return out
}

func (e *SerialEngine) findModule(name string) int {
	for i, m := range e.modules {
		if m.Name() == name {
			return i
		}
	}

	return -1
}

// Connect plugs a cable from an output port into an input port.
func (e *SerialEngine) Connect(from, to *Port) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	c, err := NewCable(from, to)
	if err != nil {
		return err
	}

	e.cables = append(e.cables, c)

	return nil
}

// Cables returns the cables in propagation order.
func (e *SerialEngine) Cables() []*Cable {
	e.lock.Lock()
	defer e.lock.Unlock()

	out := make([]*Cable, len(e.cables))
	copy(out, e.cables)

	return out
}

// GenerateName returns prefix itself if no module uses it, otherwise prefix
// followed by a generated ID.
func (e *SerialEngine) GenerateName(prefix string) string {
	e.lock.Lock()
	defer e.lock.Unlock()

	name := prefix
	for e.findModule(name) >= 0 {
		name = prefix + "_" + e.idGenerator.Generate()
	}

	return name
}

// RegisterSimulationEndHandler registers a handler that is called when the
// run finishes.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished calls all the registered SimulationEndHandler.
func (e *SerialEngine) Finished() {
	frame := e.frame.Load()
	for _, h := range e.simulationEndHandlers {
		h.Handle(frame)
	}
}

var _ Engine = (*SerialEngine)(nil)
