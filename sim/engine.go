package sim

import (
	"context"
	"errors"
)

// Errors returned by engines.
var (
	ErrModuleExists  = errors.New("module already exists")
	ErrUnknownModule = errors.New("unknown module")
	ErrUnknownPort   = errors.New("unknown port")
	ErrUnknownParam  = errors.New("unknown param")
	ErrUnknownOption = errors.New("unknown option")
	ErrInvalidOption = errors.New("invalid option value")
)

// HookPosBeforeTick is a hook position that triggers before the modules are
// stepped. The hook item is the *ProcessArgs of the frame.
var HookPosBeforeTick = &HookPos{Name: "BeforeTick"}

// HookPosAfterTick is a hook position that triggers after cables have been
// propagated.
var HookPosAfterTick = &HookPos{Name: "AfterTick"}

// HookPosModuleAdded triggers when a module joins the engine.
var HookPosModuleAdded = &HookPos{Name: "ModuleAdded"}

// HookPosModuleRemoved triggers after a module has left the engine.
var HookPosModuleRemoved = &HookPos{Name: "ModuleRemoved"}

// A SimulationEndHandler is a handler that is called after the run ends.
type SimulationEndHandler interface {
	Handle(frame uint64)
}

// An Engine steps every module once per frame in a stable order.
type Engine interface {
	Hookable

	SampleRate() SampleRate
	CurrentFrame() uint64
	CurrentTime() float64

	// Tick processes exactly one frame.
	Tick()

	// Run processes frames until the count is reached or ctx is done. A
	// frames value of 0 runs until ctx is done.
	Run(ctx context.Context, frames uint64) error

	// Pause blocks the processing loop after the current frame.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	// Do runs fn between two frames, with the processing loop held off.
	Do(fn func())

	AddModule(m Module) error
	RemoveModule(name string) error
	Module(name string) (Module, bool)
	Modules() []Module
	Connect(from, to *Port) error

	// GenerateName returns an unused module name starting with prefix.
	GenerateName(prefix string) string

	RegisterSimulationEndHandler(handler SimulationEndHandler)
	Finished()
}
