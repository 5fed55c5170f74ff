package sim

import (
	"encoding/json"
	"fmt"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Module is a processing unit that the engine steps once per frame.
type Module interface {
	Named
	Hookable

	// Model names the kind of module, e.g. "Miniramp".
	Model() string

	// Step processes one frame. It must not block.
	Step(args ProcessArgs)

	Ports() []*Port
	Params() []*Param
}

// Persistent modules carry state beyond their params.
type Persistent interface {
	// DataToJSON returns the module state.
	DataToJSON() json.RawMessage

	// DataFromJSON restores state written by DataToJSON. Malformed data is
	// recovered from inside the module and never reported.
	DataFromJSON(data json.RawMessage)
}

// Remover modules release resources when the engine drops them.
type Remover interface {
	OnRemove()
}

// Configurable modules accept string options from patch files and
// interaction layers.
type Configurable interface {
	SetOption(key, value string) error
}

// ModuleBase provides some functions that other modules can use.
type ModuleBase struct {
	HookableBase

	name   string
	model  string
	ports  []*Port
	params []*Param
}

// NewModuleBase creates a new ModuleBase.
func NewModuleBase(name, model string) *ModuleBase {
	b := new(ModuleBase)
	b.name = name
	b.model = model

	return b
}

// Name returns the name of the module.
func (b *ModuleBase) Name() string {
	return b.name
}

// Model returns the model of the module.
func (b *ModuleBase) Model() string {
	return b.model
}

// Ports returns inputs and outputs in creation order.
func (b *ModuleBase) Ports() []*Port {
	return b.ports
}

// Params returns the params in creation order.
func (b *ModuleBase) Params() []*Param {
	return b.params
}

// AddInput creates an input port.
func (b *ModuleBase) AddInput(name string) *Port {
	return b.addPort(name, Input)
}

// AddOutput creates an output port.
func (b *ModuleBase) AddOutput(name string) *Port {
	return b.addPort(name, Output)
}

func (b *ModuleBase) addPort(name string, direction PortDirection) *Port {
	if _, found := b.Port(name); found {
		panic(fmt.Sprintf("port %s already exists on %s", name, b.name))
	}

	p := NewPort(b.name, name, direction)
	b.ports = append(b.ports, p)

	return p
}

// AddParam registers a param.
func (b *ModuleBase) AddParam(name string, min, max, defaultValue float64) *Param {
	if _, found := b.Param(name); found {
		panic(fmt.Sprintf("param %s already exists on %s", name, b.name))
	}

	p := NewParam(name, min, max, defaultValue)
	b.params = append(b.params, p)

	return p
}

// Port finds a port by name.
func (b *ModuleBase) Port(name string) (*Port, bool) {
	for _, p := range b.ports {
		if p.Name() == name {
			return p, true
		}
	}

	return nil, false
}

// Param finds a param by name.
func (b *ModuleBase) Param(name string) (*Param, bool) {
	for _, p := range b.params {
		if p.Name() == name {
			return p, true
		}
	}

	return nil, false
}

// FindPort looks up a port of any module.
func FindPort(m Module, name string) (*Port, error) {
	for _, p := range m.Ports() {
		if p.Name() == name {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownPort, m.Name(), name)
}

// FindParam looks up a param of any module.
func FindParam(m Module, name string) (*Param, error) {
	for _, p := range m.Params() {
		if p.Name() == name {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownParam, m.Name(), name)
}
