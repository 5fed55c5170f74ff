package patch

import (
	"encoding/json"
	"fmt"

	"github.com/littleutils/cvmod/sim"
)

// Build creates the modules of p in engine and plugs its cables. Modules
// created before a failure stay in the engine.
func Build(engine sim.Engine, factory *Factory, p *Patch) error {
	for _, spec := range p.Modules {
		if err := addModule(engine, factory, spec); err != nil {
			return err
		}
	}

	for _, c := range p.Cables {
		if err := connect(engine, c); err != nil {
			return err
		}
	}

	return nil
}

func addModule(engine sim.Engine, factory *Factory, spec ModuleSpec) error {
	m, err := factory.Create(spec.Model, spec.Name)
	if err != nil {
		return fmt.Errorf("module %s: %w", spec.Name, err)
	}

	err = configure(m, spec)
	if err == nil {
		err = engine.AddModule(m)
	}

	if err != nil {
		release(m)
		return err
	}

	return nil
}

func configure(m sim.Module, spec ModuleSpec) error {
	for _, s := range spec.Params {
		p, err := sim.FindParam(m, s.Key)
		if err != nil {
			return err
		}

		p.SetValue(s.Value)
	}

	if len(spec.Options) == 0 {
		return nil
	}

	c, ok := m.(sim.Configurable)
	if !ok {
		return fmt.Errorf("%w: %s has no options",
			sim.ErrUnknownOption, spec.Name)
	}

	for _, s := range spec.Options {
		if err := c.SetOption(s.Key, s.Value); err != nil {
			return err
		}
	}

	return nil
}

// release frees what a module claimed at creation when it never joins the
// engine.
func release(m sim.Module) {
	if r, ok := m.(sim.Remover); ok {
		r.OnRemove()
	}
}

func connect(engine sim.Engine, c CableSpec) error {
	from, err := findPort(engine, c.From)
	if err != nil {
		return err
	}

	to, err := findPort(engine, c.To)
	if err != nil {
		return err
	}

	if err := engine.Connect(from, to); err != nil {
		return fmt.Errorf("cable %s -> %s: %w", c.From, c.To, err)
	}

	return nil
}

func findPort(engine sim.Engine, e Endpoint) (*sim.Port, error) {
	m, ok := engine.Module(e.Module)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sim.ErrUnknownModule, e.Module)
	}

	return sim.FindPort(m, e.Port)
}

// Duplicate adds a copy of the named module with the same params and state.
// It may be called while the engine runs.
func Duplicate(engine sim.Engine, factory *Factory, name string) (sim.Module, error) {
	src, ok := engine.Module(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sim.ErrUnknownModule, name)
	}

	var (
		params = make(map[string]float64)
		data   json.RawMessage
	)

	engine.Do(func() {
		for _, p := range src.Params() {
			params[p.Name()] = p.Value()
		}

		if persistent, ok := src.(sim.Persistent); ok {
			data = persistent.DataToJSON()
		}
	})

	dup, err := factory.Create(src.Model(), engine.GenerateName(name))
	if err != nil {
		return nil, err
	}

	for _, p := range dup.Params() {
		if v, ok := params[p.Name()]; ok {
			p.SetValue(v)
		}
	}

	if persistent, ok := dup.(sim.Persistent); ok && data != nil {
		persistent.DataFromJSON(data)
	}

	if err := engine.AddModule(dup); err != nil {
		release(dup)
		return nil, err
	}

	return dup, nil
}
