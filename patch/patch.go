// Package patch loads patch files that describe modules, their settings and
// the cables between them.
//
// A patch file is HCL:
//
//	sample_rate = 48000
//
//	module "Clock" "clk" {
//	  rate = 4
//	}
//
//	module "Miniramp" "ramp" {
//	  duration      = 3.2
//	  finished_mode = "high"
//	}
//
//	cable {
//	  from = "clk.out"
//	  to   = "ramp.trigger"
//	}
//
// Number and bool attributes of a module block set params. String attributes
// set options.
package patch

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/littleutils/cvmod/sim"
)

// ErrBadEndpoint is returned for cable ends that are not "module.port".
var ErrBadEndpoint = errors.New("cable endpoint must be module.port")

// A Patch is the content of a patch file.
type Patch struct {
	// SampleRate is zero if the file does not set it.
	SampleRate sim.SampleRate
	Modules    []ModuleSpec
	Cables     []CableSpec
}

// ModuleSpec describes one module.
type ModuleSpec struct {
	Model   string
	Name    string
	Params  []Setting[float64]
	Options []Setting[string]
}

// A Setting is a named value in source order.
type Setting[T any] struct {
	Key   string
	Value T
}

// An Endpoint names a port of a module.
type Endpoint struct {
	Module string
	Port   string
}

func (e Endpoint) String() string {
	return e.Module + "." + e.Port
}

// ParseEndpoint splits "module.port".
func ParseEndpoint(s string) (Endpoint, error) {
	mod, port, found := strings.Cut(s, ".")
	if !found || mod == "" || port == "" {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrBadEndpoint, s)
	}

	return Endpoint{Module: mod, Port: port}, nil
}

// CableSpec connects an output to an input.
type CableSpec struct {
	From Endpoint
	To   Endpoint
}

type hclPatchFile struct {
	SampleRate *float64     `hcl:"sample_rate,optional"`
	Modules    []*hclModule `hcl:"module,block"`
	Cables     []*hclCable  `hcl:"cable,block"`
}

type hclModule struct {
	Model string   `hcl:"model,label"`
	Name  string   `hcl:"name,label"`
	Body  hcl.Body `hcl:",remain"`
}

type hclCable struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// LoadFile parses the patch file at path.
func LoadFile(path string) (*Patch, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse patch file %s: %w", path, diags)
	}

	return decode(file, path)
}

// Parse parses patch source. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Patch, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse patch file %s: %w", filename, diags)
	}

	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Patch, error) {
	var parsed hclPatchFile

	diags := gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode patch file %s: %w", filename, diags)
	}

	p := &Patch{}

	if parsed.SampleRate != nil {
		p.SampleRate = sim.SampleRate(*parsed.SampleRate)
		if p.SampleRate <= 0 {
			return nil, fmt.Errorf("%s: sample_rate must be positive", filename)
		}
	}

	seen := make(map[string]bool)

	for _, m := range parsed.Modules {
		if seen[m.Name] {
			return nil, fmt.Errorf("%s: %w: %s", filename, sim.ErrModuleExists, m.Name)
		}
		seen[m.Name] = true

		spec, err := decodeModule(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}

		p.Modules = append(p.Modules, spec)
	}

	for _, c := range parsed.Cables {
		from, err := ParseEndpoint(c.From)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}

		to, err := ParseEndpoint(c.To)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}

		p.Cables = append(p.Cables, CableSpec{From: from, To: to})
	}

	return p, nil
}

func decodeModule(m *hclModule) (ModuleSpec, error) {
	spec := ModuleSpec{Model: m.Model, Name: m.Name}

	attrs, diags := m.Body.JustAttributes()
	if diags.HasErrors() {
		return spec, fmt.Errorf("module %s: %w", m.Name, diags)
	}

	for _, attr := range sortedAttributes(attrs) {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return spec, fmt.Errorf("module %s: %w", m.Name, diags)
		}

		switch ty := val.Type(); {
		case ty.Equals(cty.Number):
			var f float64
			if err := gocty.FromCtyValue(val, &f); err != nil {
				return spec, fmt.Errorf("module %s: %s: %w", m.Name, attr.Name, err)
			}

			spec.Params = append(spec.Params, Setting[float64]{attr.Name, f})
		case ty.Equals(cty.Bool) && val.IsKnown() && !val.IsNull():
			f := 0.0
			if val.True() {
				f = 1
			}

			spec.Params = append(spec.Params, Setting[float64]{attr.Name, f})
		case ty.Equals(cty.String):
			var s string
			if err := gocty.FromCtyValue(val, &s); err != nil {
				return spec, fmt.Errorf("module %s: %s: %w", m.Name, attr.Name, err)
			}

			spec.Options = append(spec.Options, Setting[string]{attr.Name, s})
		default:
			return spec, fmt.Errorf("module %s: %s: unsupported type %s",
				m.Name, attr.Name, ty.FriendlyName())
		}
	}

	return spec, nil
}

// sortedAttributes returns attributes in source order.
func sortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}

	slices.SortFunc(out, func(a, b *hcl.Attribute) int {
		return a.Range.Start.Byte - b.Range.Start.Byte
	})

	return out
}
