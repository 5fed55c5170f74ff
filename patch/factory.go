package patch

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/littleutils/cvmod/modules/clock"
	"github.com/littleutils/cvmod/modules/constant"
	"github.com/littleutils/cvmod/modules/midigate"
	"github.com/littleutils/cvmod/modules/miniramp"
	"github.com/littleutils/cvmod/modules/teleport"
	"github.com/littleutils/cvmod/sim"
)

// ErrUnknownModel is returned when a patch names a model that does not exist.
var ErrUnknownModel = errors.New("unknown module model")

// A Factory creates modules by model name. Teleport modules built by the same
// factory share its registry.
type Factory struct {
	registry teleport.Registry
	logger   *slog.Logger
}

// NewFactory creates a factory. The registry may be shared with other
// factories.
func NewFactory(registry teleport.Registry, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}

	return &Factory{registry: registry, logger: logger}
}

// Models lists the models the factory can create.
func (f *Factory) Models() []string {
	models := []string{
		clock.Model,
		constant.Model,
		midigate.Model,
		miniramp.Model,
		teleport.InModel,
		teleport.OutModel,
	}
	slices.Sort(models)

	return models
}

// Create builds a module.
func (f *Factory) Create(model, name string) (sim.Module, error) {
	switch model {
	case miniramp.Model:
		return miniramp.MakeBuilder().WithLogger(f.logger).Build(name), nil
	case teleport.InModel:
		return f.teleportBuilder().BuildIn(name)
	case teleport.OutModel:
		return f.teleportBuilder().BuildOut(name), nil
	case clock.Model:
		return clock.New(name), nil
	case constant.Model:
		return constant.New(name), nil
	case midigate.Model:
		return midigate.New(name, f.logger), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
}

func (f *Factory) teleportBuilder() teleport.Builder {
	return teleport.MakeBuilder().
		WithRegistry(f.registry).
		WithLogger(f.logger)
}
