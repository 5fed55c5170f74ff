// Package tracing records what happens inside a running patch into a
// DataRecorder.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/littleutils/cvmod/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
	Hooks() []sim.Hook
}

// CollectTrace lets the tracer collect events from a domain. Registering the
// same tracer twice panics.
func CollectTrace(domain NamedHookable, tracer sim.Hook) {
	for _, hook := range domain.Hooks() {
		if hook == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(tracer)
}
