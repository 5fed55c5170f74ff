// Package registry implements the process-wide directory that lets teleport
// producers and consumers exchange a voltage by label instead of a cable.
//
// A host creates one Registry when it starts, injects it into every producer
// and consumer it builds, and calls Close when the patch is torn down. All
// methods are safe for concurrent use; every critical section is a single map
// operation so that the processing path never waits long.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Errors returned by the registry.
var (
	ErrLabelExists         = errors.New("label already exists")
	ErrLabelNotFound       = errors.New("label not found")
	ErrLabelSpaceExhausted = errors.New("no unused label available")
)

// An Entry is a live label and the last value written under it.
type Entry struct {
	Label string  `json:"label"`
	Value float32 `json:"value"`
}

// Registry maps unique labels to the last written value.
type Registry struct {
	lock       sync.Mutex
	values     map[string]float32
	order      []string
	mostRecent string

	generator Generator
	logger    *slog.Logger
}

// New creates a registry with the default random label generator.
func New() *Registry {
	return MakeBuilder().Build()
}

// GenerateUniqueLabel returns a label that is not live at the time of the
// call. The label is not reserved; use InsertUnique to generate and insert
// atomically.
func (r *Registry) GenerateUniqueLabel() (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.generateUniqueLabel()
}

// generateUniqueLabel tries MaxAttemptsPerLength labels of each length from
// LabelLength to MaxLabelLength.
func (r *Registry) generateUniqueLabel() (string, error) {
	for length := LabelLength; length <= MaxLabelLength; length++ {
		for attempt := 0; attempt < MaxAttemptsPerLength; attempt++ {
			label := r.generator.Generate(length)
			if _, exists := r.values[label]; !exists && label != "" {
				return label, nil
			}

			r.logger.Debug("label collision, regenerating",
				"label", label, "attempt", attempt+1)
		}

		r.logger.Warn("label retries exhausted, widening labels",
			"length", length, "attempts", MaxAttemptsPerLength)
	}

	return "", ErrLabelSpaceExhausted
}

// Insert adds label with an initial value and makes it the most recently
// inserted label.
func (r *Registry) Insert(label string, value float32) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.insert(label, value)
}

func (r *Registry) insert(label string, value float32) error {
	if _, exists := r.values[label]; exists {
		return fmt.Errorf("%w: %q", ErrLabelExists, label)
	}

	r.values[label] = value
	r.order = append(r.order, label)
	r.mostRecent = label

	return nil
}

// InsertUnique generates a label that is not live and inserts it in one
// step.
func (r *Registry) InsertUnique(value float32) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	label, err := r.generateUniqueLabel()
	if err != nil {
		return "", err
	}

	if err := r.insert(label, value); err != nil {
		return "", err
	}

	return label, nil
}

// Remove deletes label. The most recent hint is left untouched. It reports
// whether the label was live.
func (r *Registry) Remove(label string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, exists := r.values[label]; !exists {
		return false
	}

	delete(r.values, label)

	if idx := slices.Index(r.order, label); idx >= 0 {
		r.order = slices.Delete(r.order, idx, idx+1)
	}

	return true
}

// Write updates the value of a live label.
func (r *Registry) Write(label string, value float32) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, exists := r.values[label]; !exists {
		return ErrLabelNotFound
	}

	r.values[label] = value

	return nil
}

// Read returns the value of label and whether it is live.
func (r *Registry) Read(label string) (float32, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	v, ok := r.values[label]

	return v, ok
}

// Has reports whether label is live.
func (r *Registry) Has(label string) bool {
	_, ok := r.Read(label)
	return ok
}

// Len returns the number of live labels.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.values)
}

// Entries returns every live label with its value in lexical order.
func (r *Registry) Entries() []Entry {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries := make([]Entry, 0, len(r.values))
	for label, v := range r.values {
		entries = append(entries, Entry{Label: label, Value: v})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.Label < b.Label:
			return -1
		case a.Label > b.Label:
			return 1
		}

		return 0
	})

	return entries
}

// Labels returns the live labels in lexical order.
func (r *Registry) Labels() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.sortedLabels()
}

func (r *Registry) sortedLabels() []string {
	labels := make([]string, 0, len(r.values))
	for label := range r.values {
		labels = append(labels, label)
	}

	slices.Sort(labels)

	return labels
}

// InsertionOrder returns the live labels in the order they were inserted.
func (r *Registry) InsertionOrder() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return slices.Clone(r.order)
}

// MostRecent returns the label inserted last. The label may no longer be
// live.
func (r *Registry) MostRecent() string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.mostRecent
}

// DefaultLabel picks the label a new consumer binds to: the most recently
// inserted label if it is still live, otherwise the lexically first live
// label, otherwise "".
func (r *Registry) DefaultLabel() string {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, live := r.values[r.mostRecent]; live {
		return r.mostRecent
	}

	if len(r.values) == 0 {
		return ""
	}

	return r.sortedLabels()[0]
}

// Close drops every entry and the most recent hint.
func (r *Registry) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	clear(r.values)
	r.order = nil
	r.mostRecent = ""
}
