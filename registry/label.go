package registry

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Label shape.
const (
	Alphabet             = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	LabelLength          = 4
	MaxLabelLength       = 8
	MaxAttemptsPerLength = 1000
)

// A Generator produces candidate labels of a given length. Candidates may
// collide; the registry checks them.
type Generator interface {
	Generate(length int) string
}

// IsValidLabel reports whether s looks like a label a generator could have
// produced.
func IsValidLabel(s string) bool {
	if len(s) < LabelLength || len(s) > MaxLabelLength {
		return false
	}

	for _, c := range s {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}

	return true
}

// RandomGenerator draws labels uniformly from Alphabet.
type RandomGenerator struct {
	lock sync.Mutex
	rng  *rand.Rand
}

// NewRandomGenerator returns a generator seeded from the runtime.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// NewSeededGenerator returns a reproducible generator.
func NewSeededGenerator(seed uint64) *RandomGenerator {
	return &RandomGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns a random label.
func (g *RandomGenerator) Generate(length int) string {
	g.lock.Lock()
	defer g.lock.Unlock()

	var b strings.Builder
	b.Grow(length)

	for i := 0; i < length; i++ {
		var n int
		if g.rng != nil {
			n = g.rng.IntN(len(Alphabet))
		} else {
			n = rand.IntN(len(Alphabet))
		}

		b.WriteByte(Alphabet[n])
	}

	return b.String()
}

// SequenceGenerator counts through the label space: AAAA, AAAB, ... It
// never repeats a label of the same length.
type SequenceGenerator struct {
	lock sync.Mutex
	next uint64
}

// NewSequenceGenerator returns a generator starting at AAAA.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Generate returns the next label in sequence.
func (g *SequenceGenerator) Generate(length int) string {
	g.lock.Lock()
	n := g.next
	g.next++
	g.lock.Unlock()

	buf := make([]byte, length)
	base := uint64(len(Alphabet))

	for i := length - 1; i >= 0; i-- {
		buf[i] = Alphabet[n%base]
		n /= base
	}

	return string(buf)
}
