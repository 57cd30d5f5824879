// Package folding scales the noise of a circuit by random local gate folding:
// a gate G is replaced by G G† G, which is logically the identity on top of G
// but roughly triples its physical error.
package folding

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/circuit"
)

// DefaultSeed is the folding seed of the reference configuration.
const DefaultSeed int64 = 150

// Options controls which gates may be folded.
type Options struct {
	// FoldSingleQubit also folds single-qubit unitaries. By default only
	// multi-qubit gates are folded.
	FoldSingleQubit bool
}

// Folder produces a noise-scaled variant of a circuit.
type Folder interface {
	Fold(c circuit.Circuit, scale float64, seed int64) (circuit.Circuit, error)
}

// RandomLocal is the default Folder.
type RandomLocal struct {
	Options Options
}

// Fold implements Folder.
func (f RandomLocal) Fold(c circuit.Circuit, scale float64, seed int64) (circuit.Circuit, error) {
	return Fold(c, scale, seed, f.Options)
}

// Eligible returns the positions of the gates that Fold may fold.
func Eligible(c circuit.Circuit, opts Options) []int {
	var idx []int
	for i, g := range c.Gates {
		if !g.IsUnitary() {
			continue
		}
		if g.IsMultiQubit() || opts.FoldSingleQubit {
			idx = append(idx, i)
		}
	}
	return idx
}

// Fold returns a copy of c whose eligible gate count is scaled by roughly scale.
// With n eligible gates, k = round(n(scale-1)/2) folds are inserted: every
// eligible gate is folded k/n times and k mod n gates, picked by a permutation
// seeded with seed, are folded once more. The input is not modified.
func Fold(c circuit.Circuit, scale float64, seed int64, opts Options) (circuit.Circuit, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale < 1 {
		return circuit.Circuit{}, domain.ConfigurationError{
			Field:   "scale_factors",
			Message: fmt.Sprintf("scale factor %g must be a finite number >= 1", scale),
		}
	}
	if err := c.Validate(); err != nil {
		return circuit.Circuit{}, err
	}

	eligible := Eligible(c, opts)
	inverses := make(map[int]circuit.Gate, len(eligible))
	for _, i := range eligible {
		inv, err := c.Gates[i].Inverse()
		if err != nil {
			return circuit.Circuit{}, fmt.Errorf("failed to fold gate %d: %w", i, err)
		}
		inverses[i] = inv
	}

	n := len(eligible)
	if n == 0 {
		return c.Clone(), nil
	}
	k := int(math.Round(float64(n) * (scale - 1) / 2))

	folds := make(map[int]int, n)
	for _, i := range eligible {
		folds[i] = k / n
	}
	rng := rand.New(rand.NewSource(seed))
	for _, j := range rng.Perm(n)[:k%n] {
		folds[eligible[j]]++
	}

	out := circuit.Circuit{NumQubits: c.NumQubits, Gates: make([]circuit.Gate, 0, len(c.Gates)+2*k)}
	for i, g := range c.Gates {
		out.Gates = append(out.Gates, g.Clone())
		for r := 0; r < folds[i]; r++ {
			out.Gates = append(out.Gates, inverses[i].Clone(), g.Clone())
		}
	}
	return out, nil
}

// ScaleOf returns the realised noise scale of folded relative to base, counted
// over eligible gates.
func ScaleOf(base, folded circuit.Circuit, opts Options) float64 {
	n := len(Eligible(base, opts))
	if n == 0 {
		return 1
	}
	return float64(len(Eligible(folded, opts))) / float64(n)
}
