// Package observables reduces measured distributions of a plaquette register to
// the physical quantities of the simulated gauge theory.
package observables

import (
	"github.com/aristath/plaquette/internal/modules/bitstring"
)

// LinkRegisterWidth is the width of the link/ancilla register the
// Gauss-law observables enumerate, whatever the plaquette geometry.
const LinkRegisterWidth = 5

// loopPairs are the link positions forming the closed loop of the winding observable.
var loopPairs = [4][2]int{{0, 2}, {2, 3}, {3, 4}, {4, 0}}

var linkSpace = bitstring.MustSpace(LinkRegisterWidth)

// Reference holds the bit-strings a geometry is measured against.
type Reference struct {
	// Target is the all-spin-up reference state.
	Target string `json:"target"`
	// Sector is the reference state of the target gauge sector.
	Sector string `json:"sector"`
}

var references = map[int]Reference{
	3: {Target: "1111", Sector: "0101"},
	4: {Target: "00000", Sector: "01101"},
}

// References returns the reference states of a plaquette with the given number
// of links. ok is false for unknown geometries.
func References(links int) (Reference, bool) {
	r, ok := references[links]
	return r, ok
}

// Qubits returns the register width of a geometry, or 0 when it is unknown.
func Qubits(links int) int {
	r, ok := references[links]
	if !ok {
		return 0
	}
	return len(r.Target)
}

// Set is one evaluation of every observable on a distribution.
type Set struct {
	Probability     float64 `json:"probability"`
	GaussLaw        float64 `json:"gauss_law"`
	Sector2         float64 `json:"sector_2"`
	GaussLawSquared float64 `json:"gauss_law_squared"`
}

// Pair holds the observables of a raw distribution and of its corrected version.
type Pair struct {
	Raw       Set `json:"raw"`
	Corrected Set `json:"corrected"`
}

// Reduce evaluates every observable on d.
func Reduce(d bitstring.Distribution, ref Reference, shots int) Set {
	return Set{
		Probability:     TargetProbability(d, ref.Target, shots),
		GaussLaw:        GaussLaw(d, shots),
		Sector2:         Sector2(d, ref.Sector, shots),
		GaussLawSquared: GaussLawSquared(d, shots),
	}
}

// TargetProbability returns d[target]/shots.
func TargetProbability(d bitstring.Distribution, target string, shots int) float64 {
	return d.Probability(target, shots)
}

// Sector2 returns the probability mass of the sector reference state.
func Sector2(d bitstring.Distribution, sector string, shots int) float64 {
	return d.Probability(sector, shots)
}

// GaussLaw is the expectation of the parity correlator (2b0-1)(2b1-1) of the
// two leading link bits over every link-register configuration.
func GaussLaw(d bitstring.Distribution, shots int) float64 {
	total := 0.0
	for i := 0; i < linkSpace.Size(); i++ {
		s := linkSpace.At(i)
		p := d.Probability(s, shots)
		if p == 0 {
			continue
		}
		w := float64((2*bitstring.Bit(s, 0) - 1) * (2*bitstring.Bit(s, 1) - 1))
		total += w * p
	}
	return total
}

// GaussLawSquared is the expectation of the squared link differences around
// the plaquette loop. Link k is read from string position 4-k.
func GaussLawSquared(d bitstring.Distribution, shots int) float64 {
	total := 0.0
	for i := 0; i < linkSpace.Size(); i++ {
		s := linkSpace.At(i)
		p := d.Probability(s, shots)
		if p == 0 {
			continue
		}
		w := 0
		for _, pair := range loopPairs {
			diff := bitstring.Bit(s, LinkRegisterWidth-1-pair[0]) - bitstring.Bit(s, LinkRegisterWidth-1-pair[1])
			w += diff * diff
		}
		total += float64(w) * p
	}
	return total
}
