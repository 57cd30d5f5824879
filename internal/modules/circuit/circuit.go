// Package circuit models a quantum program as an opaque, ordered list of gate
// operations. The reduction pipeline never interprets the physics of a circuit;
// it only needs structural access for state preparation and noise folding.
package circuit

import (
	"fmt"
	"math"
	"strings"

	"github.com/aristath/plaquette/internal/domain"
)

// Non-unitary operations. They are never inverted or folded.
const (
	Measure = "measure"
	Barrier = "barrier"
)

// Gate is one operation on the register.
type Gate struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

// Circuit is an ordered gate list over NumQubits qubits.
type Circuit struct {
	NumQubits int    `json:"num_qubits"`
	Gates     []Gate `json:"gates"`
}

// New returns an empty circuit over n qubits.
func New(n int) Circuit {
	return Circuit{NumQubits: n}
}

// Append adds a gate and returns the circuit for chaining.
func (c *Circuit) Append(name string, qubits []int, params ...float64) *Circuit {
	c.Gates = append(c.Gates, Gate{
		Name:   name,
		Qubits: append([]int(nil), qubits...),
		Params: append([]float64(nil), params...),
	})
	return c
}

// MeasureAll appends a measurement of every qubit.
func (c *Circuit) MeasureAll() *Circuit {
	for q := 0; q < c.NumQubits; q++ {
		c.Append(Measure, []int{q})
	}
	return c
}

// Clone returns a deep copy.
func (c Circuit) Clone() Circuit {
	out := Circuit{NumQubits: c.NumQubits, Gates: make([]Gate, len(c.Gates))}
	for i, g := range c.Gates {
		out.Gates[i] = g.Clone()
	}
	return out
}

// Validate checks that every gate addresses qubits inside the register.
func (c Circuit) Validate() error {
	if c.NumQubits <= 0 {
		return domain.ConfigurationError{Field: "num_qubits", Message: "must be greater than 0"}
	}
	for i, g := range c.Gates {
		if len(g.Qubits) == 0 && g.Name != Barrier {
			return domain.ConfigurationError{Field: "gates", Message: fmt.Sprintf("gate %d (%s) has no qubits", i, g.Name)}
		}
		for _, q := range g.Qubits {
			if q < 0 || q >= c.NumQubits {
				return domain.ConfigurationError{
					Field:   "gates",
					Message: fmt.Sprintf("gate %d (%s) addresses qubit %d outside [0, %d)", i, g.Name, q, c.NumQubits),
				}
			}
		}
	}
	return nil
}

// CountOps returns the number of gates per name.
func (c Circuit) CountOps() map[string]int {
	ops := make(map[string]int)
	for _, g := range c.Gates {
		ops[g.Name]++
	}
	return ops
}

// UnitaryLen returns the number of invertible gates.
func (c Circuit) UnitaryLen() int {
	n := 0
	for _, g := range c.Gates {
		if g.IsUnitary() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the gate.
func (g Gate) Clone() Gate {
	return Gate{
		Name:   g.Name,
		Qubits: append([]int(nil), g.Qubits...),
		Params: append([]float64(nil), g.Params...),
	}
}

// IsUnitary reports whether the gate can be inverted.
func (g Gate) IsUnitary() bool {
	return g.Name != Measure && g.Name != Barrier
}

// IsMultiQubit reports whether the gate acts on more than one qubit.
func (g Gate) IsMultiQubit() bool {
	return len(g.Qubits) > 1
}

func (g Gate) String() string {
	var b strings.Builder
	b.WriteString(g.Name)
	if len(g.Params) > 0 {
		b.WriteString("(")
		for i, p := range g.Params {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%g", p)
		}
		b.WriteString(")")
	}
	for i, q := range g.Qubits {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "q[%d]", q)
	}
	return b.String()
}

// selfInverse gates are their own adjoint.
var selfInverse = map[string]bool{
	"id": true, "x": true, "y": true, "z": true, "h": true,
	"cx": true, "cy": true, "cz": true, "swap": true, "ccx": true,
}

// adjointPairs maps fixed gates to their adjoint.
var adjointPairs = map[string]string{
	"s": "sdg", "sdg": "s",
	"t": "tdg", "tdg": "t",
	"sx": "sxdg", "sxdg": "sx",
}

// negatedAngle gates invert by negating every parameter.
var negatedAngle = map[string]bool{
	"rx": true, "ry": true, "rz": true, "u1": true, "p": true,
	"crz": true, "cp": true, "rzz": true,
}

// Inverse returns the adjoint gate.
func (g Gate) Inverse() (Gate, error) {
	if !g.IsUnitary() {
		return Gate{}, domain.ConfigurationError{Field: "gates", Message: fmt.Sprintf("%s has no inverse", g.Name)}
	}

	inv := g.Clone()
	switch {
	case selfInverse[g.Name]:
		return inv, nil
	case adjointPairs[g.Name] != "":
		inv.Name = adjointPairs[g.Name]
		return inv, nil
	case negatedAngle[g.Name]:
		for i := range inv.Params {
			inv.Params[i] = -inv.Params[i]
		}
		return inv, nil
	case g.Name == "u2":
		// u2(phi, lambda)^-1 = u2(-lambda - pi, -phi + pi)
		if len(g.Params) != 2 {
			return Gate{}, paramError(g, 2)
		}
		inv.Params = []float64{-g.Params[1] - math.Pi, -g.Params[0] + math.Pi}
		return inv, nil
	case g.Name == "u3" || g.Name == "u":
		// u3(theta, phi, lambda)^-1 = u3(-theta, -lambda, -phi)
		if len(g.Params) != 3 {
			return Gate{}, paramError(g, 3)
		}
		inv.Params = []float64{-g.Params[0], -g.Params[2], -g.Params[1]}
		return inv, nil
	}

	return Gate{}, domain.ConfigurationError{Field: "gates", Message: fmt.Sprintf("no inverse known for gate %q", g.Name)}
}

func paramError(g Gate, want int) error {
	return domain.ConfigurationError{
		Field:   "gates",
		Message: fmt.Sprintf("%s expects %d parameters, got %d", g.Name, want, len(g.Params)),
	}
}
