package circuit

import (
	"errors"
	"math"
	"testing"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Inverse(t *testing.T) {
	tests := []struct {
		name string
		gate Gate
		want Gate
	}{
		{"hadamard", Gate{Name: "h", Qubits: []int{0}}, Gate{Name: "h", Qubits: []int{0}}},
		{"cz", Gate{Name: "cz", Qubits: []int{1, 2}}, Gate{Name: "cz", Qubits: []int{1, 2}}},
		{"s", Gate{Name: "s", Qubits: []int{0}}, Gate{Name: "sdg", Qubits: []int{0}}},
		{"tdg", Gate{Name: "tdg", Qubits: []int{3}}, Gate{Name: "t", Qubits: []int{3}}},
		{"u1", Gate{Name: "u1", Qubits: []int{1}, Params: []float64{0.4}}, Gate{Name: "u1", Qubits: []int{1}, Params: []float64{-0.4}}},
		{"u2", Gate{Name: "u2", Qubits: []int{1}, Params: []float64{math.Pi / 2, math.Pi / 2}},
			Gate{Name: "u2", Qubits: []int{1}, Params: []float64{-math.Pi / 2 - math.Pi, -math.Pi/2 + math.Pi}}},
		{"u3", Gate{Name: "u3", Qubits: []int{0}, Params: []float64{0.1, 0.2, 0.3}},
			Gate{Name: "u3", Qubits: []int{0}, Params: []float64{-0.1, -0.3, -0.2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.gate.Inverse()
			require.NoError(t, err)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Qubits, got.Qubits)
			require.Len(t, got.Params, len(tt.want.Params))
			for i := range got.Params {
				assert.InDelta(t, tt.want.Params[i], got.Params[i], 1e-12)
			}
		})
	}
}

func TestGate_InverseDoesNotAlias(t *testing.T) {
	g := Gate{Name: "rz", Qubits: []int{0}, Params: []float64{1.5}}
	inv, err := g.Inverse()
	require.NoError(t, err)

	inv.Qubits[0] = 4
	assert.Equal(t, []int{0}, g.Qubits)
	assert.Equal(t, []float64{1.5}, g.Params)
}

func TestGate_InverseErrors(t *testing.T) {
	for _, g := range []Gate{
		{Name: Measure, Qubits: []int{0}},
		{Name: "mystery", Qubits: []int{0}},
		{Name: "u2", Qubits: []int{0}, Params: []float64{1}},
	} {
		_, err := g.Inverse()
		assert.True(t, errors.Is(err, domain.ErrConfiguration), g.Name)
	}
}

func TestCircuit_Validate(t *testing.T) {
	c := New(2)
	c.Append("h", []int{0}).Append("cx", []int{0, 1}).MeasureAll()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 2, c.UnitaryLen())
	assert.Equal(t, map[string]int{"h": 1, "cx": 1, Measure: 2}, c.CountOps())

	c.Append("x", []int{2})
	assert.True(t, errors.Is(c.Validate(), domain.ErrConfiguration))
}

func TestCircuit_CloneIsDeep(t *testing.T) {
	c := New(1)
	c.Append("rx", []int{0}, 0.3)

	cp := c.Clone()
	cp.Gates[0].Params[0] = 9
	assert.Equal(t, 0.3, c.Gates[0].Params[0])
}

func TestGate_String(t *testing.T) {
	assert.Equal(t, "cx q[0],q[1]", Gate{Name: "cx", Qubits: []int{0, 1}}.String())
	assert.Equal(t, "u1(0.5) q[2]", Gate{Name: "u1", Qubits: []int{2}, Params: []float64{0.5}}.String())
}

func TestPreparation_LittleEndianQubits(t *testing.T) {
	c, err := Preparation("0011")
	require.NoError(t, err)

	assert.Equal(t, 4, c.NumQubits)
	// "0011": characters 2 and 3 are qubits 1 and 0
	require.Len(t, c.Gates, 2+4)
	assert.Equal(t, "x", c.Gates[0].Name)
	assert.Equal(t, []int{0}, c.Gates[0].Qubits)
	assert.Equal(t, []int{1}, c.Gates[1].Qubits)
	for _, g := range c.Gates[2:] {
		assert.Equal(t, Measure, g.Name)
	}
}

func TestPreparation_Invalid(t *testing.T) {
	_, err := Preparation("")
	assert.Error(t, err)

	_, err = Preparation("01x")
	assert.Error(t, err)
}
