package observables

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/plaquette/internal/modules/bitstring"
)

func TestReferences(t *testing.T) {
	r, ok := References(3)
	assert.True(t, ok)
	assert.Equal(t, Reference{Target: "1111", Sector: "0101"}, r)
	assert.Equal(t, 4, Qubits(3))

	r, ok = References(4)
	assert.True(t, ok)
	assert.Equal(t, Reference{Target: "00000", Sector: "01101"}, r)
	assert.Equal(t, 5, Qubits(4))

	_, ok = References(5)
	assert.False(t, ok)
	assert.Equal(t, 0, Qubits(5))
}

func TestTargetProbability_Triangle(t *testing.T) {
	counts := bitstring.Counts{"1111": 900, "1110": 100}
	assert.InDelta(t, 0.9, TargetProbability(counts.Distribution(), "1111", 1000), 1e-15)
	assert.Equal(t, 0.0, TargetProbability(counts.Distribution(), "0000", 1000))
}

func TestGaussLaw_Weights(t *testing.T) {
	tests := []struct {
		state string
		want  float64
	}{
		{"11000", 1},
		{"00111", 1},
		{"01000", -1},
		{"10111", -1},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			d := bitstring.Distribution{tt.state: 500}
			assert.Equal(t, tt.want*0.5, GaussLaw(d, 1000))
		})
	}
}

func TestGaussLaw_IsLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := randomCounts(rng, 2000)
	b := randomCounts(rng, 3000)

	union := bitstring.Counts{}
	for k, v := range a {
		union[k] += v
	}
	for k, v := range b {
		union[k] += v
	}

	ga := GaussLaw(a.Distribution(), 2000)
	gb := GaussLaw(b.Distribution(), 3000)
	weighted := (2000*ga + 3000*gb) / 5000
	assert.InDelta(t, weighted, GaussLaw(union.Distribution(), 5000), 1e-12)
}

func TestGaussLawSquared_Weights(t *testing.T) {
	// l_k is read from position 4-k; the loop visits links 0, 2, 3, 4.
	tests := []struct {
		state string
		want  float64
	}{
		{"00000", 0},
		{"11111", 0},
		{"01000", 2}, // link 3 differs from links 2 and 4
		{"10100", 4},
		{"00010", 0}, // link 1 is outside the loop
		{"00001", 2},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			d := bitstring.Distribution{tt.state: 1000}
			assert.Equal(t, tt.want, GaussLawSquared(d, 1000))
		})
	}
}

func TestGaussLawSquared_NonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		c := randomCounts(rng, 1000)
		assert.GreaterOrEqual(t, GaussLawSquared(c.Distribution(), 1000), 0.0)
	}
}

func TestObservables_IgnoreNarrowRegisters(t *testing.T) {
	d := bitstring.Distribution{"1111": 900, "0101": 100}
	assert.Equal(t, 0.0, GaussLaw(d, 1000))
	assert.Equal(t, 0.0, GaussLawSquared(d, 1000))
	assert.InDelta(t, 0.1, Sector2(d, "0101", 1000), 1e-15)
}

func TestReduce(t *testing.T) {
	ref, _ := References(4)
	d := bitstring.Distribution{"00000": 600, "01101": 300, "11000": 100}

	got := Reduce(d, ref, 1000)
	assert.InDelta(t, 0.6, got.Probability, 1e-15)
	assert.InDelta(t, 0.3, got.Sector2, 1e-15)
	// 00000 -> +1, 01101 -> -1, 11000 -> +1
	assert.InDelta(t, 0.6-0.3+0.1, got.GaussLaw, 1e-12)
	// 01101: links 1,0,1,1,0 -> 0+0+1+1; 11000: links 0,0,0,1,1 -> 0+1+0+1
	assert.InDelta(t, 0.3*2+0.1*2, got.GaussLawSquared, 1e-12)
}

func TestReduce_AcceptsNegativeCorrectedMass(t *testing.T) {
	ref, _ := References(4)
	d := bitstring.Distribution{"00000": 1050, "01000": -50}

	got := Reduce(d, ref, 1000)
	assert.InDelta(t, 1.05, got.Probability, 1e-12)
	assert.InDelta(t, 1.05+0.05, got.GaussLaw, 1e-12)
}

func randomCounts(rng *rand.Rand, shots int) bitstring.Counts {
	c := bitstring.Counts{}
	for i := 0; i < shots; i++ {
		c[bitstring.Format(rng.Intn(32), LinkRegisterWidth)]++
	}
	return c
}
