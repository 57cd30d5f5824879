package bitstring

import (
	"errors"
	"testing"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpace_BinaryCountingOrder(t *testing.T) {
	s, err := NewSpace(3)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Width())
	assert.Equal(t, 8, s.Size())
	assert.Equal(t, []string{"000", "001", "010", "011", "100", "101", "110", "111"}, s.States())
}

func TestNewSpace_InvalidWidth(t *testing.T) {
	for _, n := range []int{0, -1, MaxQubits + 1} {
		_, err := NewSpace(n)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
	}
}

func TestSpace_IndexMatchesPosition(t *testing.T) {
	s := MustSpace(5)
	for i, state := range s.States() {
		idx, err := s.Index(state)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
		assert.Equal(t, state, s.At(i))
	}
}

func TestSpace_IndexRejectsMalformed(t *testing.T) {
	s := MustSpace(4)

	tests := []struct {
		name  string
		state string
	}{
		{"too short", "101"},
		{"too long", "10101"},
		{"non binary", "10a1"},
		{"spaces", "1 01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Index(tt.state)
			assert.True(t, errors.Is(err, domain.ErrData))
			assert.False(t, s.Contains(tt.state))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "00101", Format(5, 5))
	assert.Equal(t, "1111", Format(15, 4))
	assert.Equal(t, "0", Format(0, 1))
}

func TestBit(t *testing.T) {
	assert.Equal(t, 1, Bit("10", 0))
	assert.Equal(t, 0, Bit("10", 1))
}

func TestCounts_MissingKeyIsZero(t *testing.T) {
	c := Counts{"1111": 900, "1110": 100}

	assert.Equal(t, 0, c.Get("0000"))
	assert.Equal(t, 1000, c.Total())
	assert.InDelta(t, 0.9, c.Probability("1111", 1000), 1e-12)
	assert.InDelta(t, 0.0, c.Probability("0101", 1000), 1e-12)
}

func TestCounts_Vector(t *testing.T) {
	c := Counts{"01": 25, "11": 75}
	vec := c.Vector([]string{"00", "01", "10", "11"}, 100)
	assert.Equal(t, []float64{0, 0.25, 0, 0.75}, vec)
}

func TestCounts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		counts  Counts
		wantErr bool
	}{
		{"valid", Counts{"0000": 10, "1111": 990}, false},
		{"under budget", Counts{"0000": 10}, false},
		{"wrong width", Counts{"000": 10}, true},
		{"negative", Counts{"0000": -1}, true},
		{"over budget", Counts{"0000": 600, "0001": 401}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.counts.Validate(4, 1000)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrData))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDistribution(t *testing.T) {
	d := Counts{"01": 3, "10": 1}.Distribution()
	assert.InDelta(t, 4.0, d.Total(), 1e-12)
	assert.InDelta(t, 0.75, d.Probability("01", 4), 1e-12)
	assert.Equal(t, 0.0, d.Get("11"))
}
