// Package bitstring enumerates and indexes the measurement outcomes of an n-qubit register.
package bitstring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/plaquette/internal/domain"
)

// MaxQubits bounds the register width so that 2^n stays an addressable slice length.
const MaxQubits = 24

// Space is the ordered set of all 2^n bit-strings of width n.
// Order is binary counting order: "00..0", "00..1", ..., "11..1".
type Space struct {
	width  int
	states []string
}

// NewSpace enumerates the 2^n bit-strings of width n.
func NewSpace(n int) (*Space, error) {
	if n <= 0 || n > MaxQubits {
		return nil, domain.ConfigurationError{
			Field:   "qubits",
			Message: fmt.Sprintf("must be between 1 and %d, got %d", MaxQubits, n),
		}
	}

	size := 1 << n
	states := make([]string, size)
	for i := 0; i < size; i++ {
		states[i] = Format(i, n)
	}

	return &Space{width: n, states: states}, nil
}

// MustSpace is NewSpace for widths known to be valid at compile time.
func MustSpace(n int) *Space {
	s, err := NewSpace(n)
	if err != nil {
		panic(err)
	}
	return s
}

// Width returns the number of qubits.
func (s *Space) Width() int {
	return s.width
}

// Size returns 2^n.
func (s *Space) Size() int {
	return len(s.states)
}

// States returns a copy of the ordered states.
func (s *Space) States() []string {
	out := make([]string, len(s.states))
	copy(out, s.states)
	return out
}

// At returns the state at position i.
func (s *Space) At(i int) string {
	return s.states[i]
}

// Index returns the position of state within the space.
func (s *Space) Index(state string) (int, error) {
	if len(state) != s.width {
		return 0, domain.Dataf("bit-string %q has width %d, expected %d", state, len(state), s.width)
	}
	return Parse(state)
}

// Contains reports whether state is a valid member of the space.
func (s *Space) Contains(state string) bool {
	_, err := s.Index(state)
	return err == nil
}

// Format renders value as a zero-padded binary string of the given width.
func Format(value, width int) string {
	raw := strconv.FormatInt(int64(value), 2)
	if len(raw) >= width {
		return raw
	}
	return strings.Repeat("0", width-len(raw)) + raw
}

// Parse reads a binary string, rejecting anything but '0' and '1'.
func Parse(state string) (int, error) {
	if state == "" {
		return 0, domain.Dataf("empty bit-string")
	}
	if len(state) > MaxQubits {
		return 0, domain.Dataf("bit-string %q exceeds %d qubits", state, MaxQubits)
	}
	value := 0
	for _, r := range state {
		value <<= 1
		switch r {
		case '0':
		case '1':
			value |= 1
		default:
			return 0, domain.Dataf("bit-string %q contains %q", state, r)
		}
	}
	return value, nil
}

// IsValid reports whether state is a non-empty binary string of the given width.
func IsValid(state string, width int) bool {
	if len(state) != width {
		return false
	}
	_, err := Parse(state)
	return err == nil
}

// Bit returns the digit at string position i as 0 or 1.
func Bit(state string, i int) int {
	if state[i] == '1' {
		return 1
	}
	return 0
}
