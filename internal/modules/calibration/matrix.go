// Package calibration estimates the readout confusion matrix of an n-qubit
// register, persists it as a JSON artifact, and fits hardware-style
// correction filters from calibration runs.
package calibration

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/plaquette/internal/domain"
	"github.com/aristath/plaquette/internal/modules/bitstring"
)

// MaxConditionNumber is the largest 2-norm condition number accepted for a
// confusion matrix before inversion is considered numerically meaningless.
const MaxConditionNumber = 1e12

// Matrix is an inverted readout confusion matrix together with the ordered
// states that define its rows and columns. It is immutable once built.
//
// The confusion matrix is stored as M[prepared][measured] and the correction
// step multiplies by inv(M), reading the row of the target state. This follows
// the established procedure rather than inv(M^T); see the readout tests.
type Matrix struct {
	states    []string
	index     map[string]int
	inverse   *mat.Dense
	confusion *mat.Dense // nil when loaded from an artifact
}

// artifact is the persisted JSON layout.
type artifact struct {
	Matrix [][]float64 `json:"matrix"`
	States []string    `json:"states"`
}

// NewMatrix inverts a confusion matrix whose rows are the measured probability
// vectors of each prepared state, in states order.
func NewMatrix(states []string, confusion [][]float64) (*Matrix, error) {
	if err := validateStates(states); err != nil {
		return nil, err
	}
	m, err := denseFromRows(confusion, len(states))
	if err != nil {
		return nil, err
	}

	if cond := mat.Cond(m, 2); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > MaxConditionNumber {
		return nil, domain.Numericalf("confusion matrix is singular or ill-conditioned (condition number %g)", cond)
	}

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, domain.Numericalf("failed to invert confusion matrix: %v", err)
	}

	return newMatrix(states, &inv, m), nil
}

// FromInverse wraps an already inverted matrix, as stored in an artifact.
func FromInverse(states []string, inverse [][]float64) (*Matrix, error) {
	if err := validateStates(states); err != nil {
		return nil, err
	}
	inv, err := denseFromRows(inverse, len(states))
	if err != nil {
		return nil, err
	}
	return newMatrix(states, inv, nil), nil
}

// Identity returns the matrix that leaves every distribution unchanged.
func Identity(width int) (*Matrix, error) {
	space, err := bitstring.NewSpace(width)
	if err != nil {
		return nil, err
	}
	n := space.Size()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = 1
	}
	return NewMatrix(space.States(), rows)
}

func newMatrix(states []string, inverse, confusion *mat.Dense) *Matrix {
	index := make(map[string]int, len(states))
	for i, s := range states {
		index[s] = i
	}
	return &Matrix{
		states:    append([]string(nil), states...),
		index:     index,
		inverse:   inverse,
		confusion: confusion,
	}
}

// States returns a copy of the row/column order.
func (m *Matrix) States() []string {
	return append([]string(nil), m.states...)
}

// Width returns the number of qubits.
func (m *Matrix) Width() int {
	return len(m.states[0])
}

// Size returns the number of states.
func (m *Matrix) Size() int {
	return len(m.states)
}

// Index returns the row of state.
func (m *Matrix) Index(state string) (int, bool) {
	i, ok := m.index[state]
	return i, ok
}

// InverseRow returns a view of row i of the inverted matrix.
func (m *Matrix) InverseRow(i int) mat.Vector {
	return m.inverse.RowView(i)
}

// Inverse returns a copy of the inverted matrix as rows.
func (m *Matrix) Inverse() [][]float64 {
	return rowsFromDense(m.inverse)
}

// Confusion returns a copy of the measured confusion matrix, or nil when the
// matrix was loaded from an artifact.
func (m *Matrix) Confusion() [][]float64 {
	if m.confusion == nil {
		return nil
	}
	return rowsFromDense(m.confusion)
}

// Equal reports whether two matrices have the same states and identical inverse entries.
func (m *Matrix) Equal(other *Matrix) bool {
	if other == nil || len(m.states) != len(other.states) {
		return false
	}
	for i := range m.states {
		if m.states[i] != other.states[i] {
			return false
		}
	}
	return mat.Equal(m.inverse, other.inverse)
}

// MarshalJSON encodes the artifact layout.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(artifact{Matrix: m.Inverse(), States: m.states})
}

// UnmarshalJSON decodes and validates the artifact layout.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Dataf("failed to decode calibration artifact: %v", err)
	}
	loaded, err := FromInverse(a.States, a.Matrix)
	if err != nil {
		return err
	}
	*m = *loaded
	return nil
}

// Save writes the artifact to path.
func (m *Matrix) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal calibration matrix: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create calibration directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write calibration matrix: %w", err)
	}
	return nil
}

// Load reads and validates an artifact written by Save.
func Load(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration matrix: %w", err)
	}
	var m Matrix
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &m, nil
}

// validateStates requires the canonical binary counting order of some width,
// which also rules out duplicates and malformed labels.
func validateStates(states []string) error {
	n := len(states)
	if n == 0 || n&(n-1) != 0 {
		return domain.Dataf("calibration has %d states, expected a power of two", n)
	}
	width := len(states[0])
	if 1<<width != n {
		return domain.Dataf("calibration has %d states of width %d, expected %d", n, width, 1<<width)
	}
	for i, s := range states {
		if want := bitstring.Format(i, width); s != want {
			return domain.Dataf("calibration state %d is %q, expected %q", i, s, want)
		}
	}
	return nil
}

func denseFromRows(rows [][]float64, n int) (*mat.Dense, error) {
	if len(rows) != n {
		return nil, domain.Dataf("calibration matrix has %d rows for %d states", len(rows), n)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, domain.Dataf("calibration matrix row %d has %d columns, expected %d", i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.Dataf("calibration matrix entry (%d,%d) is not finite", i, j)
			}
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}

func rowsFromDense(d *mat.Dense) [][]float64 {
	r, c := d.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, d)
	}
	return rows
}
