// Package sweep maps the linear execution index of a circuit batch to its
// (time, scale factor, replica) coordinate and back.
//
// Nesting order, slowest to fastest:
//
//	replica -> time -> scale factor   (extrapolation enabled)
//	replica -> time                   (extrapolation disabled)
//
// The circuit planner walks the same order, so construction order and decode
// order come from this single definition.
package sweep

import (
	"fmt"

	"github.com/aristath/plaquette/internal/domain"
)

// NoScale is the ScaleIndex of coordinates in a sweep without extrapolation.
const NoScale = -1

// Coordinate is the semantic position of one executed circuit.
type Coordinate struct {
	TimeIndex   int
	Time        float64
	ScaleIndex  int     // NoScale when extrapolation is disabled
	ScaleFactor float64 // implicit 1 when extrapolation is disabled
	Replica     int
}

// HasScale reports whether the coordinate carries an explicit scale factor.
func (c Coordinate) HasScale() bool {
	return c.ScaleIndex != NoScale
}

func (c Coordinate) String() string {
	if c.HasScale() {
		return fmt.Sprintf("(time=%g, scale=%g, replica=%d)", c.Time, c.ScaleFactor, c.Replica)
	}
	return fmt.Sprintf("(time=%g, replica=%d)", c.Time, c.Replica)
}

type key struct {
	time, scale, replica int
}

func (c Coordinate) key() key {
	return key{c.TimeIndex, c.ScaleIndex, c.Replica}
}

// Codec converts between linear indices and coordinates for one sweep shape.
type Codec struct {
	times    []float64
	scales   []float64
	zne      bool
	replicas int
}

// NewCodec validates the sweep shape. scales is ignored when zne is false.
func NewCodec(times []float64, scales []float64, zne bool, replicas int) (*Codec, error) {
	var errs domain.ConfigurationErrors
	if len(times) == 0 {
		errs = append(errs, domain.ConfigurationError{Field: "times", Message: "at least one time value is required"})
	}
	if replicas <= 0 {
		errs = append(errs, domain.ConfigurationError{Field: "replicas", Message: "must be greater than 0"})
	}
	if zne && len(scales) == 0 {
		errs = append(errs, domain.ConfigurationError{Field: "scale_factors", Message: "required when extrapolation is enabled"})
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	c := &Codec{
		times:    append([]float64(nil), times...),
		zne:      zne,
		replicas: replicas,
	}
	if zne {
		c.scales = append([]float64(nil), scales...)
	}
	return c, nil
}

// NumTimes returns T.
func (c *Codec) NumTimes() int {
	return len(c.times)
}

// NumScales returns S, which is 1 when extrapolation is disabled.
func (c *Codec) NumScales() int {
	if !c.zne {
		return 1
	}
	return len(c.scales)
}

// NumReplicas returns R.
func (c *Codec) NumReplicas() int {
	return c.replicas
}

// Extrapolating reports whether the scale-factor axis is present.
func (c *Codec) Extrapolating() bool {
	return c.zne
}

// Len returns T*S*R.
func (c *Codec) Len() int {
	return c.NumTimes() * c.NumScales() * c.replicas
}

// Decode maps a linear index to its coordinate.
func (c *Codec) Decode(i int) (Coordinate, error) {
	if i < 0 || i >= c.Len() {
		return Coordinate{}, domain.Invariantf("linear index %d outside [0, %d)", i, c.Len())
	}

	s := c.NumScales()
	t := c.NumTimes()

	coord := Coordinate{
		ScaleIndex:  NoScale,
		ScaleFactor: 1,
	}
	if c.zne {
		coord.ScaleIndex = i % s
		coord.ScaleFactor = c.scales[coord.ScaleIndex]
	}
	coord.TimeIndex = (i / s) % t
	coord.Time = c.times[coord.TimeIndex]
	coord.Replica = i / (s * t)

	return coord, nil
}

// Encode maps a coordinate back to its linear index. Only the index fields are
// consulted; Time and ScaleFactor are labels.
func (c *Codec) Encode(coord Coordinate) (int, error) {
	if coord.TimeIndex < 0 || coord.TimeIndex >= c.NumTimes() {
		return 0, domain.Invariantf("time index %d outside [0, %d)", coord.TimeIndex, c.NumTimes())
	}
	if coord.Replica < 0 || coord.Replica >= c.replicas {
		return 0, domain.Invariantf("replica %d outside [0, %d)", coord.Replica, c.replicas)
	}

	scaleIndex := 0
	if c.zne {
		if coord.ScaleIndex < 0 || coord.ScaleIndex >= len(c.scales) {
			return 0, domain.Invariantf("scale index %d outside [0, %d)", coord.ScaleIndex, len(c.scales))
		}
		scaleIndex = coord.ScaleIndex
	} else if coord.ScaleIndex != NoScale {
		return 0, domain.Invariantf("scale index %d given for a sweep without extrapolation", coord.ScaleIndex)
	}

	s := c.NumScales()
	return (coord.Replica*c.NumTimes()+coord.TimeIndex)*s + scaleIndex, nil
}

// Walk calls fn for every coordinate in linear order and stops at the first error.
func (c *Codec) Walk(fn func(i int, coord Coordinate) error) error {
	for i := 0; i < c.Len(); i++ {
		coord, err := c.Decode(i)
		if err != nil {
			return err
		}
		if err := fn(i, coord); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks that Decode is a bijection onto the coordinate space and that
// Encode inverts it.
func (c *Codec) Verify() error {
	seen := make(map[key]int, c.Len())
	return c.Walk(func(i int, coord Coordinate) error {
		if prev, dup := seen[coord.key()]; dup {
			return domain.Invariantf("indices %d and %d both decode to %s", prev, i, coord)
		}
		seen[coord.key()] = i

		back, err := c.Encode(coord)
		if err != nil {
			return err
		}
		if back != i {
			return domain.Invariantf("index %d decodes to %s which encodes to %d", i, coord, back)
		}
		return nil
	})
}
