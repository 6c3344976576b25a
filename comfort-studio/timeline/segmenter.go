package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrInvalidTotal     = errors.New("timeline: total duration must be positive")
	ErrNoSegments       = errors.New("timeline: no segments given")
	ErrInvalidSegment   = errors.New("timeline: invalid segment")
	ErrOverallocated    = errors.New("timeline: fixed segments exceed total duration")
	ErrFixedMismatch    = errors.New("timeline: fixed segments do not add up to total duration")
	ErrZeroWeight       = errors.New("timeline: weights sum to zero with time left to allocate")
	ErrUnknownSegment   = errors.New("timeline: unknown segment")
	ErrDurationMismatch = errors.New("timeline: measured duration drifts beyond tolerance")
)

type specKind int

const (
	kindFixed specKind = iota
	kindWeighted
)

// Spec describes one named segment, either with a fixed length or with a
// weight that shares whatever the fixed segments leave over.
type Spec struct {
	Name   string
	Length time.Duration
	Weight float64
	kind   specKind
}

// Fixed returns a segment descriptor with an exact length.
func Fixed(name string, length time.Duration) Spec {
	return Spec{Name: name, Length: length, kind: kindFixed}
}

// Weighted returns a segment descriptor that receives a share of the
// remaining time proportional to weight.
func Weighted(name string, weight float64) Spec {
	return Spec{Name: name, Weight: weight, kind: kindWeighted}
}

// Segment is one resolved part of a timeline.
type Segment struct {
	Name   string        `json:"name" bson:"name"`
	Start  time.Duration `json:"start" bson:"start"`
	Length time.Duration `json:"length" bson:"length"`
}

// End returns the offset right after the segment.
func (s Segment) End() time.Duration { return s.Start + s.Length }

// Timeline is an ordered, gapless partition of Total.
type Timeline struct {
	Total    time.Duration `json:"total" bson:"total"`
	Segments []Segment     `json:"segments" bson:"segments"`
}

// Build resolves specs into a timeline covering exactly total.
func Build(total time.Duration, specs []Spec) (Timeline, error) {
	segments, err := resolve(total, specs)
	if err != nil {
		return Timeline{}, err
	}
	return Timeline{Total: total, Segments: segments}, nil
}

// Subdivide splits the segment with the same rules as Build. Offsets of the
// returned segments are absolute, starting at s.Start.
func (s Segment) Subdivide(specs []Spec) ([]Segment, error) {
	parts, err := resolve(s.Length, specs)
	if err != nil {
		return nil, fmt.Errorf("subdivide %q: %w", s.Name, err)
	}
	for i := range parts {
		parts[i].Start += s.Start
	}
	return parts, nil
}

// Segment looks a segment up by name.
func (t Timeline) Segment(name string) (Segment, bool) {
	for _, seg := range t.Segments {
		if seg.Name == name {
			return seg, true
		}
	}
	return Segment{}, false
}

// Validate re-checks that segments start at zero, are contiguous, have no
// negative lengths and add up to Total.
func (t Timeline) Validate() error {
	if t.Total <= 0 {
		return ErrInvalidTotal
	}
	if len(t.Segments) == 0 {
		return ErrNoSegments
	}
	var cursor time.Duration
	for _, seg := range t.Segments {
		if seg.Length < 0 {
			return fmt.Errorf("%w: %q has negative length", ErrInvalidSegment, seg.Name)
		}
		if seg.Start != cursor {
			return fmt.Errorf("%w: %q starts at %s, expected %s", ErrInvalidSegment, seg.Name, seg.Start, cursor)
		}
		if seg.Length > t.Total-cursor {
			return fmt.Errorf("%w: %q runs past %s", ErrOverallocated, seg.Name, t.Total)
		}
		cursor = seg.End()
	}
	if cursor != t.Total {
		return fmt.Errorf("%w: segments cover %s of %s", ErrFixedMismatch, cursor, t.Total)
	}
	return nil
}

func resolve(total time.Duration, specs []Spec) ([]Segment, error) {
	if total <= 0 {
		return nil, ErrInvalidTotal
	}
	if len(specs) == 0 {
		return nil, ErrNoSegments
	}

	seen := make(map[string]bool, len(specs))
	var fixedSum time.Duration
	var weightSum float64
	weighted := 0
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidSegment)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidSegment, spec.Name)
		}
		seen[spec.Name] = true

		switch spec.kind {
		case kindFixed:
			if spec.Length <= 0 {
				return nil, fmt.Errorf("%w: %q has non-positive fixed length %s", ErrInvalidSegment, spec.Name, spec.Length)
			}
			if spec.Length > total-fixedSum {
				return nil, fmt.Errorf("%w: %q does not fit in the %s left of %s", ErrOverallocated, spec.Name, total-fixedSum, total)
			}
			fixedSum += spec.Length
		case kindWeighted:
			if spec.Weight < 0 || math.IsNaN(spec.Weight) || math.IsInf(spec.Weight, 0) {
				return nil, fmt.Errorf("%w: %q has invalid weight %v", ErrInvalidSegment, spec.Name, spec.Weight)
			}
			weightSum += spec.Weight
			weighted++
		}
	}

	remaining := total - fixedSum
	if weighted == 0 && remaining != 0 {
		return nil, fmt.Errorf("%w: fixed %s, total %s", ErrFixedMismatch, fixedSum, total)
	}
	if weighted > 0 && weightSum == 0 && remaining > 0 {
		return nil, fmt.Errorf("%w: %s unallocated", ErrZeroWeight, remaining)
	}

	shares := distribute(remaining, specs, weightSum)

	segments := make([]Segment, len(specs))
	var cursor time.Duration
	for i, spec := range specs {
		length := spec.Length
		if spec.kind == kindWeighted {
			length = shares[i]
		}
		segments[i] = Segment{Name: spec.Name, Start: cursor, Length: length}
		cursor += length
	}
	return segments, nil
}

// distribute splits remaining across weighted specs with the largest
// remainder method. Work happens in whole milliseconds when possible so that
// results stay readable; ties go to the earlier segment.
func distribute(remaining time.Duration, specs []Spec, weightSum float64) []time.Duration {
	shares := make([]time.Duration, len(specs))
	if remaining == 0 || weightSum == 0 {
		return shares
	}

	unit := time.Millisecond
	if remaining%unit != 0 {
		unit = time.Nanosecond
	}
	units := int64(remaining / unit)

	type part struct {
		index int
		frac  float64
	}
	parts := make([]part, 0, len(specs))
	var assigned int64
	for i, spec := range specs {
		if spec.kind != kindWeighted {
			continue
		}
		exact := float64(units) * spec.Weight / weightSum
		whole := int64(math.Floor(exact))
		shares[i] = time.Duration(whole) * unit
		assigned += whole
		parts = append(parts, part{index: i, frac: exact - float64(whole)})
	}

	// Float rounding can overshoot by a unit; take it back from the end.
	for i := len(parts) - 1; assigned > units && i >= 0; i-- {
		if shares[parts[i].index] >= unit {
			shares[parts[i].index] -= unit
			assigned--
		}
	}

	sort.SliceStable(parts, func(a, b int) bool {
		return parts[a].frac > parts[b].frac
	})
	for left := units - assigned; left > 0; {
		for _, p := range parts {
			if left == 0 {
				break
			}
			if specs[p.index].Weight == 0 {
				continue
			}
			shares[p.index] += unit
			left--
		}
	}
	return shares
}
