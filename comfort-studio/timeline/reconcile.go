package timeline

import (
	"fmt"
	"time"
)

// DefaultTolerance is the drift allowed between narration and its segment.
const DefaultTolerance = 5 * time.Second

// Reconciliation is the result of comparing a measured duration with the
// segment it has to fit.
type Reconciliation struct {
	Segment   string        `json:"segment"`
	Expected  time.Duration `json:"expected"`
	Actual    time.Duration `json:"actual"`
	Drift     time.Duration `json:"drift"`
	Tolerance time.Duration `json:"tolerance"`
}

// WithinTolerance reports whether |Drift| <= Tolerance.
func (r Reconciliation) WithinTolerance() bool {
	return abs(r.Drift) <= r.Tolerance
}

// Err returns ErrDurationMismatch wrapped with details when the drift is
// beyond tolerance, nil otherwise.
func (r Reconciliation) Err() error {
	if r.WithinTolerance() {
		return nil
	}
	return fmt.Errorf("%w: %s is %s, measured %s (drift %s, tolerance %s)",
		ErrDurationMismatch, r.Segment, r.Expected, r.Actual, r.Drift, r.Tolerance)
}

// Reconcile compares actual with the length of the named segment.
// A non-positive tolerance falls back to DefaultTolerance.
func Reconcile(t Timeline, segment string, actual, tolerance time.Duration) (Reconciliation, error) {
	seg, ok := t.Segment(segment)
	if !ok {
		return Reconciliation{}, fmt.Errorf("%w: %q", ErrUnknownSegment, segment)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Reconciliation{
		Segment:   segment,
		Expected:  seg.Length,
		Actual:    actual,
		Drift:     actual - seg.Length,
		Tolerance: tolerance,
	}, nil
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
