package interval

import (
	"errors"
	"fmt"
)

var ErrInvalidRange = errors.New("end date must be after start date")

// Range is the half-open span [Start, End). End is the checkout day and is
// not occupied, so a range ending on D and one starting on D do not overlap.
type Range struct {
	Start Date
	End   Date
}

func NewRange(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	if !r.Valid() {
		return Range{}, fmt.Errorf("%w: [%s, %s)", ErrInvalidRange, start, end)
	}
	return r, nil
}

func (r Range) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether r and o share at least one occupied day.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Occupies reports whether the night of d belongs to r.
func (r Range) Occupies(d Date) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

// Covers reports whether every day of o is also a day of r.
func (r Range) Covers(o Range) bool {
	return !o.Start.Before(r.Start) && !r.End.Before(o.End)
}

func (r Range) Nights() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Time().Sub(r.Start.Time()).Hours() / 24)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}
