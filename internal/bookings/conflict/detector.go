// Package conflict decides whether a candidate stay can be accepted next to
// the reservations already held for a spot, and which of the candidate's
// boundaries collide when it cannot.
package conflict

import "spotbook/pkg/interval"

type Field string

const (
	FieldStartDate Field = "startDate"
	FieldEndDate   Field = "endDate"
)

const (
	MsgStartConflict = "Start date conflicts with an existing booking"
	MsgEndConflict   = "End date conflicts with an existing booking"
	MsgInvalidRange  = "endDate cannot be on or before startDate"
)

// Decision is the outcome of Evaluate. A rejected candidate has Invalid set or
// a non-negative Index pointing at the first conflicting existing range.
type Decision struct {
	Invalid bool
	Index   int
	Fields  []Field
}

func (d Decision) Accepted() bool {
	return !d.Invalid && d.Index < 0
}

func (d Decision) Flagged(f Field) bool {
	for _, got := range d.Fields {
		if got == f {
			return true
		}
	}
	return false
}

// Messages renders the flagged fields the way clients expect them.
func (d Decision) Messages() map[string]string {
	if d.Accepted() {
		return nil
	}
	out := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		switch {
		case d.Invalid:
			out[string(f)] = MsgInvalidRange
		case f == FieldStartDate:
			out[string(f)] = MsgStartConflict
		case f == FieldEndDate:
			out[string(f)] = MsgEndConflict
		}
	}
	return out
}

// Evaluate checks candidate against existing in order and stops at the first
// overlap. existing is expected to be pairwise non-overlapping.
func Evaluate(candidate interval.Range, existing []interval.Range) Decision {
	if !candidate.Valid() {
		return Decision{Invalid: true, Index: -1, Fields: []Field{FieldEndDate}}
	}

	for i, held := range existing {
		if !candidate.Overlaps(held) {
			continue
		}
		return Decision{Index: i, Fields: classify(candidate, held)}
	}

	return Decision{Index: -1}
}

// classify is only called for overlapping ranges, so at least one field is
// always returned.
func classify(candidate, held interval.Range) []Field {
	var fields []Field

	startInside := held.Occupies(candidate.Start)
	// the candidate's last night is the day before its checkout
	endInside := held.Start.Before(candidate.End) && !held.End.Before(candidate.End)
	contains := !held.Start.Before(candidate.Start) && candidate.End.After(held.End)

	if startInside || contains {
		fields = append(fields, FieldStartDate)
	}
	if endInside || contains {
		fields = append(fields, FieldEndDate)
	}
	return fields
}
