package schedule

import "upkeep/internal/domain"

// Expand lays out every occurrence of a single cadence inside w.
func Expand(c Cadence, w Window) []Occurrence {
	return Merge(nil, c, w)
}

// Merge lays out the occurrences of a lower-priority cadence around the
// already accepted, chronologically ordered higher-priority occurrences and
// returns the combined schedule in chronological order.
//
// Candidates start at w.Start and advance by c.Interval. A candidate that
// would reach the next higher occurrence is discarded and the cursor moves
// to that occurrence's end plus c.Interval: the higher tier absorbs the
// lower tier's service during its own window. The first candidate whose end
// falls past w.End stops the cadence.
func Merge(higher []Occurrence, c Cadence, w Window) []Occurrence {
	out := make([]Occurrence, 0, len(higher))
	if c.Interval <= 0 || c.Duration <= 0 {
		return append(out, higher...)
	}
	next := 0
	cursor := w.Start
	for !cursor.After(w.End) {
		cand := c.At(cursor)
		if next < len(higher) && !cand.End.Before(higher[next].Start) {
			out = append(out, higher[next])
			cursor = domain.AddDays(higher[next].End, c.Interval)
			next++
			continue
		}
		if cand.End.After(w.End) {
			break
		}
		out = append(out, cand)
		cursor = domain.AddDays(cursor, c.Interval)
	}
	return append(out, higher[next:]...)
}
