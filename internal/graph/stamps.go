package graph

import "slices"

// Stamp is one named timestamp of an entity or event, in nanoseconds.
type Stamp struct {
	Stage string
	Time  int64
}

// Stamps is an insertion-ordered mapping from stage name to timestamp.
type Stamps []Stamp

// Add records a stage timestamp, replacing an earlier value for the same
// stage in place.
func (s *Stamps) Add(stage string, t int64) {
	for i := range *s {
		if (*s)[i].Stage == stage {
			(*s)[i].Time = t
			return
		}
	}
	*s = append(*s, Stamp{Stage: stage, Time: t})
}

// Get returns the timestamp of a stage.
func (s Stamps) Get(stage string) (int64, bool) {
	for _, st := range s {
		if st.Stage == stage {
			return st.Time, true
		}
	}
	return 0, false
}

// Earliest returns the smallest timestamp, or 0 when empty.
func (s Stamps) Earliest() int64 {
	if len(s) == 0 {
		return 0
	}
	m := s[0].Time
	for _, st := range s[1:] {
		m = min(m, st.Time)
	}
	return m
}

// Latest returns the largest timestamp, or 0 when empty.
func (s Stamps) Latest() int64 {
	if len(s) == 0 {
		return 0
	}
	m := s[0].Time
	for _, st := range s[1:] {
		m = max(m, st.Time)
	}
	return m
}

// Descending returns a copy ordered newest first. Equal timestamps keep
// insertion order.
func (s Stamps) Descending() Stamps {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b Stamp) int {
		switch {
		case a.Time > b.Time:
			return -1
		case a.Time < b.Time:
			return 1
		}
		return 0
	})
	return out
}

// Clone returns an independent copy.
func (s Stamps) Clone() Stamps { return slices.Clone(s) }
