// This file is part of Gopher2600.
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

// Package coverage implements the interval-set arithmetic used to track
// which bytes of a section (or which addresses of an address space)
// have been reached via some reference, so that loaders can detect
// holes, overlaps and orphan padding.
package coverage

import "sort"

type interval struct {
	start, length uint64
}

func (iv interval) end() uint64 { return iv.start + iv.length }

// Set is a sorted collection of disjoint, non-adjacent intervals.
type Set struct {
	intervals []interval
}

// New creates an empty coverage set.
func New() *Set {
	return &Set{}
}

// Add inserts [start,start+length), merging with any neighbour that it
// touches or overlaps.
func (s *Set) Add(start, length uint64) {
	if length == 0 {
		return
	}
	niv := interval{start: start, length: length}

	var merged []interval
	inserted := false
	for _, iv := range s.intervals {
		if inserted {
			merged = append(merged, iv)
			continue
		}
		if iv.end() < niv.start {
			merged = append(merged, iv)
			continue
		}
		if niv.end() < iv.start {
			merged = append(merged, niv)
			merged = append(merged, iv)
			inserted = true
			continue
		}
		// overlapping or adjacent: merge into niv
		lo := niv.start
		if iv.start < lo {
			lo = iv.start
		}
		hi := niv.end()
		if iv.end() > hi {
			hi = iv.end()
		}
		niv = interval{start: lo, length: hi - lo}
	}
	if !inserted {
		merged = append(merged, niv)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].start < merged[j].start })
	s.intervals = merged
}

// IsCovered reports whether [start,start+length) lies entirely within
// some single stored interval.
func (s *Set) IsCovered(start, length uint64) bool {
	end := start + length
	for _, iv := range s.intervals {
		if iv.start <= start && end <= iv.end() {
			return true
		}
	}
	return false
}

// IsOverlap reports whether [start,start+length) intersects any stored
// interval.
func (s *Set) IsOverlap(start, length uint64) bool {
	end := start + length
	for _, iv := range s.intervals {
		if iv.start < end && start < iv.end() {
			return true
		}
	}
	return false
}

// FindHoles invokes cb on every maximal sub-interval of [lo,hi) not
// covered by s. cb may abort enumeration early by returning false.
func (s *Set) FindHoles(lo, hi uint64, cb func(start, length uint64) bool) {
	cursor := lo
	for _, iv := range s.intervals {
		if iv.end() <= cursor {
			continue
		}
		if iv.start >= hi {
			break
		}
		if iv.start > cursor {
			holeEnd := iv.start
			if holeEnd > hi {
				holeEnd = hi
			}
			if !cb(cursor, holeEnd-cursor) {
				return
			}
		}
		if iv.end() > cursor {
			cursor = iv.end()
		}
		if cursor >= hi {
			return
		}
	}
	if cursor < hi {
		cb(cursor, hi-cursor)
	}
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	c := &Set{intervals: make([]interval, len(s.intervals))}
	copy(c.intervals, s.intervals)
	return c
}

// RemoveAll subtracts every interval of other from s, in place.
func (s *Set) RemoveAll(other *Set) {
	for _, o := range other.intervals {
		s.subtract(o.start, o.length)
	}
}

func (s *Set) subtract(start, length uint64) {
	end := start + length
	var result []interval
	for _, iv := range s.intervals {
		if iv.end() <= start || iv.start >= end {
			result = append(result, iv)
			continue
		}
		if iv.start < start {
			result = append(result, interval{start: iv.start, length: start - iv.start})
		}
		if iv.end() > end {
			result = append(result, interval{start: end, length: iv.end() - end})
		}
	}
	s.intervals = result
}

// Intervals returns the stored intervals as (start, length) pairs, for
// callers that need to enumerate coverage directly (e.g. aranges-vs-CU
// comparison reporting).
func (s *Set) Intervals() []struct{ Start, Length uint64 } {
	out := make([]struct{ Start, Length uint64 }, len(s.intervals))
	for i, iv := range s.intervals {
		out[i] = struct{ Start, Length uint64 }{iv.start, iv.length}
	}
	return out
}
