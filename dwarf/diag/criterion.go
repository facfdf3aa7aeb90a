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

package diag

import "strings"

// Term is a pair of bitmasks: positive bits that must all be set,
// negative bits that must all be clear, for the term to match a
// category. positive & negative == 0 is an invariant maintained by the
// combinators below; a term that would violate it is dropped as
// internally contradictory.
type Term struct {
	Positive Category
	Negative Category
}

func (t Term) contradictory() bool {
	return t.Positive&t.Negative != 0
}

// Match reports whether cat satisfies the term.
func (t Term) Match(cat Category) bool {
	return t.Positive&cat == t.Positive && t.Negative&cat == 0
}

// Just builds a term that requires every bit in cat to be set; other
// bits may be set too.
func Just(cat Category) Term {
	return Term{Positive: cat}
}

// Not builds a term that forbids every bit in cat.
func Not(cat Category) Term {
	return Term{Negative: cat}
}

// and conjoins two terms by OR-ing their masks together, per spec.md
// §4.2's "conjoin a term" rule.
func (t Term) and(other Term) Term {
	return Term{Positive: t.Positive | other.Positive, Negative: t.Negative | other.Negative}
}

// Criterion is a disjunction of terms -- a DNF formula. It accepts a
// category iff some term does.
type Criterion []Term

// Accept reports whether cat is accepted by the criterion.
func (c Criterion) Accept(cat Category) bool {
	for _, t := range c {
		if t.Match(cat) {
			return true
		}
	}
	return false
}

// And conjoins every disjunct of c with t, dropping any disjunct that
// becomes internally contradictory.
func (c Criterion) And(t Term) Criterion {
	var out Criterion
	for _, d := range c {
		nd := d.and(t)
		if !nd.contradictory() {
			out = append(out, nd)
		}
	}
	return out
}

// Or appends t as a new disjunct.
func (c Criterion) Or(t Term) Criterion {
	return append(append(Criterion{}, c...), t)
}

// Negate returns the criterion representing ¬t. ¬(p ∧ ¬n) rewrites to
// (¬p₁ ∨ … ∨ n₁ ∨ …): one single-bit term per bit of positive (as a
// negative requirement) and one single-bit term per bit of negative (as
// a positive requirement).
func (t Term) Negate() Criterion {
	var out Criterion
	for _, n := range categoryNames {
		if t.Positive&n.bit != 0 {
			out = append(out, Not(n.bit))
		}
		if t.Negative&n.bit != 0 {
			out = append(out, Just(n.bit))
		}
	}
	return out
}

// Mul conjoins two DNFs: the pairwise OR of every pair of terms, one
// from each side, with contradictory results dropped.
func (c Criterion) Mul(other Criterion) Criterion {
	var out Criterion
	for _, a := range c {
		for _, b := range other {
			nd := a.and(b)
			if !nd.contradictory() {
				out = append(out, nd)
			}
		}
	}
	return out
}

// AndNot conjoins c with the negation of t (spec.md §4.2's "subtract").
func (c Criterion) AndNot(t Term) Criterion {
	return c.Mul(t.Negate())
}

// Accepting returns the criterion "all categories", the identity
// disjunct used as the seed when building up a criterion via repeated
// And/AndNot calls.
func Accepting() Criterion {
	return Criterion{{}}
}

// Nothing returns the criterion that accepts no category.
func Nothing() Criterion {
	return Criterion{}
}

func (t Term) String() string {
	var parts []string
	for _, n := range categoryNames {
		if t.Positive&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	for _, n := range categoryNames {
		if t.Negative&n.bit != 0 {
			parts = append(parts, "!"+n.name)
		}
	}
	if len(parts) == 0 {
		return "(true)"
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

// String formats the criterion as a human-readable DNF dump, the format
// printed by -v and used by the round-trip property in spec.md §8.
func (c Criterion) String() string {
	if len(c) == 0 {
		return "(false)"
	}
	parts := make([]string, len(c))
	for i, t := range c {
		parts[i] = t.String()
	}
	return strings.Join(parts, " || ")
}
