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

// Package where implements the structured diagnostic coordinate every
// message in this repository is tagged with: a section plus up to three
// nested numeric keys, and an optional chain back to whatever reference
// caused the message to be produced.
package where

import "fmt"

// Section names the DWARF (or ELF/relocation) section a coordinate
// refers to.
type Section int

// the sections the checker knows how to format a coordinate for.
const (
	SecAbbrev Section = iota
	SecInfo
	SecAranges
	SecPubnames
	SecPubtypes
	SecLoc
	SecRanges
	SecLine
	SecStr
	SecElf
	SecReloc
)

var sectionNames = map[Section]string{
	SecAbbrev:   ".debug_abbrev",
	SecInfo:     ".debug_info",
	SecAranges:  ".debug_aranges",
	SecPubnames: ".debug_pubnames",
	SecPubtypes: ".debug_pubtypes",
	SecLoc:      ".debug_loc",
	SecRanges:   ".debug_ranges",
	SecLine:     ".debug_line",
	SecStr:      ".debug_str",
	SecElf:      "elf",
	SecReloc:    "reloc",
}

func (s Section) String() string {
	if n, ok := sectionNames[s]; ok {
		return n
	}
	return "unknown section"
}

// key is one of the (up to three) nested numeric coordinates. present
// distinguishes "value is zero" from "value was never set".
type key struct {
	value   uint64
	present bool
}

// Formatting selects a phrasing variant for a coordinate within the
// same section, e.g. "CU DIE" instead of the plain numbered form.
type Formatting int

const (
	FormatPlain Formatting = iota
	FormatCUDIE
)

// Where is the structured diagnostic coordinate. It is built with New
// and is immutable after that -- the Reset* helpers below return an
// updated copy rather than mutating shared state, so a Where handed out
// to one caller is never retroactively changed by another.
type Where struct {
	section    Section
	addr1      key
	addr2      key
	addr3      key
	formatting Formatting

	// ref is the "caused by this reference" site: another Where whose
	// diagnostic, if any, is the reason this one exists.
	ref *Where

	// fileLabel prefixes formatted output when more than one input file
	// is being checked in the same run (original_source's "only_one").
	fileLabel string
}

// New creates a bare coordinate for section with no keys set.
func New(section Section) Where {
	return Where{section: section}
}

// WithFile returns a copy of w labelled with the input file it belongs
// to; used only when checking more than one file in a single run.
func (w Where) WithFile(label string) Where {
	w.fileLabel = label
	return w
}

// Reset1 returns a copy of w with only the first key set to v.
func (w Where) Reset1(v uint64) Where {
	w.addr1 = key{value: v, present: true}
	w.addr2 = key{}
	w.addr3 = key{}
	return w
}

// Reset2 returns a copy of w with the first key unchanged and the
// second set to v. Panics if addr1 has not been set -- addr2 present
// requires addr1 present (spec.md §3 invariant).
func (w Where) Reset2(v uint64) Where {
	if !w.addr1.present {
		panic("where: Reset2 called without addr1 set")
	}
	w.addr2 = key{value: v, present: true}
	w.addr3 = key{}
	return w
}

// Reset3 returns a copy of w with addr1 and addr2 unchanged and addr3
// set to v. Panics if addr2 has not been set.
func (w Where) Reset3(v uint64) Where {
	if !w.addr2.present {
		panic("where: Reset3 called without addr2 set")
	}
	w.addr3 = key{value: v, present: true}
	return w
}

// WithFormatting returns a copy of w using the given phrasing variant.
func (w Where) WithFormatting(f Formatting) Where {
	w.formatting = f
	return w
}

// Chain returns a copy of w whose ref points at cause -- "this
// diagnostic was produced because of a reference described by cause".
func (w Where) Chain(cause Where) Where {
	w.ref = &cause
	return w
}

// Ref returns the chained cause, if any, and whether one is present.
func (w Where) Ref() (Where, bool) {
	if w.ref == nil {
		return Where{}, false
	}
	return *w.ref, true
}

// Section returns the coordinate's section.
func (w Where) Section() Section {
	return w.section
}

// String formats the coordinate using the per-section template from
// spec.md §4.2.
func (w Where) String() string {
	var s string

	switch {
	case w.section == SecInfo && w.formatting == FormatCUDIE:
		s = fmt.Sprintf("%s: CU %s DIE", w.section, w.fmtAddr1())
	case w.section == SecInfo:
		s = fmt.Sprintf("%s: CU %s", w.section, w.fmtAddr1())
		if w.addr2.present {
			s += fmt.Sprintf(": DIE %#x", w.addr2.value)
		}
	case w.section == SecAranges, w.section == SecPubnames, w.section == SecPubtypes:
		s = fmt.Sprintf("%s: table %s", w.section, w.fmtAddr1())
		if w.addr2.present {
			s += fmt.Sprintf(": entry %#x", w.addr2.value)
		}
	case w.section == SecLoc, w.section == SecRanges:
		s = fmt.Sprintf("%s: list %s", w.section, w.fmtAddr1())
		if w.addr2.present {
			s += fmt.Sprintf(": entry %#x", w.addr2.value)
		}
	case w.section == SecLine:
		s = fmt.Sprintf("%s: table %s", w.section, w.fmtAddr1())
		if w.addr2.present {
			s += fmt.Sprintf(": offset %#x", w.addr2.value)
		}
	default:
		s = w.section.String()
		if w.addr1.present {
			s += fmt.Sprintf(": %#x", w.addr1.value)
		}
	}

	if w.addr3.present {
		s += fmt.Sprintf(" [%#x]", w.addr3.value)
	}

	if w.fileLabel != "" {
		return w.fileLabel + ": " + s
	}
	return s
}

func (w Where) fmtAddr1() string {
	if !w.addr1.present {
		return "?"
	}
	if w.section == SecInfo || w.section == SecAranges || w.section == SecPubnames || w.section == SecPubtypes {
		return fmt.Sprintf("%d", w.addr1.value)
	}
	return fmt.Sprintf("%#x", w.addr1.value)
}
