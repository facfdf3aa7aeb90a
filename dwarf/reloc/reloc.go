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

// Package reloc drives the relocation entries found for a single section
// through a sorted cursor, coupling a reader's byte offset advance to the
// symbol/addend lookup a relocation record supplies. This mirrors the ARM
// REL-pair symbol resolution in the llvm backend's binary file parser, but
// generalised to arbitrary ET_REL relocatable object sections instead of
// one hardcoded .rel.text.
package reloc

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/where"
)

// Entry is a single relocation record, resolved against the object's
// symbol table. SymSectionName, SymSHFAlloc and SymSHFExecInstr describe
// the ELF section the symbol resolves into (empty/false when the symbol
// is absolute, undefined, or its section carries no such flag); they are
// filled in by elfscan at decode time, since only that package has the
// section headers in hand.
type Entry struct {
	Offset uint64
	Type   elf.R_ARM
	Symbol elf.Symbol
	SymIdx int
	Addend int64
	IsRela bool

	SymSectionName  string
	SymSHFAlloc     bool
	SymSHFExecInstr bool
}

// ExpectedSection classifies what kind of target a relocated field is
// supposed to resolve to (spec.md §4.4 step 3), checked against the
// section the relocation's symbol actually resolves into.
type ExpectedSection struct {
	kind expectedKind
	name string
}

type expectedKind int

const (
	kindValue expectedKind = iota
	kindAddress
	kindExec
	kindSection
)

var (
	// RelValue is generic data: the symbol must be absolute, common, or
	// in an SHF_ALLOC section.
	RelValue = ExpectedSection{kind: kindValue}
	// RelAddress is a machine address: as RelValue, but SHN_UNDEF is
	// also accepted (an external address with no local definition).
	RelAddress = ExpectedSection{kind: kindAddress}
	// RelExec is a code address: as RelAddress, but additionally
	// expects the section to be SHF_EXECINSTR (a soft warning only).
	RelExec = ExpectedSection{kind: kindExec}
)

// RelSection expects the relocation's symbol to resolve into the named
// section exactly (e.g. ".debug_info" for a DW_FORM_ref_addr field).
func RelSection(name string) ExpectedSection {
	return ExpectedSection{kind: kindSection, name: name}
}

// Table is the sorted relocation list for one target section, plus the
// cursor state needed to walk it in lockstep with a ReadCtx.
type Table struct {
	entries []Entry
	cursor  int

	// counts of entries skipped for each reason, surfaced so callers can
	// report "N relocations ignored" the way dwarflint.c's relocation()
	// does for skip_mismatched/skip_unref.
	SkippedMismatched int
	SkippedUnref      int
}

// New builds a Table from a copy of the raw relocation entries, sorted by
// Offset. Every entry is kept; none is dropped or counted here.
func New(entries []Entry) *Table {
	t := &Table{entries: append([]Entry(nil), entries...)}
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Offset < t.entries[j].Offset })
	return t
}

// Len reports the number of relocation entries remaining to be walked.
func (t *Table) Len() int {
	return len(t.entries) - t.cursor
}

// Next advances the cursor to the first relocation at or after offset. It
// returns the matching entry and true if one exists whose Offset equals
// offset exactly. Every relocation whose offset lies before offset is
// skipped over, does not match, and is counted in SkippedUnref; no
// diagnostic is emitted for it here.
func (t *Table) Next(offset uint64) (Entry, bool) {
	for t.cursor < len(t.entries) {
		e := t.entries[t.cursor]
		if e.Offset < offset {
			// a stray relocation that was never consumed because the
			// reader skipped past it entirely (e.g. inside a form that
			// doesn't carry a relocatable field)
			t.cursor++
			t.SkippedUnref++
			continue
		}
		if e.Offset == offset {
			return e, true
		}
		return Entry{}, false
	}
	return Entry{}, false
}

// Consume advances past the entry most recently returned by Next,
// whether or not its value was applied.
func (t *Table) Consume() {
	if t.cursor < len(t.entries) {
		t.cursor++
	}
}

// SkipRest advances the cursor past every remaining entry for this
// table, counting them as unreferenced. No loader in this repository
// calls it; a loader that stops early leaves the remaining entries
// uncounted.
func (t *Table) SkipRest() {
	t.SkippedUnref += t.Len()
	t.cursor = len(t.entries)
}

// relocWidth is the backend's reloc-type-to-width table (spec.md §4.4
// step 1): every simple, absolute 4-byte relocation type this linter
// understands how to resolve into a DWARF section-offset or data field.
// R_ARM_REL32/R_ARM_REL32_NOI are PC-relative in the general case, but
// for a .debug_* field relocated against a non-allocated section (the
// common case for unlinked objects) the addend-plus-symbol-value
// computation below is the same; true link-time PC-relative semantics
// are out of scope.
var relocWidth = map[elf.R_ARM]int{
	elf.R_ARM_ABS32:     4,
	elf.R_ARM_REL32:     4,
	elf.R_ARM_TARGET1:   4, // commonly used for DWARF references in ARM ET_REL objects
	elf.R_ARM_TARGET2:   4,
	elf.R_ARM_ABS32_NOI: 4,
	elf.R_ARM_REL32_NOI: 4,
}

// Apply resolves e's target value given the raw field width read from the
// object file at e.Offset. It validates that the field is wide enough to
// hold the relocated value, that the relocation type is one this linter
// understands, and that the symbol's section matches expected; a mismatch
// increments SkippedMismatched and returns ok=false rather than guessing
// a value. d/w are used only to report an expected-section classification
// failure (spec.md §4.4 step 3); a width/type mismatch is left for the
// caller to report as it sees fit, matching the pre-existing contract.
func (t *Table) Apply(e Entry, fieldWidth int, raw uint64, expected ExpectedSection, d *diag.Diagnostics, w where.Where) (value uint64, ok bool) {
	width, known := relocWidth[e.Type]
	if !known || fieldWidth < width {
		t.SkippedMismatched++
		return 0, false
	}

	if !checkExpectedSection(e, expected, d, w) {
		t.SkippedMismatched++
		return 0, false
	}

	return uint64(e.Symbol.Value) + uint64(int64(raw)+e.Addend), true
}

// checkExpectedSection implements spec.md §4.4 step 3's classification.
func checkExpectedSection(e Entry, expected ExpectedSection, d *diag.Diagnostics, w where.Where) bool {
	shndx := e.Symbol.Section

	if expected.kind == kindSection {
		if shndx == elf.SHN_ABS || shndx == elf.SHN_UNDEF {
			return true
		}
		if e.SymSectionName != expected.name {
			d.Error(w, "relocation references section %s, but %s was expected", sectionLabel(e), expected.name)
			return false
		}
		return true
	}

	ok := shndx == elf.SHN_ABS || shndx == elf.SHN_COMMON || e.SymSHFAlloc
	if expected.kind == kindAddress || expected.kind == kindExec {
		ok = ok || shndx == elf.SHN_UNDEF
	}
	if !ok {
		d.Error(w, "relocation symbol in %s is neither absolute, common, nor allocated", sectionLabel(e))
		return false
	}

	if expected.kind == kindExec && !e.SymSHFExecInstr && shndx != elf.SHN_ABS && shndx != elf.SHN_UNDEF {
		d.Message(diag.ImpactLevel2, w, "relocation expected executable code, but %s is not SHF_EXECINSTR", sectionLabel(e))
	}

	return true
}

func sectionLabel(e Entry) string {
	if e.SymSectionName != "" {
		return e.SymSectionName
	}
	switch e.Symbol.Section {
	case elf.SHN_ABS:
		return "SHN_ABS"
	case elf.SHN_UNDEF:
		return "SHN_UNDEF"
	case elf.SHN_COMMON:
		return "SHN_COMMON"
	default:
		return fmt.Sprintf("section index %d", e.Symbol.Section)
	}
}
