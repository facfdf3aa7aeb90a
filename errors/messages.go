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

package errors

// error messages used by curated errors. these are the *fatal* driver
// level failures described in SPEC_FULL.md §2.2 -- the per-diagnostic
// structural/invariant/bloat messages emitted while checking a section
// are not curated errors, they go through dwarf/diag instead.
const (
	// command line / front end
	UsageError       = "usage error: %v"
	NoInputFiles     = "no input files specified"
	QuietAndVerbose  = "-q and -v are mutually exclusive"
	InputFileMissing = "cannot open input file: %v"

	// ELF container
	ElfOpenError       = "cannot open elf file: %v"
	ElfNotAnObject     = "not an elf file: %v"
	ElfMissingSection  = "elf file has no %s section"
	ElfDuplicateSymtab = "elf file has more than one symbol table"

	// read cursor
	ReadCtxOutOfBounds = "read out of bounds in %s at offset %#x"
	ReadCtxBadSubrange = "sub-cursor range [%#x,%#x) is not within parent [%#x,%#x)"

	// abbrev / info / section loaders (fatal only; structural violations
	// that do not prevent continued reading are diagnostics, not errors)
	AbbrevSectionMalformed = "malformed .debug_abbrev: %v"
	InfoSectionMalformed   = "malformed .debug_info: %v"
	ArangesSectionMalformed = "malformed .debug_aranges: %v"
	PubSectionMalformed    = "malformed %s: %v"
	LocRangeSectionMalformed = "malformed %s: %v"
	LineSectionMalformed   = "malformed .debug_line: %v"
)
