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

// Package elfscan identifies the known DWARF debug sections in an ELF
// object, pairs each with its relocation section if any, and -- for
// relocatable (ET_REL) objects -- simulates the flat in-memory layout a
// linker would assign, so that later coverage comparisons between
// address ranges and ELF sections can assume a flat address space.
package elfscan

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/elfview"
)

// Tags of every DWARF section this tool knows how to validate.
var knownSections = []string{
	".debug_info",
	".debug_abbrev",
	".debug_aranges",
	".debug_pubnames",
	".debug_pubtypes",
	".debug_loc",
	".debug_ranges",
	".debug_line",
	".debug_str",
}

// DebugSection bundles one known debug section's bytes with its
// relocation table, if the object carries one for it.
type DebugSection struct {
	Name    string
	Section elfview.Section
	Data    []byte
	Reloc   *reloc.Table
}

// Scan is the result of scanning one ELF object: the debug sections
// found, the assigned symbol table, and -- for ET_REL objects -- the
// simulated load address of every SHF_ALLOC section.
type Scan struct {
	View     *elfview.View
	Sections map[string]*DebugSection
	Symbols  []elfview.Symbol

	// assigned holds the simulated sh_addr for every SHF_ALLOC section,
	// keyed by section index, populated only for ET_REL objects.
	assigned map[int]uint64

	// DuplicateSymtab records whether a second SHT_SYMTAB was found; the
	// first remains authoritative, matching dwarflint.c's behaviour.
	DuplicateSymtab bool
}

// Run scans v for known debug sections, their relocations, and (for
// ET_REL objects) a simulated flat layout.
func Run(v *elfview.View) (*Scan, error) {
	s := &Scan{View: v, Sections: map[string]*DebugSection{}, assigned: map[int]uint64{}}

	syms, err := v.Symbols()
	if err != nil {
		return nil, fmt.Errorf("elfscan: reading symbol table: %w", err)
	}
	s.Symbols = syms

	sawSymtab := false
	for _, sec := range v.Sections() {
		if sec.Type == elf.SHT_SYMTAB {
			if sawSymtab {
				s.DuplicateSymtab = true
			}
			sawSymtab = true
		}
	}

	for _, name := range knownSections {
		sec, ok := v.SectionByName(name)
		if !ok {
			continue
		}
		data, err := v.SectionData(sec)
		if err != nil {
			return nil, fmt.Errorf("elfscan: reading %s: %w", name, err)
		}
		s.Sections[name] = &DebugSection{Name: name, Section: sec, Data: data}
	}

	// layout must be simulated before relocations are decoded: an
	// ET_REL object's STT_SECTION symbols are substituted with their
	// assigned address as each relocation entry is built, below.
	if v.EhdrType() == elf.ET_REL {
		s.simulateLayout(v)
	}

	if err := s.attachRelocations(v); err != nil {
		return nil, err
	}

	return s, nil
}

// attachRelocations finds every SHT_REL/SHT_RELA section whose sh_info
// points at a known debug section and builds a reloc.Table for it.
func (s *Scan) attachRelocations(v *elfview.View) error {
	for _, sec := range v.Sections() {
		if sec.Type != elf.SHT_REL && sec.Type != elf.SHT_RELA {
			continue
		}

		target, ok := v.SectionByIndex(int(sec.Info))
		if !ok {
			continue
		}
		ds, ok := s.Sections[target.Name]
		if !ok {
			continue
		}
		if ds.Reloc != nil {
			// duplicate relocation section targeting the same debug
			// section; the first one found remains authoritative.
			continue
		}

		data, err := v.SectionData(sec)
		if err != nil {
			return fmt.Errorf("elfscan: reading relocations for %s: %w", target.Name, err)
		}

		entries, err := s.decodeRelocations(data, sec.Type == elf.SHT_RELA, ds.Data, v)
		if err != nil {
			return fmt.Errorf("elfscan: decoding relocations for %s: %w", target.Name, err)
		}
		ds.Reloc = reloc.New(entries)
	}
	return nil
}

func (s *Scan) decodeRelocations(data []byte, isRela bool, targetData []byte, v *elfview.View) ([]reloc.Entry, error) {
	order := v.ByteOrder()

	entrySize := 8
	if v.Is64() {
		entrySize = 16
	}
	if isRela {
		entrySize += 8
		if !v.Is64() {
			entrySize = 12
		}
	}
	if entrySize == 0 || len(data)%entrySize != 0 {
		return nil, fmt.Errorf("relocation section size %d not a multiple of entry size %d", len(data), entrySize)
	}

	syms, _ := v.Symbols()

	var out []reloc.Entry
	for off := 0; off+entrySize <= len(data); off += entrySize {
		var offset uint64
		var info uint64
		var addend int64

		if v.Is64() {
			offset = order.Uint64(data[off:])
			info = order.Uint64(data[off+8:])
			if isRela {
				addend = int64(order.Uint64(data[off+16:]))
			}
		} else {
			offset = uint64(order.Uint32(data[off:]))
			info = uint64(order.Uint32(data[off+4:]))
			if isRela {
				addend = int64(int32(order.Uint32(data[off+8:])))
			}
		}

		var symIdx int
		var relType elf.R_ARM
		if v.Is64() {
			symIdx = int(info >> 32)
			relType = elf.R_ARM(info & 0xffffffff)
		} else {
			symIdx = int(info >> 8)
			relType = elf.R_ARM(info & 0xff)
		}

		if !isRela && int(offset)+4 <= len(targetData) {
			addend = int64(order.Uint32(targetData[offset:]))
		}

		var sym elfview.Symbol
		if symIdx >= 0 && symIdx < len(syms) {
			sym = syms[symIdx]
		}

		entry := reloc.Entry{
			Offset: offset,
			Type:   relType,
			Symbol: sym,
			SymIdx: symIdx,
			Addend: addend,
			IsRela: isRela,
		}

		// a regular (non-reserved) section index: record the section's
		// name and flags, and, for ET_REL, substitute an STT_SECTION
		// symbol's value with the section's simulated load address
		// (spec.md §4.4 step 2 / §4.6).
		if sym.Section != elf.SHN_UNDEF && sym.Section < elf.SHN_LORESERVE {
			if sec, ok := v.SectionByIndex(int(sym.Section)); ok {
				entry.SymSectionName = sec.Name
				entry.SymSHFAlloc = sec.Flags&elf.SHF_ALLOC != 0
				entry.SymSHFExecInstr = sec.Flags&elf.SHF_EXECINSTR != 0
				if v.EhdrType() == elf.ET_REL && elf.ST_TYPE(sym.Info) == elf.STT_SECTION {
					entry.Symbol.Value = s.AssignedAddr(sec)
				}
			}
		}

		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out, nil
}

// simulateLayout assigns a flat sh_addr to every SHF_ALLOC section of an
// ET_REL object: sections that already carry a nonzero address keep it;
// sections at address 0 are placed immediately past the running end,
// aligned to their sh_addralign. If a subsequent fixed-address section
// doesn't fit past the running end, layout restarts from a larger base.
func (s *Scan) simulateLayout(v *elfview.View) {
	sections := v.Sections()

	var alloc []elfview.Section
	for _, sec := range sections {
		if sec.Flags&elf.SHF_ALLOC != 0 {
			alloc = append(alloc, sec)
		}
	}

	base := uint64(0)
restart:
	end := base
	assigned := map[int]uint64{}
	for _, sec := range alloc {
		addr := sec.Addr
		if addr == 0 {
			align := sec.Align
			if align == 0 {
				align = 1
			}
			addr = alignUp(end, align)
		} else if addr < end {
			base = end + 1
			goto restart
		}
		assigned[sec.Index] = addr
		if addr+sec.Size > end {
			end = addr + sec.Size
		}
	}
	s.assigned = assigned
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// AssignedAddr returns the simulated load address for an SHF_ALLOC
// section of an ET_REL object, or the section's own recorded address if
// no simulation ran (non-ET_REL objects).
func (s *Scan) AssignedAddr(sec elfview.Section) uint64 {
	if addr, ok := s.assigned[sec.Index]; ok {
		return addr
	}
	return sec.Addr
}
