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

// Package elfview is a thin shim over debug/elf, the external collaborator
// the engine consults for byte extraction, endian conversion and
// symbol-table lookup. It plays the same role the coprocessor package's
// elf_shim.go plays for the DWARF decoder this tool's checks were
// originally modeled on, generalised from "one armcode.elf found next
// to a ROM" to "every file named on the command line."
package elfview

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// View wraps an open ELF file with the handful of accessors the checking
// engine needs: section lookup, symbol lookup, and the endian/class bits
// that every reader needs to interpret raw bytes correctly.
type View struct {
	f *elf.File
}

// Open opens path as an ELF object. The caller owns the returned View and
// must call Close when done with it.
func Open(path string) (*View, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfview: %w", err)
	}
	return &View{f: f}, nil
}

// Close releases the underlying file handle.
func (v *View) Close() error {
	return v.f.Close()
}

// Section describes one named ELF section, carrying just the fields the
// checking engine consults.
type Section struct {
	Name  string
	Index int
	Addr  uint64
	Size  uint64
	Type  elf.SectionType
	Flags elf.SectionFlag
	Link  uint32
	Info  uint32
	Align uint64
	raw   *elf.Section
}

// SectionByName returns the named section, or ok=false if the object has
// no section of that name.
func (v *View) SectionByName(name string) (Section, bool) {
	for i, s := range v.f.Sections {
		if s.Name == name {
			return v.toSection(i, s), true
		}
	}
	return Section{}, false
}

// SectionByIndex returns the section at the given ELF section header
// index, or ok=false if idx is out of range.
func (v *View) SectionByIndex(idx int) (Section, bool) {
	if idx < 0 || idx >= len(v.f.Sections) {
		return Section{}, false
	}
	return v.toSection(idx, v.f.Sections[idx]), true
}

// Sections returns every section header, in file order.
func (v *View) Sections() []Section {
	out := make([]Section, len(v.f.Sections))
	for i, s := range v.f.Sections {
		out[i] = v.toSection(i, s)
	}
	return out
}

func (v *View) toSection(i int, s *elf.Section) Section {
	return Section{
		Name: s.Name, Index: i, Addr: s.Addr, Size: s.Size,
		Type: s.Type, Flags: s.Flags, Link: s.Link, Info: s.Info,
		Align: s.Addralign, raw: s,
	}
}

// SectionData returns the raw, uncompressed bytes of sec.
func (v *View) SectionData(sec Section) ([]byte, error) {
	return sec.raw.Data()
}

// Symbol mirrors elf.Symbol, renamed locally so callers never need to
// import debug/elf just to read a field off a symbol this package handed
// back to them.
type Symbol = elf.Symbol

// Symbols returns the object's full symbol table. Index 0 (the null
// symbol every ELF symtab begins with) is included, unlike elf.Symbols,
// so relocation symbol indices -- which count the null entry -- line up
// directly with slice indices.
func (v *View) Symbols() ([]Symbol, error) {
	syms, err := v.f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, err
	}
	out := make([]Symbol, 0, len(syms)+1)
	out = append(out, Symbol{})
	out = append(out, syms...)
	return out, nil
}

// SymbolSectionIndex returns the ELF section header index a symbol
// resolves to.
func (v *View) SymbolSectionIndex(sym Symbol) elf.SectionIndex {
	return sym.Section
}

// Is64 reports whether this is a 64-bit ELF object.
func (v *View) Is64() bool {
	return v.f.Class == elf.ELFCLASS64
}

// IsLittleEndian reports the object's byte order.
func (v *View) IsLittleEndian() bool {
	return v.f.ByteOrder.String() == "LittleEndian"
}

// ByteOrder exposes the object's decoded byte order directly, for
// readers that need to hand it to encoding/binary.
func (v *View) ByteOrder() binary.ByteOrder {
	return v.f.ByteOrder
}

// EhdrType is the ELF file type (ET_EXEC, ET_REL, ET_DYN, ...).
func (v *View) EhdrType() elf.Type {
	return v.f.Type
}

// Machine is the target architecture recorded in the ELF header. Nothing
// in this repository calls it; dwarf/reloc has a single ARM width table.
func (v *View) Machine() elf.Machine {
	return v.f.Machine
}

// AddressSize reports the pointer width implied by the ELF class, the
// value DWARF readers use as a default when a CU header doesn't specify
// its own address_size.
func (v *View) AddressSize() int {
	if v.Is64() {
		return 8
	}
	return 4
}
