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

// Package line parses the .debug_line program header (directory/file
// vectors, opcode-length table) and validates the opcode stream that
// follows it, opcode by opcode, the same table-dispatch style the
// teacher's frame reader uses for CIE/FDE instructions.
package line

import (
	"fmt"

	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/dwarf/where"
)

// FileEntry is one entry of the file-name vector.
type FileEntry struct {
	Name   string
	DirIdx uint64
	used   bool
}

// Table is one decoded line-number program header, with its
// directory/file vectors for the use of the stmt_list cross-check at
// the end of the section load.
type Table struct {
	Offset            uint64
	Version           uint16
	MinInstructionLen uint8
	DefaultIsStmt     bool
	LineBase          int8
	LineRange         uint8
	OpcodeBase        uint8
	StdOpcodeLengths  []uint8
	Directories       []string
	Files             []*FileEntry
}

// Load walks every table in ctx. lineRefs is the set of every stmt_list
// value recorded by the info loader; each must resolve to a table's
// starting offset, checked once the whole section has been consumed.
func Load(ctx *readctx.ReadCtx, rel *reloc.Table, lineRefs map[uint64]bool, d *diag.Diagnostics) ([]*Table, error) {
	var tables []*Table

	for !ctx.Eof() {
		if !ctx.Need(4) {
			break
		}
		tbl, err := loadOne(ctx, rel, d)
		if err != nil {
			return tables, err
		}
		if tbl == nil {
			break
		}
		tables = append(tables, tbl)
	}

	known := map[uint64]bool{}
	for _, t := range tables {
		known[t.Offset] = true
	}
	for ref := range lineRefs {
		if !known[ref] {
			d.Message(diag.CatLine, where.New(where.SecLine).Reset1(ref),
				"stmt_list reference does not resolve to the start of any line table")
		}
	}

	return tables, nil
}

func loadOne(ctx *readctx.ReadCtx, rel *reloc.Table, d *diag.Diagnostics) (*Table, error) {
	tableOffset := uint64(ctx.Offset())
	w := where.New(where.SecLine).Reset1(tableOffset)

	length32, err := ctx.Read4Ubyte()
	if err != nil {
		return nil, err
	}
	if length32 == 0 {
		return nil, nil
	}

	is64 := length32 == 0xffffffff
	var length uint64
	if is64 {
		length, err = ctx.Read8Ubyte()
		if err != nil {
			return nil, err
		}
	} else {
		length = uint64(length32)
	}

	programStart := uint64(ctx.Offset())
	sub, err := ctx.InitSub(int(programStart), int(programStart+length))
	if err != nil {
		return nil, fmt.Errorf("line table length %d runs past end of section", length)
	}
	if err := ctx.Skip(int(length)); err != nil {
		return nil, err
	}

	tbl := &Table{Offset: tableOffset}

	version, err := sub.Read2Ubyte()
	if err != nil {
		return tbl, err
	}
	tbl.Version = version
	if version != 2 && version != 3 {
		d.Message(diag.CatLine, w, "unsupported line table version %d", version)
	}

	headerLen, err := sub.ReadOffset(is64)
	if err != nil {
		return tbl, err
	}
	headerBodyStart := uint64(sub.Offset())

	minInstrLen, err := sub.ReadUByte()
	if err != nil {
		return tbl, err
	}
	tbl.MinInstructionLen = minInstrLen

	defaultIsStmt, err := sub.ReadUByte()
	if err != nil {
		return tbl, err
	}
	if defaultIsStmt != 0 && defaultIsStmt != 1 {
		d.Message(diag.CatLine, w, "default_is_stmt byte is neither 0 nor 1")
	}
	tbl.DefaultIsStmt = defaultIsStmt != 0

	lineBase, err := sub.ReadUByte()
	if err != nil {
		return tbl, err
	}
	tbl.LineBase = int8(lineBase)

	lineRange, err := sub.ReadUByte()
	if err != nil {
		return tbl, err
	}
	tbl.LineRange = lineRange

	opcodeBase, err := sub.ReadUByte()
	if err != nil {
		return tbl, err
	}
	tbl.OpcodeBase = opcodeBase

	for i := 0; i < int(opcodeBase)-1; i++ {
		v, err := sub.ReadUByte()
		if err != nil {
			return tbl, err
		}
		tbl.StdOpcodeLengths = append(tbl.StdOpcodeLengths, v)
	}

	for {
		dir, err := sub.ReadStr()
		if err != nil {
			return tbl, err
		}
		if dir == "" {
			break
		}
		tbl.Directories = append(tbl.Directories, dir)
	}

	for {
		name, err := sub.ReadStr()
		if err != nil {
			return tbl, err
		}
		if name == "" {
			break
		}
		dirIdx, _, err := sub.ReadULEB128()
		if err != nil {
			return tbl, err
		}
		if _, _, err := sub.ReadULEB128(); err != nil { // mtime
			return tbl, err
		}
		if _, _, err := sub.ReadULEB128(); err != nil { // size
			return tbl, err
		}

		if len(name) > 0 && name[0] == '/' && dirIdx != 0 {
			d.Message(diag.AccBloat, w, "absolute file name %q carries a non-zero directory index", name)
		}
		if dirIdx > uint64(len(tbl.Directories)) {
			d.Error(w, "file %q references directory index %d, beyond the directory vector", name, dirIdx)
		}
		tbl.Files = append(tbl.Files, &FileEntry{Name: name, DirIdx: dirIdx})
	}

	programOffsetStart := uint64(sub.Offset())
	declaredProgramStart := headerBodyStart + headerLen
	if programOffsetStart > declaredProgramStart {
		d.Error(w, "line program header's declared length is shorter than its actual contents")
	} else if programOffsetStart < declaredProgramStart {
		gap := declaredProgramStart - programOffsetStart
		for i := uint64(0); i < gap; i++ {
			b, err := sub.ReadUByte()
			if err != nil {
				return tbl, err
			}
			if b != 0 {
				d.Error(w, "non-zero padding between header and program")
				break
			}
		}
	}

	if err := runProgram(sub, rel, tbl, d, w); err != nil {
		return tbl, err
	}

	for i, f := range tbl.Files {
		if !f.used {
			d.Message(diag.AccBloat, w, "file entry %d (%q) is never referenced", i+1, f.Name)
		}
	}
	if len(tbl.Directories) == 0 && len(tbl.Files) == 0 {
		d.Message(diag.AccBloat, w, "line table has no directories or files")
	}

	return tbl, nil
}

func runProgram(sub *readctx.ReadCtx, rel *reloc.Table, tbl *Table, d *diag.Diagnostics, w where.Where) error {
	opcodeCount := 0
	terminated := false

	for !sub.Eof() {
		opcode, err := sub.ReadUByte()
		if err != nil {
			return err
		}
		opcodeCount++

		switch {
		case opcode == 0:
			end, err := runExtendedOpcode(sub, rel, tbl, d, w)
			if err != nil {
				return err
			}
			if end {
				terminated = true
			}
			continue
		case opcode == 1: // DW_LNS_copy and friends handled generically below via std table
		}

		switch int(opcode) {
		case 2: // DW_LNS_advance_pc
			if _, _, err := sub.ReadULEB128(); err != nil {
				return err
			}
		case 3: // DW_LNS_advance_line
			if _, _, err := sub.ReadSLEB128(); err != nil {
				return err
			}
		case 4: // DW_LNS_set_file
			idx, _, err := sub.ReadULEB128()
			if err != nil {
				return err
			}
			if idx < 1 || int(idx) > len(tbl.Files) {
				d.Error(w, "set_file references file index %d, out of range", idx)
			} else {
				tbl.Files[idx-1].used = true
			}
		case 5: // DW_LNS_set_column
			if _, _, err := sub.ReadULEB128(); err != nil {
				return err
			}
		case 8: // DW_LNS_const_add_pc
		case 9: // DW_LNS_fixed_advance_pc
			if _, err := sub.Read2Ubyte(); err != nil {
				return err
			}
		case 10, 11: // DW_LNS_set_prologue_end / DW_LNS_set_epilogue_begin
		case 12: // DW_LNS_set_isa
			if _, _, err := sub.ReadULEB128(); err != nil {
				return err
			}
		default:
			if int(opcode) < int(tbl.OpcodeBase) {
				n := 0
				if int(opcode)-1 < len(tbl.StdOpcodeLengths) {
					n = int(tbl.StdOpcodeLengths[opcode-1])
				}
				for i := 0; i < n; i++ {
					if _, _, err := sub.ReadULEB128(); err != nil {
						return err
					}
				}
				if opcode > 12 {
					d.Message(diag.CatLine, w, "unrecognised standard opcode %d", opcode)
				}
			}
			// opcode >= OpcodeBase is a special opcode, taking no operands
		}
	}

	if opcodeCount == 0 {
		d.Message(diag.AccBloat, w, "line program is empty")
	} else if !terminated {
		d.Error(w, "sequence of opcodes not terminated with DW_LNE_end_sequence")
	}

	return nil
}

// runExtendedOpcode runs one extended opcode and reports whether it was
// DW_LNE_end_sequence, so the caller can track S5's termination
// requirement.
func runExtendedOpcode(sub *readctx.ReadCtx, rel *reloc.Table, tbl *Table, d *diag.Diagnostics, w where.Where) (bool, error) {
	length, _, err := sub.ReadULEB128()
	if err != nil {
		return false, err
	}
	bodyStart := uint64(sub.Offset())

	op, err := sub.ReadUByte()
	if err != nil {
		return false, err
	}

	end := op == 1

	switch op {
	case 1: // DW_LNE_end_sequence
	case 2: // DW_LNE_set_address
		addr, err := sub.ReadAddr()
		if err != nil {
			return false, err
		}
		if entry, ok := rel.Next(uint64(sub.AbsOffset() - sub.AddrSize())); ok {
			if _, applied := rel.Apply(entry, sub.AddrSize(), addr, reloc.RelAddress, d, w); applied {
				rel.Consume()
			}
		}
	case 3: // DW_LNE_define_file
		name, err := sub.ReadStr()
		if err != nil {
			return false, err
		}
		if _, _, err := sub.ReadULEB128(); err != nil { // dir index
			return false, err
		}
		if _, _, err := sub.ReadULEB128(); err != nil { // mtime
			return false, err
		}
		if _, _, err := sub.ReadULEB128(); err != nil { // size
			return false, err
		}
		tbl.Files = append(tbl.Files, &FileEntry{Name: name, used: true})
	default:
		d.Message(diag.CatLine, w, "unrecognised extended opcode %d", op)
	}

	consumed := uint64(sub.Offset()) - bodyStart
	if consumed < length {
		gap := length - consumed
		for i := uint64(0); i < gap; i++ {
			if _, err := sub.ReadUByte(); err != nil {
				return false, err
			}
		}
	} else if consumed > length {
		d.Error(w, "extended opcode body overran its declared length")
	}

	return end, nil
}
