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

// Package aranges parses .debug_aranges and cross-checks its tuples
// against the low_pc/high_pc coverage the info loader already built for
// each compile unit, following the same table/tuple two-stage structure
// the teacher's frame reader uses for CIE/FDE records
// (coprocessor/developer/dwarf/dwarf_frame.go).
package aranges

import (
	"fmt"

	"github.com/dwarflint/dwarflint/dwarf/coverage"
	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/info"
	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/dwarf/where"
)

// Table is one decoded aranges header plus the tuples it lists.
type Table struct {
	Offset    uint64
	CUOffset  uint64
	AddrSize  int
	Coverage  *coverage.Set
}

// Load walks every table in ctx, cross-checking each against the
// matching CU's coverage (built by the info loader) where possible.
func Load(ctx *readctx.ReadCtx, rel *reloc.Table, infoResult *info.Result, d *diag.Diagnostics) ([]*Table, error) {
	var tables []*Table
	seenCU := map[uint64]bool{}

	for !ctx.Eof() {
		if !ctx.Need(4) {
			break
		}
		tbl, cu, err := loadOne(ctx, rel, infoResult, d, seenCU)
		if err != nil {
			return tables, err
		}
		if tbl == nil {
			break
		}
		tables = append(tables, tbl)

		if cu != nil {
			cu.HasArange = true
			cmp := cu.Coverage.Clone()
			cmp.RemoveAll(tbl.Coverage)
			cmp.FindHoles(cu.LowPC, cu.HighPC, func(start, length uint64) bool {
				d.Message(diag.CatAranges, where.New(where.SecAranges).Reset1(tbl.Offset),
					"range [%#x,%#x) is covered by the compile unit but missing from aranges", start, start+length)
				return true
			})
		}
	}

	return tables, nil
}

func loadOne(ctx *readctx.ReadCtx, rel *reloc.Table, infoResult *info.Result, d *diag.Diagnostics, seenCU map[uint64]bool) (*Table, *info.CU, error) {
	tableOffset := uint64(ctx.Offset())
	w := where.New(where.SecAranges).Reset1(tableOffset)

	length32, err := ctx.Read4Ubyte()
	if err != nil {
		return nil, nil, err
	}
	if length32 == 0 {
		return nil, nil, nil
	}

	is64 := length32 == 0xffffffff
	var length uint64
	if is64 {
		length, err = ctx.Read8Ubyte()
		if err != nil {
			return nil, nil, err
		}
	} else {
		length = uint64(length32)
	}

	headerStart := uint64(ctx.Offset())
	sub, err := ctx.InitSub(int(headerStart), int(headerStart+length))
	if err != nil {
		return nil, nil, fmt.Errorf("aranges table length %d runs past end of section", length)
	}
	if err := ctx.Skip(int(length)); err != nil {
		return nil, nil, err
	}

	version, err := sub.Read2Ubyte()
	if err != nil {
		return nil, nil, err
	}
	if version != 2 {
		d.Message(diag.CatAranges, w, "unsupported aranges version %d", version)
	}

	cuOff, err := sub.ReadOffset(is64)
	if err != nil {
		return nil, nil, err
	}
	owidth := 4
	if is64 {
		owidth = 8
	}
	if entry, ok := rel.Next(uint64(sub.AbsOffset() - owidth)); ok {
		if v, applied := rel.Apply(entry, owidth, cuOff, reloc.RelSection(".debug_info"), d, w); applied {
			cuOff = v
		}
		rel.Consume()
	}

	addrSize, err := sub.ReadUByte()
	if err != nil {
		return nil, nil, err
	}
	segSize, err := sub.ReadUByte()
	if err != nil {
		return nil, nil, err
	}
	if segSize != 0 {
		d.Message(diag.CatAranges, w, "non-zero segment_size %d is not supported", segSize)
		return &Table{Offset: tableOffset, CUOffset: cuOff, AddrSize: int(addrSize), Coverage: coverage.New()}, nil, nil
	}

	if seenCU[cuOff] {
		d.Message(diag.CatAranges, w, "duplicate aranges table for compile unit at %#x", cuOff)
	}
	seenCU[cuOff] = true

	tupleWidth := int(addrSize)
	pad := (2 * tupleWidth) - (sub.Offset() % (2 * tupleWidth))
	if pad != 2*tupleWidth {
		for i := 0; i < pad; i++ {
			b, err := sub.ReadUByte()
			if err != nil {
				return nil, nil, err
			}
			if b != 0 {
				d.Message(diag.CatAranges, w, "non-zero padding byte in aranges header")
			}
		}
	}

	tbl := &Table{Offset: tableOffset, CUOffset: cuOff, AddrSize: int(addrSize), Coverage: coverage.New()}

	for !sub.Eof() {
		addr, err := readTupleField(sub, tupleWidth)
		if err != nil {
			return tbl, nil, err
		}
		length, err := readTupleField(sub, tupleWidth)
		if err != nil {
			return tbl, nil, err
		}
		if addr == 0 && length == 0 {
			break
		}
		if length == 0 {
			d.Error(w, "zero-length arange entry (DWARF-3 6.1.2 requires non-zero length)")
			continue
		}
		tbl.Coverage.Add(addr, length)
	}

	var cu *info.CU
	if infoResult != nil {
		if c, ok := infoResult.CUAt(cuOff); ok {
			cu = c
		}
	}
	return tbl, cu, nil
}

func readTupleField(ctx *readctx.ReadCtx, width int) (uint64, error) {
	if width == 8 {
		return ctx.Read8Ubyte()
	}
	v, err := ctx.Read4Ubyte()
	return uint64(v), err
}
