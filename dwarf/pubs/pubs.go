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

// Package pubs parses .debug_pubnames and .debug_pubtypes, both of which
// share the same header-plus-(offset,name)-record shape as aranges minus
// the address/segment size fields.
package pubs

import (
	"fmt"

	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/info"
	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/dwarf/where"
)

// Record is one (die_offset, name) pair.
type Record struct {
	DieOffset uint64
	Name      string
}

// Table is one decoded pubnames/pubtypes header plus its records.
type Table struct {
	Offset   uint64
	CUOffset uint64
	CULen    uint64
	Records  []Record
}

// Load walks every table in ctx. section sets the coordinate section of
// each diagnostic and cat its category (CatPubtables for
// .debug_pubnames, CatPubtypes for .debug_pubtypes).
func Load(ctx *readctx.ReadCtx, rel *reloc.Table, infoResult *info.Result, section where.Section, cat diag.Category, d *diag.Diagnostics) ([]*Table, error) {
	var tables []*Table

	for !ctx.Eof() {
		if !ctx.Need(4) {
			break
		}
		tbl, err := loadOne(ctx, rel, infoResult, section, cat, d)
		if err != nil {
			return tables, err
		}
		if tbl == nil {
			break
		}
		tables = append(tables, tbl)
	}

	return tables, nil
}

func loadOne(ctx *readctx.ReadCtx, rel *reloc.Table, infoResult *info.Result, section where.Section, cat diag.Category, d *diag.Diagnostics) (*Table, error) {
	tableOffset := uint64(ctx.Offset())
	w := where.New(section).Reset1(tableOffset)

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

	headerStart := uint64(ctx.Offset())
	sub, err := ctx.InitSub(int(headerStart), int(headerStart+length))
	if err != nil {
		return nil, fmt.Errorf("pub table length %d runs past end of section", length)
	}
	if err := ctx.Skip(int(length)); err != nil {
		return nil, err
	}

	version, err := sub.Read2Ubyte()
	if err != nil {
		return nil, err
	}
	if version != 2 {
		d.Message(cat, w, "unsupported version %d", version)
	}

	owidth := 4
	if is64 {
		owidth = 8
	}
	cuOff, err := sub.ReadOffset(is64)
	if err != nil {
		return nil, err
	}
	if entry, ok := rel.Next(uint64(sub.AbsOffset() - owidth)); ok {
		if v, applied := rel.Apply(entry, owidth, cuOff, reloc.RelSection(".debug_info"), d, w); applied {
			cuOff = v
		}
		rel.Consume()
	}

	cuLen, err := sub.ReadOffset(is64)
	if err != nil {
		return nil, err
	}

	tbl := &Table{Offset: tableOffset, CUOffset: cuOff, CULen: cuLen}

	var cu *info.CU
	if infoResult != nil {
		if c, ok := infoResult.CUAt(cuOff); ok {
			cu = c
			if cu.Length+uint64(lengthFieldWidth(cu.Is64))+2 != cuLen && cu.Length != cuLen {
				d.Message(cat, w, "declared CU length %d does not match the referenced compile unit's own length %d", cuLen, cu.Length)
			}
		}
	}

	for !sub.Eof() {
		dieOff, err := sub.ReadOffset(is64)
		if err != nil {
			return tbl, err
		}
		if dieOff == 0 {
			break
		}
		name, err := sub.ReadStr()
		if err != nil {
			return tbl, err
		}
		tbl.Records = append(tbl.Records, Record{DieOffset: dieOff, Name: name})

		if cu != nil && !cu.DieAddrs[cuOff+dieOff] {
			d.Message(cat, w, "entry %q refers to DIE offset %#x, not present in compile unit at %#x", name, dieOff, cuOff)
		}
	}

	return tbl, nil
}

func lengthFieldWidth(is64 bool) int {
	if is64 {
		return 12
	}
	return 4
}
