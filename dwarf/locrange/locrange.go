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

// Package locrange walks .debug_loc and .debug_ranges listheads reached
// from CU-attached references, and validates the DWARF location
// expressions embedded in live .debug_loc entries. The opcode-table
// dispatch for expressions mirrors the frame-instruction dispatch in
// the teacher's coprocessor/developer/dwarf/dwarf_frame.go CIE/FDE
// instruction stream reader.
package locrange

import (
	"encoding/binary"

	"github.com/dwarflint/dwarflint/dwarf/coverage"
	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/dwarf/where"
)

// Kind distinguishes the two sections this loader handles; they share
// entry-pair structure but differ in whether a live entry carries a
// trailing expression.
type Kind int

const (
	KindLoc Kind = iota
	KindRanges
)

// escapeOf returns the "base update" sentinel value for addrSize: all
// bits set.
func escapeOf(addrSize int) uint64 {
	if addrSize == 8 {
		return ^uint64(0)
	}
	return 0xffffffff
}

// Walk processes the listhead beginning at offset a within section
// (the full raw bytes of .debug_loc or .debug_ranges), recording the
// begin/end address pair of each live entry in cov (base-selection and
// terminating entries and expression bytes are not recorded) and
// optionally accumulating live .debug_ranges intervals into cuCoverage.
func Walk(section []byte, order binary.ByteOrder, rel *reloc.Table, a uint64, kind Kind, addrSize int, cov *coverage.Set, cuCoverage *coverage.Set, d *diag.Diagnostics) error {
	sec := where.SecLoc
	if kind == KindRanges {
		sec = where.SecRanges
	}
	w := where.New(sec).Reset1(a)

	if cov.IsOverlap(a, 1) {
		d.Message(diag.CatLoc, w, "reference points into another location or range list")
	}

	root := readctx.New(section, order, addrSize)
	walker, err := root.InitSub(int(a), len(section))
	if err != nil {
		return err
	}

	escape := escapeOf(addrSize)
	haveBase := false
	liveAddrs := coverage.New()

	for {
		entryOffset := a + uint64(walker.Offset())
		begin, err := readAddrField(walker, addrSize)
		if err != nil {
			return err
		}
		beginRelocated := applyListReloc(rel, walker, addrSize, &begin, d, w)
		end, err := readAddrField(walker, addrSize)
		if err != nil {
			return err
		}
		endRelocated := applyListReloc(rel, walker, addrSize, &end, d, w)

		if begin == escape {
			d.Message(diag.ImpactLevel2, w, "base address unchanged by base-selection entry")
			haveBase = true
			continue
		}
		if begin == 0 && end == 0 && !beginRelocated && !endRelocated {
			break
		}

		if !haveBase {
			d.Error(w, "live entry at %#x has no base address in force", entryOffset)
		}
		if end < begin {
			d.Error(w, "end address is lower than begin address")
		} else if end == begin {
			d.Message(diag.AccBloat, w, "entry covers no range")
		}

		if beginRelocated != endRelocated {
			d.Message(diag.ImpactLevel2, w, "only one endpoint of this entry carries a relocation")
		}

		length := uint64(0)
		if end > begin {
			length = end - begin
		}
		if length > 0 {
			if liveAddrs.IsOverlap(begin, length) {
				d.Error(w, "range definitions overlap")
			}
			liveAddrs.Add(begin, length)
		}
		cov.Add(entryOffset, uint64(2*addrSize))

		if kind == KindLoc {
			exprLen, err := walker.Read2Ubyte()
			if err != nil {
				return err
			}
			expr, err := walker.ReadBlock(int(exprLen))
			if err != nil {
				return err
			}
			if err := validateExpression(expr, addrSize, order, d, w); err != nil {
				return err
			}
		} else if cuCoverage != nil && length > 0 {
			cuCoverage.Add(begin, length)
		}
	}

	return nil
}

func readAddrField(ctx *readctx.ReadCtx, addrSize int) (uint64, error) {
	if addrSize == 8 {
		return ctx.Read8Ubyte()
	}
	v, err := ctx.Read4Ubyte()
	return uint64(v), err
}

func applyListReloc(rel *reloc.Table, ctx *readctx.ReadCtx, width int, value *uint64, d *diag.Diagnostics, w where.Where) bool {
	entry, ok := rel.Next(uint64(ctx.AbsOffset() - width))
	if !ok {
		return false
	}
	if v, applied := rel.Apply(entry, width, *value, reloc.RelAddress, d, w); applied {
		*value = v
	}
	rel.Consume()
	return true
}

// opForm names the wire shape of an expression opcode's single operand.
type opForm int

const (
	opUdata opForm = iota + 1
	opSdata
	opAddr
	opData1
	opData2
	opData4
	opData8
)

// opcodeOperand is the fixed table mapping a DW_OP_* byte to its
// operand's wire form. Any opcode not listed here (DW_OP_bra/DW_OP_skip
// aside) is read as having no operand; this includes operand-carrying
// opcodes such as DW_OP_pick, DW_OP_breg0..31, DW_OP_regx and
// DW_OP_bregx.
var opcodeOperand = map[byte]opForm{
	0x03: opAddr,  // DW_OP_addr
	0x08: opData1, // DW_OP_const1u
	0x09: opData1, // DW_OP_const1s
	0x0a: opData2, // DW_OP_const2u
	0x0b: opData2, // DW_OP_const2s
	0x0c: opData4, // DW_OP_const4u
	0x0d: opData4, // DW_OP_const4s
	0x0e: opData8, // DW_OP_const8u
	0x0f: opData8, // DW_OP_const8s
	0x10: opUdata, // DW_OP_constu
	0x11: opSdata, // DW_OP_consts
	0x23: opUdata, // DW_OP_plus_uconst
	0x91: opSdata, // DW_OP_fbreg
	0x93: opUdata, // DW_OP_piece
	0x94: opData1, // DW_OP_deref_size
	0x95: opData1, // DW_OP_xderef_size
}

const (
	opBra  byte = 0x28
	opSkip byte = 0x2f
)

// ValidateExpression runs the fixed opcode table over a single location
// expression's bytes. Exported so dwarf/info can run the same validator
// over block-form location-class attributes (DW_AT_location and
// friends), which carry an inline expression rather than a .debug_loc
// reference.
func ValidateExpression(expr []byte, addrSize int, order binary.ByteOrder, d *diag.Diagnostics, w where.Where) error {
	return validateExpression(expr, addrSize, order, d, w)
}

// validateExpression runs the fixed opcode table over a single location
// expression's bytes.
func validateExpression(expr []byte, addrSize int, order binary.ByteOrder, d *diag.Diagnostics, w where.Where) error {
	cur := readctx.New(expr, order, addrSize)
	var opaddrs []int
	var oprefs []int

	for !cur.Eof() {
		start := cur.Offset()
		op, err := cur.ReadUByte()
		if err != nil {
			return err
		}
		opaddrs = append(opaddrs, start)

		if op == opBra || op == opSkip {
			delta, err := cur.Read2Ubyte()
			if err != nil {
				return err
			}
			signed := int16(delta)
			target := cur.Offset() + int(signed)
			if target < 0 || target > len(expr) {
				d.Error(w, "branch target falls outside the location expression")
			} else {
				oprefs = append(oprefs, target)
			}
			if signed == 0 {
				d.Message(diag.AccBloat, w, "zero-offset branch/skip operation")
			}
			continue
		}

		form, ok := opcodeOperand[op]
		if !ok {
			continue
		}

		switch form {
		case opAddr:
			if addrSize == 8 {
				if _, err := cur.Read8Ubyte(); err != nil {
					return err
				}
			} else if _, err := cur.Read4Ubyte(); err != nil {
				return err
			}
		case opUdata:
			v, _, err := cur.ReadULEB128()
			if err != nil {
				return err
			}
			if addrSize == 4 && v > 0xffffffff {
				d.Message(diag.ImpactLevel3, w, "operand value exceeds 32-bit range on a 32-bit target")
			}
		case opSdata:
			if _, _, err := cur.ReadSLEB128(); err != nil {
				return err
			}
		case opData1:
			if _, err := cur.ReadUByte(); err != nil {
				return err
			}
		case opData2:
			if _, err := cur.Read2Ubyte(); err != nil {
				return err
			}
		case opData4:
			if _, err := cur.Read4Ubyte(); err != nil {
				return err
			}
		case opData8:
			if addrSize == 4 {
				d.Message(diag.CatLoc, w, "8-byte constant operand on a 32-bit target")
			}
			if _, err := cur.Read8Ubyte(); err != nil {
				return err
			}
		}
	}

	for _, ref := range oprefs {
		found := false
		for _, a := range opaddrs {
			if a == ref {
				found = true
				break
			}
		}
		if !found {
			d.Error(w, "branch target does not land on an opcode boundary")
		}
	}

	return nil
}
