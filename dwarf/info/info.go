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

// Package info parses .debug_info into a chain of compile-unit records
// and, within each, walks the DIE tree against an already-loaded abbrev
// table. This is the largest loader in the checker, playing the role
// the teacher's coprocessor/developer/dwarf.go source decoder plays for
// a running emulator -- reconstructing a tree from a flat byte stream --
// but validating structure rather than resolving source locations.
package info

import (
	"fmt"

	"github.com/dwarflint/dwarflint/dwarf/abbrev"
	"github.com/dwarflint/dwarflint/dwarf/coverage"
	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/dwtag"
	"github.com/dwarflint/dwarflint/dwarf/locrange"
	"github.com/dwarflint/dwarflint/dwarf/reloc"
	"github.com/dwarflint/dwarflint/dwarf/where"

	"github.com/dwarflint/dwarflint/dwarf/readctx"
)

// DieRef is a recorded intra-unit or global DIE reference, checked for
// resolvability once the whole CU (global references: the whole info
// section) has been walked.
type DieRef struct {
	Target   uint64
	Global   bool
	Referrer where.Where
}

// CU is one compilation unit's decoded header plus everything the
// downstream loaders (aranges, pubs, locrange, line) need to cross-check
// their own sections against it.
type CU struct {
	Offset      uint64
	Length      uint64
	Is64        bool
	Version     uint16
	AbbrevOff   uint64
	AddrSize    int
	Where       where.Where

	DieAddrs  map[uint64]bool
	DieRefs   []DieRef
	LineRefs  []uint64
	RangeRefs []uint64
	LocRefs   []uint64

	LowPC, HighPC   uint64
	HasLowPC        bool
	HasArange       bool
	Coverage        *coverage.Set
}

// Result is the full decoded .debug_info section: every CU in file
// order plus a resolver to look one up by its root offset.
type Result struct {
	CUs             []*CU
	globalDieAddrs  map[uint64]bool
	GlobalRefs      []DieRef
	StringsCoverage *coverage.Set
}

// CUAt returns the CU whose root offset equals off.
func (r *Result) CUAt(off uint64) (*CU, bool) {
	for _, cu := range r.CUs {
		if cu.Offset == off {
			return cu, true
		}
	}
	return nil, false
}

// Load walks every CU in ctx, using tables (keyed by abbrev-section
// offset) to decode each CU's DIE tree.
func Load(ctx *readctx.ReadCtx, rel *reloc.Table, tables map[uint64]*abbrev.Table, d *diag.Diagnostics) (*Result, error) {
	res := &Result{globalDieAddrs: map[uint64]bool{}, StringsCoverage: coverage.New()}

	for !ctx.Eof() {
		if !ctx.Need(4) {
			break
		}
		cu, err := loadCU(ctx, rel, tables, res.StringsCoverage, d)
		if err != nil {
			return res, err
		}
		if cu == nil {
			break // trailing zero padding
		}
		res.CUs = append(res.CUs, cu)
		for off := range cu.DieAddrs {
			res.globalDieAddrs[off] = true
		}
	}

	// cross-check every recorded reference resolves within the
	// appropriate die-address set.
	for _, cu := range res.CUs {
		for _, r := range cu.DieRefs {
			if r.Global {
				if !res.globalDieAddrs[r.Target] {
					d.Message(diag.CatDieRel, r.Referrer, "reference to DIE at %#x does not resolve to any known DIE", r.Target)
				}
				continue
			}
			if !cu.DieAddrs[r.Target] {
				d.Message(diag.CatDieRel, r.Referrer, "reference to DIE at %#x does not resolve within this compile unit", r.Target)
			}
		}
	}

	return res, nil
}

func loadCU(ctx *readctx.ReadCtx, rel *reloc.Table, tables map[uint64]*abbrev.Table, strCov *coverage.Set, d *diag.Diagnostics) (*CU, error) {
	cuRootOffset := uint64(ctx.Offset())
	w := where.New(where.SecInfo)

	length32, err := ctx.Read4Ubyte()
	if err != nil {
		return nil, err
	}
	if length32 == 0 {
		return nil, nil
	}

	is64 := false
	var length uint64
	switch {
	case length32 == 0xffffffff:
		is64 = true
		length, err = ctx.Read8Ubyte()
		if err != nil {
			return nil, err
		}
	case length32 >= 0xfffffff0:
		d.Error(w.Reset1(cuRootOffset), "reserved CU length escape value %#x", length32)
		return nil, fmt.Errorf("reserved CU length escape at offset %#x", cuRootOffset)
	default:
		length = uint64(length32)
	}

	headerStart := uint64(ctx.Offset())
	sub, err := ctx.InitSub(int(headerStart), int(headerStart+length))
	if err != nil {
		d.Error(w.Reset1(cuRootOffset), "CU length %d runs past end of section", length)
		return nil, err
	}
	// advance the parent cursor past this CU regardless of how the
	// sub-cursor walk goes, so a structural error inside one CU doesn't
	// prevent later CUs in the same section from being attempted.
	if err := ctx.Skip(int(length)); err != nil {
		return nil, err
	}

	cu := &CU{
		Offset: cuRootOffset, Length: length, Is64: is64,
		Where: w.Reset1(cuRootOffset), DieAddrs: map[uint64]bool{},
		Coverage: coverage.New(),
	}

	version, err := sub.Read2Ubyte()
	if err != nil {
		return cu, err
	}
	cu.Version = version
	if version != 2 && version != 3 {
		d.Message(diag.CatInfo, cu.Where, "unsupported CU version %d", version)
	}
	if version == 2 && is64 {
		d.Error(cu.Where, "DWARF-2 compile unit uses a DWARF-64 length field")
	}

	abbrevOff, err := sub.ReadOffset(is64)
	if err != nil {
		return cu, err
	}
	if entry, ok := rel.Next(uint64(sub.AbsOffset() - offsetWidth(is64))); ok {
		v, applied := rel.Apply(entry, offsetWidth(is64), abbrevOff, reloc.RelSection(".debug_abbrev"), d, cu.Where)
		if applied {
			abbrevOff = v
		}
		rel.Consume()
	}
	cu.AbbrevOff = abbrevOff

	addrSize, err := sub.ReadUByte()
	if err != nil {
		return cu, err
	}
	if addrSize != 4 && addrSize != 8 {
		d.Error(cu.Where, "address_size %d is neither 4 nor 8", addrSize)
		addrSize = 4
	}
	cu.AddrSize = int(addrSize)

	tbl, ok := tables[abbrevOff]
	if !ok {
		d.Error(cu.Where, "abbrev offset %#x does not match any loaded abbreviation table", abbrevOff)
		return cu, nil
	}

	walker := &dieWalker{cu: cu, tbl: tbl, rel: rel, strCov: strCov, d: d}
	if err := walker.walk(sub, cu.Where); err != nil {
		return cu, err
	}

	for _, ab := range tbl.Abbrevs {
		if !ab.Used() {
			d.Message(diag.AccBloat, ab.Where, "abbreviation code %d is never used", ab.Code)
		}
	}

	return cu, nil
}

// expectedSectionForAttr classifies the section a relocated data4/data8
// offset-valued attribute is expected to resolve into (spec.md §4.4 step
// 3); attributes with no fixed target section fall back to generic data
// (RelValue).
func expectedSectionForAttr(name dwtag.Attr) reloc.ExpectedSection {
	switch name {
	case dwtag.AttrStmtList:
		return reloc.RelSection(".debug_line")
	case dwtag.AttrRanges:
		return reloc.RelSection(".debug_ranges")
	case dwtag.AttrLocation, dwtag.AttrFrameBase, dwtag.AttrDataLocation, dwtag.AttrDataMemberLocation:
		return reloc.RelSection(".debug_loc")
	default:
		return reloc.RelValue
	}
}

// isLocationClass reports whether name belongs to the DWARF attributes
// whose block-form encoding is a location expression rather than plain
// opaque bytes (§4.8).
func isLocationClass(name dwtag.Attr) bool {
	switch name {
	case dwtag.AttrLocation, dwtag.AttrFrameBase, dwtag.AttrDataLocation, dwtag.AttrDataMemberLocation:
		return true
	}
	return false
}

// checkLocationBlock runs block over the §4.11 location-expression
// validator when name is a location-class attribute; other block forms
// (DW_AT_const_value and the like) are left alone, since their bytes
// are an opaque constant, not an expression.
func (w *dieWalker) checkLocationBlock(name dwtag.Attr, block []byte, ctx *readctx.ReadCtx, dieWhere where.Where) error {
	if !isLocationClass(name) {
		return nil
	}
	return locrange.ValidateExpression(block, w.cu.AddrSize, ctx.ByteOrder(), w.d, dieWhere)
}

func offsetWidth(is64 bool) int {
	if is64 {
		return 8
	}
	return 4
}

// dieWalker holds the per-CU state threaded through the recursive DIE
// tree walk: the abbrev table in force, the relocation cursor for
// .debug_info, and the sink for diagnostics.
type dieWalker struct {
	cu     *CU
	tbl    *abbrev.Table
	rel    *reloc.Table
	strCov *coverage.Set
	d      *diag.Diagnostics
}

// walk decodes one level of sibling DIEs (and recurses into children),
// starting at ctx's current position. Within the loop, expectedSibling
// (valid when haveExpectedSibling is set) is the section offset the
// previous sibling's DW_AT_sibling promised this DIE would start at.
func (w *dieWalker) walk(ctx *readctx.ReadCtx, parentWhere where.Where) error {
	var expectedSibling uint64
	haveExpectedSibling := false

	for {
		dieOffset := uint64(ctx.AbsOffset())
		dieWhere := where.New(where.SecInfo).Reset1(w.cu.Offset).Reset2(dieOffset)

		if haveExpectedSibling && expectedSibling != dieOffset {
			w.d.Error(dieWhere, "this DIE should have had its sibling at %#x, but it's at %#x instead", expectedSibling, dieOffset)
		}
		haveExpectedSibling = false

		code, _, err := ctx.ReadULEB128()
		if err != nil {
			return err
		}
		if code == 0 {
			return nil // end of this sibling chain
		}

		ab, ok := w.tbl.Lookup(code)
		if !ok {
			return fmt.Errorf("DIE at %#x references unknown abbrev code %d", dieOffset, code)
		}
		ab.MarkUsed()
		w.cu.DieAddrs[dieOffset] = true

		var sibling uint64
		haveSibling := false
		var lowPC, highPC uint64
		haveLowPC, haveHighPC := false, false

		for _, attr := range ab.Attributes {
			form := attr.Form
			if form == dwtag.FormIndirect {
				fv, _, err := ctx.ReadULEB128()
				if err != nil {
					return err
				}
				form = dwtag.Form(fv)
				if form == dwtag.FormIndirect {
					w.d.Message(diag.CatDieOther, dieWhere, "indirect form resolves to another indirect form")
				}
			}

			val, isAddr, err := w.decodeAttr(ctx, attr.Name, form, dieWhere)
			if err != nil {
				return err
			}

			switch attr.Name {
			case dwtag.AttrSibling:
				sibling = val
				if form.IsIntraCUReference() {
					sibling += w.cu.Offset
				}
				haveSibling = true
			case dwtag.AttrLowPC:
				lowPC = val
				haveLowPC = true
			case dwtag.AttrHighPC:
				highPC = val
				haveHighPC = true
			case dwtag.AttrStmtList:
				w.cu.LineRefs = append(w.cu.LineRefs, val)
			case dwtag.AttrRanges:
				w.cu.RangeRefs = append(w.cu.RangeRefs, val)
			case dwtag.AttrLocation, dwtag.AttrFrameBase, dwtag.AttrDataLocation, dwtag.AttrDataMemberLocation:
				if !isAddr && (form == dwtag.FormData4 || form == dwtag.FormData8) {
					w.cu.LocRefs = append(w.cu.LocRefs, val)
				}
			}

			if form.IsReference() {
				target := val
				global := form == dwtag.FormRefAddr
				if !global {
					target += w.cu.Offset
				}
				w.cu.DieRefs = append(w.cu.DieRefs, DieRef{Target: target, Global: global, Referrer: dieWhere})
			}
		}

		if haveLowPC && haveHighPC {
			if highPC < lowPC {
				w.d.Message(diag.CatDieOther, dieWhere, "high_pc is lower than low_pc")
			} else {
				w.cu.Coverage.Add(lowPC, highPC-lowPC)
				if !w.cu.HasLowPC {
					w.cu.LowPC, w.cu.HighPC = lowPC, highPC
					w.cu.HasLowPC = true
				}
			}
		}

		if ab.HasChildren {
			if !haveSibling {
				w.d.Message(diag.AccBloat, dieWhere, "DIE has children but no sibling attribute")
			}
			if err := w.walk(ctx, dieWhere); err != nil {
				return err
			}
		}

		if haveSibling {
			expectedSibling = sibling
			haveExpectedSibling = true
		}
	}
}

// decodeAttr reads one attribute's value per its form, returning the raw
// numeric value (for reference/offset/addr forms) and whether the value
// was address-sized (as opposed to a section offset).
func (w *dieWalker) decodeAttr(ctx *readctx.ReadCtx, name dwtag.Attr, form dwtag.Form, dieWhere where.Where) (uint64, bool, error) {
	applyReloc := func(width int, v uint64, expected reloc.ExpectedSection) uint64 {
		if entry, ok := w.rel.Next(uint64(ctx.AbsOffset() - width)); ok {
			if nv, applied := w.rel.Apply(entry, width, v, expected, w.d, dieWhere); applied {
				v = nv
			}
			w.rel.Consume()
		}
		return v
	}

	switch form {
	case dwtag.FormAddr:
		v, err := ctx.ReadAddr()
		if err != nil {
			return 0, false, err
		}
		return applyReloc(ctx.AddrSize(), v, reloc.RelAddress), true, nil
	case dwtag.FormRefAddr:
		v, err := ctx.ReadOffset(w.cu.Is64)
		if err != nil {
			return 0, false, err
		}
		return applyReloc(offsetWidth(w.cu.Is64), v, reloc.RelSection(".debug_info")), false, nil
	case dwtag.FormUdata, dwtag.FormRefUdata:
		v, _, err := ctx.ReadULEB128()
		return v, false, err
	case dwtag.FormSdata:
		v, _, err := ctx.ReadSLEB128()
		return uint64(v), false, err
	case dwtag.FormData1, dwtag.FormRef1, dwtag.FormFlag:
		v, err := ctx.ReadUByte()
		return uint64(v), false, err
	case dwtag.FormData2, dwtag.FormRef2:
		v, err := ctx.Read2Ubyte()
		return uint64(v), false, err
	case dwtag.FormData4, dwtag.FormRef4:
		v, err := ctx.Read4Ubyte()
		if err != nil {
			return 0, false, err
		}
		return applyReloc(4, uint64(v), expectedSectionForAttr(name)), false, nil
	case dwtag.FormData8, dwtag.FormRef8:
		v, err := ctx.Read8Ubyte()
		if err != nil {
			return 0, false, err
		}
		return applyReloc(8, v, expectedSectionForAttr(name)), false, nil
	case dwtag.FormStrp:
		v, err := ctx.ReadOffset(w.cu.Is64)
		if err != nil {
			return 0, false, err
		}
		if w.strCov != nil {
			w.strCov.Add(v, 1)
		}
		return v, false, err
	case dwtag.FormString:
		_, err := ctx.ReadStr()
		return 0, false, err
	case dwtag.FormBlock1:
		n, err := ctx.ReadUByte()
		if err != nil {
			return 0, false, err
		}
		block, err := ctx.ReadBlock(int(n))
		if err != nil {
			return 0, false, err
		}
		return 0, false, w.checkLocationBlock(name, block, ctx, dieWhere)
	case dwtag.FormBlock2:
		n, err := ctx.Read2Ubyte()
		if err != nil {
			return 0, false, err
		}
		block, err := ctx.ReadBlock(int(n))
		if err != nil {
			return 0, false, err
		}
		return 0, false, w.checkLocationBlock(name, block, ctx, dieWhere)
	case dwtag.FormBlock4:
		n, err := ctx.Read4Ubyte()
		if err != nil {
			return 0, false, err
		}
		block, err := ctx.ReadBlock(int(n))
		if err != nil {
			return 0, false, err
		}
		return 0, false, w.checkLocationBlock(name, block, ctx, dieWhere)
	case dwtag.FormBlock:
		n, _, err := ctx.ReadULEB128()
		if err != nil {
			return 0, false, err
		}
		block, err := ctx.ReadBlock(int(n))
		if err != nil {
			return 0, false, err
		}
		return 0, false, w.checkLocationBlock(name, block, ctx, dieWhere)
	default:
		return 0, false, fmt.Errorf("unhandled form 0x%x for attribute %s at offset %#x", form, name, dieWhere.String())
	}
}
