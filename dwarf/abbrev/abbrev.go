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

// Package abbrev loads .debug_abbrev into a chain of abbreviation
// tables, validating tag/form/has_children combinations the way the
// opcode-table dispatch in the teacher's source-level decoder validates
// DWARF opcodes before acting on them.
package abbrev

import (
	"github.com/dwarflint/dwarflint/dwarf/diag"
	"github.com/dwarflint/dwarflint/dwarf/dwtag"
	"github.com/dwarflint/dwarflint/dwarf/readctx"
	"github.com/dwarflint/dwarflint/dwarf/where"
)

// Attribute is one (name, form) pair of an abbreviation.
type Attribute struct {
	Name dwtag.Attr
	Form dwtag.Form
}

// Abbrev is one decoded abbreviation: a code, its tag, whether DIEs
// using it have children, and its attribute list.
type Abbrev struct {
	Code        uint64
	Tag         dwtag.Tag
	HasChildren bool
	Attributes  []Attribute

	// UsesRanges records whether this abbrev declares a DW_AT_ranges
	// attribute, consulted by validateAttribute's high_pc/ranges check.
	// Deliberately excludes DW_AT_stmt_list: that attribute shares
	// ranges' allowed-form set but has nothing to do with low_pc/high_pc
	// coverage, and conflating the two false-positives the check below
	// whenever a DIE carries only a line-table reference.
	UsesRanges bool

	// Where is the abbrev's site, for duplicate-code citations.
	Where where.Where

	// used is set by the InfoLoader the first time a DIE references
	// this abbrev code; unused abbrevs are reported as bloat once the
	// table is fully consumed.
	used bool
}

// MarkUsed records that some DIE referenced this abbrev.
func (a *Abbrev) MarkUsed() { a.used = true }

// Used reports whether any DIE has referenced this abbrev.
func (a *Abbrev) Used() bool { return a.used }

// Table is one abbreviation table, keyed by the section offset at
// which it begins, holding its abbreviations sorted by code. Lookup
// goes through a map keyed by code.
type Table struct {
	Offset     uint64
	Abbrevs    []*Abbrev
	byCode     map[uint64]*Abbrev
}

// Lookup returns the abbreviation with the given code, if any.
func (t *Table) Lookup(code uint64) (*Abbrev, bool) {
	a, ok := t.byCode[code]
	return a, ok
}

// formAllowed is the set of forms this linter understands; an
// abbreviation using anything else is a structural error.
func formAllowed(f dwtag.Form) bool {
	switch f {
	case dwtag.FormAddr, dwtag.FormBlock2, dwtag.FormBlock4, dwtag.FormData2,
		dwtag.FormData4, dwtag.FormData8, dwtag.FormString, dwtag.FormBlock,
		dwtag.FormBlock1, dwtag.FormData1, dwtag.FormFlag, dwtag.FormSdata,
		dwtag.FormStrp, dwtag.FormUdata, dwtag.FormRefAddr, dwtag.FormRef1,
		dwtag.FormRef2, dwtag.FormRef4, dwtag.FormRef8, dwtag.FormRefUdata,
		dwtag.FormIndirect:
		return true
	}
	return false
}

// Load parses every table in the .debug_abbrev section, starting new
// tables after each run of terminating zero codes, and diagnoses
// malformed abbreviations and duplicate codes along the way.
func Load(ctx *readctx.ReadCtx, d *diag.Diagnostics) (map[uint64]*Table, error) {
	tables := map[uint64]*Table{}

	var tbl *Table
	consecutiveZero := 0
	for !ctx.Eof() {
		start := ctx.Offset()
		code, _, err := ctx.ReadULEB128()
		if err != nil {
			return tables, err
		}
		if code == 0 {
			tbl = nil
			consecutiveZero++
			if consecutiveZero == 2 {
				d.Message(diag.AccBloat, where.New(where.SecAbbrev).Reset1(uint64(start)),
					"section padded with multiple terminating zero codes")
			}
			continue
		}
		consecutiveZero = 0

		if tbl == nil {
			tbl = &Table{Offset: uint64(start), byCode: map[uint64]*Abbrev{}}
			tables[uint64(start)] = tbl
		}

		ab, err := loadOne(ctx, d, code, tbl.Offset)
		if err != nil {
			return tables, err
		}

		if existing, dup := tbl.byCode[ab.Code]; dup {
			d.Message(diag.CatAbbrevs, ab.Where,
				"duplicate abbrev code %d; already defined at %s", ab.Code, existing.Where.String())
			continue
		}
		tbl.byCode[ab.Code] = ab
		tbl.Abbrevs = append(tbl.Abbrevs, ab)
	}

	for _, tbl := range tables {
		sortAbbrevs(tbl.Abbrevs)
	}

	return tables, nil
}

func sortAbbrevs(a []*Abbrev) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1].Code > a[j].Code; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

func loadOne(ctx *readctx.ReadCtx, d *diag.Diagnostics, code uint64, tableOffset uint64) (*Abbrev, error) {
	w := where.New(where.SecAbbrev).Reset1(tableOffset).Reset2(code)

	tagVal, _, err := ctx.ReadULEB128()
	if err != nil {
		return nil, err
	}
	if tagVal > uint64(dwtag.TagHiUser) {
		d.Message(diag.CatAbbrevs, w, "tag 0x%x exceeds DW_TAG_hi_user", tagVal)
	}

	hc, err := ctx.ReadUByte()
	if err != nil {
		return nil, err
	}
	if hc != 0 && hc != 1 {
		d.Message(diag.CatAbbrevs, w, "has_children byte is neither 0 nor 1")
	}

	ab := &Abbrev{Code: code, Tag: dwtag.Tag(tagVal), HasChildren: hc == 1, Where: w}

	for {
		nameVal, _, err := ctx.ReadULEB128()
		if err != nil {
			return nil, err
		}
		formVal, _, err := ctx.ReadULEB128()
		if err != nil {
			return nil, err
		}
		if nameVal == 0 && formVal == 0 {
			break
		}

		attr := Attribute{Name: dwtag.Attr(nameVal), Form: dwtag.Form(formVal)}
		if !formAllowed(attr.Form) {
			d.Message(diag.CatAbbrevs, w, "attribute %s uses unrecognised form 0x%x", attr.Name, formVal)
		}
		validateAttribute(ab, attr, w, d)
		ab.Attributes = append(ab.Attributes, attr)
	}

	return ab, nil
}

func validateAttribute(ab *Abbrev, attr Attribute, w where.Where, d *diag.Diagnostics) {
	switch attr.Name {
	case dwtag.AttrSibling:
		switch {
		case attr.Form == dwtag.FormRefAddr:
			d.Message(diag.ImpactLevel2, w, "sibling attribute uses ref_addr form")
		case attr.Form.IsIntraCUReference():
			// fine
		default:
			d.Message(diag.CatAbbrevs, w, "sibling attribute uses non-reference form")
		}
		if !ab.HasChildren {
			d.Message(diag.AccBloat, w, "sibling attribute on an abbrev with no children")
		}
	case dwtag.AttrLocation, dwtag.AttrFrameBase, dwtag.AttrDataLocation, dwtag.AttrDataMemberLocation:
		if !(attr.Form == dwtag.FormData4 || attr.Form == dwtag.FormData8 || attr.Form.IsBlock()) {
			d.Message(diag.CatAbbrevs, w, "%s attribute uses disallowed form", attr.Name)
		}
	case dwtag.AttrRanges, dwtag.AttrStmtList:
		if !(attr.Form == dwtag.FormData4 || attr.Form == dwtag.FormData8) {
			d.Message(diag.CatAbbrevs, w, "%s attribute uses disallowed form", attr.Name)
		}
		if attr.Name == dwtag.AttrRanges {
			ab.UsesRanges = true
		}
	case dwtag.AttrLowPC:
		if !(attr.Form == dwtag.FormAddr || attr.Form == dwtag.FormRefAddr) {
			d.Message(diag.CatAbbrevs, w, "low_pc attribute uses disallowed form")
		}
	case dwtag.AttrHighPC:
		if !(attr.Form == dwtag.FormAddr || attr.Form == dwtag.FormRefAddr) {
			d.Message(diag.CatAbbrevs, w, "high_pc attribute uses disallowed form")
		}
		hasLowPC := false
		for _, a := range ab.Attributes {
			if a.Name == dwtag.AttrLowPC {
				hasLowPC = true
			}
		}
		if !hasLowPC {
			d.Message(diag.CatAbbrevs, w, "high_pc attribute without low_pc in the same abbrev")
		} else if hasLowPC && ab.UsesRanges {
			d.Message(diag.CatAbbrevs, w, "high_pc attribute combined with both low_pc and ranges")
		}
	}
}
