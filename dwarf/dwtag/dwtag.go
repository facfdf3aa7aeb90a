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

// Package dwtag lists the DWARF wire-format constants the structural
// checker needs to recognise: tags, attribute names and forms. These are
// plain data taken from the DWARF specification, not an algorithm, so
// there is no third-party library to ground them on -- the standard
// library's own debug/dwarf package carries an equivalent table for the
// same reason.
package dwtag

// Tag identifies a DIE's kind.
type Tag uint64

// the handful of tags the checker needs to name explicitly; any other
// value up to TagHiUser is accepted without further interpretation.
const (
	TagCompileUnit  Tag = 0x11
	TagPartialUnit  Tag = 0x3c
	TagSubprogram   Tag = 0x2e
	TagLexicalBlock Tag = 0x0b
	TagBaseType     Tag = 0x24
	TagHiUser       Tag = 0xffff
)

// Attr identifies an attribute name.
type Attr uint64

const (
	AttrSibling            Attr = 0x01
	AttrLocation           Attr = 0x02
	AttrLowPC              Attr = 0x11
	AttrHighPC             Attr = 0x12
	AttrStmtList           Attr = 0x10
	AttrRanges             Attr = 0x55
	AttrFrameBase          Attr = 0x40
	AttrDataMemberLocation Attr = 0x38
	AttrDataLocation       Attr = 0x50
	AttrHiUser             Attr = 0x3fff
)

// Form identifies how an attribute's value is encoded on the wire.
type Form uint64

const (
	FormAddr     Form = 0x01
	FormBlock2   Form = 0x03
	FormBlock4   Form = 0x04
	FormData2    Form = 0x05
	FormData4    Form = 0x06
	FormData8    Form = 0x07
	FormString   Form = 0x08
	FormBlock    Form = 0x09
	FormBlock1   Form = 0x0a
	FormData1    Form = 0x0b
	FormFlag     Form = 0x0c
	FormSdata    Form = 0x0d
	FormStrp     Form = 0x0e
	FormUdata    Form = 0x0f
	FormRefAddr  Form = 0x10
	FormRef1     Form = 0x11
	FormRef2     Form = 0x12
	FormRef4     Form = 0x13
	FormRef8     Form = 0x14
	FormRefUdata Form = 0x15
	FormIndirect Form = 0x16
)

// IsReference reports whether form encodes a reference to another DIE,
// either intra-CU (Ref1/2/4/8/Udata) or global (RefAddr).
func (f Form) IsReference() bool {
	switch f {
	case FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata, FormRefAddr:
		return true
	}
	return false
}

// IsIntraCUReference reports whether form is a reference relative to the
// start of the enclosing compilation unit.
func (f Form) IsIntraCUReference() bool {
	switch f {
	case FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata:
		return true
	}
	return false
}

// IsBlock reports whether form encodes a length-prefixed inline byte
// block.
func (f Form) IsBlock() bool {
	switch f {
	case FormBlock, FormBlock1, FormBlock2, FormBlock4:
		return true
	}
	return false
}

// String names tags that the checker refers to in diagnostics by name;
// anything else is rendered numerically by the caller.
func (t Tag) String() string {
	switch t {
	case TagCompileUnit:
		return "compile_unit"
	case TagPartialUnit:
		return "partial_unit"
	case TagSubprogram:
		return "subprogram"
	case TagLexicalBlock:
		return "lexical_block"
	case TagBaseType:
		return "base_type"
	default:
		return "unknown_tag"
	}
}

// String names attributes the checker refers to by name in diagnostics.
func (a Attr) String() string {
	switch a {
	case AttrSibling:
		return "sibling"
	case AttrLocation:
		return "location"
	case AttrLowPC:
		return "low_pc"
	case AttrHighPC:
		return "high_pc"
	case AttrStmtList:
		return "stmt_list"
	case AttrRanges:
		return "ranges"
	case AttrFrameBase:
		return "frame_base"
	case AttrDataMemberLocation:
		return "data_member_location"
	case AttrDataLocation:
		return "data_location"
	default:
		return "unknown_attribute"
	}
}
