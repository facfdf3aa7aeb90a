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

// Package readctx implements the bounded byte cursor every section
// loader reads through. A ReadCtx never owns its bytes -- it borrows a
// section slice for as long as the enclosing ELF view is alive, the
// same way the teacher's frame/loclist readers borrow elf.Section data
// directly (coprocessor/developer/dwarf/dwarf_frame.go).
package readctx

import (
	"encoding/binary"
	"fmt"

	"github.com/dwarflint/dwarflint/dwarf/leb128"
)

// ReadCtx is a cursor (begin, ptr, end) into an immutable section slice.
// Offset() reports ptr-begin. Sub-cursors share the same backing array
// but restrict begin/end to a slice of the parent's range.
type ReadCtx struct {
	root  []byte
	begin int
	ptr   int
	end   int
	order binary.ByteOrder
	// addrSize is 4 or 8, carried from the enclosing ELF view so that
	// ReadAddr doesn't need a second parameter at every call site.
	addrSize int
}

// New creates a cursor over the whole of section.
func New(section []byte, order binary.ByteOrder, addrSize int) *ReadCtx {
	return &ReadCtx{root: section, begin: 0, ptr: 0, end: len(section), order: order, addrSize: addrSize}
}

// Offset returns the cursor's position relative to its own begin, i.e.
// the offset within whichever slice this cursor (or sub-cursor) reads.
func (c *ReadCtx) Offset() int {
	return c.ptr - c.begin
}

// AbsOffset returns the cursor's position relative to the root section,
// ignoring any sub-cursor restriction. Diagnostics always want this one.
func (c *ReadCtx) AbsOffset() int {
	return c.ptr
}

// AddrSize returns the address size (4 or 8) of the enclosing ELF view.
func (c *ReadCtx) AddrSize() int {
	return c.addrSize
}

// ByteOrder returns the cursor's byte order.
func (c *ReadCtx) ByteOrder() binary.ByteOrder {
	return c.order
}

// Eof reports whether the cursor has consumed its entire range.
func (c *ReadCtx) Eof() bool {
	return c.ptr >= c.end
}

// Need reports whether n further bytes are available without reading
// past end.
func (c *ReadCtx) Need(n int) bool {
	return c.ptr+n <= c.end
}

// Skip advances the cursor by n bytes.
func (c *ReadCtx) Skip(n int) error {
	if !c.Need(n) {
		return fmt.Errorf("out of bounds: cannot skip %d bytes at offset %#x", n, c.Offset())
	}
	c.ptr += n
	return nil
}

// InitSub creates a sub-cursor covering [begin,end) of the current
// cursor's range, expressed as offsets relative to this cursor's own
// begin (i.e. what Offset() would return at each endpoint). It inherits
// byte order and address size. The invariant parent.begin <= sub.begin
// <= sub.end <= parent.end is enforced in root-slice coordinates.
func (c *ReadCtx) InitSub(begin, end int) (*ReadCtx, error) {
	absBegin := c.begin + begin
	absEnd := c.begin + end
	if absBegin < c.begin || absEnd > c.end || absBegin > absEnd {
		return nil, fmt.Errorf("sub-cursor range [%#x,%#x) is not within parent [%#x,%#x)",
			begin, end, 0, c.end-c.begin)
	}
	return &ReadCtx{root: c.root, begin: absBegin, ptr: absBegin, end: absEnd, order: c.order, addrSize: c.addrSize}, nil
}

func (c *ReadCtx) readUByte() (uint8, error) {
	if !c.Need(1) {
		return 0, fmt.Errorf("out of bounds reading ubyte at offset %#x", c.Offset())
	}
	v := c.root[c.ptr]
	c.ptr++
	return v, nil
}

// ReadUByte reads one unsigned byte.
func (c *ReadCtx) ReadUByte() (uint8, error) {
	return c.readUByte()
}

// Read2Ubyte reads a 2-byte unsigned integer, endian corrected.
func (c *ReadCtx) Read2Ubyte() (uint16, error) {
	if !c.Need(2) {
		return 0, fmt.Errorf("out of bounds reading 2ubyte at offset %#x", c.Offset())
	}
	v := c.order.Uint16(c.root[c.ptr:])
	c.ptr += 2
	return v, nil
}

// Read4Ubyte reads a 4-byte unsigned integer, endian corrected.
func (c *ReadCtx) Read4Ubyte() (uint32, error) {
	if !c.Need(4) {
		return 0, fmt.Errorf("out of bounds reading 4ubyte at offset %#x", c.Offset())
	}
	v := c.order.Uint32(c.root[c.ptr:])
	c.ptr += 4
	return v, nil
}

// Read8Ubyte reads an 8-byte unsigned integer, endian corrected.
func (c *ReadCtx) Read8Ubyte() (uint64, error) {
	if !c.Need(8) {
		return 0, fmt.Errorf("out of bounds reading 8ubyte at offset %#x", c.Offset())
	}
	v := c.order.Uint64(c.root[c.ptr:])
	c.ptr += 8
	return v, nil
}

// ReadOffset reads a section offset: 4 bytes, or 8 if is64 (DWARF-64).
func (c *ReadCtx) ReadOffset(is64 bool) (uint64, error) {
	if is64 {
		return c.Read8Ubyte()
	}
	v, err := c.Read4Ubyte()
	return uint64(v), err
}

// ReadAddr reads an address-sized value, per the cursor's AddrSize.
func (c *ReadCtx) ReadAddr() (uint64, error) {
	if c.addrSize == 8 {
		return c.Read8Ubyte()
	}
	v, err := c.Read4Ubyte()
	return uint64(v), err
}

// ReadULEB128 reads an unsigned LEB128 value. The returned bool is the
// "encoded bloat" flag: the encoding used more bytes than necessary.
func (c *ReadCtx) ReadULEB128() (uint64, bool, error) {
	if c.ptr >= c.end {
		return 0, false, fmt.Errorf("out of bounds reading uleb128 at offset %#x", c.Offset())
	}
	v, n, bloat := leb128.DecodeULEB128(c.root[c.ptr:c.end])
	if c.ptr+n > c.end {
		return 0, false, fmt.Errorf("runaway uleb128 at offset %#x", c.Offset())
	}
	c.ptr += n
	return v, bloat, nil
}

// ReadSLEB128 reads a signed LEB128 value, with the same bloat flag
// semantics as ReadULEB128.
func (c *ReadCtx) ReadSLEB128() (int64, bool, error) {
	if c.ptr >= c.end {
		return 0, false, fmt.Errorf("out of bounds reading sleb128 at offset %#x", c.Offset())
	}
	v, n, bloat := leb128.DecodeSLEB128(c.root[c.ptr:c.end])
	if c.ptr+n > c.end {
		return 0, false, fmt.Errorf("runaway sleb128 at offset %#x", c.Offset())
	}
	c.ptr += n
	return v, bloat, nil
}

// ReadStr reads a NUL-terminated string without copying; the returned
// string aliases the section's backing array.
func (c *ReadCtx) ReadStr() (string, error) {
	start := c.ptr
	for c.ptr < c.end {
		if c.root[c.ptr] == 0 {
			s := string(c.root[start:c.ptr])
			c.ptr++
			return s, nil
		}
		c.ptr++
	}
	return "", fmt.Errorf("unterminated string starting at offset %#x", start-c.begin)
}

// ReadBlock reads n raw bytes.
func (c *ReadCtx) ReadBlock(n int) ([]byte, error) {
	if !c.Need(n) {
		return nil, fmt.Errorf("out of bounds reading %d-byte block at offset %#x", n, c.Offset())
	}
	b := c.root[c.ptr : c.ptr+n]
	c.ptr += n
	return b, nil
}
