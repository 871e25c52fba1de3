// Package octal implements the octal address codec used to name octree nodes.
//
// An address is a byte slice: byte 0 holds the number of 3-bit sections N and
// the following bytes pack those sections MSB-first, padded with zero bits in
// the final byte. Section i selects which of the 8 children to descend into at
// depth i. The zero-section address names the root of the whole space.
package octal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// NoChild tells IsAncestorOf to test the descendant itself.
	NoChild = -1
	// MaxSections is the deepest address the count byte can describe.
	MaxSections = 255
)

var (
	ErrTooDeep       = errors.New("octal: address exceeds max sections")
	ErrInvalidIndex  = errors.New("octal: child index out of range")
	ErrInvalidLength = errors.New("octal: invalid code length")
)

// Code is an owned octal address.
type Code []byte

// Root returns a fresh copy of the degenerate root address.
func Root() Code {
	return Code{0}
}

// BytesRequired returns the encoded length of an address with n sections.
func BytesRequired(n int) int {
	if n <= 0 {
		return 1
	}
	bits := n * 3
	extra := 0
	if bits%8 != 0 {
		extra = 1
	}
	return 1 + bits/8 + extra
}

// SectionCount returns the number of sections encoded in c. An empty code has zero.
func SectionCount(c Code) int {
	if len(c) == 0 {
		return 0
	}
	return int(c[0])
}

// Len is the byte length implied by the section count, not len(c).
func (c Code) Len() int {
	return BytesRequired(SectionCount(c))
}

// IsDegenerate reports whether c names the whole space.
func IsDegenerate(c Code) bool {
	return SectionCount(c) == 0
}

// Valid reports whether c carries at least as many bytes as its count requires.
func Valid(c Code) bool {
	return len(c) > 0 && len(c) >= c.Len()
}

// Section returns the branch taken at depth i.
func Section(c Code, i int) uint8 {
	bit := i * 3
	idx := 1 + bit/8
	off := bit % 8
	if idx >= len(c) {
		return 0
	}
	if off <= 5 {
		return (c[idx] >> (5 - off)) & 7
	}
	var next byte
	if idx+1 < len(c) {
		next = c[idx+1]
	}
	return ((c[idx] << (off - 5)) | (next >> (13 - off))) & 7
}

// Sections returns every branch of c in root-to-leaf order.
func Sections(c Code) []uint8 {
	n := SectionCount(c)
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = Section(c, i)
	}
	return out
}

// FromSections encodes a branch path.
func FromSections(sections ...uint8) (Code, error) {
	if len(sections) > MaxSections {
		return nil, ErrTooDeep
	}
	c := make(Code, BytesRequired(len(sections)))
	c[0] = byte(len(sections))
	for i, s := range sections {
		if s > 7 {
			return nil, ErrInvalidIndex
		}
		setSection(c, i, s)
	}
	return c, nil
}

func setSection(c Code, i int, v uint8) {
	bit := i * 3
	idx := 1 + bit/8
	off := bit % 8
	if off <= 5 {
		c[idx] |= v << (5 - off)
		return
	}
	c[idx] |= v >> (off - 5)
	c[idx+1] |= v << (13 - off)
}

// CheckChild accepts NoChild or a child index 0-7.
func CheckChild(child int) error {
	if child == NoChild || (child >= 0 && child <= 7) {
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidIndex, child)
}

// Child returns the address of child idx of c.
func Child(c Code, idx int) (Code, error) {
	if idx < 0 || idx > 7 {
		return nil, ErrInvalidIndex
	}
	if SectionCount(c) >= MaxSections {
		return nil, ErrTooDeep
	}
	sections := append(Sections(c), uint8(idx))
	return FromSections(sections...)
}

// Clone copies exactly the bytes c's section count calls for.
func Clone(c Code) Code {
	if len(c) == 0 {
		return nil
	}
	n := c.Len()
	if n > len(c) {
		n = len(c)
	}
	out := make(Code, n)
	copy(out, c[:n])
	return out
}

// Equal compares the encoded addresses, ignoring trailing bytes past Len.
func Equal(a, b Code) bool {
	if SectionCount(a) != SectionCount(b) {
		return false
	}
	n := SectionCount(a)
	for i := 0; i < n; i++ {
		if Section(a, i) != Section(b, i) {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether ancestor's path is a prefix of descendant's.
// The test is reflexive. When child is 0-7 the descendant is taken to be that
// child of descendant, without building the longer code.
func IsAncestorOf(ancestor, descendant Code, child int) bool {
	if ancestor == nil || descendant == nil {
		return false
	}
	an := SectionCount(ancestor)
	if an == 0 {
		return true
	}
	dn := SectionCount(descendant)
	withChild := child >= 0 && child <= 7
	if withChild {
		dn++
	}
	if an > dn {
		return false
	}
	for i := 0; i < an; i++ {
		want := Section(ancestor, i)
		var got uint8
		if withChild && i == dn-1 {
			got = uint8(child)
		} else {
			got = Section(descendant, i)
		}
		if want != got {
			return false
		}
	}
	return true
}

// String renders the branch path, e.g. "3.5.0", or "root".
func (c Code) String() string {
	n := SectionCount(c)
	if n == 0 {
		return "root"
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.Itoa(int(Section(c, i)))
	}
	return strings.Join(parts, ".")
}
