package octal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCode(t *testing.T, sections ...uint8) Code {
	t.Helper()
	c, err := FromSections(sections...)
	require.NoError(t, err)
	return c
}

func TestBytesRequired(t *testing.T) {
	cases := map[int]int{0: 1, 1: 2, 2: 2, 3: 3, 8: 4, 9: 5, 255: 97}
	for n, want := range cases {
		assert.Equal(t, want, BytesRequired(n), "sections=%d", n)
	}
}

func TestFromSectionsRoundTripsAcrossByteBoundaries(t *testing.T) {
	path := []uint8{7, 0, 5, 3, 1, 6, 2, 4, 7, 7, 1}
	c := mustCode(t, path...)
	assert.Equal(t, len(path), SectionCount(c))
	assert.Equal(t, BytesRequired(len(path)), len(c))
	assert.Equal(t, path, Sections(c))
}

func TestKnownEncoding(t *testing.T) {
	// one section of value 3 packs into the top three bits of byte 1
	c := mustCode(t, 3)
	assert.Equal(t, Code{0x01, 0x60}, c)
	assert.Equal(t, "0160", c.Hex())
	assert.Equal(t, "3", c.String())
	assert.Equal(t, "root", Root().String())
}

func TestCheckChild(t *testing.T) {
	for _, ok := range []int{NoChild, 0, 7} {
		assert.NoError(t, CheckChild(ok))
	}
	for _, bad := range []int{-2, 8, 9} {
		assert.ErrorIs(t, CheckChild(bad), ErrInvalidIndex)
	}
}

func TestFromSectionsRejectsBadIndex(t *testing.T) {
	_, err := FromSections(1, 8)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestChild(t *testing.T) {
	parent := mustCode(t, 1, 2)
	c, err := Child(parent, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 5}, Sections(c))

	_, err = Child(parent, 8)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestIsAncestorOfReflexive(t *testing.T) {
	for _, c := range []Code{Root(), mustCode(t, 0), mustCode(t, 4, 4, 4, 1)} {
		assert.True(t, IsAncestorOf(c, c, NoChild), "code=%s", c)
	}
}

func TestIsAncestorOf(t *testing.T) {
	a := mustCode(t, 3)
	b := mustCode(t, 3, 5)
	other := mustCode(t, 5, 3)

	assert.True(t, IsAncestorOf(Root(), b, NoChild))
	assert.True(t, IsAncestorOf(a, b, NoChild))
	assert.False(t, IsAncestorOf(b, a, NoChild))
	assert.False(t, IsAncestorOf(a, other, NoChild))
	assert.False(t, IsAncestorOf(nil, b, NoChild))
	assert.False(t, IsAncestorOf(a, nil, NoChild))
}

func TestIsAncestorOfWithChild(t *testing.T) {
	b := mustCode(t, 3, 5)
	// b's child 2 is 3.5.2
	assert.True(t, IsAncestorOf(mustCode(t, 3, 5, 2), b, 2))
	assert.False(t, IsAncestorOf(mustCode(t, 3, 5, 1), b, 2))
	// root of the whole space 3 descends through child 3 only
	assert.True(t, IsAncestorOf(mustCode(t, 3), Root(), 3))
	assert.False(t, IsAncestorOf(mustCode(t, 3), Root(), 4))
}

func TestEqualAndClone(t *testing.T) {
	c := mustCode(t, 6, 1, 2)
	padded := append(Clone(c), 0xFF)
	assert.True(t, Equal(c, padded))
	cp := Clone(padded)
	assert.Equal(t, c, cp)

	cp[1] = 0
	assert.NotEqual(t, c, cp)
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("0160")
	require.NoError(t, err)
	assert.Equal(t, []uint8{3}, Sections(c))

	c, err = ParseHex("00")
	require.NoError(t, err)
	assert.True(t, IsDegenerate(c))

	c, err = ParseHex("0160FFFF")
	require.NoError(t, err)
	assert.Equal(t, Code{0x01, 0x60}, c)
}

func TestParseHexMalformed(t *testing.T) {
	_, err := ParseHex("zz")
	assert.ErrorIs(t, err, ErrBadHexDigit)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseHex("abc")
	assert.ErrorIs(t, err, ErrOddLength)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseHex("")
	assert.ErrorIs(t, err, ErrInvalidLength)

	// count byte says three sections, only one payload byte follows
	_, err = ParseHex("0300")
	assert.ErrorIs(t, err, ErrInvalidLength)
}
