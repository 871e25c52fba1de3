package octal

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed   = errors.New("octal: malformed hex")
	ErrOddLength   = fmt.Errorf("%w: odd length", ErrMalformed)
	ErrBadHexDigit = fmt.Errorf("%w: non-hex character", ErrMalformed)
)

// ParseHex decodes the hex form of an address, count byte included.
// Bytes beyond what the count requires are dropped.
func ParseHex(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", ErrOddLength, s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadHexDigit, s)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty code", ErrInvalidLength)
	}
	c := Code(raw)
	if len(c) < c.Len() {
		return nil, fmt.Errorf("%w: %d sections need %d bytes, have %d",
			ErrInvalidLength, SectionCount(c), c.Len(), len(c))
	}
	return c[:c.Len()], nil
}

// Hex returns the upper-case hex form of c.
func (c Code) Hex() string {
	if len(c) == 0 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(Clone(c)))
}
