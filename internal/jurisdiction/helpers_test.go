package jurisdiction

import (
	"testing"

	"github.com/danmuck/voxctl/internal/octal"
)

func code(t *testing.T, sections ...uint8) octal.Code {
	t.Helper()
	c, err := octal.FromSections(sections...)
	if err != nil {
		t.Fatalf("build code %v: %v", sections, err)
	}
	return c
}
