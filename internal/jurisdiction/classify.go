package jurisdiction

import (
	"github.com/danmuck/voxctl/internal/observability"
	"github.com/danmuck/voxctl/internal/octal"
)

// Area places an octree node relative to a jurisdiction.
type Area int

const (
	// Above: the node is a strict ancestor of the root.
	Above Area = iota
	// Within: the node is under the root and under no end node.
	Within
	// Below: everything else, including nodes carved out by an end node.
	Below
)

func (a Area) String() string {
	switch a {
	case Above:
		return "ABOVE"
	case Within:
		return "WITHIN"
	default:
		return "BELOW"
	}
}

// IsMyJurisdiction classifies code. With child set to 0-7 the root test asks
// whether that child of code is under the root; pass octal.NoChild to test
// code itself. The end-node test always uses code without the child, so a
// child carved out by an end node still reports WITHIN when code itself is
// not under that end node. Indexes outside 0-7 are treated as NoChild.
// The root is within its own jurisdiction and an end node is not.
func (m *Map) IsMyJurisdiction(code octal.Code, child int) Area {
	if octal.SectionCount(code) < octal.SectionCount(m.root) && octal.IsAncestorOf(code, m.root, octal.NoChild) {
		return Above
	}
	inRoot := octal.IsAncestorOf(m.root, code, child)
	if inRoot {
		for _, end := range m.endNodes {
			if octal.IsAncestorOf(end, code, octal.NoChild) {
				inRoot = false
				break
			}
		}
	}
	if inRoot {
		return Within
	}
	return Below
}

// Classify is IsMyJurisdiction with logging and metrics.
func (m *Map) Classify(code octal.Code, child int) (Area, error) {
	if m.root == nil {
		return Below, ErrCleared
	}
	area := m.IsMyJurisdiction(code, child)
	m.log.Trace().
		Stringer("code", code).
		Int("child", child).
		Stringer("area", area).
		Msg("jurisdiction classify")
	observability.RecordClassification(area.String())
	return area, nil
}
