package jurisdiction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/voxctl/internal/octal"
	"github.com/rs/zerolog"
)

var (
	ErrParse          = errors.New("jurisdiction: parse failed")
	ErrInvalidLength  = octal.ErrInvalidLength
	ErrCleared        = errors.New("jurisdiction: map cleared")
	ErrTruncated      = errors.New("jurisdiction: truncated packet")
	ErrEmptyEndNode   = errors.New("jurisdiction: zero-length end node rejected")
	ErrBufferTooSmall = errors.New("jurisdiction: destination buffer too small")
	ErrWrongPacket    = errors.New("jurisdiction: not a jurisdiction packet")
)

// NodeType tags which kind of server a jurisdiction belongs to.
type NodeType uint8

const (
	NodeTypeUnassigned     NodeType = 1
	NodeTypeVoxelServer    NodeType = 'V'
	NodeTypeParticleServer NodeType = 'P'
	NodeTypeModelServer    NodeType = 'o'
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeUnassigned:
		return "unassigned"
	case NodeTypeVoxelServer:
		return "voxel-server"
	case NodeTypeParticleServer:
		return "particle-server"
	case NodeTypeModelServer:
		return "model-server"
	default:
		return fmt.Sprintf("node-type(%d)", uint8(t))
	}
}

// ParseNodeType accepts the names printed by String.
func ParseNodeType(s string) (NodeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unassigned":
		return NodeTypeUnassigned, nil
	case "voxel-server", "voxel", "v":
		return NodeTypeVoxelServer, nil
	case "particle-server", "particle", "p":
		return NodeTypeParticleServer, nil
	case "model-server", "model", "o":
		return NodeTypeModelServer, nil
	default:
		return 0, fmt.Errorf("jurisdiction: unknown node type %q", s)
	}
}

// Map is one server's claimed region of space.
type Map struct {
	nodeType NodeType
	root     octal.Code
	endNodes []octal.Code
	log      zerolog.Logger
}

type Option func(*Map)

// WithLogger routes the map's diagnostics to logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Map) {
		m.log = logger
	}
}

func newMap(t NodeType, opts []Option) *Map {
	m := &Map{nodeType: t, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewDefault returns a map for t that claims the whole space with no exclusions.
func NewDefault(t NodeType, opts ...Option) *Map {
	m := newMap(t, opts)
	m.root = octal.Root()
	return m
}

// New builds a map that owns root and ends. The caller must not touch either
// afterwards; use Take to have the source cleared for you. A nil root becomes
// the degenerate root and nil end nodes are skipped.
func New(t NodeType, root octal.Code, ends []octal.Code, opts ...Option) *Map {
	m := newMap(t, opts)
	m.Init(root, ends)
	return m
}

// Take moves root and ends into a new map and nils the caller's references.
func Take(t NodeType, root *octal.Code, ends *[]octal.Code, opts ...Option) *Map {
	var r octal.Code
	var e []octal.Code
	if root != nil {
		r, *root = *root, nil
	}
	if ends != nil {
		e, *ends = *ends, nil
	}
	return New(t, r, e, opts...)
}

// Init replaces the whole structure, dropping the previous keys.
func (m *Map) Init(root octal.Code, ends []octal.Code) {
	m.Clear()
	if root == nil {
		root = octal.Root()
	}
	m.root = root
	m.endNodes = make([]octal.Code, 0, len(ends))
	for _, e := range ends {
		if e != nil {
			m.endNodes = append(m.endNodes, e)
		}
	}
}

// Clear releases every key. Queries on a cleared map are meaningless until
// the next Init; Classify reports ErrCleared.
func (m *Map) Clear() {
	m.root = nil
	m.endNodes = nil
}

// Cleared reports whether the map has no root.
func (m *Map) Cleared() bool {
	return m.root == nil
}

// Clone returns a deep copy. Each key is re-sized from its section count.
func (m *Map) Clone() *Map {
	out := &Map{nodeType: m.nodeType, log: m.log}
	if m.root == nil {
		out.root = octal.Root()
	} else {
		out.root = octal.Clone(m.root)
	}
	out.endNodes = make([]octal.Code, 0, len(m.endNodes))
	for _, e := range m.endNodes {
		if e != nil {
			out.endNodes = append(out.endNodes, octal.Clone(e))
		}
	}
	return out
}

func (m *Map) NodeType() NodeType {
	return m.nodeType
}

// Root returns a copy of the root address, nil if cleared.
func (m *Map) Root() octal.Code {
	return octal.Clone(m.root)
}

// EndNodes returns copies of the end node addresses in order.
func (m *Map) EndNodes() []octal.Code {
	out := make([]octal.Code, len(m.endNodes))
	for i, e := range m.endNodes {
		out[i] = octal.Clone(e)
	}
	return out
}

func (m *Map) EndNodeCount() int {
	return len(m.endNodes)
}

// Empty reports whether the map advertises no specific claim.
func (m *Map) Empty() bool {
	return octal.IsDegenerate(m.root)
}

// Equal compares node type, root and end nodes in order.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.nodeType != other.nodeType || (m.root == nil) != (other.root == nil) {
		return false
	}
	if !octal.Equal(m.root, other.root) || len(m.endNodes) != len(other.endNodes) {
		return false
	}
	for i := range m.endNodes {
		if !octal.Equal(m.endNodes[i], other.endNodes[i]) {
			return false
		}
	}
	return true
}

func (m *Map) String() string {
	if m.root == nil {
		return fmt.Sprintf("%s cleared", m.nodeType)
	}
	ends := make([]string, len(m.endNodes))
	for i, e := range m.endNodes {
		ends[i] = e.Hex()
	}
	return fmt.Sprintf("%s root=%s ends=[%s]", m.nodeType, m.root.Hex(), strings.Join(ends, ","))
}

// LogDetails writes the root and every end node at debug level.
func (m *Map) LogDetails(logger zerolog.Logger) {
	root := octal.Root().Hex()
	if m.root != nil {
		root = m.root.Hex()
	}
	logger.Debug().
		Stringer("node_type", m.nodeType).
		Str("root", root).
		Int("end_nodes", len(m.endNodes)).
		Msg("jurisdiction")
	for i, e := range m.endNodes {
		logger.Debug().Int("index", i).Str("end_node", e.Hex()).Stringer("path", e).Msg("jurisdiction end node")
	}
}
