package jurisdiction

import (
	"encoding"
	"encoding/binary"
	"fmt"

	"github.com/danmuck/voxctl/internal/observability"
	"github.com/danmuck/voxctl/internal/octal"
	"github.com/danmuck/voxctl/internal/protocol/packet"
	"github.com/google/uuid"
)

// Body layout after the packet header, all lengths little-endian uint32:
//
//	node_type u8 | root_len | root | end_count | { end_len | end }...
//
// A degenerate root is sent as root_len 0 with no end-node section.
const lenFieldSize = 4

var (
	_ encoding.BinaryMarshaler   = (*Map)(nil)
	_ encoding.BinaryUnmarshaler = (*Map)(nil)
)

// PackedSize is the number of bytes PackInto writes.
func (m *Map) PackedSize() int {
	n := packet.HeaderLen + 1 + lenFieldSize
	if m.Empty() {
		return n
	}
	n += m.root.Len() + lenFieldSize
	for _, e := range m.endNodes {
		n += lenFieldSize + e.Len()
	}
	return n
}

// PackInto writes the map as a jurisdiction packet from sender and returns
// the bytes used, header included.
func (m *Map) PackInto(buf []byte, sender uuid.UUID) (int, error) {
	if m.Empty() {
		return PackEmptyInto(buf, m.nodeType, sender)
	}
	if len(buf) < m.PackedSize() {
		return 0, ErrBufferTooSmall
	}
	pos, err := packet.WriteHeader(buf, packet.TypeJurisdiction, sender)
	if err != nil {
		return 0, err
	}
	buf[pos] = byte(m.nodeType)
	pos++
	pos = putCode(buf, pos, m.root)
	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(m.endNodes)))
	pos += lenFieldSize
	for _, e := range m.endNodes {
		pos = putCode(buf, pos, e)
	}
	observability.RecordPacket("out", false)
	return pos, nil
}

func putCode(buf []byte, pos int, c octal.Code) int {
	n := c.Len()
	binary.LittleEndian.PutUint32(buf[pos:], uint32(n))
	pos += lenFieldSize
	copy(buf[pos:pos+n], c)
	return pos + n
}

// PackEmptyInto writes the packet a server sends while it holds no territory.
func PackEmptyInto(buf []byte, t NodeType, sender uuid.UUID) (int, error) {
	if len(buf) < packet.HeaderLen+1+lenFieldSize {
		return 0, ErrBufferTooSmall
	}
	pos, err := packet.WriteHeader(buf, packet.TypeJurisdiction, sender)
	if err != nil {
		return 0, err
	}
	buf[pos] = byte(t)
	pos++
	binary.LittleEndian.PutUint32(buf[pos:], 0)
	pos += lenFieldSize
	observability.RecordPacket("out", true)
	return pos, nil
}

// Packet allocates and packs the map.
func (m *Map) Packet(sender uuid.UUID) []byte {
	buf := make([]byte, m.PackedSize())
	n, _ := m.PackInto(buf, sender)
	return buf[:n]
}

// UnpackFrom replaces the map with the one encoded in buf and returns the
// bytes consumed, header included.
//
// A malformed header or root leaves the map as the degenerate jurisdiction
// and returns an error. Running out of bytes inside the end-node section is
// not an error: the end nodes read so far are kept. Zero-length end nodes are
// consumed and skipped, and reported with ErrEmptyEndNode once the rest of the
// packet has been read.
func (m *Map) UnpackFrom(buf []byte) (int, error) {
	m.Clear()
	h, err := packet.ReadHeader(buf)
	if err != nil {
		m.degrade()
		return 0, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	if h.Type != packet.TypeJurisdiction {
		m.degrade()
		return 0, fmt.Errorf("%w: %s", ErrWrongPacket, h.Type)
	}
	pos := int(h.HeaderLen)
	remaining := len(buf) - pos
	m.log.Debug().Stringer("sender", h.Sender).Int("bytes", len(buf)).Msg("jurisdiction unpack start")

	if remaining < 1+lenFieldSize {
		m.degrade()
		return pos, ErrTruncated
	}
	m.nodeType = NodeType(buf[pos])
	pos++
	rawRootLen := binary.LittleEndian.Uint32(buf[pos:])
	pos += lenFieldSize
	remaining -= 1 + lenFieldSize

	if rawRootLen == 0 {
		m.root = octal.Root()
		observability.RecordPacket("in", true)
		m.log.Debug().Stringer("node_type", m.nodeType).Msg("jurisdiction unpack empty")
		return pos, nil
	}
	if !fits(rawRootLen, remaining) {
		m.degrade()
		return pos, fmt.Errorf("%w: root needs %d bytes, %d left", ErrTruncated, rawRootLen, remaining)
	}
	rootLen := int(rawRootLen)
	root, err := readCode(buf[pos : pos+rootLen])
	if err != nil {
		m.degrade()
		return pos, fmt.Errorf("%w: root: %w", ErrParse, err)
	}
	m.root = root
	pos += rootLen
	remaining -= rootLen

	if remaining < lenFieldSize {
		m.dropped("truncated", "missing end node count")
		observability.RecordPacket("in", false)
		return pos, nil
	}
	count := binary.LittleEndian.Uint32(buf[pos:])
	pos += lenFieldSize
	remaining -= lenFieldSize

	// every entry costs at least its length field
	capHint := remaining / lenFieldSize
	if fits(count, capHint) {
		capHint = int(count)
	}
	m.endNodes = make([]octal.Code, 0, capHint)
	var sawEmpty bool
	for i := uint32(0); i < count; i++ {
		if remaining < lenFieldSize {
			m.dropped("truncated", "end node length field cut off")
			break
		}
		rawLen := binary.LittleEndian.Uint32(buf[pos:])
		pos += lenFieldSize
		remaining -= lenFieldSize
		if !fits(rawLen, remaining) {
			m.dropped("truncated", "end node exceeds remaining bytes")
			break
		}
		n := int(rawLen)
		if n == 0 {
			sawEmpty = true
			m.dropped("empty", "zero-length end node")
			continue
		}
		code, err := readCode(buf[pos : pos+n])
		pos += n
		remaining -= n
		if err != nil {
			m.dropped("malformed", err.Error())
			continue
		}
		m.endNodes = append(m.endNodes, code)
	}

	observability.RecordPacket("in", false)
	m.log.Debug().
		Stringer("node_type", m.nodeType).
		Str("root", m.root.Hex()).
		Int("end_nodes", len(m.endNodes)).
		Msg("jurisdiction unpack done")
	if sawEmpty {
		return pos, ErrEmptyEndNode
	}
	return pos, nil
}

// fits reports whether a wire length is at most limit without converting it
// to int first, which could wrap on 32-bit platforms.
func fits(n uint32, limit int) bool {
	return limit >= 0 && uint64(n) <= uint64(limit)
}

func readCode(raw []byte) (octal.Code, error) {
	c := octal.Code(raw)
	if !octal.Valid(c) {
		return nil, fmt.Errorf("%w: %d bytes for %d sections", octal.ErrInvalidLength, len(raw), octal.SectionCount(c))
	}
	return octal.Clone(c), nil
}

func (m *Map) degrade() {
	m.root = octal.Root()
	m.endNodes = nil
}

func (m *Map) dropped(reason, detail string) {
	observability.RecordDroppedEndNode(reason)
	m.log.Warn().Str("reason", reason).Str("detail", detail).Msg("jurisdiction end node dropped")
}

// FromPacket decodes a jurisdiction packet into a new map. Errors other than
// ErrEmptyEndNode leave the returned map degenerate.
func FromPacket(buf []byte, opts ...Option) (*Map, error) {
	m := NewDefault(NodeTypeUnassigned, opts...)
	_, err := m.UnpackFrom(buf)
	return m, err
}

// MarshalBinary packs the map with a nil sender.
func (m *Map) MarshalBinary() ([]byte, error) {
	buf := make([]byte, m.PackedSize())
	n, err := m.PackInto(buf, uuid.Nil)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// UnmarshalBinary is UnpackFrom without the byte count.
func (m *Map) UnmarshalBinary(data []byte) error {
	_, err := m.UnpackFrom(data)
	return err
}
