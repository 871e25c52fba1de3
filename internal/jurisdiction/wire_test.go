package jurisdiction

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/voxctl/internal/octal"
	"github.com/danmuck/voxctl/internal/protocol/packet"
	"github.com/google/uuid"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	in := New(NodeTypeVoxelServer, code(t, 1, 2), []octal.Code{
		code(t, 1, 2, 3),
		code(t, 1, 2, 7, 7, 7, 7),
		code(t, 1, 2, 3), // duplicates survive
	})
	sender := uuid.New()
	buf := in.Packet(sender)
	if len(buf) != in.PackedSize() {
		t.Fatalf("packed size mismatch: got=%d want=%d", len(buf), in.PackedSize())
	}

	out := NewDefault(NodeTypeUnassigned)
	n, err := out.UnpackFrom(buf)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d of %d bytes", n, len(buf))
	}
	if !out.Equal(in) {
		t.Fatalf("round-trip mismatch: got=%s want=%s", out, in)
	}
	h, err := packet.ReadHeader(buf)
	if err != nil || h.Sender != sender || h.Type != packet.TypeJurisdiction {
		t.Fatalf("header: %+v err=%v", h, err)
	}
}

func TestPackDegenerateRootOmitsEndNodes(t *testing.T) {
	in := New(NodeTypeModelServer, octal.Root(), []octal.Code{code(t, 3)})
	buf := in.Packet(uuid.Nil)
	if len(buf) != packet.HeaderLen+1+lenFieldSize {
		t.Fatalf("expected header+type+zero length, got %d bytes", len(buf))
	}
	if got := binary.LittleEndian.Uint32(buf[packet.HeaderLen+1:]); got != 0 {
		t.Fatalf("expected zero root length, got %d", got)
	}

	out, err := FromPacket(buf)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if !out.Equal(NewDefault(NodeTypeModelServer)) {
		t.Fatalf("expected default model-server map, got %s", out)
	}
}

func TestPackEmptyMatchesDefault(t *testing.T) {
	buf := make([]byte, 64)
	n, err := PackEmptyInto(buf, NodeTypeParticleServer, uuid.New())
	if err != nil {
		t.Fatalf("pack empty: %v", err)
	}
	out, err := FromPacket(buf[:n])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if !out.Equal(NewDefault(NodeTypeParticleServer)) {
		t.Fatalf("got %s", out)
	}
	if out.EndNodeCount() != 0 {
		t.Fatalf("empty jurisdiction must not carry end nodes")
	}
}

func TestPackIntoShortBuffer(t *testing.T) {
	m := New(NodeTypeVoxelServer, code(t, 1), []octal.Code{code(t, 1, 1)})
	if _, err := m.PackInto(make([]byte, m.PackedSize()-1), uuid.Nil); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
	if _, err := PackEmptyInto(make([]byte, 4), NodeTypeVoxelServer, uuid.Nil); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}

func TestUnpackTruncatedEndNodeStops(t *testing.T) {
	in := New(NodeTypeVoxelServer, code(t, 6), []octal.Code{code(t, 6, 1), code(t, 6, 2, 2, 2)})
	buf := in.Packet(uuid.Nil)
	cut := buf[:len(buf)-1]

	out, err := FromPacket(cut)
	if err != nil {
		t.Fatalf("truncated end node must not fail the packet: %v", err)
	}
	if !octal.Equal(out.Root(), code(t, 6)) {
		t.Fatalf("root lost: %s", out)
	}
	if out.EndNodeCount() != 1 || !octal.Equal(out.EndNodes()[0], code(t, 6, 1)) {
		t.Fatalf("expected only the first end node, got %s", out)
	}
}

func TestUnpackHugeEndCountIsBounded(t *testing.T) {
	in := New(NodeTypeVoxelServer, code(t, 6), []octal.Code{code(t, 6, 1)})
	buf := in.Packet(uuid.Nil)
	countAt := packet.HeaderLen + 1 + lenFieldSize + code(t, 6).Len()
	binary.LittleEndian.PutUint32(buf[countAt:], 0xFFFFFFF0)

	out, err := FromPacket(buf)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if out.EndNodeCount() != 1 {
		t.Fatalf("expected one end node, got %d", out.EndNodeCount())
	}
}

func TestUnpackZeroLengthEndNodeRejected(t *testing.T) {
	root := code(t, 2)
	end := code(t, 2, 2)
	buf := make([]byte, 0, 64)
	buf = append(buf, make([]byte, packet.HeaderLen)...)
	if _, err := packet.WriteHeader(buf, packet.TypeJurisdiction, uuid.Nil); err != nil {
		t.Fatalf("header: %v", err)
	}
	buf = append(buf, byte(NodeTypeVoxelServer))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(root)))
	buf = append(buf, root...)
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(end)))
	buf = append(buf, end...)

	m := NewDefault(NodeTypeUnassigned)
	n, err := m.UnpackFrom(buf)
	if !errors.Is(err, ErrEmptyEndNode) {
		t.Fatalf("expected ErrEmptyEndNode, got %v", err)
	}
	if n != len(buf) {
		t.Fatalf("zero-length entry must still consume its length field: n=%d len=%d", n, len(buf))
	}
	if m.EndNodeCount() != 1 || !octal.Equal(m.EndNodes()[0], end) {
		t.Fatalf("expected the non-empty end node to be kept, got %s", m)
	}
}

func TestUnpackMalformedDegrades(t *testing.T) {
	cases := map[string][]byte{
		"short header": {1, 1, 0},
		"no body":      headerOnly(t, packet.TypeJurisdiction),
		"wrong type":   append(headerOnly(t, packet.TypeJurisdictionRequest), 'V', 0, 0, 0, 0),
	}
	for name, buf := range cases {
		m := New(NodeTypeVoxelServer, code(t, 1), []octal.Code{code(t, 1, 1)})
		if _, err := m.UnpackFrom(buf); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !m.Empty() || m.EndNodeCount() != 0 {
			t.Fatalf("%s: expected degenerate map, got %s", name, m)
		}
	}
}

func TestUnpackRootOverrunDegrades(t *testing.T) {
	buf := headerOnly(t, packet.TypeJurisdiction)
	buf = append(buf, 'V')
	buf = binary.LittleEndian.AppendUint32(buf, 40)
	buf = append(buf, 0x01, 0x20)
	m, err := FromPacket(buf)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if !m.Empty() {
		t.Fatalf("expected degenerate map, got %s", m)
	}
}

func TestUnpackRootShorterThanSectionCount(t *testing.T) {
	buf := headerOnly(t, packet.TypeJurisdiction)
	buf = append(buf, 'V')
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	buf = append(buf, 0x05, 0x20) // five sections need three bytes
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	_, err := FromPacket(buf)
	if !errors.Is(err, ErrParse) || !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrParse wrapping ErrInvalidLength, got %v", err)
	}
}

func headerOnly(t *testing.T, typ packet.Type) []byte {
	t.Helper()
	buf := make([]byte, packet.HeaderLen)
	if _, err := packet.WriteHeader(buf, typ, uuid.Nil); err != nil {
		t.Fatalf("header: %v", err)
	}
	return buf
}

func TestUnpackMaxLengthFields(t *testing.T) {
	buf := headerOnly(t, packet.TypeJurisdiction)
	buf = append(buf, 'V')
	buf = binary.LittleEndian.AppendUint32(buf, 0xFFFFFFFF)
	buf = append(buf, 0x01, 0x20)
	m, err := FromPacket(buf)
	if !errors.Is(err, ErrTruncated) || !m.Empty() {
		t.Fatalf("root length 0xFFFFFFFF: err=%v map=%s", err, m)
	}

	root := code(t, 2)
	buf = headerOnly(t, packet.TypeJurisdiction)
	buf = append(buf, 'V')
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(root)))
	buf = append(buf, root...)
	buf = binary.LittleEndian.AppendUint32(buf, 0xFFFFFFFF)
	buf = binary.LittleEndian.AppendUint32(buf, 0xFFFFFFFF)
	buf = append(buf, 0x02, 0x50)
	m, err = FromPacket(buf)
	if err != nil {
		t.Fatalf("end length 0xFFFFFFFF must stop the loop, got %v", err)
	}
	if !octal.Equal(m.Root(), root) || m.EndNodeCount() != 0 {
		t.Fatalf("unexpected map: %s", m)
	}
}

func TestFitsComparesUnsigned(t *testing.T) {
	if fits(0xFFFFFFFF, 16) {
		t.Fatalf("max uint32 must not fit in 16")
	}
	if fits(0, -1) {
		t.Fatalf("nothing fits a negative limit")
	}
	if !fits(16, 16) {
		t.Fatalf("equal length must fit")
	}
}

func TestMarshalBinaryRoundTrip(t *testing.T) {
	in := New(NodeTypeParticleServer, code(t, 4, 1), []octal.Code{code(t, 4, 1, 7)})
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != in.PackedSize() {
		t.Fatalf("marshal size: got=%d want=%d", len(data), in.PackedSize())
	}
	h, err := packet.ReadHeader(data)
	if err != nil || h.Sender != uuid.Nil {
		t.Fatalf("header: %+v err=%v", h, err)
	}

	out := NewDefault(NodeTypeUnassigned)
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("round-trip mismatch: got=%s want=%s", out, in)
	}
	if err := out.UnmarshalBinary(data[:3]); !errors.Is(err, ErrTruncated) || !out.Empty() {
		t.Fatalf("short data: err=%v map=%s", err, out)
	}
}
