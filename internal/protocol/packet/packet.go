// Package packet encodes the fixed header that prefixes every mesh packet.
package packet

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"
)

const (
	// HeaderLen is the fixed header size: type, version, header_len, sender.
	HeaderLen = 1 + 1 + 2 + 16
	Version   = 1
)

// Type identifies the packet body that follows the header.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeJurisdiction
	TypeJurisdictionRequest
)

var (
	ErrShortHeader        = errors.New("packet: short header")
	ErrHeaderLenTooSmall  = errors.New("packet: header_len smaller than fixed header")
	ErrUnsupportedVersion = errors.New("packet: unsupported version")
	ErrBufferTooSmall     = errors.New("packet: destination buffer too small")
)

// Header prefixes every mesh packet.
type Header struct {
	Type      Type
	Version   uint8
	HeaderLen uint16
	Sender    uuid.UUID
}

func (t Type) String() string {
	switch t {
	case TypeJurisdiction:
		return "jurisdiction"
	case TypeJurisdictionRequest:
		return "jurisdiction_request"
	default:
		return "unknown"
	}
}

// WriteHeader populates the start of buf and returns the header length.
func WriteHeader(buf []byte, t Type, sender uuid.UUID) (int, error) {
	if len(buf) < HeaderLen {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(t)
	buf[1] = Version
	binary.LittleEndian.PutUint16(buf[2:4], HeaderLen)
	copy(buf[4:HeaderLen], sender[:])
	return HeaderLen, nil
}

// ReadHeader parses the header at the start of buf.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	h := Header{
		Type:      Type(buf[0]),
		Version:   buf[1],
		HeaderLen: binary.LittleEndian.Uint16(buf[2:4]),
	}
	if h.Version != Version {
		return Header{}, ErrUnsupportedVersion
	}
	if h.HeaderLen < HeaderLen {
		return Header{}, ErrHeaderLenTooSmall
	}
	if int(h.HeaderLen) > len(buf) {
		return Header{}, ErrShortHeader
	}
	copy(h.Sender[:], buf[4:HeaderLen])
	return h, nil
}

// HeaderLength returns how many bytes to skip to reach the packet body.
func HeaderLength(buf []byte) (int, error) {
	h, err := ReadHeader(buf)
	if err != nil {
		return 0, err
	}
	return int(h.HeaderLen), nil
}
