package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/smpctl/internal/protocol"
)

const (
	HeaderLen     = 8
	MaxPayloadLen = 1<<16 - 1
	// MaxFrameLen is the largest datagram a header can describe.
	MaxFrameLen = HeaderLen + MaxPayloadLen

	maxOp      = 0x07
	maxVersion = 0x03
)

// SMP protocol versions carried in bits 3-4 of byte 0.
const (
	VersionLegacy uint8 = 0
	Version2      uint8 = 1
)

// Op is the 3-bit operation code.
type Op uint8

const (
	OpRead          Op = 0
	OpReadResponse  Op = 1
	OpWrite         Op = 2
	OpWriteResponse Op = 3
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpReadResponse:
		return "read_rsp"
	case OpWrite:
		return "write"
	case OpWriteResponse:
		return "write_rsp"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Response returns the op a device answers a request with.
func (o Op) Response() Op {
	switch o {
	case OpRead:
		return OpReadResponse
	case OpWrite:
		return OpWriteResponse
	default:
		return o
	}
}

// Header is the fixed wire header.
//
//	byte 0    reserved(3) | version(2) | op(3)
//	byte 1    flags
//	bytes 2-3 payload length (big-endian)
//	bytes 4-5 group id (big-endian)
//	byte 6    sequence
//	byte 7    command id
type Header struct {
	Op      Op
	Version uint8
	Flags   uint8
	Length  uint16
	Group   uint16
	Seq     uint8
	Command uint8
}

func EncodeHeader(h Header) ([]byte, error) {
	if h.Op > maxOp {
		return nil, fmt.Errorf("%w: op %d exceeds 3 bits", protocol.ErrEncoding, h.Op)
	}
	if h.Version > maxVersion {
		return nil, fmt.Errorf("%w: version %d exceeds 2 bits", protocol.ErrEncoding, h.Version)
	}
	buf := make([]byte, HeaderLen)
	buf[0] = h.Version<<3 | uint8(h.Op)
	buf[1] = h.Flags
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint16(buf[4:6], h.Group)
	buf[6] = h.Seq
	buf[7] = h.Command
	return buf, nil
}

// DecodeHeader reads the first HeaderLen bytes of b. Field values are not
// range-checked.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", protocol.ErrTruncatedFrame, HeaderLen, len(b))
	}
	return Header{
		Op:      Op(b[0] & maxOp),
		Version: (b[0] >> 3) & maxVersion,
		Flags:   b[1],
		Length:  binary.BigEndian.Uint16(b[2:4]),
		Group:   binary.BigEndian.Uint16(b[4:6]),
		Seq:     b[6],
		Command: b[7],
	}, nil
}

// EncodePacket stamps h.Length from body and returns header ++ body.
func EncodePacket(h Header, body []byte) ([]byte, error) {
	if len(body) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: payload %d bytes exceeds %d", protocol.ErrEncoding, len(body), MaxPayloadLen)
	}
	h.Length = uint16(len(body))
	hb, err := EncodeHeader(h)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderLen+len(body))
	out = append(out, hb...)
	out = append(out, body...)
	return out, nil
}

// DecodePacket splits one datagram into its header and the declared body.
// Trailing bytes past the declared length are ignored.
func DecodePacket(datagram []byte) (Header, []byte, error) {
	h, err := DecodeHeader(datagram)
	if err != nil {
		return Header{}, nil, err
	}
	end := HeaderLen + int(h.Length)
	if end > len(datagram) {
		return h, nil, fmt.Errorf(
			"%w: header declares %d payload bytes, datagram carries %d",
			protocol.ErrTruncatedFrame,
			h.Length,
			len(datagram)-HeaderLen,
		)
	}
	body := make([]byte, h.Length)
	copy(body, datagram[HeaderLen:end])
	return h, body, nil
}
