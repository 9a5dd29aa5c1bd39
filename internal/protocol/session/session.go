package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	logs "github.com/danmuck/smpctl/internal/logging"
	"github.com/danmuck/smpctl/internal/protocol"
	"github.com/danmuck/smpctl/internal/protocol/catalog"
	"github.com/danmuck/smpctl/internal/protocol/frame"
	"github.com/danmuck/smpctl/internal/protocol/payload"
)

// staleWindow bounds how long Call waits while discarding leftover replies.
const staleWindow = time.Millisecond

// Session is one connected datagram endpoint plus its sequence counter.
type Session struct {
	conn   net.Conn
	cfg    Config
	seq    uint8
	closed bool
	// stale is set when an earlier Call gave up before its reply arrived.
	stale bool
	buf   []byte
}

// Open dials address over UDP. Nothing is sent until the first Call.
func Open(ctx context.Context, address string, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	addr := WithDefaultPort(address)
	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		logs.Errf("session.Open dial failed addr=%s err=%v", addr, err)
		return nil, fmt.Errorf("%w: dial %s: %v", protocol.ErrTransport, addr, err)
	}
	logs.Debugf("session.Open addr=%s local=%s timeout=%s", addr, conn.LocalAddr(), cfg.Timeout)
	return New(conn, cfg), nil
}

// New wraps an already connected datagram conn. A Timeout that is not
// positive and a MaxDatagram that cannot hold a header fall back to
// DefaultConfig values.
func New(conn net.Conn, cfg Config) *Session {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxDatagram < frame.HeaderLen || cfg.MaxDatagram > frame.MaxFrameLen {
		if cfg.MaxDatagram != 0 {
			logs.Warnf("session.New max datagram %d outside [%d,%d], using %d", cfg.MaxDatagram, frame.HeaderLen, frame.MaxFrameLen, def.MaxDatagram)
		}
		cfg.MaxDatagram = def.MaxDatagram
	}
	return &Session{
		conn: conn,
		cfg:  cfg,
		buf:  make([]byte, cfg.MaxDatagram),
	}
}

// Seq reports the sequence number the next Call will use.
func (s *Session) Seq() uint8 {
	return s.seq
}

func (s *Session) RemoteAddr() string {
	if s.conn == nil || s.conn.RemoteAddr() == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Close releases the socket. Repeated calls return nil.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	logs.Debugf("session.Close addr=%s next_seq=%d", s.RemoteAddr(), s.seq)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", protocol.ErrTransport, err)
	}
	return nil
}

// Call performs one request/reply exchange. The sequence number advances
// before anything is sent, so it moves on every Call whatever the outcome.
func (s *Session) Call(ctx context.Context, d catalog.Descriptor, req payload.Map) (payload.Map, error) {
	if s.closed {
		return nil, protocol.ErrSessionClosed
	}
	seq := s.seq
	s.seq++

	body, err := payload.Encode(req)
	if err != nil {
		return nil, err
	}
	pkt, err := frame.EncodePacket(frame.Header{
		Op:      d.Op,
		Version: s.cfg.Version,
		Group:   uint16(d.Group),
		Seq:     seq,
		Command: d.Command,
	}, body)
	if err != nil {
		return nil, err
	}
	if len(pkt) > s.cfg.MaxDatagram {
		return nil, fmt.Errorf("%w: request %d bytes exceeds max datagram %d", protocol.ErrEncoding, len(pkt), s.cfg.MaxDatagram)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrNoResponse, err)
	}

	deadline := time.Now().Add(s.cfg.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if s.stale {
		if err := s.discardStale(); err != nil {
			return nil, s.ioError("discard", d, seq, err)
		}
	}

	logs.Debugf("session.Call send command=%s seq=%d bytes=%d", d.Name, seq, len(pkt))
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: set write deadline %s: %v", protocol.ErrTransport, d.Name, err)
	}
	if _, err := s.conn.Write(pkt); err != nil {
		return nil, s.ioError("write", d, seq, err)
	}

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: set read deadline %s: %v", protocol.ErrTransport, d.Name, err)
	}
	n, err := s.conn.Read(s.buf)
	if err != nil {
		return nil, s.ioError("read", d, seq, err)
	}
	datagram := s.buf[:n]

	h, err := frame.DecodeHeader(datagram)
	if err != nil {
		logs.Warnf("session.Call short reply command=%s seq=%d bytes=%d", d.Name, seq, n)
		return nil, err
	}
	if h.Seq != seq {
		logs.Warnf("session.Call sequence mismatch command=%s expected=%d got=%d", d.Name, seq, h.Seq)
		s.stale = true
		return nil, &protocol.SequenceMismatchError{Expected: seq, Got: h.Seq}
	}
	h, respBody, err := frame.DecodePacket(datagram)
	if err != nil {
		logs.Warnf("session.Call truncated reply command=%s seq=%d declared=%d received=%d", d.Name, seq, h.Length, n)
		return nil, err
	}
	if h.Group != uint16(d.Group) || h.Command != d.Command || h.Op != d.Op.Response() {
		logs.Warnf(
			"session.Call reply coordinates differ command=%s seq=%d want=%d/%d/%s got=%d/%d/%s",
			d.Name,
			seq,
			d.Group,
			d.Command,
			d.Op.Response(),
			h.Group,
			h.Command,
			h.Op,
		)
	}

	resp, err := payload.Decode(respBody)
	if err != nil {
		logs.Warnf("session.Call malformed reply command=%s seq=%d err=%v", d.Name, seq, err)
		return nil, err
	}
	logs.Debugf("session.Call ok command=%s seq=%d keys=%d", d.Name, seq, len(resp))
	return resp, nil
}

// discardStale drops replies to earlier Calls that arrived after those
// Calls gave up. It returns once the socket stays quiet for staleWindow.
func (s *Session) discardStale() error {
	s.stale = false
	if err := s.conn.SetReadDeadline(time.Now().Add(staleWindow)); err != nil {
		return err
	}
	for {
		n, err := s.conn.Read(s.buf)
		if err != nil {
			return nil
		}
		if h, err := frame.DecodeHeader(s.buf[:n]); err == nil {
			logs.Debugf("session.Call discarded late reply seq=%d bytes=%d", h.Seq, n)
		}
	}
}

func (s *Session) ioError(stage string, d catalog.Descriptor, seq uint8, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		s.stale = true
		logs.Warnf("session.Call no response command=%s seq=%d stage=%s", d.Name, seq, stage)
		return fmt.Errorf("%w: %s seq=%d after %s", protocol.ErrNoResponse, d.Name, seq, s.cfg.Timeout)
	}
	// A connected UDP socket reports ICMP port unreachable as ECONNREFUSED;
	// for the caller that is a device that did not answer.
	if errors.Is(err, syscall.ECONNREFUSED) {
		logs.Warnf("session.Call unreachable command=%s seq=%d stage=%s", d.Name, seq, stage)
		return fmt.Errorf("%w: %s seq=%d: %v", protocol.ErrNoResponse, d.Name, seq, err)
	}
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", protocol.ErrSessionClosed, err)
	}
	logs.Errf("session.Call %s failed command=%s seq=%d err=%v", stage, d.Name, seq, err)
	return fmt.Errorf("%w: %s %s: %v", protocol.ErrTransport, stage, d.Name, err)
}
