package haws

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Transport security modes accepted by Connect.
const (
	TLSModePlain    = "plain"
	TLSModeNoVerify = "encrypted-no-verify"
)

var (
	// ErrMissingToken is returned before any network I/O when no access token
	// is configured.
	ErrMissingToken = errors.New("haws: access token is required")

	// ErrProtocolViolation covers handshake desyncs and mismatched correlation
	// ids. Fatal to the run.
	ErrProtocolViolation = errors.New("haws: protocol violation")

	// ErrAuthInvalid is an explicit credential rejection from the hub.
	ErrAuthInvalid = errors.New("haws: authentication rejected")

	errSessionClosed = errors.New("haws: session closed")
)

// Frames tolerated during authentication before the handshake is declared
// desynced. The hub sends at most a couple of non-terminal frames in practice.
const handshakeFrameLimit = 16

type Config struct {
	URL     string
	Token   string
	TLSMode string

	// HandshakeTimeout bounds the websocket upgrade. Zero means 10s.
	HandshakeTimeout time.Duration
}

// Session is one authenticated hub connection. It is owned by a single
// collection run and is not safe for concurrent use: the wire protocol here is
// strictly one request, then its response, with nothing else in flight.
type Session struct {
	conn   *websocket.Conn
	log    zerolog.Logger
	nextID int64
	closed bool
}

// Connect dials the hub and drives the authentication handshake to completion.
// The returned session is ready for Call.
func Connect(ctx context.Context, log zerolog.Logger, cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}
	if cfg.TLSMode == TLSModeNoVerify {
		// Trusted-LAN trade-off: hubs commonly run self-signed certificates.
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	s := &Session{conn: conn, log: log, nextID: 1}
	if err := s.handshake(ctx, cfg.Token); err != nil {
		_ = s.Close()
		return nil, err
	}

	log.Debug().Str("url", cfg.URL).Msg("hub session ready")
	return s, nil
}

// handshake walks Connecting -> AwaitingGreeting -> Authenticating -> Ready.
func (s *Session) handshake(ctx context.Context, token string) error {
	greeting, err := s.read(ctx)
	if err != nil {
		return fmt.Errorf("awaiting greeting: %w", err)
	}
	if greeting.Type != frameAuthRequired {
		return fmt.Errorf("%w: expected %s greeting, got %q", ErrProtocolViolation, frameAuthRequired, greeting.Type)
	}

	if err := s.write(ctx, map[string]any{
		"type":         "auth",
		"access_token": token,
	}); err != nil {
		return fmt.Errorf("sending credentials: %w", err)
	}

	for i := 0; i < handshakeFrameLimit; i++ {
		frame, err := s.read(ctx)
		if err != nil {
			return fmt.Errorf("awaiting auth result: %w", err)
		}
		switch frame.Type {
		case frameAuthOK, frameReady:
			return nil
		case frameAuthInvalid:
			if frame.Message != "" {
				return fmt.Errorf("%w: %s", ErrAuthInvalid, frame.Message)
			}
			return ErrAuthInvalid
		case frameAuthRequired:
			// A second greeting after credentials were sent means the hub and
			// client disagree about where in the handshake they are.
			return fmt.Errorf("%w: repeated %s after credentials", ErrProtocolViolation, frameAuthRequired)
		default:
			s.log.Debug().Str("type", frame.Type).Msg("ignoring handshake frame")
		}
	}
	return fmt.Errorf("%w: no auth result within %d frames", ErrProtocolViolation, handshakeFrameLimit)
}

// Call sends one correlated command and blocks until its response arrives.
// Ids are allocated from a monotonic counter starting at 1 and are never
// reused. Subscription event frames that arrive in between are skipped; a
// result frame with any other id is a protocol violation.
//
// The returned envelope may carry success=false; interpreting that is the
// caller's job.
func (s *Session) Call(ctx context.Context, msgType string, fields map[string]any) (*Envelope, error) {
	if s.closed {
		return nil, errSessionClosed
	}

	id := s.nextID
	s.nextID++

	req := map[string]any{"id": id, "type": msgType}
	for k, v := range fields {
		if k == "id" || k == "type" {
			continue
		}
		req[k] = v
	}

	if err := s.write(ctx, req); err != nil {
		return nil, fmt.Errorf("send %s: %w", msgType, err)
	}

	for {
		env, err := s.read(ctx)
		if err != nil {
			return nil, fmt.Errorf("awaiting %s response: %w", msgType, err)
		}
		if env.Type == frameEvent {
			continue
		}
		if env.ID != id {
			return nil, fmt.Errorf("%w: response id %d, expected %d", ErrProtocolViolation, env.ID, id)
		}
		return env, nil
	}
}

// Close shuts the connection down. Safe to call more than once.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}

func (s *Session) read(ctx context.Context) (*Envelope, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}
	var env Envelope
	if err := s.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *Session) write(ctx context.Context, v any) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	} else {
		_ = s.conn.SetWriteDeadline(time.Time{})
	}
	return s.conn.WriteJSON(v)
}
