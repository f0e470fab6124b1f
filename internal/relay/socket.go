package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"secretline/internal/domain"
)

// Dialer opens websocket connections to a channel's duplex socket.
type Dialer struct {
	Base   string
	Dialer *websocket.Dialer
}

// NewDialer returns a dialer for the relay at base (http:// or https://).
func NewDialer(base string, handshakeTimeout time.Duration) *Dialer {
	return &Dialer{
		Base:   strings.TrimRight(base, "/"),
		Dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
	}
}

// SocketURL returns the ws:// or wss:// URL of a channel's socket.
func SocketURL(base string, id domain.ChannelID, member domain.MemberID) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + channelPath(id, "/socket"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("relay: unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("member", member.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *Dialer) Dial(
	ctx context.Context,
	id domain.ChannelID,
	member domain.MemberID,
) (domain.MessageSocket, error) {
	u, err := SocketURL(d.Base, id, member)
	if err != nil {
		return nil, err
	}
	conn, resp, err := d.Dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("relay socket %s: %s", id, resp.Status)
		}
		return nil, fmt.Errorf("relay socket %s: %w", id, err)
	}
	return &Socket{conn: conn}, nil
}

// Socket is a MessageSocket over a websocket connection. Send and Receive may
// be called from different goroutines; a cancelled Receive leaves the socket
// unusable and it should be closed.
type Socket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (s *Socket) Send(ctx context.Context, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Socket) Receive(ctx context.Context) ([]byte, error) {
	deadline, _ := ctx.Deadline()
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		kind, payload, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return payload, nil
		}
	}
}

func (s *Socket) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()
	return s.conn.Close()
}

var (
	_ domain.SocketDialer  = (*Dialer)(nil)
	_ domain.MessageSocket = (*Socket)(nil)
)
