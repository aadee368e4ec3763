// Package realtime is a minimal Socket.IO v4 client over a WebSocket
// transport. It covers what the messaging panel relies on: connect to the
// default namespace, emit events, receive events, and answer server pings.
// There is no reconnection and no acknowledgment support.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by Emit after the channel has been closed.
var ErrClosed = errors.New("channel closed")

const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	writeTimeout        = 10 * time.Second
)

// Config describes how to reach the channel.
type Config struct {
	// URL is the Socket.IO endpoint, e.g. wss://host/socket.io/.
	URL    string
	Token  string
	Header http.Header
	Dialer *websocket.Dialer
	// Logf receives debug lines. Optional.
	Logf func(format string, args ...any)
}

// Client is one open channel subscription.
type Client struct {
	conn    *websocket.Conn
	sid     string
	events  chan Event
	done    chan struct{}
	writeMu sync.Mutex

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error

	pingWindow time.Duration
	logf       func(format string, args ...any)
}

// EndpointURL appends the Engine.IO query to base.
func EndpointURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens the WebSocket, completes the Engine.IO handshake and connects
// to the default namespace.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	endpoint, err := EndpointURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	c := &Client{
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		logf:   logf,
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	if err := c.handshake(cfg.Token); err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	go c.readLoop()
	return c, nil
}

func (c *Client) handshake(token string) error {
	f, err := c.readFrame()
	if err != nil {
		return fmt.Errorf("read open packet: %w", err)
	}
	if f.engine != engineOpen {
		return fmt.Errorf("expected open packet, got %q", f.engine)
	}
	var hs handshake
	if err := json.Unmarshal(f.payload, &hs); err != nil {
		return fmt.Errorf("decode open packet: %w", err)
	}
	interval := time.Duration(hs.PingInterval) * time.Millisecond
	timeout := time.Duration(hs.PingTimeout) * time.Millisecond
	if interval <= 0 {
		interval = defaultPingInterval
	}
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	c.pingWindow = interval + timeout

	var auth any
	if token != "" {
		auth = map[string]string{"token": token}
	}
	pkt, err := encodeConnect(auth)
	if err != nil {
		return err
	}
	if err := c.write(pkt); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	for {
		f, err := c.readFrame()
		if err != nil {
			return fmt.Errorf("await connect: %w", err)
		}
		switch {
		case f.engine == enginePing:
			if err := c.write([]byte{enginePong}); err != nil {
				return err
			}
		case f.engine == engineMessage && f.socket == socketConnect:
			var ack struct {
				SID string `json:"sid"`
			}
			_ = json.Unmarshal(f.payload, &ack)
			c.sid = ack.SID
			c.logf("realtime: connected sid=%s", c.sid)
			return nil
		case f.engine == engineMessage && f.socket == socketConnectError:
			var e struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(f.payload, &e)
			return fmt.Errorf("connect refused: %s", e.Message)
		case f.engine == engineClose:
			return ErrClosed
		}
	}
}

func (c *Client) readFrame() (frame, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return frame{}, err
		}
		f, err := parseFrame(data)
		if errors.Is(err, errEmptyFrame) {
			continue
		}
		return f, err
	}
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pingWindow))
		f, err := c.readFrame()
		if err != nil {
			c.fail(err)
			return
		}
		switch f.engine {
		case enginePing:
			if err := c.write([]byte{enginePong}); err != nil {
				c.fail(err)
				return
			}
		case engineClose:
			c.fail(ErrClosed)
			return
		case engineMessage:
			switch f.socket {
			case socketEvent:
				ev, err := parseEvent(f.payload)
				if err != nil {
					c.logf("realtime: dropping event: %v", err)
					continue
				}
				select {
				case c.events <- ev:
				case <-c.done:
					return
				}
			case socketDisconnect:
				c.fail(ErrClosed)
				return
			}
		}
	}
}

func (c *Client) write(pkt []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, pkt)
}

func (c *Client) fail(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// SID is the Socket.IO session id assigned by the server.
func (c *Client) SID() string { return c.sid }

// Events delivers inbound events in arrival order. It is closed when the
// channel ends.
func (c *Client) Events() <-chan Event { return c.events }

// Err reports why the channel ended, or nil while it is open.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if errors.Is(c.err, ErrClosed) {
		return nil
	}
	return c.err
}

// Emit sends one event. It is safe to call from any goroutine.
func (c *Client) Emit(name string, data any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	pkt, err := encodeEvent(name, data)
	if err != nil {
		return err
	}
	c.logf("realtime: emit %s", name)
	return c.write(pkt)
}

// Close leaves the namespace and closes the socket. Pending events are
// dropped and the Events channel is closed.
func (c *Client) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	_ = c.write([]byte{engineMessage, socketDisconnect})
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.fail(ErrClosed)
	return nil
}
