package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/connectsphere/cli/internal/api"
	"github.com/gorilla/websocket"
)

// fakeServer speaks just enough Engine.IO/Socket.IO to exercise the client.
type fakeServer struct {
	t        *testing.T
	srv      *httptest.Server
	received chan string
	conns    chan *websocket.Conn
	query    chan string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		t:        t,
		received: make(chan string, 32),
		conns:    make(chan *websocket.Conn, 1),
		query:    make(chan string, 1),
	}
	upgrader := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.query <- r.URL.RawQuery
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"eio-1","upgrades":[],"pingInterval":5000,"pingTimeout":2000}`))
		_, connect, err := conn.ReadMessage()
		if err != nil {
			return
		}
		fs.received <- string(connect)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"sock-1"}`))
		fs.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fs.received <- string(data)
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return fs.srv.URL + "/socket.io/"
}

func (fs *fakeServer) next(t *testing.T) string {
	t.Helper()
	select {
	case s := <-fs.received:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return ""
	}
}

func dialFake(t *testing.T, fs *fakeServer) (*Client, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, Config{URL: fs.url(), Token: "jwt-1"})
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, <-fs.conns
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com", "wss://example.com/socket.io/?EIO=4&transport=websocket"},
		{"http://localhost:5000/socket.io", "ws://localhost:5000/socket.io/?EIO=4&transport=websocket"},
		{"wss://example.com/socket.io/", "wss://example.com/socket.io/?EIO=4&transport=websocket"},
	}
	for _, tt := range tests {
		got, err := EndpointURL(tt.in)
		if err != nil {
			t.Fatalf("EndpointURL(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("EndpointURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := EndpointURL("ftp://example.com"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestDialHandshakeSendsAuth(t *testing.T) {
	fs := newFakeServer(t)
	c, _ := dialFake(t, fs)

	if q := <-fs.query; !strings.Contains(q, "EIO=4") || !strings.Contains(q, "transport=websocket") {
		t.Fatalf("query = %q", q)
	}
	if got := fs.next(t); got != `40{"token":"jwt-1"}` {
		t.Fatalf("connect packet = %q", got)
	}
	if c.SID() != "sock-1" {
		t.Fatalf("SID() = %q", c.SID())
	}
}

func TestEmitEncodesEvents(t *testing.T) {
	fs := newFakeServer(t)
	c, _ := dialFake(t, fs)
	fs.next(t) // connect

	if err := c.JoinRoom("me"); err != nil {
		t.Fatal(err)
	}
	if got := fs.next(t); got != `42["joinRoom",{"userId":"me"}]` {
		t.Fatalf("joinRoom frame = %q", got)
	}
	if err := c.Typing("peer"); err != nil {
		t.Fatal(err)
	}
	if got := fs.next(t); got != `42["typing","peer"]` {
		t.Fatalf("typing frame = %q", got)
	}
	if err := c.StopTyping("peer"); err != nil {
		t.Fatal(err)
	}
	if got := fs.next(t); got != `42["stopTyping","peer"]` {
		t.Fatalf("stopTyping frame = %q", got)
	}

	msg := api.Message{ID: "m1", SenderID: "me", ReceiverID: "peer", Content: "hello", CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	if err := c.BroadcastMessage(msg); err != nil {
		t.Fatal(err)
	}
	got := fs.next(t)
	if !strings.HasPrefix(got, `42["newMessage",`) {
		t.Fatalf("newMessage frame = %q", got)
	}
	ev, err := parseEvent([]byte(strings.TrimPrefix(got, "42")))
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeNewMessage(ev)
	if err != nil {
		t.Fatalf("DecodeNewMessage() error: %v", err)
	}
	if decoded.ID != "m1" || decoded.Content != "hello" || decoded.SenderID != "me" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestClientAnswersPingAndDeliversEvents(t *testing.T) {
	fs := newFakeServer(t)
	c, conn := dialFake(t, fs)
	fs.next(t) // connect

	_ = conn.WriteMessage(websocket.TextMessage, []byte("2"))
	if got := fs.next(t); got != "3" {
		t.Fatalf("pong = %q", got)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`42["onlineUsers",["a","b","a",""]]`))
	select {
	case ev := <-c.Events():
		if ev.Name != EventOnlineUsers {
			t.Fatalf("event name = %q", ev.Name)
		}
		ids, err := DecodeOnlineUsers(ev)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(ids, ",") != "a,b" {
			t.Fatalf("ids = %v", ids)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestCloseEndsEventStream(t *testing.T) {
	fs := newFakeServer(t)
	c, _ := dialFake(t, fs)
	fs.next(t)

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case _, ok := <-c.Events():
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
	if err := c.Emit("typing", "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Emit after Close = %v, want ErrClosed", err)
	}
	if c.Err() != nil {
		t.Fatalf("Err() after Close = %v", c.Err())
	}
}

func TestServerDisconnectEndsStream(t *testing.T) {
	fs := newFakeServer(t)
	c, conn := dialFake(t, fs)
	fs.next(t)

	_ = conn.WriteMessage(websocket.TextMessage, []byte("41"))
	select {
	case _, ok := <-c.Events():
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestDecodeUserID(t *testing.T) {
	tests := []struct {
		data    string
		want    string
		wantErr bool
	}{
		{`"u1"`, "u1", false},
		{`{"senderId":"u2","receiverId":"me"}`, "u2", false},
		{`{"userId":"u3"}`, "u3", false},
		{`{}`, "", true},
		{`42`, "", true},
	}
	for _, tt := range tests {
		got, err := DecodeUserID(Event{Name: EventTyping, Data: json.RawMessage(tt.data)})
		if (err != nil) != tt.wantErr {
			t.Fatalf("DecodeUserID(%s) error = %v", tt.data, err)
		}
		if got != tt.want {
			t.Fatalf("DecodeUserID(%s) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestParseFrame(t *testing.T) {
	f, err := parseFrame([]byte(`42/chat,7["x",1]`))
	if err != nil {
		t.Fatal(err)
	}
	if f.engine != engineMessage || f.socket != socketEvent || string(f.payload) != `["x",1]` {
		t.Fatalf("frame = %+v (%s)", f, f.payload)
	}
	if _, err := parseFrame(nil); !errors.Is(err, errEmptyFrame) {
		t.Fatalf("parseFrame(nil) = %v", err)
	}
}
