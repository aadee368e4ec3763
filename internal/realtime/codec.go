package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Engine.IO v4 packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineUpgrade = '5'
	engineNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketAck          = '3'
	socketConnectError = '4'
)

var errEmptyFrame = errors.New("empty frame")

// Event is one named event with its raw JSON argument.
type Event struct {
	Name string
	Data json.RawMessage
}

type frame struct {
	engine  byte
	socket  byte
	payload []byte
}

type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

func parseFrame(b []byte) (frame, error) {
	if len(b) == 0 {
		return frame{}, errEmptyFrame
	}
	f := frame{engine: b[0], payload: b[1:]}
	if f.engine != engineMessage {
		return f, nil
	}
	if len(f.payload) == 0 {
		return frame{}, fmt.Errorf("message frame without socket packet type")
	}
	f.socket = f.payload[0]
	f.payload = skipNamespaceAndAck(f.payload[1:])
	return f, nil
}

// skipNamespaceAndAck drops an optional "/nsp," prefix and ack id digits.
func skipNamespaceAndAck(p []byte) []byte {
	if len(p) > 0 && p[0] == '/' {
		if i := bytes.IndexByte(p, ','); i >= 0 {
			p = p[i+1:]
		} else {
			return nil
		}
	}
	for len(p) > 0 && p[0] >= '0' && p[0] <= '9' {
		p = p[1:]
	}
	return p
}

func parseEvent(payload []byte) (Event, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(payload, &args); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if len(args) == 0 {
		return Event{}, fmt.Errorf("event without name")
	}
	var ev Event
	if err := json.Unmarshal(args[0], &ev.Name); err != nil {
		return Event{}, fmt.Errorf("decode event name: %w", err)
	}
	if len(args) > 1 {
		ev.Data = args[1]
	}
	return ev, nil
}

func encodeEvent(name string, data any) ([]byte, error) {
	args := []any{name}
	if data != nil {
		args = append(args, data)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return append([]byte{engineMessage, socketEvent}, body...), nil
}

func encodeConnect(auth any) ([]byte, error) {
	out := []byte{engineMessage, socketConnect}
	if auth == nil {
		return out, nil
	}
	body, err := json.Marshal(auth)
	if err != nil {
		return nil, err
	}
	return append(out, body...), nil
}
