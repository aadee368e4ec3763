package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/connectsphere/cli/internal/api"
	"github.com/samber/lo"
)

// Event names shared with the server.
const (
	EventJoinRoom    = "joinRoom"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
	EventNewMessage  = "newMessage"
	EventOnlineUsers = "onlineUsers"
)

// JoinRoom announces userID so the server can route and count presence.
func (c *Client) JoinRoom(userID string) error {
	return c.Emit(EventJoinRoom, map[string]string{"userId": userID})
}

// Typing tells peerID that the local user started typing.
func (c *Client) Typing(peerID string) error {
	return c.Emit(EventTyping, peerID)
}

// StopTyping tells peerID that the local user went idle.
func (c *Client) StopTyping(peerID string) error {
	return c.Emit(EventStopTyping, peerID)
}

// BroadcastMessage relays a confirmed message to the recipient's open panel.
func (c *Client) BroadcastMessage(m api.Message) error {
	raw, err := api.EncodeMessage(m)
	if err != nil {
		return err
	}
	return c.Emit(EventNewMessage, json.RawMessage(raw))
}

// DecodeOnlineUsers reads the full presence snapshot from an onlineUsers event.
func DecodeOnlineUsers(ev Event) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(ev.Data, &ids); err != nil {
		return nil, fmt.Errorf("%w: onlineUsers: %v", api.ErrMalformedResponse, err)
	}
	return lo.Uniq(lo.Compact(ids)), nil
}

// DecodeUserID reads the user id carried by typing and stopTyping events.
// Servers send either a bare id or an object naming the sender.
func DecodeUserID(ev Event) (string, error) {
	data := bytes.TrimSpace(ev.Data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return "", fmt.Errorf("%w: %s: %v", api.ErrMalformedResponse, ev.Name, err)
		}
		return id, nil
	}
	var obj struct {
		UserID   string `json:"userId"`
		SenderID string `json:"senderId"`
		From     string `json:"from"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", fmt.Errorf("%w: %s: %v", api.ErrMalformedResponse, ev.Name, err)
	}
	id := lo.CoalesceOrEmpty(obj.SenderID, obj.From, obj.UserID)
	if id == "" {
		return "", fmt.Errorf("%w: %s without user id", api.ErrMalformedResponse, ev.Name)
	}
	return id, nil
}

// DecodeNewMessage reads a relayed message. Both the bare document and a
// {"message": ...} wrapper are accepted.
func DecodeNewMessage(ev Event) (api.Message, error) {
	var wrapped struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(ev.Data, &wrapped); err == nil && len(wrapped.Message) > 0 && wrapped.Message[0] == '{' {
		return api.DecodeMessage(wrapped.Message)
	}
	return api.DecodeMessage(ev.Data)
}
