package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Identity is a user record as seen by the client.
type Identity struct {
	ID           string
	DisplayName  string
	AvatarURL    string
	Bio          string
	LastActiveAt time.Time
	Followers    []string
	Following    []string
}

// IsFollowedBy reports whether userID appears in the identity's followers.
func (i Identity) IsFollowedBy(userID string) bool {
	return lo.Contains(i.Followers, userID)
}

// Conversation is the thread with exactly one peer. It has no id of its own.
type Conversation struct {
	PeerID          string
	PeerDisplayName string
	LastActiveAt    time.Time
}

// Message is a confirmed direct message.
type Message struct {
	ID            string
	SenderID      string
	ReceiverID    string
	Content       string
	AttachmentRef string
	CreatedAt     time.Time
	EditedAt      *time.Time
}

// PeerID returns the participant that is not selfID.
func (m Message) PeerID(selfID string) string {
	if m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Edited reports whether the server marked the message as edited.
func (m Message) Edited() bool { return m.EditedAt != nil }

// ref decodes either a bare id string or a populated document with an _id.
type ref struct {
	ID   string `json:"_id" validate:"required"`
	Name string `json:"name"`
}

func (r *ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ref(p)
	return nil
}

// attachment decodes either a URL string or an object carrying one.
type attachment struct {
	URL string
}

func (a *attachment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.URL)
	}
	var obj struct {
		URL  string `json:"url"`
		Path string `json:"path"`
		ID   string `json:"_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.URL = lo.CoalesceOrEmpty(obj.URL, obj.Path, obj.ID)
	return nil
}

type wireIdentity struct {
	ID             string     `json:"_id" validate:"required"`
	Name           string     `json:"name"`
	Username       string     `json:"username"`
	ProfilePicture string     `json:"profilePicture"`
	ProfilePic     string     `json:"profilePic"`
	Bio            string     `json:"bio"`
	LastActive     *time.Time `json:"lastActive"`
	Followers      []ref      `json:"followers"`
	Following      []ref      `json:"following"`
}

func (w wireIdentity) identity() Identity {
	id := Identity{
		ID:          w.ID,
		DisplayName: lo.CoalesceOrEmpty(w.Name, w.Username, w.ID),
		AvatarURL:   lo.CoalesceOrEmpty(w.ProfilePicture, w.ProfilePic),
		Bio:         w.Bio,
		Followers:   lo.Map(w.Followers, func(r ref, _ int) string { return r.ID }),
		Following:   lo.Map(w.Following, func(r ref, _ int) string { return r.ID }),
	}
	if w.LastActive != nil {
		id.LastActiveAt = *w.LastActive
	}
	return id
}

type wireConversation struct {
	ID         string     `json:"_id" validate:"required"`
	Name       string     `json:"name"`
	LastActive *time.Time `json:"lastActive"`
}

func (w wireConversation) conversation() Conversation {
	c := Conversation{PeerID: w.ID, PeerDisplayName: lo.CoalesceOrEmpty(w.Name, w.ID)}
	if w.LastActive != nil {
		c.LastActiveAt = *w.LastActive
	}
	return c
}

type wireMessage struct {
	ID          string       `json:"_id" validate:"required"`
	Sender      ref          `json:"sender"`
	Receiver    ref          `json:"receiver"`
	Content     string       `json:"content"`
	Attachments []attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt" validate:"required"`
	EditedAt    *time.Time   `json:"editedAt"`
	UpdatedAt   *time.Time   `json:"updatedAt"`
	Edited      bool         `json:"edited"`
}

// editGrace absorbs the gap between createdAt and updatedAt that the server
// stamps on a fresh document.
const editGrace = time.Second

func (w wireMessage) message() Message {
	m := Message{
		ID:         w.ID,
		SenderID:   w.Sender.ID,
		ReceiverID: w.Receiver.ID,
		Content:    w.Content,
		CreatedAt:  w.CreatedAt,
		EditedAt:   w.EditedAt,
	}
	if len(w.Attachments) > 0 {
		m.AttachmentRef = w.Attachments[0].URL
	}
	if m.EditedAt == nil && w.UpdatedAt != nil && (w.Edited || w.UpdatedAt.Sub(w.CreatedAt) > editGrace) {
		t := *w.UpdatedAt
		m.EditedAt = &t
	}
	return m
}

// wireEnvelope wraps payloads some endpoints return as {"data": ...}.
type wireEnvelope[T any] struct {
	Data *T `json:"data"`
}

type wireLogin struct {
	Token string       `json:"token" validate:"required"`
	User  wireIdentity `json:"user" validate:"required"`
}

type wireNotice struct {
	Message string `json:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func decode[T any](body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := check(out); err != nil {
		return out, err
	}
	return out, nil
}

func decodeList[T any](body []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for i := range out {
		if err := check(out[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return out, nil
}

// DecodeMessage validates a message document received outside of a REST
// response, e.g. a real-time broadcast.
func DecodeMessage(raw []byte) (Message, error) {
	w, err := decode[wireMessage](raw)
	if err != nil {
		return Message{}, err
	}
	return w.message(), nil
}

// EncodeMessage renders m in the server's document shape so that other
// clients can decode it with DecodeMessage.
func EncodeMessage(m Message) ([]byte, error) {
	w := wireMessage{
		ID:        m.ID,
		Sender:    ref{ID: m.SenderID},
		Receiver:  ref{ID: m.ReceiverID},
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
	}
	if m.AttachmentRef != "" {
		w.Attachments = []attachment{{URL: m.AttachmentRef}}
	}
	return json.Marshal(w)
}

func (r ref) MarshalJSON() ([]byte, error) { return json.Marshal(r.ID) }

func (a attachment) MarshalJSON() ([]byte, error) { return json.Marshal(a.URL) }
