package messenger

import (
	"strings"

	"github.com/connectsphere/cli/internal/api"
	"github.com/google/uuid"
)

// OutgoingState tracks one outgoing message.
type OutgoingState int

const (
	Composing OutgoingState = iota
	Sending
	Confirmed
	Failed
)

func (s OutgoingState) String() string {
	switch s {
	case Sending:
		return "sending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "composing"
	}
}

// PendingSend is a message that has been handed to the server but not yet
// confirmed. It never appears in the message list.
type PendingSend struct {
	LocalID    string
	PeerID     string
	Content    string
	Attachment *api.Attachment
	State      OutgoingState
}

// Composer holds the draft and the in-flight sends.
type Composer struct {
	draft      string
	attachment *api.Attachment
	pending    map[string]*PendingSend
	last       OutgoingState
}

// begin validates the draft and registers a PendingSend. ok is false when
// there is nothing to send.
func (c *Composer) begin(peerID, text string) (PendingSend, bool) {
	content := strings.TrimSpace(text)
	if peerID == "" || (content == "" && c.attachment == nil) {
		return PendingSend{}, false
	}
	if c.IsSending(peerID, text) {
		return PendingSend{}, false
	}
	p := &PendingSend{
		LocalID:    uuid.NewString(),
		PeerID:     peerID,
		Content:    content,
		Attachment: c.attachment,
		State:      Sending,
	}
	if c.pending == nil {
		c.pending = map[string]*PendingSend{}
	}
	c.pending[p.LocalID] = p
	c.last = Sending
	return *p, true
}

// complete settles a PendingSend. On success the draft and attachment are
// cleared only if they are still what was sent.
func (c *Composer) complete(p PendingSend, ok bool) {
	delete(c.pending, p.LocalID)
	if !ok {
		c.last = Failed
		return
	}
	c.last = Confirmed
	if strings.TrimSpace(c.draft) == p.Content {
		c.draft = ""
	}
	if c.attachment == p.Attachment {
		c.attachment = nil
	}
}

func (c *Composer) Draft() string { return c.draft }

func (c *Composer) Attachment() *api.Attachment { return c.attachment }

// IsSending reports whether text, with the staged attachment, is already
// on its way to peerID.
func (c *Composer) IsSending(peerID, text string) bool {
	content := strings.TrimSpace(text)
	for _, p := range c.pending {
		if p.PeerID == peerID && p.Content == content && p.Attachment == c.attachment {
			return true
		}
	}
	return false
}

// InFlight is the number of unconfirmed sends.
func (c *Composer) InFlight() int { return len(c.pending) }

// LastState is the state of the most recently settled or started send.
func (c *Composer) LastState() OutgoingState { return c.last }
