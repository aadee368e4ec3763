package messenger

import (
	"github.com/connectsphere/cli/internal/api"
	"github.com/samber/lo"
)

// Conversations holds the chat list and the selected conversation's
// messages. Only one history is kept in memory at a time.
type Conversations struct {
	list     []api.Conversation
	selected string
	gen      uint64
	loading  bool
	messages []api.Message
	// live messages for the selected peer that arrived mid-load
	buffered []api.Message
	unread   map[string]int
}

// setList installs the server's chat list, keeping conversations that were
// started locally since the last fetch.
func (c *Conversations) setList(convs []api.Conversation) {
	extra := lo.Filter(c.list, func(conv api.Conversation, _ int) bool {
		return !lo.ContainsBy(convs, func(o api.Conversation) bool { return o.PeerID == conv.PeerID })
	})
	all := append(append([]api.Conversation{}, extra...), convs...)
	c.list = lo.UniqBy(all, func(conv api.Conversation) string { return conv.PeerID })
}

// ensure puts a conversation with peerID at the top of the list if it is
// not already there.
func (c *Conversations) ensure(peerID, displayName string) {
	if c.has(peerID) {
		return
	}
	c.list = append([]api.Conversation{{PeerID: peerID, PeerDisplayName: lo.CoalesceOrEmpty(displayName, peerID)}}, c.list...)
}

func (c *Conversations) has(peerID string) bool {
	return lo.ContainsBy(c.list, func(conv api.Conversation) bool { return conv.PeerID == peerID })
}

// selectPeer starts a new selection and returns its generation.
func (c *Conversations) selectPeer(peerID string) uint64 {
	c.gen++
	c.selected = peerID
	c.loading = true
	c.messages = nil
	c.buffered = nil
	delete(c.unread, peerID)
	return c.gen
}

// current reports whether a response for (peerID, gen) may be applied.
func (c *Conversations) current(peerID string, gen uint64) bool {
	return peerID == c.selected && gen == c.gen
}

// applyHistory replaces the message list wholesale and folds in anything
// buffered while the load was in flight.
func (c *Conversations) applyHistory(msgs []api.Message) {
	c.messages = append([]api.Message{}, msgs...)
	for _, m := range c.buffered {
		c.appendUnique(m)
	}
	c.buffered = nil
	c.loading = false
}

// failHistory ends a load that could not be completed.
func (c *Conversations) failHistory() {
	c.messages = c.buffered
	c.buffered = nil
	c.loading = false
}

// receive routes a message addressed to peerID. It returns true when the
// message became visible in the selected conversation.
func (c *Conversations) receive(peerID string, m api.Message) bool {
	if peerID != c.selected {
		if c.unread == nil {
			c.unread = map[string]int{}
		}
		c.unread[peerID]++
		return false
	}
	if c.loading {
		if !lo.ContainsBy(c.buffered, func(b api.Message) bool { return b.ID == m.ID }) {
			c.buffered = append(c.buffered, m)
		}
		return false
	}
	return c.appendUnique(m)
}

func (c *Conversations) appendUnique(m api.Message) bool {
	if c.index(m.ID) >= 0 {
		return false
	}
	c.messages = append(c.messages, m)
	return true
}

func (c *Conversations) index(id string) int {
	_, i, ok := lo.FindIndexOf(c.messages, func(m api.Message) bool { return m.ID == id })
	if !ok {
		return -1
	}
	return i
}

func (c *Conversations) replace(m api.Message) bool {
	i := c.index(m.ID)
	if i < 0 {
		return false
	}
	c.messages[i] = m
	return true
}

func (c *Conversations) remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.messages = append(c.messages[:i:i], c.messages[i+1:]...)
	return true
}

func (c *Conversations) find(id string) (api.Message, bool) {
	i := c.index(id)
	if i < 0 {
		return api.Message{}, false
	}
	return c.messages[i], true
}

// List returns the chat list in server order.
func (c *Conversations) List() []api.Conversation { return c.list }

// Selected is the peer id of the open conversation, or "".
func (c *Conversations) Selected() string { return c.selected }

// Loading reports whether the selected history is still being fetched.
func (c *Conversations) Loading() bool { return c.loading }

// Messages is the selected conversation's history.
func (c *Conversations) Messages() []api.Message { return c.messages }

// Unread counts live messages received from peerID while it was not open.
func (c *Conversations) Unread(peerID string) int { return c.unread[peerID] }
