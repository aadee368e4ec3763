// Package messenger is the state core of the messaging panel. It owns the
// directory, chat list, selected history, presence set, typing state and
// composer, and is driven entirely from the bubbletea Update loop: remote
// calls run as tea.Cmds whose results come back as messages and are applied
// by Update, so state is only ever touched from one goroutine.
package messenger

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/connectsphere/cli/internal/api"
	"github.com/connectsphere/cli/internal/realtime"
)

// API is the part of the REST client the panel uses.
type API interface {
	ListUsers(ctx context.Context) ([]api.Identity, error)
	GetUser(ctx context.Context, id string) (*api.Identity, error)
	SearchUsers(ctx context.Context, query string) ([]api.Identity, error)
	ListConversations(ctx context.Context) ([]api.Conversation, error)
	History(ctx context.Context, peerID string) ([]api.Message, error)
	SendMessage(ctx context.Context, receiverID, content string, att *api.Attachment) (*api.Message, error)
	EditMessage(ctx context.Context, messageID, content string) (*api.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

// Channel is the outbound side of the real-time subscription.
type Channel interface {
	JoinRoom(userID string) error
	Typing(peerID string) error
	StopTyping(peerID string) error
	BroadcastMessage(m api.Message) error
}

// DefaultSearchDelay is the quiet period before a search query is sent.
const DefaultSearchDelay = 300 * time.Millisecond

// Config wires a Messenger.
type Config struct {
	Self    api.Identity
	API     API
	Channel Channel
	// Events is the inbound side of the subscription. Optional.
	Events <-chan realtime.Event
	// EventsErr reports why Events was closed.
	EventsErr func() error

	Context        context.Context
	RequestTimeout time.Duration
	TypingTimeout  time.Duration
	SearchDelay    time.Duration

	Logf func(format string, args ...any)
	// Tick schedules timer messages. Defaults to tea.Tick.
	Tick func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd
}

// Messenger is the panel controller.
type Messenger struct {
	self    api.Identity
	api     API
	channel Channel
	events  <-chan realtime.Event
	evErr   func() error

	ctx            context.Context
	requestTimeout time.Duration
	typingTimeout  time.Duration
	searchDelay    time.Duration
	logf           func(format string, args ...any)
	tick           func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

	Directory     Directory
	Conversations Conversations
	Presence      Presence
	Typing        Typing
	Composer      Composer
}

// New returns a Messenger for cfg.Self.
func New(cfg Config) *Messenger {
	m := &Messenger{
		self:           cfg.Self,
		api:            cfg.API,
		channel:        cfg.Channel,
		events:         cfg.Events,
		evErr:          cfg.EventsErr,
		ctx:            cfg.Context,
		requestTimeout: cfg.RequestTimeout,
		typingTimeout:  cfg.TypingTimeout,
		searchDelay:    cfg.SearchDelay,
		logf:           cfg.Logf,
		tick:           cfg.Tick,
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.typingTimeout <= 0 {
		m.typingTimeout = DefaultTypingTimeout
	}
	if m.searchDelay <= 0 {
		m.searchDelay = DefaultSearchDelay
	}
	if m.logf == nil {
		m.logf = func(string, ...any) {}
	}
	if m.tick == nil {
		m.tick = tea.Tick
	}
	return m
}

// Self is the local identity.
func (m *Messenger) Self() api.Identity { return m.self }

// Start announces the local user on the channel and loads the directory and
// chat list. It also starts listening for inbound events.
func (m *Messenger) Start() tea.Cmd {
	if m.channel != nil {
		if err := m.channel.JoinRoom(m.self.ID); err != nil {
			m.logf("messenger: joinRoom: %v", err)
		}
	}
	return tea.Batch(m.LoadUsers(), m.LoadConversations(), m.Listen())
}

// Stop ends local typing before the panel goes away.
func (m *Messenger) Stop() {
	m.stopTyping()
}

// Listen waits for the next inbound event.
func (m *Messenger) Listen() tea.Cmd {
	events, evErr := m.events, m.evErr
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			var err error
			if evErr != nil {
				err = evErr()
			}
			return ChannelClosedMsg{Err: err}
		}
		return EventMsg{Event: ev}
	}
}

// call runs fn with a request context derived from the panel's context.
func (m *Messenger) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	parent, timeout := m.ctx, m.requestTimeout
	return func() tea.Msg {
		ctx := parent
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(parent, timeout)
			defer cancel()
		}
		return fn(ctx)
	}
}

func notice(level NoticeLevel, text string) tea.Cmd {
	return func() tea.Msg { return NoticeMsg{Level: level, Text: text} }
}

func (m *Messenger) failure(what string, err error) tea.Cmd {
	m.logf("messenger: %s: %v", what, err)
	text := what
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		text += ": " + apiErr.Message
	}
	return notice(NoticeError, text)
}

// LoadUsers fetches the directory listing.
func (m *Messenger) LoadUsers() tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		users, err := m.api.ListUsers(ctx)
		return UsersLoadedMsg{Users: users, Err: err}
	})
}

// LoadProfile fetches one user's profile.
func (m *Messenger) LoadProfile(id string) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		ident, err := m.api.GetUser(ctx, id)
		return ProfileLoadedMsg{ID: id, Identity: ident, Err: err}
	})
}

// LoadConversations fetches the chat list.
func (m *Messenger) LoadConversations() tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		convs, err := m.api.ListConversations(ctx)
		return ConversationsLoadedMsg{Conversations: convs, Err: err}
	})
}

// Select opens the conversation with peerID and loads its history. A
// response for an earlier selection is dropped when it arrives.
func (m *Messenger) Select(peerID string) tea.Cmd {
	if peerID == "" {
		return nil
	}
	m.stopTyping()
	m.Typing.remote = false
	gen := m.Conversations.selectPeer(peerID)
	return m.call(func(ctx context.Context) tea.Msg {
		msgs, err := m.api.History(ctx, peerID)
		return HistoryLoadedMsg{PeerID: peerID, Gen: gen, Messages: msgs, Err: err}
	})
}

// SetDraft mirrors the composer input.
func (m *Messenger) SetDraft(text string) { m.Composer.draft = text }

// SetAttachment stages one attachment for the next send; nil clears it.
func (m *Messenger) SetAttachment(att *api.Attachment) { m.Composer.attachment = att }

// Keystroke records composer input for the selected conversation and
// returns the expiry timer for it.
func (m *Messenger) Keystroke() tea.Cmd {
	peer := m.Conversations.selected
	if peer == "" {
		return nil
	}
	start, gen := m.Typing.keystroke(peer)
	if start && m.channel != nil {
		if err := m.channel.Typing(peer); err != nil {
			m.logf("messenger: typing: %v", err)
		}
	}
	return m.tick(m.typingTimeout, func(time.Time) tea.Msg { return TypingExpiredMsg{Gen: gen} })
}

func (m *Messenger) stopTyping() {
	peer := m.Typing.stop()
	if peer == "" || m.channel == nil {
		return
	}
	if err := m.channel.StopTyping(peer); err != nil {
		m.logf("messenger: stopTyping: %v", err)
	}
}

// Send hands text and the staged attachment to the server. Nothing happens
// when both are empty. The draft stays in the composer until the server
// confirms.
func (m *Messenger) Send(text string) tea.Cmd {
	p, ok := m.Composer.begin(m.Conversations.selected, text)
	if !ok {
		return nil
	}
	m.Composer.draft = text
	m.stopTyping()
	return m.call(func(ctx context.Context) tea.Msg {
		msg, err := m.api.SendMessage(ctx, p.PeerID, p.Content, p.Attachment)
		return SendResultMsg{Pending: p, Message: msg, Err: err}
	})
}

// Edit replaces the content of one of the local user's messages.
func (m *Messenger) Edit(messageID, content string) tea.Cmd {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if !m.CanModify(messageID) {
		return nil
	}
	return m.call(func(ctx context.Context) tea.Msg {
		msg, err := m.api.EditMessage(ctx, messageID, content)
		return EditResultMsg{ID: messageID, Message: msg, Err: err}
	})
}

// Delete removes one of the local user's messages once the server agrees.
func (m *Messenger) Delete(messageID string) tea.Cmd {
	if !m.CanModify(messageID) {
		return nil
	}
	return m.call(func(ctx context.Context) tea.Msg {
		return DeleteResultMsg{ID: messageID, Err: m.api.DeleteMessage(ctx, messageID)}
	})
}

// CanModify reports whether edit and delete are offered for messageID.
func (m *Messenger) CanModify(messageID string) bool {
	msg, ok := m.Conversations.find(messageID)
	return ok && msg.SenderID == m.self.ID
}

// Search sets the directory query and schedules the debounced lookup.
func (m *Messenger) Search(query string) tea.Cmd {
	d := &m.Directory
	d.query = query
	d.searchGen++
	d.results = nil
	if strings.TrimSpace(query) == "" {
		d.searching = false
		return nil
	}
	gen := d.searchGen
	d.searching = true
	return m.tick(m.searchDelay, func(time.Time) tea.Msg { return SearchTickMsg{Gen: gen} })
}

// PeerDisplayName resolves a peer id to something readable.
func (m *Messenger) PeerDisplayName(peerID string) string {
	if u, ok := m.Directory.Lookup(peerID); ok {
		return u.DisplayName
	}
	for _, c := range m.Conversations.list {
		if c.PeerID == peerID {
			return c.PeerDisplayName
		}
	}
	return peerID
}

// HandleEvent applies one inbound channel event.
func (m *Messenger) HandleEvent(ev realtime.Event) tea.Cmd {
	switch ev.Name {
	case realtime.EventOnlineUsers:
		ids, err := realtime.DecodeOnlineUsers(ev)
		if err != nil {
			m.logf("messenger: %v", err)
			return nil
		}
		m.Presence.Replace(ids)
	case realtime.EventTyping, realtime.EventStopTyping:
		from, err := realtime.DecodeUserID(ev)
		if err != nil {
			m.logf("messenger: %v", err)
			return nil
		}
		if from == m.Conversations.selected {
			m.Typing.remote = ev.Name == realtime.EventTyping
		}
	case realtime.EventNewMessage:
		msg, err := realtime.DecodeNewMessage(ev)
		if err != nil {
			m.logf("messenger: %v", err)
			return nil
		}
		m.receive(msg)
	default:
		m.logf("messenger: ignoring event %q", ev.Name)
	}
	return nil
}

func (m *Messenger) receive(msg api.Message) {
	if msg.SenderID != m.self.ID && msg.ReceiverID != m.self.ID {
		return
	}
	peer := msg.PeerID(m.self.ID)
	m.Conversations.ensure(peer, m.PeerDisplayName(peer))
	if msg.SenderID == m.self.ID {
		// our own message relayed back; never counts as unread
		if peer == m.Conversations.selected {
			m.Conversations.receive(peer, msg)
		}
		return
	}
	m.Conversations.receive(peer, msg)
}

// Update applies messenger-owned messages and returns follow-up commands.
// Messages it does not own are ignored.
func (m *Messenger) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case EventMsg:
		return tea.Batch(m.HandleEvent(msg.Event), m.Listen())

	case ChannelClosedMsg:
		m.events = nil
		m.Presence.Replace(nil)
		if msg.Err != nil {
			return m.failure("Real-time connection lost", msg.Err)
		}
		return nil

	case UsersLoadedMsg:
		if msg.Err != nil {
			return m.failure("Failed to load users", msg.Err)
		}
		m.Directory.setUsers(msg.Users, m.self.ID)

	case ProfileLoadedMsg:
		if msg.Err != nil {
			return m.failure("Failed to load profile", msg.Err)
		}
		if msg.Identity != nil {
			m.Directory.setProfile(*msg.Identity)
		}

	case ConversationsLoadedMsg:
		if msg.Err != nil {
			return m.failure("Failed to load chats", msg.Err)
		}
		m.Conversations.setList(msg.Conversations)

	case HistoryLoadedMsg:
		if !m.Conversations.current(msg.PeerID, msg.Gen) {
			m.logf("messenger: dropping stale history for %s (gen %d)", msg.PeerID, msg.Gen)
			return nil
		}
		if msg.Err != nil {
			m.Conversations.failHistory()
			return m.failure("Failed to load messages", msg.Err)
		}
		m.Conversations.applyHistory(msg.Messages)

	case SendResultMsg:
		return m.completeSend(msg)

	case EditResultMsg:
		if msg.Err != nil {
			return m.failure("Failed to edit message", msg.Err)
		}
		if msg.Message != nil {
			m.Conversations.replace(*msg.Message)
		}

	case DeleteResultMsg:
		if msg.Err != nil {
			return m.failure("Failed to delete message", msg.Err)
		}
		m.Conversations.remove(msg.ID)

	case TypingExpiredMsg:
		if peer := m.Typing.expire(msg.Gen); peer != "" && m.channel != nil {
			if err := m.channel.StopTyping(peer); err != nil {
				m.logf("messenger: stopTyping: %v", err)
			}
		}

	case SearchTickMsg:
		d := &m.Directory
		if msg.Gen != d.searchGen {
			return nil
		}
		gen, query := d.searchGen, strings.TrimSpace(d.query)
		return m.call(func(ctx context.Context) tea.Msg {
			users, err := m.api.SearchUsers(ctx, query)
			return SearchResultMsg{Gen: gen, Query: query, Users: users, Err: err}
		})

	case SearchResultMsg:
		d := &m.Directory
		if msg.Gen != d.searchGen {
			return nil
		}
		d.searching = false
		if msg.Err != nil {
			return m.failure("Search failed", msg.Err)
		}
		d.results = excluding(msg.Users, m.self.ID)
		if d.results == nil {
			d.results = []api.Identity{}
		}
	}
	return nil
}

// completeSend reconciles a PendingSend with the server's answer.
func (m *Messenger) completeSend(res SendResultMsg) tea.Cmd {
	if res.Err != nil || res.Message == nil {
		m.Composer.complete(res.Pending, false)
		if res.Err == nil {
			res.Err = api.ErrMalformedResponse
		}
		return m.failure("Failed to send message", res.Err)
	}
	m.Composer.complete(res.Pending, true)

	msg := *res.Message
	peer := res.Pending.PeerID
	m.Conversations.ensure(peer, m.PeerDisplayName(peer))
	if peer == m.Conversations.selected {
		m.Conversations.receive(peer, msg)
	}
	if m.channel != nil {
		if err := m.channel.BroadcastMessage(msg); err != nil {
			m.logf("messenger: broadcast: %v", err)
		}
	}
	return nil
}
