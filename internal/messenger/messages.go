package messenger

import (
	"github.com/connectsphere/cli/internal/api"
	"github.com/connectsphere/cli/internal/realtime"
)

// NoticeLevel classifies a Notice for display.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// NoticeMsg is a user-visible notification. The panel shows it as a toast.
type NoticeMsg struct {
	Level NoticeLevel
	Text  string
}

// UsersLoadedMsg carries the directory listing.
type UsersLoadedMsg struct {
	Users []api.Identity
	Err   error
}

// ProfileLoadedMsg carries one profile.
type ProfileLoadedMsg struct {
	ID       string
	Identity *api.Identity
	Err      error
}

// ConversationsLoadedMsg carries the chat list.
type ConversationsLoadedMsg struct {
	Conversations []api.Conversation
	Err           error
}

// HistoryLoadedMsg carries one history response, stamped with the
// selection it was requested for.
type HistoryLoadedMsg struct {
	PeerID   string
	Gen      uint64
	Messages []api.Message
	Err      error
}

// SendResultMsg reconciles a PendingSend with the server's answer.
type SendResultMsg struct {
	Pending PendingSend
	Message *api.Message
	Err     error
}

// EditResultMsg carries the server's copy of an edited message.
type EditResultMsg struct {
	ID      string
	Message *api.Message
	Err     error
}

// DeleteResultMsg confirms or refuses a delete.
type DeleteResultMsg struct {
	ID  string
	Err error
}

// TypingExpiredMsg fires TypingTimeout after a keystroke.
type TypingExpiredMsg struct {
	Gen uint64
}

// SearchTickMsg fires once the search input has been quiet long enough.
type SearchTickMsg struct {
	Gen uint64
}

// SearchResultMsg carries the server-side search answer for a query.
type SearchResultMsg struct {
	Gen   uint64
	Query string
	Users []api.Identity
	Err   error
}

// EventMsg wraps one inbound channel event.
type EventMsg struct {
	Event realtime.Event
}

// ChannelClosedMsg means the event stream ended.
type ChannelClosedMsg struct {
	Err error
}
