package messenger

import "time"

// DefaultTypingTimeout is how long after the last keystroke the local user
// is still reported as typing.
const DefaultTypingTimeout = 3 * time.Second

// TypingState is the local user's typing state for the active conversation.
type TypingState int

const (
	TypingIdle TypingState = iota
	TypingActive
)

func (s TypingState) String() string {
	if s == TypingActive {
		return "typing"
	}
	return "idle"
}

// Typing is the local typing state machine plus the remote "peer is
// typing" flag. Every keystroke bumps gen; only the expiry stamped with the
// current gen may end the typing state, so superseded timers are inert.
type Typing struct {
	state TypingState
	peer  string
	gen   uint64

	remote bool
}

// keystroke records input for peer. It reports whether a typing signal
// must be emitted and returns the gen the expiry must carry.
func (t *Typing) keystroke(peer string) (start bool, gen uint64) {
	t.gen++
	if t.state == TypingIdle || t.peer != peer {
		t.state = TypingActive
		t.peer = peer
		start = true
	}
	return start, t.gen
}

// expire ends the typing state if gen is still current. It returns the peer
// to send stopTyping to, or "".
func (t *Typing) expire(gen uint64) string {
	if gen != t.gen || t.state != TypingActive {
		return ""
	}
	return t.stop()
}

// stop forces idle and returns the peer that was being typed to, or "".
func (t *Typing) stop() string {
	if t.state != TypingActive {
		return ""
	}
	peer := t.peer
	t.state = TypingIdle
	t.peer = ""
	t.gen++
	return peer
}

func (t *Typing) State() TypingState { return t.state }

// PeerTyping reports whether the selected peer is typing.
func (t *Typing) PeerTyping() bool { return t.remote }
