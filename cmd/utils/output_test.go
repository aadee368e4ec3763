package utils

import (
	"bytes"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) wait(t *testing.T, n int) []tea.Msg {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.msgs) >= n {
			out := append([]tea.Msg(nil), r.msgs...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
	return nil
}

func TestOutputManagerDirectMode(t *testing.T) {
	ClearTUIMode()
	var stdout, stderr bytes.Buffer
	SetOutputWriters(&stdout, &stderr)
	defer SetOutputWriters(nil, nil)

	OutputSuccess("logged in as %s\n", "Ada")
	OutputError("boom\n")
	OutputInfoPlain("plain\n")

	if got := stdout.String(); got != "✅  logged in as Ada\nplain\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := stderr.String(); got != "❌  boom\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestOutputManagerQueuesUntilProgramIsSet(t *testing.T) {
	ClearTUIMode()
	defer ClearTUIMode()

	SetTUIMode(nil)
	OutputInfo("queued message 1")
	OutputWarning("queued message 2")

	outputManager.mu.RLock()
	queueLen := len(outputManager.messageQueue)
	outputManager.mu.RUnlock()
	if queueLen != 2 {
		t.Fatalf("Expected 2 queued messages, got %d", queueLen)
	}

	rec := &recordingSender{}
	SetTUIMode(rec)
	msgs := rec.wait(t, 2)
	first := msgs[0].(TUIMessageMsg).Message
	if first.Content != "queued message 1" || first.IsError() {
		t.Errorf("first = %+v", first)
	}
	if !msgs[1].(TUIMessageMsg).Message.IsError() {
		t.Error("warning not flagged as error")
	}

	OutputInfo("live")
	msgs = rec.wait(t, 3)
	if msgs[2].(TUIMessageMsg).Message.Content != "live" {
		t.Errorf("live message = %+v", msgs[2])
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name     string
		msgType  MessageType
		noEmoji  bool
		expected string
	}{
		{"info", InfoMessage, false, "ℹ️  text"},
		{"warning", WarningMessage, false, "⚠️  text"},
		{"error", ErrorMessage, false, "❌  text"},
		{"success", SuccessMessage, false, "✅  text"},
		{"debug", DebugMessage, false, "🐛  text"},
		{"no emoji", ErrorMessage, true, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMessage(OutputMessage{Type: tt.msgType, Content: "text", NoEmoji: tt.noEmoji})
			if got != tt.expected {
				t.Errorf("FormatMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEmojiToggle(t *testing.T) {
	defer SetEmojiEnabled(true)
	SetEmojiEnabled(false)
	if EmojiEnabled() {
		t.Fatal("emoji still enabled")
	}
	var stdout bytes.Buffer
	SetOutputWriters(&stdout, &bytes.Buffer{})
	defer SetOutputWriters(nil, nil)
	OutputInfo("x")
	if stdout.String() != "x" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}
