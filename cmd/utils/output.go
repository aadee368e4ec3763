package utils

import (
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// MessageType represents the type of output message
type MessageType int

const (
	InfoMessage MessageType = iota
	WarningMessage
	ErrorMessage
	SuccessMessage
	ProgressMessage
	DebugMessage
)

// OutputMessage represents a message to be displayed
type OutputMessage struct {
	Type    MessageType
	Content string
	Writer  io.Writer // fallback writer when not in TUI mode
	NoEmoji bool
}

// IsError reports whether the message should be shown as a failure.
func (m OutputMessage) IsError() bool {
	return m.Type == ErrorMessage || m.Type == WarningMessage
}

// TUIMessageMsg routes output into a running Bubble Tea program.
type TUIMessageMsg struct {
	Message OutputMessage
}

// Sender is the part of *tea.Program the output manager uses.
type Sender interface {
	Send(msg tea.Msg)
}

// OutputManager manages all CLI output routing
type OutputManager struct {
	mu            sync.RWMutex
	program       Sender
	inTUIMode     bool
	messageQueue  []OutputMessage
	disableEmojis bool
	stdout        io.Writer
	stderr        io.Writer
}

var outputManager = &OutputManager{stdout: os.Stdout, stderr: os.Stderr}

// SetTUIMode sends all further output to program, flushing anything queued
// while the program was starting.
func SetTUIMode(program Sender) {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.program = program
	outputManager.inTUIMode = true

	if program != nil && len(outputManager.messageQueue) > 0 {
		queued := outputManager.messageQueue
		outputManager.messageQueue = nil
		go func() {
			for _, msg := range queued {
				program.Send(TUIMessageMsg{Message: msg})
			}
		}()
	}
}

// ClearTUIMode disables TUI mode
func ClearTUIMode() {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.program = nil
	outputManager.inTUIMode = false
	outputManager.messageQueue = nil
}

// SetOutputWriters redirects direct-mode output. Nil restores the process
// stream.
func SetOutputWriters(stdout, stderr io.Writer) {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	outputManager.stdout = stdout
	outputManager.stderr = stderr
}

// SetEmojiEnabled controls whether emojis are added to output messages globally
func SetEmojiEnabled(enabled bool) {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.disableEmojis = !enabled
}

func EmojiEnabled() bool {
	outputManager.mu.RLock()
	defer outputManager.mu.RUnlock()
	return !outputManager.disableEmojis
}

func sendMessage(msgType MessageType, format string, args ...interface{}) {
	sendMessageWithOptions(msgType, false, format, args...)
}

func sendMessageWithOptions(msgType MessageType, noEmoji bool, format string, args ...interface{}) {
	outputManager.mu.Lock()
	msg := OutputMessage{
		Type:    msgType,
		Content: fmt.Sprintf(format, args...),
		Writer:  outputManager.writerFor(msgType),
		NoEmoji: noEmoji || outputManager.disableEmojis,
	}
	program, inTUI := outputManager.program, outputManager.inTUIMode
	if inTUI && program == nil {
		outputManager.messageQueue = append(outputManager.messageQueue, msg)
	}
	outputManager.mu.Unlock()

	switch {
	case inTUI && program != nil:
		// Send blocks until the event loop reads it, and the caller may be
		// running inside that loop.
		go program.Send(TUIMessageMsg{Message: msg})
	case !inTUI:
		fmt.Fprint(msg.Writer, FormatMessage(msg))
	}
}

func (o *OutputManager) writerFor(msgType MessageType) io.Writer {
	switch msgType {
	case ErrorMessage, WarningMessage, DebugMessage:
		return o.stderr
	default:
		return o.stdout
	}
}

// OutputInfo sends an informational message
func OutputInfo(format string, args ...interface{}) {
	sendMessage(InfoMessage, format, args...)
}

// OutputInfoPlain sends an informational message without emoji
func OutputInfoPlain(format string, args ...interface{}) {
	sendMessageWithOptions(InfoMessage, true, format, args...)
}

func OutputWarning(format string, args ...interface{}) {
	sendMessage(WarningMessage, format, args...)
}

func OutputError(format string, args ...interface{}) {
	sendMessage(ErrorMessage, format, args...)
}

func OutputSuccess(format string, args ...interface{}) {
	sendMessage(SuccessMessage, format, args...)
}

func OutputProgress(format string, args ...interface{}) {
	sendMessage(ProgressMessage, format, args...)
}

// OutputDebug sends a debug message when --debug is on.
func OutputDebug(format string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}
	sendMessage(DebugMessage, format, args...)
}

// FormatMessage renders a message for the terminal. Content is printed as
// given, callers supply trailing newlines.
func FormatMessage(msg OutputMessage) string {
	if msg.NoEmoji {
		return msg.Content
	}

	var prefix string
	switch msg.Type {
	case InfoMessage:
		prefix = "ℹ️"
	case WarningMessage:
		prefix = "⚠️"
	case ErrorMessage:
		prefix = "❌"
	case SuccessMessage:
		prefix = "✅"
	case ProgressMessage:
		prefix = "🔄"
	case DebugMessage:
		prefix = "🐛"
	}
	return fmt.Sprintf("%s  %s", prefix, msg.Content)
}
