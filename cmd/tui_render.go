package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
)

func (m chatModel) View() string {
	if m.quitting {
		return ""
	}

	sidebarStyle := m.theme.Border
	if m.focus == focusSidebar && m.mode == promptNone {
		sidebarStyle = m.theme.FocusBorder
	}
	left := sidebarStyle.Width(m.sidebarWidth() - 2).Render(m.sidebar.View())

	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderComposer(),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	parts := []string{body, m.renderInfoBar()}
	if toast := m.toast.View(); toast != "" {
		parts = append(parts, toast)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader shows the open conversation: peer name, presence or typing.
func (m chatModel) renderHeader() string {
	peer := m.msgr.Conversations.Selected()
	width := m.viewport.Width
	if peer == "" {
		return m.theme.Header.Render("ConnectSphere") + "\n" +
			m.theme.Hint.Render(truncate.StringWithTail("Pick a chat or a user on the left", uint(width), "…"))
	}

	name := m.theme.Header.Render(m.msgr.PeerDisplayName(peer))
	online := m.msgr.Presence.IsOnline(peer)
	var status string
	switch {
	case m.msgr.Typing.PeerTyping():
		status = m.theme.TypingStatus.Render("typing…")
	case online:
		status = lipgloss.NewStyle().Foreground(m.theme.Online).Render(utils.PresenceIcon(true) + " Online")
	default:
		var last string
		if u, ok := m.msgr.Directory.Lookup(peer); ok {
			last = utils.FormatLastSeen(u.LastActiveAt, false, m.now())
		}
		status = m.theme.Hint.Render(utils.PresenceIcon(false) + " " + last)
	}

	sub := ""
	if u, ok := m.msgr.Directory.Lookup(peer); ok && u.Bio != "" {
		sub = u.Bio
	}
	return name + "  " + status + "\n" +
		m.theme.Hint.Render(truncate.StringWithTail(sub, uint(max(width, 0)), "…"))
}

func (m chatModel) renderMessages(width int) string {
	peer := m.msgr.Conversations.Selected()
	if peer == "" {
		return m.theme.Hint.Render("Select a chat or a user to start messaging.")
	}
	if m.msgr.Conversations.Loading() {
		return m.spin.View() + " " + m.theme.Hint.Render("Loading messages…")
	}
	msgs := m.msgr.Conversations.Messages()
	if len(msgs) == 0 {
		return m.theme.Hint.Render("No messages yet. Say hi!")
	}

	blocks := make([]string, 0, len(msgs))
	for i, msg := range msgs {
		selected := m.focus == focusMessages && i == m.cursor
		blocks = append(blocks, m.renderMessage(msg, selected, width))
	}
	return strings.Join(blocks, "\n\n")
}

// renderMessage draws one bubble. Own messages sit on the right.
func (m chatModel) renderMessage(msg api.Message, selected bool, width int) string {
	own := msg.SenderID == m.msgr.Self().ID
	bubbleWidth := max(width*2/3, 10)

	var body []string
	if msg.Content != "" {
		body = append(body, wordwrap.String(msg.Content, bubbleWidth-2))
	}
	if msg.AttachmentRef != "" {
		body = append(body, "📎 "+truncate.StringWithTail(msg.AttachmentRef, uint(bubbleWidth-4), "…"))
	}

	meta := utils.FormatMessageTime(msg.CreatedAt, m.now())
	if msg.Edited() {
		meta += " · edited"
	}
	if selected && m.confirmDelete == msg.ID {
		meta = lipgloss.NewStyle().Foreground(m.theme.Danger).Render("press d again to delete")
	}

	style := m.theme.PeerBubble
	align := lipgloss.Left
	if own {
		style = m.theme.OwnBubble
		align = lipgloss.Right
	}
	if selected {
		style = style.BorderForeground(m.theme.Accent).Border(lipgloss.NormalBorder(), false, false, false, true)
	}
	bubble := lipgloss.JoinVertical(align,
		style.MaxWidth(bubbleWidth).Render(strings.Join(body, "\n")),
		m.theme.Dimmed.Render(meta),
	)
	return lipgloss.PlaceHorizontal(width, align, bubble)
}

func (m chatModel) renderComposer() string {
	if m.mode != promptNone {
		return m.theme.FocusBorder.Width(max(m.viewport.Width-2, 1)).Render(m.prompt.View())
	}

	style := m.theme.Border
	if m.focus == focusComposer {
		style = m.theme.FocusBorder
	}
	input := style.Width(max(m.viewport.Width-2, 1)).Render(m.textarea.View())

	var chips []string
	if att := m.msgr.Composer.Attachment(); att != nil {
		chips = append(chips, fmt.Sprintf("📎 %s (%s) · esc to remove", att.Filename, utils.FormatBytes(int64(len(att.Content)))))
	}
	if n := m.msgr.Composer.InFlight(); n > 0 {
		chips = append(chips, "Sending…")
	}
	if len(chips) == 0 {
		return input
	}
	return input + "\n" + m.theme.Hint.Render(strings.Join(chips, "   "))
}

// renderInfoBar shows connection state and key help.
func (m chatModel) renderInfoBar() string {
	var conn string
	if m.offline {
		conn = lipgloss.NewStyle().Foreground(m.theme.Danger).Render("● offline")
	} else {
		conn = lipgloss.NewStyle().Foreground(m.theme.Online).Render(fmt.Sprintf("● %d online", m.msgr.Presence.Len()))
	}
	return conn + "  " + m.help.View(m.keys)
}
