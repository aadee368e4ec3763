package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the set of styles shared by the panel widgets. Dark and light
// variants differ only in colors.
type Theme struct {
	Dark bool

	Accent lipgloss.Color
	Muted  lipgloss.Color
	Online lipgloss.Color
	Danger lipgloss.Color

	Base         lipgloss.Style
	Header       lipgloss.Style
	Hint         lipgloss.Style
	Focused      lipgloss.Style
	Dimmed       lipgloss.Style
	Tab          lipgloss.Style
	ActiveTab    lipgloss.Style
	Border       lipgloss.Style
	FocusBorder  lipgloss.Style
	OwnBubble    lipgloss.Style
	PeerBubble   lipgloss.Style
	Selected     lipgloss.Style
	Badge        lipgloss.Style
	ToastInfo    lipgloss.Style
	ToastError   lipgloss.Style
	TypingStatus lipgloss.Style
}

// NewTheme builds the dark or light theme.
func NewTheme(dark bool) Theme {
	t := Theme{Dark: dark}
	var fg, bg, bubble, peerBubble lipgloss.Color
	if dark {
		t.Accent = lipgloss.Color("86")
		t.Muted = lipgloss.Color("240")
		fg, bg = lipgloss.Color("252"), lipgloss.Color("235")
		bubble, peerBubble = lipgloss.Color("24"), lipgloss.Color("238")
	} else {
		t.Accent = lipgloss.Color("32")
		t.Muted = lipgloss.Color("245")
		fg, bg = lipgloss.Color("235"), lipgloss.Color("255")
		bubble, peerBubble = lipgloss.Color("153"), lipgloss.Color("254")
	}
	t.Online = lipgloss.Color("42")
	t.Danger = lipgloss.Color("196")

	t.Base = lipgloss.NewStyle().Foreground(fg)
	t.Header = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	t.Hint = lipgloss.NewStyle().Foreground(t.Muted)
	t.Focused = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	t.Dimmed = lipgloss.NewStyle().Foreground(t.Muted)
	// Tabs: pill style, active has a background
	t.Tab = lipgloss.NewStyle().Padding(0, 2).Foreground(t.Muted)
	t.ActiveTab = lipgloss.NewStyle().Padding(0, 2).Foreground(bg).Background(t.Accent).Bold(true)
	t.Border = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Muted)
	t.FocusBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Accent)
	t.OwnBubble = lipgloss.NewStyle().Foreground(fg).Background(bubble).Padding(0, 1)
	t.PeerBubble = lipgloss.NewStyle().Foreground(fg).Background(peerBubble).Padding(0, 1)
	t.Selected = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	t.Badge = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(t.Danger).Padding(0, 1)
	t.ToastInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(t.Accent).Padding(0, 2).MarginRight(2).Bold(true)
	t.ToastError = t.ToastInfo.Background(t.Danger)
	t.TypingStatus = lipgloss.NewStyle().Italic(true).Foreground(t.Online)
	return t
}
