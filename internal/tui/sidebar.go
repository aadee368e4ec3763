package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// SidebarTab is one of the sidebar's lists.
type SidebarTab int

const (
	ChatsTab SidebarTab = iota
	UsersTab
)

var sidebarTabs = []string{"Chats", "All Users"}

// SidebarItem is one row: a conversation or a user.
type SidebarItem struct {
	ID     string
	Title  string
	Status string
	Online bool
	Unread int
}

// SelectPeerMsg is emitted when a row is opened.
type SelectPeerMsg struct {
	PeerID string
}

// SidebarModel is the tabbed conversation/user list.
type SidebarModel struct {
	keys      KeyMap
	theme     Theme
	activeTab SidebarTab
	cursor    [2]int
	items     [2][]SidebarItem
	activeID  string
	focused   bool
	width     int
	height    int
	filter    string
}

func NewSidebarModel(keys KeyMap, theme Theme) SidebarModel {
	return SidebarModel{keys: keys, theme: theme, focused: true}
}

func (m *SidebarModel) SetTheme(t Theme) { m.theme = t }

func (m *SidebarModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *SidebarModel) Focus()         { m.focused = true }
func (m *SidebarModel) Blur()          { m.focused = false }
func (m SidebarModel) Focused() bool   { return m.focused }
func (m SidebarModel) Tab() SidebarTab { return m.activeTab }

// SetTab switches the visible list.
func (m *SidebarModel) SetTab(t SidebarTab) { m.activeTab = t }

// SetFilter shows the search query above the All Users list.
func (m *SidebarModel) SetFilter(q string) { m.filter = q }

// SetItems replaces one tab's rows, keeping the cursor in range.
func (m *SidebarModel) SetItems(tab SidebarTab, items []SidebarItem) {
	m.items[tab] = items
	if m.cursor[tab] >= len(items) {
		m.cursor[tab] = max(len(items)-1, 0)
	}
}

// SetActive marks the open conversation.
func (m *SidebarModel) SetActive(id string) { m.activeID = id }

// Current returns the row under the cursor.
func (m SidebarModel) Current() (SidebarItem, bool) {
	items := m.items[m.activeTab]
	if len(items) == 0 {
		return SidebarItem{}, false
	}
	return items[m.cursor[m.activeTab]], true
}

func (m SidebarModel) Update(msg tea.Msg) (SidebarModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	n := len(m.items[m.activeTab])
	switch {
	case key.Matches(km, m.keys.NextTab):
		m.activeTab = (m.activeTab + 1) % SidebarTab(len(sidebarTabs))
	case key.Matches(km, m.keys.Up):
		// Wrap-around navigation
		if n > 0 {
			m.cursor[m.activeTab] = (m.cursor[m.activeTab] - 1 + n) % n
		}
	case key.Matches(km, m.keys.Down):
		if n > 0 {
			m.cursor[m.activeTab] = (m.cursor[m.activeTab] + 1) % n
		}
	case key.Matches(km, m.keys.Select):
		if item, ok := m.Current(); ok {
			id := item.ID
			return m, func() tea.Msg { return SelectPeerMsg{PeerID: id} }
		}
	}
	return m, nil
}

func (m SidebarModel) View() string {
	var s strings.Builder
	s.WriteString(m.renderTabBar())
	s.WriteString("\n\n")
	if m.activeTab == UsersTab && m.filter != "" {
		s.WriteString(m.theme.Hint.Render("/ " + m.filter))
		s.WriteString("\n")
	}

	items := m.items[m.activeTab]
	if len(items) == 0 {
		empty := "No chats yet"
		if m.activeTab == UsersTab {
			empty = "No users"
		}
		s.WriteString(m.theme.Dimmed.Render(empty))
	}
	inner := m.width - 4
	for i, item := range items {
		s.WriteString(m.renderItem(item, i == m.cursor[m.activeTab], inner))
		s.WriteString("\n")
	}

	style := m.theme.Border
	if m.focused {
		style = m.theme.FocusBorder
	}
	if m.width > 0 {
		style = style.Width(m.width - 2)
	}
	if m.height > 0 {
		style = style.Height(m.height - 2)
	}
	return style.Render(s.String())
}

func (m SidebarModel) renderTabBar() string {
	var pieces []string
	sep := lipgloss.NewStyle().Foreground(m.theme.Muted).Render("|")
	for i, tab := range sidebarTabs {
		if i > 0 {
			pieces = append(pieces, sep)
		}
		if SidebarTab(i) == m.activeTab {
			pieces = append(pieces, m.theme.ActiveTab.Render(tab))
		} else {
			pieces = append(pieces, m.theme.Tab.Render(tab))
		}
	}
	return strings.Join(pieces, " ")
}

func (m SidebarModel) renderItem(item SidebarItem, atCursor bool, width int) string {
	cursor := "  "
	if atCursor && m.focused {
		cursor = "→ "
	}
	dot := m.theme.Dimmed.Render("○")
	if item.Online {
		dot = lipgloss.NewStyle().Foreground(m.theme.Online).Render("●")
	}
	title := item.Title
	if width > 8 {
		title = truncate.StringWithTail(title, uint(width-8), "…")
	}
	line := fmt.Sprintf("%s%s %s", cursor, dot, title)
	switch {
	case atCursor && m.focused:
		line = m.theme.Focused.Render(line)
	case item.ID == m.activeID:
		line = m.theme.Selected.Render(line)
	}
	if item.Unread > 0 {
		line += " " + m.theme.Badge.Render(fmt.Sprint(item.Unread))
	}
	if item.Status != "" {
		status := item.Status
		if width > 6 {
			status = truncate.StringWithTail(status, uint(width-4), "…")
		}
		line += "\n    " + m.theme.Hint.Render(status)
	}
	return line
}
