package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSidebarNavigationWraps(t *testing.T) {
	m := NewSidebarModel(DefaultKeyMap(), NewTheme(true))
	m.SetItems(ChatsTab, []SidebarItem{{ID: "a", Title: "Ada"}, {ID: "b", Title: "Bob"}, {ID: "c", Title: "Cy"}})

	m, _ = m.Update(keyMsg("up"))
	if cur, _ := m.Current(); cur.ID != "c" {
		t.Fatalf("up from top = %q, want c", cur.ID)
	}
	m, _ = m.Update(keyMsg("down"))
	if cur, _ := m.Current(); cur.ID != "a" {
		t.Fatalf("down from bottom = %q, want a", cur.ID)
	}
	m, _ = m.Update(keyMsg("j"))
	m, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("enter produced no command")
	}
	if got := cmd().(SelectPeerMsg); got.PeerID != "b" {
		t.Fatalf("selected %q, want b", got.PeerID)
	}
}

func TestSidebarTabsKeepSeparateCursors(t *testing.T) {
	m := NewSidebarModel(DefaultKeyMap(), NewTheme(false))
	m.SetItems(ChatsTab, []SidebarItem{{ID: "a"}, {ID: "b"}})
	m.SetItems(UsersTab, []SidebarItem{{ID: "u1"}})
	m, _ = m.Update(keyMsg("down"))
	m, _ = m.Update(keyMsg("tab"))
	if m.Tab() != UsersTab {
		t.Fatal("tab did not switch")
	}
	if cur, _ := m.Current(); cur.ID != "u1" {
		t.Fatalf("users cursor = %q", cur.ID)
	}
	m, _ = m.Update(keyMsg("tab"))
	if cur, _ := m.Current(); cur.ID != "b" {
		t.Fatalf("chats cursor = %q", cur.ID)
	}
}

func TestSidebarIgnoresKeysWhenBlurred(t *testing.T) {
	m := NewSidebarModel(DefaultKeyMap(), NewTheme(true))
	m.SetItems(ChatsTab, []SidebarItem{{ID: "a"}})
	m.Blur()
	if _, cmd := m.Update(keyMsg("enter")); cmd != nil {
		t.Fatal("blurred sidebar handled enter")
	}
}

func TestSidebarClampsCursorOnShrink(t *testing.T) {
	m := NewSidebarModel(DefaultKeyMap(), NewTheme(true))
	m.SetItems(ChatsTab, []SidebarItem{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	m, _ = m.Update(keyMsg("up"))
	m.SetItems(ChatsTab, []SidebarItem{{ID: "a"}})
	if cur, ok := m.Current(); !ok || cur.ID != "a" {
		t.Fatalf("Current() = %+v, %v", cur, ok)
	}
	m.SetItems(ChatsTab, nil)
	if _, ok := m.Current(); ok {
		t.Fatal("Current() on empty list")
	}
}

func TestSidebarViewShowsUnreadAndStatus(t *testing.T) {
	m := NewSidebarModel(DefaultKeyMap(), NewTheme(true))
	m.SetSize(40, 12)
	m.SetItems(ChatsTab, []SidebarItem{{ID: "a", Title: "Ada", Status: "Online", Online: true, Unread: 2}})
	view := m.View()
	for _, want := range []string{"Chats", "All Users", "Ada", "Online", "2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestToastStaleHideIsIgnored(t *testing.T) {
	m := NewToastModel(NewTheme(true))
	m, _ = m.Update(ShowToastMsg{Message: "first"})
	stale := HideToastMsg{shownAt: m.timestamp.Add(-time.Second)}
	m, _ = m.Update(ShowToastMsg{Message: "second", Error: true})
	m, _ = m.Update(stale)
	if !m.Visible() || m.Message() != "second" {
		t.Fatal("stale hide dismissed the newer toast")
	}
	m, _ = m.Update(HideToastMsg{shownAt: m.timestamp})
	if m.Visible() || m.View() != "" {
		t.Fatal("toast still visible")
	}
}
