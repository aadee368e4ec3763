package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/connectsphere/cli/cmd/config"
	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
	"github.com/connectsphere/cli/internal/messenger"
	"github.com/connectsphere/cli/internal/tui"
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusMessages
	focusComposer
)

type promptMode int

const (
	promptNone promptMode = iota
	promptAttach
	promptEdit
	promptSearch
)

const (
	sidebarMaxWidth = 34
	headerHeight    = 2
	composerHeight  = 3 // one input line plus border
	infoBarHeight   = 1
)

// chatOptions configures the panel model. Zero values are usable.
type chatOptions struct {
	DarkMode    bool
	InitialPeer string
	Offline     bool
	Width       int
	Height      int

	// SaveDarkMode persists the theme preference.
	SaveDarkMode func(dark bool) error
	// Logout ends the session. Its teardown hooks close the channel.
	Logout func() error
	// Copy puts text on the system clipboard.
	Copy func(text string) error
	// ConfigChanges delivers the config file each time it changes on disk.
	ConfigChanges <-chan config.ConnectSphereConfig
	Now           func() time.Time
}

// chatModel is the messaging panel.
type chatModel struct {
	msgr *messenger.Messenger

	keys     tui.KeyMap
	theme    tui.Theme
	sidebar  tui.SidebarModel
	toast    tui.ToastModel
	viewport viewport.Model
	textarea textarea.Model
	prompt   textinput.Model
	spin     spinner.Model
	help     help.Model

	focus         focusArea
	mode          promptMode
	editID        string
	confirmDelete string
	cursor        int
	shownPeer     string
	shownCount    int
	offline       bool
	width         int
	height        int
	quitting      bool
	loggedOut     bool
	logoutErr     error

	initialPeer   string
	saveDarkMode  func(bool) error
	logout        func() error
	copyText      func(string) error
	configChanges <-chan config.ConnectSphereConfig
	now           func() time.Time
}

// configChangedMsg carries the config file after an edit on disk.
type configChangedMsg struct {
	Config config.ConnectSphereConfig
}

func newChatModel(msgr *messenger.Messenger, opts chatOptions) chatModel {
	keys := tui.DefaultKeyMap()
	theme := tui.NewTheme(opts.DarkMode)

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "> "
	ta.CharLimit = 4000
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline.SetEnabled(false)

	ti := textinput.New()
	ti.CharLimit = 1024

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Accent)

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 30
	}

	m := chatModel{
		msgr:          msgr,
		keys:          keys,
		theme:         theme,
		sidebar:       tui.NewSidebarModel(keys, theme),
		toast:         tui.NewToastModel(theme),
		viewport:      viewport.New(30, 5),
		textarea:      ta,
		prompt:        ti,
		spin:          s,
		help:          help.New(),
		focus:         focusSidebar,
		offline:       opts.Offline,
		width:         width,
		height:        height,
		initialPeer:   opts.InitialPeer,
		saveDarkMode:  opts.SaveDarkMode,
		logout:        opts.Logout,
		copyText:      opts.Copy,
		configChanges: opts.ConfigChanges,
		now:           opts.Now,
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.layout()
	m.refresh()
	return m
}

func (m chatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.msgr.Start(), m.spin.Tick, waitForConfig(m.configChanges)}
	if peer := m.initialPeer; peer != "" {
		cmds = append(cmds, func() tea.Msg { return tui.SelectPeerMsg{PeerID: peer} })
	}
	return tea.Batch(cmds...)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// the messenger owns its own result messages
	cmds = append(cmds, m.msgr.Update(msg))

	var cmd tea.Cmd
	m.toast, cmd = m.toast.Update(msg)
	cmds = append(cmds, cmd)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case spinner.TickMsg:
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)

	case messenger.NoticeMsg:
		cmds = append(cmds, showToast(msg.Text, msg.Level == messenger.NoticeError))

	case utils.TUIMessageMsg:
		cmds = append(cmds, showToast(strings.TrimSpace(msg.Message.Content), msg.Message.IsError()))

	case messenger.ChannelClosedMsg:
		m.offline = true

	case messenger.SendResultMsg:
		// the draft is cleared only when it still matched what was sent
		if msg.Err == nil && m.msgr.Composer.Draft() == "" {
			m.textarea.Reset()
		}

	case tui.SelectPeerMsg:
		cmds = append(cmds, m.openPeer(msg.PeerID))

	case configChangedMsg:
		if msg.Config.Theme.DarkMode != m.theme.Dark {
			m.applyTheme(msg.Config.Theme.DarkMode)
		}
		cmds = append(cmds, waitForConfig(m.configChanges))

	default:
		// cursor blink and friends
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m *chatModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.msgr.Stop()
		m.quitting = true
		return tea.Quit
	}
	if key.Matches(msg, m.keys.Logout) && m.logout != nil {
		// typing must be stopped while the channel is still open
		m.msgr.Stop()
		m.logoutErr = m.logout()
		m.loggedOut = true
		m.quitting = true
		return tea.Quit
	}
	if m.mode != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.DarkMode):
		return m.toggleDarkMode()
	case key.Matches(msg, m.keys.Focus):
		return m.setFocus((m.focus + 1) % 3)
	case key.Matches(msg, m.keys.Attach):
		if m.msgr.Conversations.Selected() == "" {
			return showToast("Open a conversation first", true)
		}
		return m.openPrompt(promptAttach, "")
	}

	switch m.focus {
	case focusSidebar:
		if key.Matches(msg, m.keys.Search) {
			m.sidebar.SetTab(tui.UsersTab)
			return m.openPrompt(promptSearch, m.msgr.Directory.Query())
		}
		var cmd tea.Cmd
		m.sidebar, cmd = m.sidebar.Update(msg)
		return cmd
	case focusMessages:
		return m.handleMessageKey(msg)
	default:
		return m.handleComposerKey(msg)
	}
}

func (m *chatModel) handleComposerKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Send):
		peer := m.msgr.Conversations.Selected()
		if peer == "" {
			return showToast("Open a conversation first", true)
		}
		if m.msgr.Composer.IsSending(peer, m.textarea.Value()) {
			return showToast("Still sending...", false)
		}
		return m.msgr.Send(m.textarea.Value())
	case key.Matches(msg, m.keys.Cancel):
		if att := m.msgr.Composer.Attachment(); att != nil {
			m.msgr.SetAttachment(nil)
			return showToast("Removed "+att.Filename, false)
		}
		return m.setFocus(focusSidebar)
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	if after := m.textarea.Value(); after != before {
		m.msgr.SetDraft(after)
		return tea.Batch(cmd, m.msgr.Keystroke())
	}
	return cmd
}

func (m *chatModel) handleMessageKey(msg tea.KeyMsg) tea.Cmd {
	msgs := m.msgr.Conversations.Messages()
	if len(msgs) == 0 {
		if key.Matches(msg, m.keys.Cancel) {
			return m.setFocus(focusComposer)
		}
		return nil
	}
	m.cursor = clamp(m.cursor, 0, len(msgs)-1)
	current := msgs[m.cursor]

	if m.confirmDelete != "" {
		id := m.confirmDelete
		m.confirmDelete = ""
		if key.Matches(msg, m.keys.Delete) && id == current.ID {
			return m.msgr.Delete(id)
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.scrollToCursor()
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(msgs)-1 {
			m.cursor++
		}
		m.scrollToCursor()
	case key.Matches(msg, m.keys.Edit):
		if m.msgr.CanModify(current.ID) {
			m.editID = current.ID
			return m.openPrompt(promptEdit, current.Content)
		}
	case key.Matches(msg, m.keys.Delete):
		if m.msgr.CanModify(current.ID) {
			m.confirmDelete = current.ID
		}
	case key.Matches(msg, m.keys.Copy):
		return m.copyMessage(current)
	case key.Matches(msg, m.keys.Cancel):
		return m.setFocus(focusComposer)
	}
	return nil
}

func (m *chatModel) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		var cmd tea.Cmd
		if m.mode == promptSearch {
			m.sidebar.SetFilter("")
			cmd = m.msgr.Search("")
		}
		m.closePrompt()
		return cmd
	case msg.Type == tea.KeyEnter:
		mode, id, value := m.mode, m.editID, m.prompt.Value()
		m.closePrompt()
		switch mode {
		case promptAttach:
			return m.attach(value)
		case promptEdit:
			return m.msgr.Edit(id, value)
		}
		return nil
	}

	before := m.prompt.Value()
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	if m.mode == promptSearch {
		if q := m.prompt.Value(); q != before {
			m.sidebar.SetFilter(q)
			return tea.Batch(cmd, m.msgr.Search(q))
		}
	}
	return cmd
}

func (m *chatModel) openPeer(peerID string) tea.Cmd {
	if peerID == "" {
		return nil
	}
	m.sidebar.SetActive(peerID)
	cmd := tea.Batch(m.msgr.Select(peerID), m.msgr.LoadProfile(peerID), m.setFocus(focusComposer))
	m.shownPeer = ""
	return cmd
}

func (m *chatModel) openPrompt(mode promptMode, value string) tea.Cmd {
	m.mode = mode
	m.confirmDelete = ""
	switch mode {
	case promptAttach:
		m.prompt.Prompt = "Attach file: "
		m.prompt.Placeholder = "path/to/file"
	case promptEdit:
		m.prompt.Prompt = "Edit: "
		m.prompt.Placeholder = ""
	case promptSearch:
		m.prompt.Prompt = "Search: "
		m.prompt.Placeholder = "name"
	}
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	m.textarea.Blur()
	return m.prompt.Focus()
}

func (m *chatModel) closePrompt() {
	m.mode = promptNone
	m.editID = ""
	m.prompt.Reset()
	m.prompt.Blur()
	if m.focus == focusComposer {
		m.textarea.Focus()
	}
}

func (m *chatModel) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	m.confirmDelete = ""
	if f == focusSidebar {
		m.sidebar.Focus()
	} else {
		m.sidebar.Blur()
	}
	if f == focusComposer {
		return m.textarea.Focus()
	}
	m.textarea.Blur()
	if f == focusMessages {
		m.cursor = len(m.msgr.Conversations.Messages()) - 1
		m.scrollToCursor()
	}
	return nil
}

func (m *chatModel) attach(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	att, err := api.LoadAttachment(path)
	if err != nil {
		utils.LogDebug(fmt.Sprintf("attach %s: %v", path, err))
		return showToast("Could not attach file: "+api.UserMessage(err), true)
	}
	m.msgr.SetAttachment(att)
	return showToast(fmt.Sprintf("Attached %s (%s)", att.Filename, utils.FormatBytes(int64(len(att.Content)))), false)
}

func (m *chatModel) copyMessage(msg api.Message) tea.Cmd {
	text := msg.Content
	if text == "" {
		text = msg.AttachmentRef
	}
	if m.copyText == nil || text == "" {
		return nil
	}
	if err := m.copyText(text); err != nil {
		utils.LogDebug(fmt.Sprintf("clipboard: %v", err))
		return showToast("Clipboard unavailable", true)
	}
	return showToast("Copied to clipboard", false)
}

func (m *chatModel) toggleDarkMode() tea.Cmd {
	dark := !m.theme.Dark
	m.applyTheme(dark)
	if m.saveDarkMode == nil {
		return nil
	}
	if err := m.saveDarkMode(dark); err != nil {
		utils.LogDebug(fmt.Sprintf("save theme: %v", err))
		return showToast("Could not save theme preference", true)
	}
	return nil
}

func (m *chatModel) applyTheme(dark bool) {
	m.theme = tui.NewTheme(dark)
	m.sidebar.SetTheme(m.theme)
	m.toast.SetTheme(m.theme)
	m.spin.Style = lipgloss.NewStyle().Foreground(m.theme.Accent)
}

// layout sizes the widgets for the current window.
func (m *chatModel) layout() {
	sw := m.sidebarWidth()
	mainWidth := max(m.width-sw-2, 10)

	bodyHeight := max(m.height-infoBarHeight-1, 4)
	m.sidebar.SetSize(sw-2, bodyHeight-2)

	m.textarea.SetWidth(max(mainWidth-4, 5))
	m.prompt.Width = max(mainWidth-16, 5)
	m.help.Width = m.width

	m.viewport.Width = mainWidth
	m.viewport.Height = max(bodyHeight-headerHeight-composerHeight-1, 1)
}

func (m chatModel) sidebarWidth() int {
	return clamp(m.width/3, 16, sidebarMaxWidth)
}

// refresh rebuilds the derived view state from the messenger.
func (m *chatModel) refresh() {
	m.sidebar.SetItems(tui.ChatsTab, m.chatItems())
	m.sidebar.SetItems(tui.UsersTab, m.userItems())
	m.sidebar.SetFilter(m.msgr.Directory.Query())

	peer := m.msgr.Conversations.Selected()
	msgs := m.msgr.Conversations.Messages()
	m.viewport.SetContent(m.renderMessages(m.viewport.Width))

	// follow new messages unless the user is reading further up
	if peer != m.shownPeer || len(msgs) != m.shownCount {
		atEnd := m.shownPeer != peer || m.cursor >= m.shownCount-1
		m.shownPeer, m.shownCount = peer, len(msgs)
		if atEnd {
			m.cursor = len(msgs) - 1
			m.viewport.GotoBottom()
		}
	}
	if len(msgs) > 0 {
		m.cursor = clamp(m.cursor, 0, len(msgs)-1)
	}
}

func (m chatModel) chatItems() []tui.SidebarItem {
	now := m.now()
	convs := m.msgr.Conversations.List()
	items := make([]tui.SidebarItem, 0, len(convs))
	for _, c := range convs {
		lastActive := c.LastActiveAt
		if u, ok := m.msgr.Directory.Lookup(c.PeerID); ok && u.LastActiveAt.After(lastActive) {
			lastActive = u.LastActiveAt
		}
		online := m.msgr.Presence.IsOnline(c.PeerID)
		items = append(items, tui.SidebarItem{
			ID:     c.PeerID,
			Title:  c.PeerDisplayName,
			Status: utils.FormatLastSeen(lastActive, online, now),
			Online: online,
			Unread: m.msgr.Conversations.Unread(c.PeerID),
		})
	}
	return items
}

func (m chatModel) userItems() []tui.SidebarItem {
	now := m.now()
	users := m.msgr.Directory.Visible()
	items := make([]tui.SidebarItem, 0, len(users))
	for _, u := range users {
		online := m.msgr.Presence.IsOnline(u.ID)
		items = append(items, tui.SidebarItem{
			ID:     u.ID,
			Title:  u.DisplayName,
			Status: utils.FormatLastSeen(u.LastActiveAt, online, now),
			Online: online,
			Unread: m.msgr.Conversations.Unread(u.ID),
		})
	}
	return items
}

// scrollToCursor keeps the selected message inside the viewport. Each
// message renders as a block of lines; the offset is estimated from the
// rendered blocks above the cursor.
func (m *chatModel) scrollToCursor() {
	msgs := m.msgr.Conversations.Messages()
	if m.cursor < 0 || m.cursor >= len(msgs) {
		return
	}
	top := 0
	for i := 0; i < m.cursor; i++ {
		top += lipgloss.Height(m.renderMessage(msgs[i], false, m.viewport.Width)) + 1
	}
	h := lipgloss.Height(m.renderMessage(msgs[m.cursor], true, m.viewport.Width))
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case top+h > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(top + h - m.viewport.Height)
	}
}

func showToast(text string, isError bool) tea.Cmd {
	if text == "" {
		return nil
	}
	return func() tea.Msg { return tui.ShowToastMsg{Message: text, Error: isError} }
}

func waitForConfig(ch <-chan config.ConnectSphereConfig) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return configChangedMsg{Config: cfg}
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
