package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ToastDuration is how long a toast stays up.
const ToastDuration = 3 * time.Second

// ShowToastMsg shows a toast. Error toasts use the danger color.
type ShowToastMsg struct {
	Message string
	Error   bool
}

type HideToastMsg struct{ shownAt time.Time }

type ToastModel struct {
	message   string
	isError   bool
	visible   bool
	timestamp time.Time
	width     int
	theme     Theme
}

func NewToastModel(theme Theme) ToastModel { return ToastModel{theme: theme} }

// SetTheme restyles the toast.
func (m *ToastModel) SetTheme(t Theme) { m.theme = t }

func (m ToastModel) Visible() bool { return m.visible }

func (m ToastModel) Message() string { return m.message }

func (m ToastModel) Update(msg tea.Msg) (ToastModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ShowToastMsg:
		m.message = msg.Message
		m.isError = msg.Error
		m.visible = true
		m.timestamp = time.Now()
		shownAt := m.timestamp
		return m, tea.Tick(ToastDuration, func(time.Time) tea.Msg { return HideToastMsg{shownAt: shownAt} })
	case HideToastMsg:
		// a newer toast owns the screen until its own hide arrives
		if msg.shownAt.IsZero() || msg.shownAt.Equal(m.timestamp) {
			m.visible = false
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

// Dismiss hides the toast immediately.
func (m *ToastModel) Dismiss() { m.visible = false }

func (m ToastModel) View() string {
	if !m.visible {
		return ""
	}
	style := m.theme.ToastInfo
	if m.isError {
		style = m.theme.ToastError
	}
	toast := style.Render(m.message)
	if m.width <= 0 {
		return toast
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toast)
}
