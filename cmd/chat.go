package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/config"
	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
	"github.com/connectsphere/cli/internal/messenger"
)

// chatCmd represents the `cs chat` command
var chatCmd = &cobra.Command{
	Use:   "chat [peer-id]",
	Short: "Open the real-time messaging panel",
	Long: `Open the messaging panel: your chats and the user directory on the
left, the selected conversation on the right.

Examples:
  # Open the panel
  cs chat

  # Open the panel with a conversation already selected
  cs chat 64f0c2

Keys:
  tab        switch between Chats and All Users
  shift+tab  move focus (list, messages, composer)
  /          search users
  enter      open a conversation, or send
  ctrl+a     attach a file
  e, d, y    edit, delete, copy the selected message
  ctrl+d     toggle dark mode
  ctrl+l     log out and close the panel
  ctrl+c     quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		peer := ""
		if len(args) == 1 {
			peer = args[0]
		}
		return runChatPanel(cmd.Context(), app, *self, peer)
	},
}

func runChatPanel(ctx context.Context, app *App, self api.Identity, peer string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := messenger.Config{
		Self:           self,
		API:            app.API,
		Context:        ctx,
		RequestTimeout: app.Config.RequestTimeout.Std(),
		TypingTimeout:  app.Config.TypingTimeout.Std(),
		Logf:           utils.Logf,
	}

	client, dialErr := app.DialRealtime(ctx)
	if dialErr != nil {
		utils.LogDebug(fmt.Sprintf("real-time dial %s: %v", app.Config.SocketURL, dialErr))
	} else {
		defer client.Close()
		cfg.Channel = client
		cfg.Events = client.Events()
		cfg.EventsErr = client.Err
		app.Session.OnLogout(func() { client.Close() })
	}

	var changes <-chan config.ConnectSphereConfig
	if w, err := WatchConfig(app.ConfigPath); err != nil {
		utils.LogDebug(fmt.Sprintf("config watcher disabled: %v", err))
	} else {
		defer w.Close()
		changes = w.Changes()
	}

	opts := chatOptions{
		DarkMode:    app.Config.Theme.DarkMode,
		InitialPeer: peer,
		Offline:     dialErr != nil,
		SaveDarkMode: func(dark bool) error {
			return app.UpdateConfig(func(c *config.ConnectSphereConfig) { c.Theme.DarkMode = dark })
		},
		Logout:        app.Session.Logout,
		Copy:          clipboard.WriteAll,
		ConfigChanges: changes,
	}
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil {
		opts.Width, opts.Height = w, h
	}

	p := tea.NewProgram(newChatModel(messenger.New(cfg), opts), tea.WithAltScreen(), tea.WithContext(ctx))
	utils.SetTUIMode(p)
	defer utils.ClearTUIMode()

	if dialErr != nil {
		utils.OutputWarning("Real-time connection unavailable; new messages will not arrive live\n")
	}

	final, err := p.Run()
	utils.ClearTUIMode()
	if err != nil {
		return fmt.Errorf("messaging panel: %w", err)
	}
	if m, ok := final.(chatModel); ok && m.loggedOut {
		if m.logoutErr != nil {
			return fmt.Errorf("logout: %w", m.logoutErr)
		}
		utils.OutputSuccess("Logged out\n")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
