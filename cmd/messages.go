package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
)

var (
	sendAttachPath  string
	sendNoBroadcast bool
	historyLimit    int
)

var messagesCmd = &cobra.Command{
	Use:     "messages",
	Aliases: []string{"msg"},
	Short:   "Read and send direct messages",
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List your conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		convs, err := app.API.ListConversations(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load chats: %s", api.UserMessage(err))
		}
		if len(convs) == 0 {
			utils.OutputInfo("No chats yet. Start one with 'cs chat <user-id>'.\n")
			return nil
		}
		now := time.Now()
		table := newTable(cmd.OutOrStdout(), "Name", "Peer ID", "Last seen")
		for _, c := range convs {
			table.Append([]string{c.PeerDisplayName, c.PeerID, strings.TrimPrefix(utils.FormatLastSeen(c.LastActiveAt, false, now), "Last seen ")})
		}
		table.Render()
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <peer-id>",
	Short: "Print the conversation with one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		msgs, err := app.API.History(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load messages: %s", api.UserMessage(err))
		}
		if historyLimit > 0 && len(msgs) > historyLimit {
			msgs = msgs[len(msgs)-historyLimit:]
		}
		peerName := args[0]
		if u, err := app.API.GetUser(cmd.Context(), args[0]); err == nil {
			peerName = u.DisplayName
		}
		printHistory(cmd.OutOrStdout(), msgs, self.ID, peerName, time.Now())
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <peer-id> [text...]",
	Short: "Send a message, optionally with one attachment",
	Long: `Send a direct message. Open panels of both users pick it up in real
time unless --no-broadcast is given.

Examples:
  cs messages send 64f0c2 "see you at 5"
  cs messages send 64f0c2 --attach ./photo.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		peer := args[0]
		text := strings.TrimSpace(strings.Join(args[1:], " "))

		var att *api.Attachment
		if sendAttachPath != "" {
			if att, err = api.LoadAttachment(sendAttachPath); err != nil {
				return err
			}
			utils.OutputProgress("Uploading %s (%s)\n", att.Filename, utils.FormatBytes(int64(len(att.Content))))
		}
		if text == "" && att == nil {
			return fmt.Errorf("nothing to send: give a text or --attach a file")
		}

		msg, err := app.API.SendMessage(cmd.Context(), peer, text, att)
		if err != nil {
			return fmt.Errorf("failed to send message: %s", api.UserMessage(err))
		}
		if !sendNoBroadcast {
			broadcast(cmd.Context(), app, self.ID, *msg)
		}
		utils.OutputSuccess("Sent (%s)\n", msg.ID)
		return nil
	},
}

// broadcast relays a confirmed message on the real-time channel so open
// panels append it. Failures only reach the debug log.
func broadcast(ctx context.Context, app *App, selfID string, msg api.Message) {
	ch, err := app.DialRealtime(ctx)
	if err != nil {
		utils.LogDebug(fmt.Sprintf("broadcast skipped: %v", err))
		return
	}
	defer ch.Close()
	if err := ch.JoinRoom(selfID); err != nil {
		utils.LogDebug(fmt.Sprintf("broadcast joinRoom: %v", err))
		return
	}
	if err := ch.BroadcastMessage(msg); err != nil {
		utils.LogDebug(fmt.Sprintf("broadcast newMessage: %v", err))
	}
}

var editCmd = &cobra.Command{
	Use:   "edit <message-id> <text...>",
	Short: "Edit one of your messages",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			return fmt.Errorf("message text is empty")
		}
		msg, err := app.API.EditMessage(cmd.Context(), args[0], text)
		if err != nil {
			return fmt.Errorf("failed to edit message: %s", api.UserMessage(err))
		}
		utils.OutputSuccess("Edited: %s\n", msg.Content)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <message-id>",
	Short: "Delete one of your messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		if err := app.API.DeleteMessage(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete message: %s", api.UserMessage(err))
		}
		utils.OutputSuccess("Deleted %s\n", args[0])
		return nil
	},
}

func printHistory(w io.Writer, msgs []api.Message, selfID, peerName string, now time.Time) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range msgs {
		who := peerName
		if m.SenderID == selfID {
			who = "you"
		}
		line := fmt.Sprintf("[%s] %s: %s", utils.FormatMessageTime(m.CreatedAt, now), who, m.Content)
		if m.AttachmentRef != "" {
			line += " [attachment: " + m.AttachmentRef + "]"
		}
		if m.Edited() {
			line += " (edited)"
		}
		fmt.Fprintf(w, "%s  #%s\n", line, m.ID)
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Only print the last n messages")
	sendCmd.Flags().StringVarP(&sendAttachPath, "attach", "a", "", "File to attach")
	sendCmd.Flags().BoolVar(&sendNoBroadcast, "no-broadcast", false, "Do not relay the message on the real-time channel")

	messagesCmd.AddCommand(chatsCmd, historyCmd, sendCmd, editCmd, deleteCmd)
	rootCmd.AddCommand(messagesCmd)
}
