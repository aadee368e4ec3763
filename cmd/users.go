package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/config"
	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
)

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "Browse the ConnectSphere directory",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every user except yourself",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		users, err := app.API.ListUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load users: %s", api.UserMessage(err))
		}
		printUsers(cmd.OutOrStdout(), excludeSelf(users, self.ID), time.Now())
		return nil
	},
}

var usersShowCmd = &cobra.Command{
	Use:   "show [user-id]",
	Short: "Show a profile (defaults to the last one viewed)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		id := app.Config.LastViewedProfile
		if len(args) == 1 {
			id = args[0]
		}
		if id == "" {
			return fmt.Errorf("no user id given and no profile viewed yet")
		}
		user, err := app.API.GetUser(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to load profile: %s", api.UserMessage(err))
		}
		printProfile(cmd.OutOrStdout(), *user, self.ID)

		if app.Config.LastViewedProfile != user.ID {
			if err := app.UpdateConfig(func(c *config.ConnectSphereConfig) { c.LastViewedProfile = user.ID }); err != nil {
				utils.LogDebug(fmt.Sprintf("could not remember last viewed profile: %v", err))
			}
		}
		return nil
	},
}

var usersSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		q := strings.TrimSpace(strings.Join(args, " "))
		if q == "" {
			return fmt.Errorf("search query is empty")
		}
		users, err := app.API.SearchUsers(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("search failed: %s", api.UserMessage(err))
		}
		users = excludeSelf(users, self.ID)
		if len(users) == 0 {
			utils.OutputInfo("No users match %q\n", q)
			return nil
		}
		printUsers(cmd.OutOrStdout(), users, time.Now())
		return nil
	},
}

func followCommand(use, short string, call func(app *App, cmd *cobra.Command, id string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, self, err := loggedIn(cmd)
			if err != nil {
				return err
			}
			if args[0] == self.ID {
				return fmt.Errorf("you cannot %s yourself", use)
			}
			msg, err := call(app, cmd, args[0])
			if err != nil {
				return fmt.Errorf("%s failed: %s", use, api.UserMessage(err))
			}
			if msg == "" {
				msg = "Done"
			}
			utils.OutputSuccess("%s\n", msg)
			return nil
		},
	}
}

// loggedIn resolves the App and the stored session for commands that need one.
func loggedIn(cmd *cobra.Command) (*App, *api.Identity, error) {
	app, err := appFrom(cmd)
	if err != nil {
		return nil, nil, err
	}
	self, err := app.RequireLogin(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return app, self, nil
}

func excludeSelf(users []api.Identity, selfID string) []api.Identity {
	out := make([]api.Identity, 0, len(users))
	for _, u := range users {
		if u.ID != selfID {
			out = append(out, u)
		}
	}
	return out
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func printUsers(w io.Writer, users []api.Identity, now time.Time) {
	table := newTable(w, "Name", "ID", "Last seen")
	for _, u := range users {
		table.Append([]string{u.DisplayName, u.ID, strings.TrimPrefix(utils.FormatLastSeen(u.LastActiveAt, false, now), "Last seen ")})
	}
	table.Render()
}

func printProfile(w io.Writer, u api.Identity, selfID string) {
	fmt.Fprintf(w, "%s\n", u.DisplayName)
	fmt.Fprintf(w, "  id:        %s\n", u.ID)
	if u.Bio != "" {
		fmt.Fprintf(w, "  bio:       %s\n", u.Bio)
	}
	fmt.Fprintf(w, "  followers: %d\n", len(u.Followers))
	fmt.Fprintf(w, "  following: %d\n", len(u.Following))
	if !u.LastActiveAt.IsZero() {
		fmt.Fprintf(w, "  active:    %s\n", strings.TrimPrefix(utils.FormatLastSeen(u.LastActiveAt, false, time.Now()), "Last seen "))
	}
	if selfID != "" && selfID != u.ID && u.IsFollowedBy(selfID) {
		fmt.Fprintln(w, "  you follow this user")
	}
}

func init() {
	usersCmd.AddCommand(usersListCmd, usersShowCmd, usersSearchCmd,
		followCommand("follow", "Follow a user", func(app *App, cmd *cobra.Command, id string) (string, error) {
			return app.API.Follow(cmd.Context(), id)
		}),
		followCommand("unfollow", "Stop following a user", func(app *App, cmd *cobra.Command, id string) (string, error) {
			return app.API.Unfollow(cmd.Context(), id)
		}),
	)
	rootCmd.AddCommand(usersCmd)
}
