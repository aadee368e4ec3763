package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/internal/api"
)

var (
	profileName    string
	profileBio     string
	profilePicture string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your own profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		printProfile(cmd.OutOrStdout(), *self, "")
		return nil
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change your name, bio or picture",
	Long: `Change your name, bio or profile picture. Fields without a flag keep
their current value; pass an empty string to clear the bio or picture.

Examples:
  cs profile update --bio "coffee, maps and Go"
  cs profile update --name "Ada L." --picture https://cdn.example/me.png`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, self, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		in, changed := profileChanges(*self, cmd)
		if !changed {
			return fmt.Errorf("nothing to update: pass --name, --bio or --picture")
		}
		updated, err := app.API.UpdateProfile(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("failed to update profile: %s", api.UserMessage(err))
		}
		printProfile(cmd.OutOrStdout(), *updated, "")
		return nil
	},
}

// profileChanges overlays the flags that were set on the current profile.
func profileChanges(self api.Identity, cmd *cobra.Command) (api.ProfileUpdate, bool) {
	in := api.ProfileUpdate{Name: self.DisplayName, Bio: self.Bio, ProfilePicture: self.AvatarURL}
	flags := cmd.Flags()
	if flags.Changed("name") {
		in.Name = profileName
	}
	if flags.Changed("bio") {
		in.Bio = profileBio
	}
	if flags.Changed("picture") {
		in.ProfilePicture = profilePicture
	}
	return in, flags.Changed("name") || flags.Changed("bio") || flags.Changed("picture")
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileUpdateCmd.Flags().StringVar(&profileBio, "bio", "", "Short bio")
	profileUpdateCmd.Flags().StringVar(&profilePicture, "picture", "", "Profile picture URL")

	profileCmd.AddCommand(profileUpdateCmd)
	rootCmd.AddCommand(profileCmd)
}
