package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/config"
	"github.com/connectsphere/cli/cmd/utils"
)

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light|toggle]",
	Short:     "Show or set the panel color theme",
	Long:      "Show the current panel theme, or set it. The choice is saved in the config file and picked up by open panels.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"dark", "light", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		current := app.Config.Theme.DarkMode
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), themeName(current))
			return nil
		}

		dark, err := resolveTheme(args[0], current)
		if err != nil {
			return err
		}
		if err := app.UpdateConfig(func(c *config.ConnectSphereConfig) { c.Theme.DarkMode = dark }); err != nil {
			return fmt.Errorf("failed to save theme: %w", err)
		}
		utils.OutputSuccess("Theme set to %s (%s)\n", themeName(dark), app.ConfigPath)
		return nil
	},
}

func resolveTheme(arg string, current bool) (bool, error) {
	switch arg {
	case "dark":
		return true, nil
	case "light":
		return false, nil
	case "toggle":
		return !current, nil
	}
	return false, fmt.Errorf("unknown theme %q (want dark, light or toggle)", arg)
}

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
