package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/utils"
)

var (
	debug      bool
	serverURL  string
	socketURL  string
	configPath string
	noEmoji    bool
)

var rootCmd = &cobra.Command{
	Use:   "cs",
	Short: "ConnectSphere CLI - chat with your ConnectSphere network from the terminal",
	Long: `cs is a terminal client for ConnectSphere. It opens a real-time
messaging panel and exposes the directory and message history as plain
commands.

Getting started:
  # Log in once, the session is kept in your keyring
  cs login --email you@example.com

  # Open the messaging panel
  cs chat

  # Message someone without leaving the shell
  cs messages send <user-id> "see you at 5"`,

	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags are parsed at this point
		utils.SetEmojiEnabled(!noEmoji)
		if err := utils.InitDebugLogger("", debug); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize debug logger: %v\n", err)
		}
		loadDotEnv()

		app, err := NewApp(GetCLIContext())
		if err != nil {
			return err
		}
		utils.LogDebug(fmt.Sprintf("cs %s: server=%s socket=%s config=%q", cmd.Name(), app.Config.ServerURL, app.Config.SocketURL, app.ConfigPath))
		cmd.SetContext(withApp(cmd.Context(), app))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.CloseDebugLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "ConnectSphere API base URL (default: hosted backend)")
	rootCmd.PersistentFlags().StringVar(&socketURL, "socket-url", "", "Real-time endpoint (default: derived from --server-url)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: connectsphere.yaml in the working or data directory)")
	rootCmd.PersistentFlags().StringVar(&utils.OverrideCwd, "cwd", "", "Override the current working directory for CLI operations")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "Print messages without emoji prefixes")
}

// loadDotEnv reads .env from the working directory. Existing variables win.
func loadDotEnv() {
	path := filepath.Join(utils.GetEffectiveCWD(), ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		utils.LogDebug(fmt.Sprintf("ignoring %s: %v", path, err))
	}
}
