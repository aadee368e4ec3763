package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
)

// statusReport is what `cs status` prints.
type statusReport struct {
	ServerURL  string
	SocketURL  string
	ConfigPath string
	Local      bool
	Reachable  bool
	LatencyMs  int64
	PingError  string
	User       *api.Identity
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend endpoints, reachability and login state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		formatStatus(cmd.OutOrStdout(), collectStatus(cmd.Context(), app))
		return nil
	},
}

func collectStatus(ctx context.Context, app *App) statusReport {
	r := statusReport{
		ServerURL:  app.Config.ServerURL,
		SocketURL:  app.Config.SocketURL,
		ConfigPath: app.ConfigPath,
		Local:      utils.IsLocalhost(app.Config.ServerURL),
	}
	client := utils.GetHTTPClientWithTimeout(app.Config.RequestTimeout.Std())
	if latency, err := utils.PingURL(ctx, client, app.Config.ServerURL); err != nil {
		r.PingError = err.Error()
	} else {
		r.Reachable = true
		r.LatencyMs = latency.Milliseconds()
	}
	if r.Reachable {
		r.User = app.Session.Restore(ctx)
	}
	return r
}

func formatStatus(w io.Writer, r statusReport) {
	fmt.Fprintln(w, "ConnectSphere Status")
	fmt.Fprintln(w, "====================")
	fmt.Fprintln(w)

	server := r.ServerURL
	if r.Local {
		server += " (local)"
	}
	fmt.Fprintf(w, "Server:    %s\n", server)
	fmt.Fprintf(w, "Real-time: %s\n", r.SocketURL)
	if r.ConfigPath != "" {
		fmt.Fprintf(w, "Config:    %s\n", r.ConfigPath)
	}
	fmt.Fprintln(w)

	if r.Reachable {
		fmt.Fprintf(w, "  Health: ✅ reachable (%dms)\n", r.LatencyMs)
	} else {
		fmt.Fprintf(w, "  Health: ❌ unreachable - %s\n", r.PingError)
	}
	switch {
	case r.User != nil:
		fmt.Fprintf(w, "  Session: logged in as %s (%s)\n", r.User.DisplayName, r.User.ID)
	case r.Reachable:
		fmt.Fprintln(w, "  Session: not logged in. Run 'cs login'.")
	default:
		fmt.Fprintln(w, "  Session: unknown while the server is unreachable")
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
