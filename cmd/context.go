package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/connectsphere/cli/cmd/config"
	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
	"github.com/connectsphere/cli/internal/realtime"
	"github.com/connectsphere/cli/internal/session"
	"github.com/spf13/cobra"
)

// CLIContext holds the global flags of one invocation.
type CLIContext struct {
	Debug       bool
	ServerURL   string
	SocketURL   string
	ConfigPath  string
	OverrideCwd string
}

// GetCLIContext returns the current CLI context from global flags.
func GetCLIContext() *CLIContext {
	return &CLIContext{
		Debug:       debug,
		ServerURL:   serverURL,
		SocketURL:   socketURL,
		ConfigPath:  configPath,
		OverrideCwd: utils.OverrideCwd,
	}
}

// App is everything a command needs, built once per process from the
// config file, the environment and the flags (in rising precedence).
type App struct {
	CLI        *CLIContext
	Config     config.ConnectSphereConfig
	ConfigPath string
	API        *api.Client
	Session    *session.Session

	// file is the config as stored, without defaults or overrides, so
	// saving a preference never persists a flag value.
	file *config.ConnectSphereConfig
}

// NewApp loads configuration and wires the REST client and session.
func NewApp(cli *CLIContext) (*App, error) {
	file, path, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}

	eff := *file
	if err := config.ApplyEnv(&eff); err != nil {
		return nil, err
	}
	if cli.ServerURL != "" {
		eff.ServerURL = cli.ServerURL
	}
	if cli.SocketURL != "" {
		eff.SocketURL = cli.SocketURL
	}
	eff = eff.WithDefaults()

	app := &App{CLI: cli, Config: eff, ConfigPath: path, file: file}
	app.API = api.NewClient(eff.ServerURL, utils.GetHTTPClientWithTimeout(eff.RequestTimeout.Std()), nil)
	app.API.UserAgent = "connectsphere-cli/" + Version

	store, err := tokenStore(eff.Host())
	if err != nil {
		return nil, err
	}
	app.Session = session.New(store, app.API, session.WithLogger(utils.Logf))
	app.API.Token = app.Session.Token
	return app, nil
}

func loadConfig(cli *CLIContext) (*config.ConnectSphereConfig, string, error) {
	if cli.ConfigPath != "" {
		cfg, err := config.LoadConfigFile(cli.ConfigPath)
		if errors.Is(err, os.ErrNotExist) {
			return &config.ConnectSphereConfig{}, cli.ConfigPath, nil
		}
		return cfg, cli.ConfigPath, err
	}
	dataDir, err := utils.GetDataDir()
	if err != nil {
		utils.LogDebug(fmt.Sprintf("no data dir: %v", err))
	}
	return config.Resolve(utils.GetEffectiveCWD(), dataDir)
}

func tokenStore(host string) (session.TokenStore, error) {
	path, err := utils.TokenPath()
	if err != nil {
		return nil, err
	}
	return session.FallbackStore{
		Primary:   session.KeyringStore{Service: session.KeyringService, User: host},
		Secondary: session.FileStore{Path: path},
	}, nil
}

// UpdateConfig applies fn to both the stored and the effective config and
// writes the stored one back.
func (a *App) UpdateConfig(fn func(*config.ConnectSphereConfig)) error {
	fn(a.file)
	fn(&a.Config)
	path := a.ConfigPath
	if path == "" {
		dir, err := utils.GetDataDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, config.SupportedConfigFiles[0])
		a.ConfigPath = path
	}
	return config.SaveConfig(a.file, path)
}

// RequireLogin restores the stored session or fails with ErrNotLoggedIn.
func (a *App) RequireLogin(ctx context.Context) (*api.Identity, error) {
	if id := a.Session.Identity(); id != nil {
		return id, nil
	}
	if id := a.Session.Restore(ctx); id != nil {
		return id, nil
	}
	return nil, fmt.Errorf("%w: run 'cs login' first", session.ErrNotLoggedIn)
}

// DialRealtime opens the real-time channel with the session token.
func (a *App) DialRealtime(ctx context.Context) (*realtime.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Config.RequestTimeout.Std())
	defer cancel()
	return realtime.Dial(ctx, realtime.Config{
		URL:   a.Config.SocketURL,
		Token: a.Session.Token(),
		Logf:  utils.Logf,
	})
}

type appKey struct{}

func withApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// appFrom returns the App built in the root pre-run.
func appFrom(cmd *cobra.Command) (*App, error) {
	if app, ok := cmd.Context().Value(appKey{}).(*App); ok && app != nil {
		return app, nil
	}
	return nil, errors.New("internal error: command ran without an app")
}
