package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/connectsphere/cli/cmd/utils"
	"github.com/connectsphere/cli/internal/api"
)

var (
	loginEmail    string
	loginPassword string
	registerName  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and keep the session for later commands",
	Long: `Log in with your ConnectSphere email and password.

The session token is stored in the system keyring, or in a private file in
the data directory when no keyring is available. The password is read
without echo when it is not given as a flag.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		p := newPrompter(cmd)
		cred := api.Credential{Email: loginEmail, Password: loginPassword}
		if cred.Email, err = p.line("Email: ", cred.Email); err != nil {
			return err
		}
		if cred.Password, err = p.secret("Password: ", cred.Password); err != nil {
			return err
		}

		id, err := app.Session.Login(cmd.Context(), cred)
		if err != nil {
			return fmt.Errorf("login failed: %s", api.UserMessage(err))
		}
		utils.OutputSuccess("Logged in as %s\n", id.DisplayName)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		if err := app.Session.Logout(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		utils.OutputSuccess("Logged out\n")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		id, err := app.RequireLogin(cmd.Context())
		if err != nil {
			return err
		}
		printProfile(cmd.OutOrStdout(), *id, "")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a ConnectSphere account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		p := newPrompter(cmd)
		name, err := p.line("Name: ", registerName)
		if err != nil {
			return err
		}
		email, err := p.line("Email: ", loginEmail)
		if err != nil {
			return err
		}
		password, err := p.secret("Password: ", loginPassword)
		if err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			return errors.New("name is required")
		}

		msg, err := app.Session.Register(cmd.Context(), name, email, password)
		if err != nil {
			return fmt.Errorf("registration failed: %s", api.UserMessage(err))
		}
		if msg == "" {
			msg = "Account created"
		}
		utils.OutputSuccess("%s. Run 'cs login' to sign in.\n", strings.TrimSuffix(msg, "."))
		return nil
	},
}

// prompter asks for missing values on the command's input.
type prompter struct {
	in  io.Reader
	br  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, br: bufio.NewReader(in), out: cmd.ErrOrStderr()}
}

func (p *prompter) line(label, given string) (string, error) {
	if given != "" {
		return strings.TrimSpace(given), nil
	}
	fmt.Fprint(p.out, label)
	s, err := p.br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(s), nil
}

// secret reads without echo when input is a terminal.
func (p *prompter) secret(label, given string) (string, error) {
	if given != "" {
		return given, nil
	}
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return p.line(label, "")
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	registerCmd.Flags().StringVar(&registerName, "name", "", "Display name")
	registerCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd)
}
