package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/taskdock/internal/api"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access token",
	Long: `Sign in with email and password. The password is read from the terminal
without echo, or from stdin when piped.

Use --token to adopt a token issued elsewhere, for example by a browser
sign-in; it is validated against the profile endpoint before being kept.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().String("email", "", "account email (prompted when empty)")
	loginCmd.Flags().String("token", "", "adopt an existing access token instead of a password")

	registerCmd.Flags().String("email", "", "account email (prompted when empty)")
	registerCmd.Flags().String("name", "", "display name (prompted when empty)")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	token, _ := cmd.Flags().GetString("token")

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	session := e.App.Session

	if token != "" {
		if err := session.AdoptToken(cmd.Context(), token); err != nil {
			return fmt.Errorf("token rejected: %w", err)
		}
		return printSignedIn(cmd, e)
	}

	p := newPrompter(cmd)
	if email == "" {
		if email, err = p.line("Email: "); err != nil {
			return err
		}
	}
	password, err := p.password("Password: ")
	if err != nil {
		return err
	}

	if err := session.Login(cmd.Context(), email, password); err != nil {
		return errors.New(api.FriendlyMessage(err, "login"))
	}
	return printSignedIn(cmd, e)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	p := newPrompter(cmd)
	if email == "" {
		if email, err = p.line("Email: "); err != nil {
			return err
		}
	}
	if name == "" {
		if name, err = p.line("Name: "); err != nil {
			return err
		}
	}
	password, err := p.password("Password: ")
	if err != nil {
		return err
	}

	if err := e.App.Session.Register(cmd.Context(), email, name, password); err != nil {
		return errors.New(api.FriendlyMessage(err, "registration"))
	}
	return printSignedIn(cmd, e)
}

func printSignedIn(cmd *cobra.Command, e *env) error {
	user, ok := e.App.Session.User()
	if !ok {
		return errNotLoggedIn
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.App.Session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	user, _ := e.App.Session.User()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
	fmt.Fprintf(out, "id:      %s\n", user.ID)
	fmt.Fprintf(out, "since:   %s\n", user.CreatedAt.Local().Format("2006-01-02"))
	fmt.Fprintf(out, "server:  %s\n", e.App.API.BaseURL())
	return nil
}
