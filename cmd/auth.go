package cmd

import (
	"github.com/spf13/cobra"

	"github.com/guilhermegouw/coach/internal/guard"
)

// sessionError reports the store's human-readable message while keeping the
// underlying error for errors.Is.
type sessionError struct {
	err error
	msg string
}

func (e *sessionError) Error() string { return e.msg }
func (e *sessionError) Unwrap() error { return e.err }

func storeError(err error, msg string) error {
	if msg == "" {
		return err
	}
	return &sessionError{err: err, msg: msg}
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, passwordFile string

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in to Coach AI",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationRoute: guard.RouteLogin},
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, password, err := credentials(newPrompter(rt.stdin, cmd.ErrOrStderr()), email, passwordFile)
			if err != nil {
				return err
			}

			session := rt.app.Session
			if err := session.Login(cmd.Context(), addr, password); err != nil {
				return storeError(err, session.Error())
			}
			rt.out.Success("Logged in as %s.", session.User().DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from the first line of this file")
	return cmd
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var name, email, passwordFile string

	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create a Coach AI account",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationRoute: guard.RouteRegister},
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(rt.stdin, cmd.ErrOrStderr())
			if name == "" {
				var err error
				if name, err = p.Line("Name"); err != nil {
					return err
				}
			}
			addr, password, err := credentials(p, email, passwordFile)
			if err != nil {
				return err
			}

			session := rt.app.Session
			if err := session.Register(cmd.Context(), name, addr, password); err != nil {
				return storeError(err, session.Error())
			}
			if session.IsLoggedIn() {
				rt.out.Success("Account created. Logged in as %s.", session.User().DisplayName())
				return nil
			}
			rt.out.Success("Account created. Run `coach login` to sign in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (prompted when omitted)")
	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from the first line of this file")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			wasLoggedIn := rt.app.Session.IsLoggedIn()
			if err := rt.app.Session.Logout(); err != nil {
				return err
			}
			if wasLoggedIn {
				rt.out.Success("Logged out.")
			} else {
				rt.out.Println("Not logged in.")
			}
			return nil
		},
	}
}

func credentials(p *prompter, email, passwordFile string) (string, string, error) {
	var err error
	if email == "" {
		if email, err = p.Line("Email"); err != nil {
			return "", "", err
		}
	}

	var password string
	if passwordFile != "" {
		password, err = readPasswordFile(passwordFile)
	} else {
		password, err = p.Password("Password")
	}
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}
