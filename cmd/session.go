package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"itsite/auth"
	"itsite/config"
	"itsite/models"

	"github.com/spf13/cobra"
)

var password string

var signupCmd = &cobra.Command{
	Use:   "signup EMAIL",
	Short: "Register an account and start a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), func(s *auth.SessionStore) error {
			return s.Register(args[0], password)
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Start a session for a registered account or the administrator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), func(s *auth.SessionStore) error {
			if !s.Login(args[0], password) {
				return errors.New("invalid email or password")
			}
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), func(s *auth.SessionStore) error {
			s.Logout()
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.OutOrStdout(), func(*auth.SessionStore) error { return nil })
	},
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVarP(&password, "password", "p", "", "Account password")
		c.MarkFlagRequired("password")
	}
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}

// withSession restores the CLI session from the local store, runs fn and
// prints the resulting status.
func withSession(w io.Writer, fn func(*auth.SessionStore) error) error {
	cfg := config.AppConfig
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	s := auth.New(store, store, adminCredentials(cfg), log)
	s.Restore()
	if err := fn(s); err != nil {
		return err
	}
	return printStatus(w, s.Status())
}

func printStatus(w io.Writer, st models.AuthStatus) error {
	if IsJSONOutput() {
		return json.NewEncoder(w).Encode(st)
	}
	_, err := fmt.Fprintln(w, formatStatusHuman(st))
	return err
}

func formatStatusHuman(st models.AuthStatus) string {
	switch {
	case st.Admin:
		return "Logged in as administrator"
	case st.Authenticated:
		return "Logged in"
	default:
		return "Not logged in"
	}
}
