package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/packsync/packsync/internal/domain"
)

func newSignUpCommand(a *app) *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:     "signup",
		Short:   "Create an account and log in",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			u, err := a.session.SignUp(cmd.Context(), email, password, name)
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("an account for %s already exists", email)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are logged in.\n", u.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name shown to collaborators")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLoginCommand(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in with email and password",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			u, err := a.session.SignIn(cmd.Context(), email, password)
			if errors.Is(err, domain.ErrInvalidCredentials) {
				return errors.New("wrong email or password")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", u.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Forget the saved login",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoAmICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Show the logged in user",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.requireUser()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nid: %s\n", u.DisplayName, u.Email, u.ID)
			return nil
		},
	}
}
