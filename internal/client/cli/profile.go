package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packsync/packsync/internal/client/profile"
)

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Short:   "Show or edit your profile",
		GroupID: "account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			p, err := a.profiles().Load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:  %s\nEmail: %s\n", p.DisplayName, p.Email)
			if p.ProfileImageURL != "" {
				fmt.Fprintf(out, "Photo: %s\n", p.ProfileImageURL)
			}
			return nil
		},
	}

	var name, email string
	set := &cobra.Command{
		Use:   "set",
		Short: "Change your display name or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			svc := a.profiles()
			p, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				p.DisplayName = name
			}
			if cmd.Flags().Changed("email") {
				p.Email = email
			}
			if err := svc.Save(cmd.Context(), p.DisplayName, p.Email); err != nil {
				return err
			}
			// Pick up the new display name for packing attributions.
			if err := a.session.Refresh(cmd.Context()); err != nil {
				a.log.Warn("refreshing session", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile saved.")
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "new display name")
	set.Flags().StringVar(&email, "email", "", "new contact email")

	photo := &cobra.Command{
		Use:   "photo <file>",
		Short: "Upload a JPEG or PNG profile photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			url, err := a.profiles().UploadPhoto(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Photo uploaded: %s\n", url)
			return nil
		},
	}

	cmd.AddCommand(set, photo)
	return cmd
}

func (a *app) profiles() *profile.Service {
	return profile.NewService(a.client, a.client, a.session)
}
