package cmd

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in with an email address",
		Long: `Logs in locally with an email address. The two admin addresses can add
and delete papers. This is not authentication: anyone who can run the command
can pick any address.

The login is remembered in the data directory until logout. To browse as the
guest user pass --guest to any command instead.`,
		Example: `  studyshelf login student@example.com
  studyshelf papers list --guest`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				user, err := a.Sessions.Login(args[0])
				if err != nil {
					return fmt.Errorf("failed to log in: %w", err)
				}
				role := "student"
				if user.IsAdmin {
					role = "admin"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Email, role)
				return nil
			})
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Sessions.Logout(); err != nil {
					return fmt.Errorf("failed to log out: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				user, err := opts.currentUser(a)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> admin=%t guest=%t\n", user.Name, user.Email, user.IsAdmin, user.Guest)
				return nil
			})
		},
	}
}

func newAnnouncementsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "announcements",
		Short: "List announcements, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				for _, an := range a.State.Announcements() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s  %s\n", an.Date, an.Text)
				}
				return nil
			})
		},
	}
}
