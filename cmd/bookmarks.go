package cmd

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/lehigh-university-libraries/studyshelf/internal/catalog"
	"github.com/spf13/cobra"
)

func newBookmarksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List bookmarked papers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				printPapers(cmd.OutOrStdout(), a, catalog.Filter(a.State.Papers(), catalog.Query{
					View:      catalog.ViewBookmarks,
					Bookmarks: a.State.Bookmarks(),
				}))
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Bookmark a paper, or remove its bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				bookmarked, err := a.State.ToggleBookmark(args[0])
				if err != nil {
					return fmt.Errorf("failed to toggle bookmark: %w", err)
				}
				if bookmarked {
					fmt.Fprintf(cmd.OutOrStdout(), "Bookmarked %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed bookmark %s\n", args[0])
				}
				return nil
			})
		},
	})

	return cmd
}
