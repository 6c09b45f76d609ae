package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/lehigh-university-libraries/studyshelf/internal/catalog"
	"github.com/lehigh-university-libraries/studyshelf/internal/catalogfile"
	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/spf13/cobra"
)

func newPapersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "papers",
		Short: "Browse and manage study papers",
	}

	cmd.AddCommand(newPapersListCmd(opts))
	cmd.AddCommand(newPapersAddCmd(opts))
	cmd.AddCommand(newPapersDeleteCmd(opts))
	cmd.AddCommand(newPapersOpenCmd(opts))
	cmd.AddCommand(newPapersExportCmd(opts))
	cmd.AddCommand(newPapersImportCmd(opts))

	return cmd
}

func printPapers(w io.Writer, a *app.App, papers []models.Paper) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found")
		return
	}
	for _, p := range papers {
		mark := " "
		if a.State.IsBookmarked(p.ID) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-28s %-8s %-13s %-10s %s\n", mark, p.ID, p.SubjectID, p.Type, p.UploadDate, p.Title)
	}
}

func newPapersListCmd(opts *rootOptions) *cobra.Command {
	var view, subject, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List papers for a view",
		Example: `  # Everything
  studyshelf papers list

  # One subject, filtered by a search term
  studyshelf papers list --view subject --subject Science --search motion

  # Bookmarks only
  studyshelf papers list --view bookmarks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := catalog.Query{View: catalog.ParseView(view), Search: search}
			if subject != "" {
				s, ok := models.ParseSubject(subject)
				if !ok {
					return fmt.Errorf("%w: %q", catalog.ErrUnknownSubject, subject)
				}
				q.Subject = s
			}
			if q.View == catalog.ViewSubject && q.Subject == "" {
				return fmt.Errorf("--subject is required for the subject view")
			}

			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				q.Bookmarks = a.State.Bookmarks()
				printPapers(cmd.OutOrStdout(), a, catalog.Filter(a.State.Papers(), q))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&view, "view", "home", "View to list (home, subject, bookmarks)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject for the subject view")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive match on title or subject")

	return cmd
}

func newPapersAddCmd(opts *rootOptions) *cobra.Command {
	var title, subject, paperType, file, url string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a paper (admins only)",
		Long: `Adds a paper and announces it. The attachment is embedded in the catalog,
so it must not exceed 15 MiB. Without --file or --url a demo PDF is used.`,
		Example: `  studyshelf papers add --title "Science Mid-Term 2024" --subject Science --type full --file midterm.pdf`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				user, err := opts.currentUser(a)
				if err != nil {
					return err
				}

				req := catalog.UploadRequest{
					Title:   title,
					Subject: models.SubjectID(subject),
					Type:    models.PaperType(paperType),
					URL:     url,
				}
				if file != "" {
					f, err := os.Open(file)
					if err != nil {
						return fmt.Errorf("failed to open %s: %w", file, err)
					}
					defer f.Close()
					info, err := f.Stat()
					if err != nil {
						return fmt.Errorf("failed to stat %s: %w", file, err)
					}
					req.File = f
					req.FileSize = info.Size()
				}

				paper, err := a.Uploader.Upload(ctx, user, req)
				if err != nil {
					return fmt.Errorf("failed to add paper: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q\n", paper.ID, paper.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Paper title (required)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject (required)")
	cmd.Flags().StringVar(&paperType, "type", string(models.PaperChapterWise), "Paper type (chapter or full)")
	cmd.Flags().StringVar(&file, "file", "", "PDF to embed")
	cmd.Flags().StringVar(&url, "url", "", "Link to the paper instead of embedding a file")

	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("subject")
	cmd.MarkFlagsMutuallyExclusive("file", "url")

	return cmd
}

func newPapersDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a paper (admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				user, err := opts.currentUser(a)
				if err != nil {
					return err
				}
				if err := a.Uploader.Delete(user, args[0]); err != nil {
					return fmt.Errorf("failed to delete paper: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newPapersOpenCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "open <id>",
		Short: "Write a paper's PDF to a file",
		Long: `Decodes the paper's attachment and writes it to --output, or to a file
named after the title in the current directory. Linked papers print their URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				paper, ok := a.State.Paper(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", catalog.ErrPaperNotFound, args[0])
				}

				url := codec.Resolve(paper.PDFURL)
				if !codec.IsEmbedded(url) {
					fmt.Fprintln(cmd.OutOrStdout(), url)
					return nil
				}

				att, err := codec.Decode(url)
				if err != nil {
					return fmt.Errorf("could not open PDF viewer: %w", err)
				}
				path := output
				if path == "" {
					path = codec.DownloadName(paper.Title)
				}
				if err := os.WriteFile(path, att.Data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				slog.Debug("Wrote attachment", "path", path, "mime", att.MIMEType, "bytes", len(att.Data))
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")

	return cmd
}

func newPapersExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export the catalog to .parquet, .jsonl or .yaml",
		Long: `Exports papers to a Parquet or JSONL file, or the whole snapshot
(papers, announcements, bookmarks) to YAML. The format follows the extension.`,
		Example: `  studyshelf papers export backup.parquet
  studyshelf papers export snapshot.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				snap := a.State.Snapshot()
				if err := catalogfile.Export(args[0], snap); err != nil {
					return fmt.Errorf("failed to export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d papers to %s\n", len(snap.Papers), filepath.Clean(args[0]))
				return nil
			})
		},
	}
}

func newPapersImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import papers from .parquet, .jsonl or .yaml (admins only)",
		Long:  `Adds every paper whose id is not in the catalog yet. Existing papers are left alone.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			papers, err := catalogfile.Import(args[0])
			if err != nil {
				return fmt.Errorf("failed to import: %w", err)
			}

			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				user, err := opts.currentUser(a)
				if err != nil {
					return err
				}
				if !user.IsAdmin {
					return catalog.ErrForbidden
				}
				added, err := a.State.ImportPapers(papers)
				if err != nil {
					return fmt.Errorf("failed to import: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d papers\n", added, len(papers))
				return nil
			})
		},
	}
}
