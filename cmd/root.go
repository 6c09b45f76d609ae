package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/lehigh-university-libraries/studyshelf/internal/config"
	"github.com/lehigh-university-libraries/studyshelf/internal/logging"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/session"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the final flush when a command exits.
const shutdownTimeout = 10 * time.Second

type rootOptions struct {
	configPath string
	dataDir    string
	ephemeral  bool
	logLevel   string
	guest      bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "studyshelf",
		Short: "Class 9 study paper library with an AI tutor",
		Long: `Studyshelf keeps a catalog of Class 9 study papers with embedded PDFs,
bookmarks and announcements, saved locally after every change.

Admins upload and delete papers. Everyone can browse, bookmark, preview,
download and ask the AI tutor for practice questions, study tips and help.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := opts.logLevel
			if !cmd.Flags().Changed("log-level") {
				if cfg, err := config.Load(opts.configPath); err == nil {
					level = cfg.LogLevel
				}
			}
			l, err := logging.ParseLevel(level)
			if err != nil {
				return err
			}
			logging.Setup(l)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the database and session marker")
	cmd.PersistentFlags().BoolVar(&opts.ephemeral, "ephemeral", false, "Keep everything in memory")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.guest, "guest", false, "Act as the guest user for this run")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	cmd.AddCommand(newWhoamiCmd(opts))
	cmd.AddCommand(newPapersCmd(opts))
	cmd.AddCommand(newBookmarksCmd(opts))
	cmd.AddCommand(newAnnouncementsCmd(opts))
	cmd.AddCommand(newTutorCmd(opts))

	return cmd
}

// config resolves the file, environment and flag layers.
func (o *rootOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if cmd.Flags().Changed("ephemeral") {
		cfg.Ephemeral = o.ephemeral
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	return cfg, cfg.Validate()
}

// run opens the app, calls fn and always closes the app, flushing any
// pending change. A failed final save is reported as the command error.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := a.Close(closeCtx); closeErr != nil {
			slog.Error("Failed to save changes", "err", closeErr)
			err = errors.Join(err, closeErr)
		}
	}()

	if !a.Persistent() {
		slog.Warn("Changes in this run will not be saved")
	}
	return fn(ctx, a)
}

// currentUser returns the logged in user or a hint to log in. Guest
// sessions are never remembered, so --guest applies to one run only.
func (o *rootOptions) currentUser(a *app.App) (models.User, error) {
	if o.guest {
		return session.Guest(), nil
	}
	user, _, err := a.Sessions.Current()
	if err != nil {
		return user, fmt.Errorf("%w: run `studyshelf login <email>` first or pass --guest", err)
	}
	return user, nil
}
