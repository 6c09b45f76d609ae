package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/studyshelf/internal/app"
	"github.com/lehigh-university-libraries/studyshelf/internal/catalog"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/tutor"
	"github.com/spf13/cobra"
)

func newTutorCmd(opts *rootOptions) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "tutor",
		Short: "Ask the AI tutor",
		Long: `Asks the configured LLM provider (Gemini by default) for practice
questions, study tips or help. Set GEMINI_API_KEY, or choose another provider
with TUTOR_PROVIDER=openai|ollama.`,
	}
	cmd.PersistentFlags().StringVarP(&subject, "subject", "s", string(models.SubjectMaths), "Subject to study")

	parse := func() (models.SubjectID, error) {
		s, ok := models.ParseSubject(subject)
		if !ok {
			return "", fmt.Errorf("%w: %q", catalog.ErrUnknownSubject, subject)
		}
		return s, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "question",
		Short: "Generate a practice question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parse()
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.Tutor.PracticeQuestion(ctx, string(s)))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tip",
		Short: "Get a short study tip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parse()
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.Tutor.StudyTip(ctx, string(s)))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the tutor",
		Long: `Sends one message when given as arguments. Without arguments, reads
messages line by line from stdin until EOF.`,
		Example: `  studyshelf tutor chat --subject Science "Why do objects float?"
  studyshelf tutor chat --subject Maths`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parse()
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := opts.currentUser(a); err != nil {
					return err
				}
				return runChat(ctx, cmd, a, s, strings.Join(args, " "))
			})
		},
	})

	return cmd
}

func runChat(ctx context.Context, cmd *cobra.Command, a *app.App, subject models.SubjectID, message string) error {
	out := cmd.OutOrStdout()
	conv := tutor.NewConversation(subject, a.Sessions.Generation())

	ask := func(text string) error {
		reply, ok, err := a.Tutor.Ask(ctx, conv, text, a.Sessions.Generation)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "tutor> %s\n", reply.Text)
		}
		return nil
	}

	if message != "" {
		return ask(message)
	}

	fmt.Fprintf(out, "tutor> %s\n", conv.Messages()[0].Text)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		if err := ask(scanner.Text()); err != nil {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
