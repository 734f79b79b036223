package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"immobilier-assistant/internal/config"
	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/i18n"
	"immobilier-assistant/internal/routes"
	"immobilier-assistant/internal/session"
)

const chatHelp = `Commands:
  /go <label>       follow a quick reply, e.g. /go Countries
  /action <section> follow a quick action (home, countries, blog, contact)
  /send             send the current draft
  /lang <code>      switch language (en, fr, ar)
  /quit             leave
Anything else not starting with / is sent to the assistant.`

func (a *app) chatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			logger := terminalLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			llm, err := newDeps(cfg, logger).generator(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r := newRenderer(out)
			sess, err := session.New(session.Config{
				ID:                 uuid.NewString(),
				Language:           cfg.Language,
				LLM:                llm,
				Navigator:          r,
				Logger:             logger,
				HistoryWindow:      cfg.HistoryWindow,
				ClientQuickReplies: cfg.ClientQuickReplies,
			})
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), r, sess)
		},
	}
	return cmd
}

// renderer writes the conversation to a terminal. It doubles as the session's
// Navigator and prints the target path instead of moving a page.
type renderer struct {
	out    io.Writer
	user   lipgloss.Style
	model  lipgloss.Style
	notice lipgloss.Style
}

func newRenderer(out io.Writer) *renderer {
	lr := lipgloss.NewRenderer(out)
	return &renderer{
		out:    out,
		user:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		model:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		notice: lr.NewStyle().Faint(true),
	}
}

func (r *renderer) message(m domain.Message, title string) {
	label := r.user.Render("you")
	if m.Role == domain.RoleModel {
		label = r.model.Render(title)
	}
	fmt.Fprintf(r.out, "%s: %s\n", label, m.Text)
}

func (r *renderer) noticef(format string, args ...any) {
	fmt.Fprintln(r.out, r.notice.Render(fmt.Sprintf(format, args...)))
}

func (r *renderer) NavigateTo(path string) {
	r.noticef("-> navigate to %s", path)
}

func runChat(ctx context.Context, in io.Reader, r *renderer, sess *session.Session) error {
	dict := i18n.Default()
	title := func() string { return dict.Lookup(sess.Language(), i18n.KeyAssistantTitle) }

	sess.Open()
	sess.Greet()
	for _, m := range sess.Messages() {
		r.message(m, title())
	}
	r.noticef("type /help for commands")

	sc := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, chatHelp)
		case "/lang":
			lang, err := domain.ParseLanguage(strings.ToLower(arg))
			if err != nil {
				r.noticef("%v", err)
				continue
			}
			if err := sess.SetLanguage(lang); err != nil {
				return err
			}
			r.noticef("language: %s (%s)", lang, i18n.Direction(lang))
		case "/go":
			act := sess.HandleQuickReply(arg)
			if act.Kind == session.ActionDraft {
				r.noticef("draft: %q (use /send)", act.Text)
			}
		case "/action":
			sec, err := routes.ParseSection(arg)
			if err == nil {
				_, err = sess.QuickAction(sec)
			}
			if err != nil {
				r.noticef("%v", err)
			}
		case "/send":
			submit(ctx, r, sess, title(), sess.Draft())
		default:
			if strings.HasPrefix(cmd, "/") {
				r.noticef("unknown command %s", cmd)
				fmt.Fprintln(r.out, chatHelp)
				continue
			}
			submit(ctx, r, sess, title(), line)
		}
	}
}

func submit(ctx context.Context, r *renderer, sess *session.Session, title, text string) {
	reply, err := sess.Submit(ctx, text)
	if errors.Is(err, session.ErrEmptyInput) {
		r.noticef("nothing to send")
		return
	}
	if err != nil {
		r.noticef("%v", err)
		return
	}
	// The user turn sits right before its reply in the log.
	msgs := sess.Messages()
	for i := len(msgs) - 1; i > 0; i-- {
		if msgs[i].ID == reply.ID {
			r.message(msgs[i-1], title)
			break
		}
	}
	r.message(reply, title)
}
