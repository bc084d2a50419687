package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/pkg/session"
)

// replSession is what the REPL needs from a session.
type replSession interface {
	SetCredential(key string)
	SubmitURL(ctx context.Context, pageURL string) (session.IndexInfo, error)
	Ask(ctx context.Context, question string) (string, error)
	Messages() []models.Message
	History() []models.Exchange
}

var urlRegex = regexp.MustCompile(`^https?://[^\s]+$`)

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat in a line-oriented prompt",
		Long: `Start a plain prompt. Commands:
  /key <api-key>   set the API key
  /url <address>   fetch and index a website (a bare URL works too)
  /history         show the exchanges sent with the next question
  /exit            quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := a.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), sess)
		},
	}
}

func getSpinner(out io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, sess replSession) error {
	userPrompt := color.New(color.FgGreen).FprintfFunc()
	assistantPrompt := color.New(color.FgCyan).FprintfFunc()
	red := color.New(color.FgRed).FprintlnFunc()
	green := color.New(color.FgGreen).FprintlnFunc()

	color.New(color.FgCyan).Fprintln(out, "\nWebsite Chatbot (type /exit to quit, /url <address> to load a site)")
	for _, m := range sess.Messages() {
		assistantPrompt(out, "\nAssistant: %s\n", m.Content)
	}

	scanner := bufio.NewScanner(in)
	for {
		userPrompt(out, "\nYou: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch {
		case cmd == "/exit" || strings.EqualFold(line, "exit"):
			return nil

		case cmd == "/key":
			sess.SetCredential(arg)
			green(out, "✓ API key set")

		case cmd == "/history":
			exchanges := sess.History()
			if len(exchanges) == 0 {
				fmt.Fprintln(out, "No history yet.")
			}
			for i, e := range exchanges {
				fmt.Fprintf(out, "%d. You: %s\n   Assistant: %s\n", i+1, e.Question, e.Answer)
			}

		case cmd == "/url" || urlRegex.MatchString(line):
			pageURL := arg
			if cmd != "/url" {
				pageURL = line
			}
			spinner := getSpinner(out, " Indexing "+pageURL)
			info, err := sess.SubmitURL(ctx, pageURL)
			spinner.Finish()
			if err != nil {
				red(out, session.UserMessage(err))
				continue
			}
			green(out, fmt.Sprintf("✓ Website content loaded and processed successfully! (%d characters)", info.Characters))

		default:
			spinner := getSpinner(out, " Loading...")
			reply, err := sess.Ask(ctx, line)
			spinner.Finish()
			if err != nil {
				red(out, session.UserMessage(err))
				continue
			}
			assistantPrompt(out, "Assistant: %s\n", reply)
		}
	}

	return scanner.Err()
}
