package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/xhad/sitechat/pkg/tui"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in a full-screen terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Log lines would draw over the UI.
			if a.cfg.Log.File == "" {
				log.SetOutput(io.Discard)
			}

			sess, cleanup, err := a.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			model := tui.New(cmd.Context(), sess, a.cfg.LLM.APIKey)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
