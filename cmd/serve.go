package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xhad/sitechat/pkg/session"
	"github.com/xhad/sitechat/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat sessions over websocket",
		Long:  "Start a websocket server on /ws. Each connection gets its own session. /health and /metrics are served alongside.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Address = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, cleanup, err := newDeps(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			return serve(ctx, a, deps)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.address)")
	return cmd
}

func serve(ctx context.Context, a *app, deps session.Deps) error {
	opts := sessionOptions(a.cfg)
	apiKey := a.cfg.LLM.APIKey

	ws, err := server.NewWSServer(server.Config{Address: a.cfg.Server.Address}, func() (*session.Session, error) {
		sess, err := session.New(deps, opts)
		if err != nil {
			return nil, err
		}
		sess.SetCredential(apiKey)
		return sess, nil
	})
	if err != nil {
		return err
	}
	return ws.ListenAndServe(ctx)
}
