package main

import (
	"context"
	"fmt"

	"github.com/xhad/sitechat/pkg/config"
	"github.com/xhad/sitechat/pkg/llm"
	"github.com/xhad/sitechat/pkg/processor"
	"github.com/xhad/sitechat/pkg/scraper"
	"github.com/xhad/sitechat/pkg/session"
	"github.com/xhad/sitechat/pkg/store"
)

// newDeps assembles the session collaborators from config. cleanup releases shared resources.
func newDeps(ctx context.Context, cfg *config.Config) (deps session.Deps, cleanup func(), err error) {
	var renderer scraper.Renderer
	if cfg.Scraper.Renderer == "chromedp" {
		renderer = scraper.ChromeRenderer{UserAgent: cfg.Scraper.UserAgent}
	}

	s := scraper.NewWithConfig(scraper.ScraperConfig{
		Timeout:   cfg.Scraper.Timeout,
		UserAgent: cfg.Scraper.UserAgent,
		Renderer:  renderer,
	})

	// The only cap on page length; applied to the sanitized text in runes.
	proc := processor.NewWithConfig(processor.ProcessorConfig{
		MaxChars: cfg.Scraper.MaxChars,
	})

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return session.Deps{}, nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	builder, err := store.NewBuilder(ctx, cfg.Index)
	if err != nil {
		return session.Deps{}, nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	cleanup = func() {}
	if vs, ok := builder.(*store.VectorStore); ok {
		cleanup = vs.Close
	}

	return session.Deps{
		Fetcher:   s,
		Segmenter: &proc,
		Builder:   builder,
		Provider:  provider,
	}, cleanup, nil
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		WindowSize:         cfg.Chat.HistoryWindow,
		TopK:               cfg.Chat.TopK,
		Greeting:           cfg.Chat.Greeting,
		CredentialOptional: cfg.LLM.Provider == "ollama",
	}
}

// newSession builds a single session preloaded with the configured API key.
func (a *app) newSession(ctx context.Context) (*session.Session, func(), error) {
	deps, cleanup, err := newDeps(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.New(deps, sessionOptions(a.cfg))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	sess.SetCredential(a.cfg.LLM.APIKey)

	return sess, func() {
		sess.Close()
		cleanup()
	}, nil
}
