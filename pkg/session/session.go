// Package session holds the state of one chat with one indexed website.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
	"github.com/xhad/sitechat/pkg/history"
	"github.com/xhad/sitechat/pkg/llm"
	"github.com/xhad/sitechat/pkg/store"
)

// DefaultGreeting opens every transcript.
const DefaultGreeting = "Hello there, I am your Website chatbot."

type State int

const (
	StateNoURL State = iota
	StateIndexing
	StateReady
	StateResponding
)

func (s State) String() string {
	switch s {
	case StateNoURL:
		return "no-url"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateResponding:
		return "responding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Deps are the collaborators a session drives.
type Deps struct {
	Fetcher   types.Fetcher
	Segmenter types.Segmenter
	Builder   types.IndexBuilder
	Provider  types.Provider
}

type Options struct {
	WindowSize int
	TopK       int
	Greeting   string
	System     string
	// CredentialOptional lets providers without keys (ollama) index and chat with an empty credential.
	CredentialOptional bool
}

// IndexInfo describes a freshly built index.
type IndexInfo struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Characters int    `json:"characters"`
}

// Session is not safe for concurrent use; drive it from a single goroutine.
type Session struct {
	id         string
	deps       Deps
	opts       Options
	credential string
	state      State
	index      types.Index
	info       IndexInfo
	window     *history.Window
	transcript []models.Message
}

func New(deps Deps, opts Options) (*Session, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	case deps.Segmenter == nil:
		return nil, errors.New("segmenter is required")
	case deps.Builder == nil:
		return nil, errors.New("index builder is required")
	case deps.Provider == nil:
		return nil, errors.New("provider is required")
	}

	if opts.WindowSize < 1 {
		opts.WindowSize = history.DefaultExchanges
	}
	if opts.TopK < 1 {
		opts.TopK = 1
	}
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}

	return &Session{
		id:     uuid.NewString(),
		deps:   deps,
		opts:   opts,
		state:  StateNoURL,
		window: history.NewWindow(opts.WindowSize),
		transcript: []models.Message{
			{Role: models.RoleAssistant, Content: opts.Greeting},
		},
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.state }

// Index returns the current index info and whether an index is loaded.
func (s *Session) Index() (IndexInfo, bool) {
	return s.info, s.index != nil
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []models.Message {
	return append([]models.Message(nil), s.transcript...)
}

// History returns the exchanges that will accompany the next question.
func (s *Session) History() []models.Exchange {
	return s.window.Exchanges()
}

func (s *Session) SetCredential(key string) {
	s.credential = strings.TrimSpace(key)
}

func (s *Session) hasCredential() bool {
	return s.credential != "" || s.opts.CredentialOptional
}

// SubmitURL fetches and indexes pageURL, replacing any previous index.
// On failure the session is left without an index.
func (s *Session) SubmitURL(ctx context.Context, pageURL string) (IndexInfo, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" || !s.hasCredential() {
		return IndexInfo{}, ErrMissingInput
	}

	s.state = StateIndexing
	s.dropIndex()

	info, err := s.build(ctx, pageURL)
	if err != nil {
		s.state = StateNoURL
		log.Warn("indexing failed", "session", s.id, "url", pageURL, "err", err)
		return IndexInfo{}, err
	}

	s.state = StateReady
	log.Info("website indexed", "session", s.id, "url", pageURL, "index", info.ID, "chars", info.Characters)
	return info, nil
}

func (s *Session) build(ctx context.Context, pageURL string) (IndexInfo, error) {
	embedder, err := s.deps.Provider.Embedder(s.credential)
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredential) {
			return IndexInfo{}, fmt.Errorf("%w: %w", ErrMissingInput, err)
		}
		return IndexInfo{}, fmt.Errorf("failed to create embedder: %w", err)
	}

	text, err := s.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("failed to fetch page: %w", err)
	}

	segments, err := s.deps.Segmenter.Segments(text)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("failed to segment page: %w", err)
	}

	idx, err := s.deps.Builder.Build(ctx, segments, embedder)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("failed to build index: %w", err)
	}

	chars := 0
	for _, seg := range segments {
		chars += utf8.RuneCountInString(seg.Text)
	}

	s.index = idx
	s.info = IndexInfo{ID: idx.ID(), URL: pageURL, Characters: chars}
	return s.info, nil
}

func (s *Session) dropIndex() {
	if s.index == nil {
		return
	}
	if err := s.index.Close(); err != nil {
		log.Warn("failed to close index", "session", s.id, "index", s.index.ID(), "err", err)
	}
	s.index = nil
	s.info = IndexInfo{}
}

// Ask answers question from the indexed website and the recent conversation.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	if s.index == nil {
		return "", ErrNoIndex
	}
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	if !s.hasCredential() {
		return "", ErrMissingInput
	}

	completer, err := s.deps.Provider.Completer(s.credential)
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredential) {
			return "", fmt.Errorf("%w: %w", ErrMissingInput, err)
		}
		return "", fmt.Errorf("failed to create completer: %w", err)
	}
	engine, err := llm.NewWithConfig(llm.ChatConfig{SystemTemplate: s.opts.System}, completer)
	if err != nil {
		return "", err
	}

	s.transcript = append(s.transcript, models.Message{Role: models.RoleUser, Content: question})
	s.state = StateResponding
	defer func() { s.state = StateReady }()

	results, err := store.Retrieve(ctx, s.index, question, s.opts.TopK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}

	reply, err := engine.Respond(ctx, s.window.Messages(), best(results), question)
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	s.transcript = append(s.transcript, models.Message{Role: models.RoleAssistant, Content: reply})
	if s.window.Push(models.Exchange{Question: question, Answer: reply}) {
		log.Debug("history window full, oldest exchange evicted", "session", s.id)
	}
	return reply, nil
}

// best folds the retrieved segments into one, keeping the top score.
func best(results []models.ScoredSegment) models.ScoredSegment {
	switch len(results) {
	case 0:
		return models.ScoredSegment{}
	case 1:
		return results[0]
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return models.ScoredSegment{Text: strings.Join(texts, "\n\n"), Score: results[0].Score}
}

// Close releases the index and returns the session to NoURL.
func (s *Session) Close() error {
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	s.info = IndexInfo{}
	s.state = StateNoURL
	return err
}
