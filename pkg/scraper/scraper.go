package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/go-shiori/go-readability"
	"github.com/xhad/sitechat/internal/models"
)

var (
	ErrEmptyURL  = errors.New("url is required")
	ErrNoContent = errors.New("page yielded no text")
)

// Renderer returns the raw HTML of a page.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (html string, contentType string, err error)
}

type ScraperConfig struct {
	Timeout   time.Duration
	UserAgent string
	Renderer  Renderer // nil uses a plain HTTP GET
}

type Scraper struct {
	config   ScraperConfig
	renderer Renderer
}

func NewWithConfig(config ScraperConfig) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "sitechat/1.0"
	}

	renderer := config.Renderer
	if renderer == nil {
		renderer = &httpRenderer{
			client:    &http.Client{Timeout: config.Timeout},
			userAgent: config.UserAgent,
		}
	}

	return &Scraper{
		config:   config,
		renderer: renderer,
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{})
}

// Fetch returns the concatenated plain text of every document extracted from pageURL.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (string, error) {
	docs, err := s.Scrape(ctx, pageURL)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, doc := range docs {
		text.WriteString(doc.Content)
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoContent, pageURL)
	}
	return text.String(), nil
}

// Scrape fetches a single page and extracts its documents. Links are not followed.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) ([]models.Document, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, ErrEmptyURL
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	html, contentType, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := s.extractContent(html, parsedURL, doc)
	if content == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, pageURL)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	log.Debug("page extracted", "url", pageURL, "chars", len(content), "elapsed", time.Since(start))

	return []models.Document{{
		ID:      pageURL,
		URL:     pageURL,
		Title:   title,
		Content: content,
		Metadata: map[string]interface{}{
			"time":        time.Now(),
			"contentType": contentType,
		},
	}}, nil
}

func (s *Scraper) extractContent(html string, pageURL *url.URL, doc *goquery.Document) string {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err == nil {
		if body, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
			if text := s.cleanContent(blockText(body.Selection)); text != "" {
				return text
			}
		}
	} else {
		log.Debug("readability failed, using selectors", "url", pageURL.String(), "err", err)
	}

	return s.extractMainContent(doc)
}

// Elements whose text is kept apart from their neighbours.
const blockElements = "address, article, aside, blockquote, dd, div, dl, dt, figcaption, figure, " +
	"h1, h2, h3, h4, h5, h6, header, li, main, ol, p, pre, section, table, td, th, tr, ul"

// Page furniture dropped before the fallback extraction.
const boilerplate = "script, style, noscript, nav, footer, " +
	"[class*=cookie], [id*=cookie], [class*=consent], [id*=consent]"

// blockText returns the text of sel with a line break after every block element and br.
func blockText(sel *goquery.Selection) string {
	sel.Find("br").ReplaceWithHtml("\n")
	sel.Find(blockElements).AppendHtml("\n")
	return sel.Text()
}

func (s *Scraper) cleanContent(content string) string {
	// Remove extra whitespace
	return strings.Join(strings.Fields(content), " ")
}

func (s *Scraper) extractMainContent(doc *goquery.Document) string {
	doc.Find(boilerplate).Remove()

	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = blockText(selected)
			break
		}
	}

	// Fallback to body if no main content found
	if strings.TrimSpace(content) == "" {
		content = blockText(doc.Find("body"))
	}

	return s.cleanContent(content)
}

type httpRenderer struct {
	client    *http.Client
	userAgent string
}

func (r *httpRenderer) Render(ctx context.Context, pageURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	return string(body), resp.Header.Get("Content-Type"), nil
}
