package processor

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/xhad/sitechat/internal/models"
)

var ErrEmptyText = errors.New("no text to index")

type ProcessorConfig struct {
	// MaxChars caps the indexed text so it stays within the embedding model's input limit.
	// 0 disables the cap.
	MaxChars int
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MaxChars < 0 {
		config.MaxChars = 0
	}

	return Processor{
		config: config,
	}
}

// Segments turns a page's text into the segments of an index. The whole page becomes one segment.
func (p *Processor) Segments(text string) ([]models.Segment, error) {
	text = strings.TrimSpace(sanitizeUTF8(text))
	if text == "" {
		return nil, ErrEmptyText
	}

	if p.config.MaxChars > 0 && utf8.RuneCountInString(text) > p.config.MaxChars {
		text = string([]rune(text)[:p.config.MaxChars])
	}

	return []models.Segment{{Text: text}}, nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
