// Package history keeps the bounded conversation window sent to the LLM.
package history

import "github.com/xhad/sitechat/internal/models"

// DefaultExchanges is the number of exchanges kept when no capacity is given.
const DefaultExchanges = 10

// Window is a fixed-capacity ring buffer of exchanges, oldest first.
// It is not safe for concurrent use.
type Window struct {
	buf   []models.Exchange
	start int
	size  int
}

// NewWindow returns an empty window holding at most capacity exchanges.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = DefaultExchanges
	}
	return &Window{buf: make([]models.Exchange, capacity)}
}

func (w *Window) Len() int { return w.size }

func (w *Window) Cap() int { return len(w.buf) }

// Push appends an exchange and reports whether the oldest one was evicted to make room.
func (w *Window) Push(e models.Exchange) bool {
	evicted := false
	if w.size == len(w.buf) {
		w.Truncate(len(w.buf) - 1)
		evicted = true
	}
	w.buf[(w.start+w.size)%len(w.buf)] = e
	w.size++
	return evicted
}

// Truncate drops the oldest exchanges until at most n remain and returns how many were dropped.
func (w *Window) Truncate(n int) int {
	if n < 0 {
		n = 0
	}
	dropped := 0
	for w.size > n {
		w.buf[w.start] = models.Exchange{}
		w.start = (w.start + 1) % len(w.buf)
		w.size--
		dropped++
	}
	return dropped
}

// Exchanges returns a copy of the retained exchanges, oldest first.
func (w *Window) Exchanges() []models.Exchange {
	out := make([]models.Exchange, 0, w.size)
	for i := 0; i < w.size; i++ {
		out = append(out, w.buf[(w.start+i)%len(w.buf)])
	}
	return out
}

// Messages flattens the retained exchanges into alternating user and assistant messages.
func (w *Window) Messages() []models.Message {
	out := make([]models.Message, 0, 2*w.size)
	for _, e := range w.Exchanges() {
		out = append(out, e.Messages()...)
	}
	return out
}

func (w *Window) Reset() {
	w.Truncate(0)
	w.start = 0
}
