package history_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/pkg/history"
)

func exchange(i int) models.Exchange {
	return models.Exchange{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
}

func TestNewWindowDefaults(t *testing.T) {
	assert.Equal(t, history.DefaultExchanges, history.NewWindow(0).Cap())
	assert.Equal(t, 3, history.NewWindow(3).Cap())
	assert.Zero(t, history.NewWindow(3).Len())
}

func TestPushKeepsMostRecent(t *testing.T) {
	w := history.NewWindow(10)

	for i := 1; i <= 10; i++ {
		assert.False(t, w.Push(exchange(i)))
	}
	assert.True(t, w.Push(exchange(11)))

	got := w.Exchanges()
	require.Len(t, got, 10)
	assert.Equal(t, exchange(2), got[0])
	assert.Equal(t, exchange(11), got[9])
}

func TestPushWrapsManyTimes(t *testing.T) {
	w := history.NewWindow(3)
	for i := 1; i <= 25; i++ {
		w.Push(exchange(i))
	}

	assert.Equal(t, []models.Exchange{exchange(23), exchange(24), exchange(25)}, w.Exchanges())
}

func TestTruncate(t *testing.T) {
	w := history.NewWindow(5)
	for i := 1; i <= 5; i++ {
		w.Push(exchange(i))
	}

	assert.Equal(t, 3, w.Truncate(2))
	assert.Equal(t, []models.Exchange{exchange(4), exchange(5)}, w.Exchanges())
	assert.Equal(t, 0, w.Truncate(7))

	w.Push(exchange(6))
	assert.Equal(t, []models.Exchange{exchange(4), exchange(5), exchange(6)}, w.Exchanges())
}

func TestMessagesAlternateOldestFirst(t *testing.T) {
	w := history.NewWindow(2)
	w.Push(exchange(1))
	w.Push(exchange(2))
	w.Push(exchange(3))

	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "q2"},
		{Role: models.RoleAssistant, Content: "a2"},
		{Role: models.RoleUser, Content: "q3"},
		{Role: models.RoleAssistant, Content: "a3"},
	}, w.Messages())
}

func TestExchangesIsACopy(t *testing.T) {
	w := history.NewWindow(2)
	w.Push(exchange(1))

	got := w.Exchanges()
	got[0].Answer = "mutated"
	assert.Equal(t, "a1", w.Exchanges()[0].Answer)
}

func TestReset(t *testing.T) {
	w := history.NewWindow(2)
	w.Push(exchange(1))
	w.Push(exchange(2))
	w.Reset()

	assert.Zero(t, w.Len())
	assert.Empty(t, w.Messages())
}
