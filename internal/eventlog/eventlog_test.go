package eventlog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hark/internal/domain"
)

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	l, err := Open(path)
	require.NoError(t, err)

	const producers, each = 8, 50
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				l.Append(domain.Event{Kind: domain.EventAgent, Fields: map[string]any{"p": p, "i": i}})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	events, err := Read(f)
	require.NoError(t, err)
	require.Len(t, events, producers*each)

	ids := map[string]bool{}
	for _, ev := range events {
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Time.IsZero())
		ids[ev.ID] = true
	}
	assert.Len(t, ids, producers*each)
}

func TestAppendKeepsGivenFieldsAndDropsAfterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	l, err := Open(path)
	require.NoError(t, err)

	ts := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	cmd := domain.NewCommand("open firefox", "open firefox", domain.Intent{Label: domain.IntentAppOpen, Confidence: 0.9}, nil, map[string]string{domain.SlotApplication: "firefox"}, ts)
	l.Append(domain.CommandEvent("test", cmd))
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Close(), ErrClosed)
	l.Append(domain.Event{Kind: domain.EventReply})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	events, err := Read(f)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, domain.EventCommand, ev.Kind)
	assert.Equal(t, "test", ev.Source)
	assert.True(t, ts.Equal(ev.Time))
	assert.Equal(t, "open firefox", ev.Fields["original_text"])
	assert.Equal(t, map[string]any{"application": "firefox"}, ev.Fields["normalized"])
}
