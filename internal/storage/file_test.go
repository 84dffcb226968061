package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "logs", "log.jsonl")
	rec, err := NewFileRecorder(p)
	require.NoError(t, err)

	ev1 := Event{Timestamp: time.Unix(1, 0).UTC(), UserID: 1, UserMessage: "hi", AssistantResponse: "hello", Model: "m", TotalTokens: 12}
	ev2 := Event{Timestamp: time.Unix(2, 0).UTC(), UserID: 2, UserMessage: "foo", AssistantResponse: "bar"}
	require.NoError(t, rec.AppendInteraction(ev1))
	require.NoError(t, rec.AppendInteraction(ev2))

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ev1, events[0])
	assert.Equal(t, ev2, events[1])

	st, err := os.Stat(p)
	require.NoError(t, err)
	assert.NotZero(t, st.Size())
}

func TestFileRecorder_SkipsBadLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "log.jsonl")
	require.NoError(t, os.WriteFile(p, []byte("not json\n\n{\"user_id\":5}\n"), 0o644))

	rec, err := NewFileRecorder(p)
	require.NoError(t, err)
	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.EqualValues(t, 5, events[0].UserID)
}

func TestFileRecorder_ConcurrentAppends(t *testing.T) {
	rec, err := NewFileRecorder(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, rec.AppendInteraction(Event{UserID: id, UserMessage: "x"}))
		}(int64(i))
	}
	wg.Wait()

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	assert.Len(t, events, 20)
}
