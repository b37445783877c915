package overlay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type chanSource struct {
	ch chan string
}

func (s *chanSource) Watch(ctx context.Context) <-chan string {
	return s.ch
}

type runRecorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *runRecorder) record(ctx context.Context, location string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, location)
}

func (r *runRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func TestWatcher_Debounce(t *testing.T) {
	source := &chanSource{ch: make(chan string)}
	watcher := NewWatcher(source, 50*time.Millisecond, logrus.New())
	recorder := &runRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx, recorder.record) }()

	source.ch <- "https://shop.example.com/p/1"
	source.ch <- "https://shop.example.com/p/2"
	source.ch <- "https://shop.example.com/p/3"

	assert.Eventually(t, func() bool { return len(recorder.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"https://shop.example.com/p/3"}, recorder.snapshot())

	source.ch <- "https://shop.example.com/p/4"
	assert.Eventually(t, func() bool { return len(recorder.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://shop.example.com/p/4", recorder.snapshot()[1])

	close(source.ch)
	assert.NoError(t, <-done)
}

func TestWatcher_ContextCancelled(t *testing.T) {
	source := &chanSource{ch: make(chan string)}
	watcher := NewWatcher(source, time.Hour, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := watcher.Run(ctx, func(ctx context.Context, location string) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollingSource(t *testing.T) {
	var mu sync.Mutex
	locations := []string{"a", "a", "b", "b", "c"}
	next := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		loc := locations[0]
		if len(locations) > 1 {
			locations = locations[1:]
		}
		return loc, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := NewPollingSource(next, 2*time.Millisecond, logrus.New()).Watch(ctx)

	var got []string
	for len(got) < 2 {
		select {
		case loc := <-changes:
			got = append(got, loc)
		case <-time.After(time.Second):
			t.Fatal("no change emitted")
		}
	}
	assert.Equal(t, []string{"b", "c"}, got)

	cancel()
	for range changes {
	}
}
