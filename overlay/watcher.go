package overlay

import (
	"context"
	"sync"
	"time"

	"product-detector/internal/types"
)

// NavigationSource reports location changes until ctx is done
type NavigationSource interface {
	Watch(ctx context.Context) <-chan string
}

// PollingSource polls a location function and emits when the value changes
type PollingSource struct {
	location func() (string, error)
	interval time.Duration
	logger   types.Logger
}

// NewPollingSource creates a polling source
func NewPollingSource(location func() (string, error), interval time.Duration, logger types.Logger) *PollingSource {
	return &PollingSource{
		location: location,
		interval: interval,
		logger:   logger,
	}
}

// Watch starts polling. The first observed location is the baseline and is
// not emitted. The channel closes when ctx is done.
func (s *PollingSource) Watch(ctx context.Context) <-chan string {
	changes := make(chan string)

	go func() {
		defer close(changes)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		last, err := s.location()
		if err != nil {
			s.logger.Debugf("Initial location unavailable: %v", err)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := s.location()
			if err != nil {
				s.logger.Debugf("Failed to read location: %v", err)
				continue
			}
			if current == last {
				continue
			}
			last = current

			select {
			case changes <- current:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes
}

// Watcher re-runs a callback after navigation settles
type Watcher struct {
	source   NavigationSource
	debounce time.Duration
	logger   types.Logger
}

// NewWatcher creates a watcher over source
func NewWatcher(source NavigationSource, debounce time.Duration, logger types.Logger) *Watcher {
	return &Watcher{
		source:   source,
		debounce: debounce,
		logger:   logger,
	}
}

// Run calls fn with the latest location once no further change has been seen
// for the debounce delay. Runs already in flight are left to finish. Run
// returns when ctx is done or the source closes, after in-flight runs end.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, location string)) error {
	changes := w.source.Watch(ctx)

	var (
		wg      sync.WaitGroup
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case location, ok := <-changes:
			if !ok {
				return nil
			}
			w.logger.Debugf("URL changed to %s, waiting %s", location, w.debounce)
			pending = location
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			location := pending
			w.logger.Infof("URL changed, re-running detector for %s", location)
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn(ctx, location)
			}()
		}
	}
}
