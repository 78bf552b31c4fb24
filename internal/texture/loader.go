package texture

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/FreshLemonLeaf/3dafy/internal/logger"
)

// Result is delivered on the loader's channel when a decode settles.
// Texture is nil when the decode failed; Err then wraps ErrDecode.
type Result struct {
	Texture *Texture
	Err     error
}

// Loader decodes image uploads off the caller's goroutine. One resource is
// active at a time: each Load supersedes the previous upload, and a decode
// result that is no longer the newest is discarded on arrival, so an older
// upload can never overwrite a newer one.
type Loader struct {
	mu      sync.Mutex
	gen     uint64
	current *Texture
	done    chan struct{}      // non-nil while a decode is in flight
	cancel  context.CancelFunc // cancels the in-flight decode
	results chan Result
}

// NewLoader creates a loader. Consumers drain Results to react to
// completed decodes; Texture is always the authoritative state.
func NewLoader() *Loader {
	return &Loader{
		results: make(chan Result, 8),
	}
}

// Load starts decoding data asynchronously. The previously loaded resource
// is released immediately; the new one becomes visible once the decode
// completes and is still the newest upload.
func (l *Loader) Load(data []byte) {
	ctx, cancel := context.WithCancel(context.Background())

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.current = nil
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	go l.decode(ctx, gen, data, done)
}

func (l *Loader) decode(ctx context.Context, gen uint64, data []byte, done chan struct{}) {
	defer close(done)

	res, err := Decode(data)
	if ctx.Err() != nil {
		logger.Debug("decode aborted", zap.Uint64("generation", gen))
		l.settle(done)
		return
	}

	l.mu.Lock()
	if l.done == done {
		l.done = nil
		l.cancel = nil
	}
	if gen != l.gen {
		l.mu.Unlock()
		logger.Debug("stale decode result discarded", zap.Uint64("generation", gen))
		return
	}

	var result Result
	if err != nil {
		l.current = nil
		result = Result{Err: err}
	} else {
		l.current = &Texture{Resource: res, Filter: FilterLinear}
		result = Result{Texture: l.current}
	}
	l.mu.Unlock()

	if err != nil {
		logger.Warn("image decode failed", zap.Error(err))
	} else {
		logger.Info("image decoded",
			zap.Int("width", res.Width),
			zap.Int("height", res.Height),
			zap.String("mime", res.MIME))
	}

	l.deliver(result)
}

// settle clears the in-flight marker for an aborted decode without
// touching the current resource.
func (l *Loader) settle(done chan struct{}) {
	l.mu.Lock()
	if l.done == done {
		l.done = nil
		l.cancel = nil
	}
	l.mu.Unlock()
}

// deliver pushes a result without ever blocking the decode goroutine.
// If the channel is full the oldest entry is dropped so the newest
// result stays visible.
func (l *Loader) deliver(result Result) {
	for {
		select {
		case l.results <- result:
			return
		default:
		}
		select {
		case <-l.results:
		default:
		}
	}
}

// Cancel aborts any in-flight decode and releases the current resource.
func (l *Loader) Cancel() {
	l.mu.Lock()
	l.gen++
	l.current = nil
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()
}

// Wait blocks until no decode is in flight or the context is done.
func (l *Loader) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		done := l.done
		l.mu.Unlock()

		if done == nil {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Texture returns the canonical texture for the current resource, or nil
// when no image is loaded.
func (l *Loader) Texture() *Texture {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Busy reports whether a decode is in flight.
func (l *Loader) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}

// Results delivers settled decodes to an event loop. Stale and cancelled
// decodes are never delivered.
func (l *Loader) Results() <-chan Result {
	return l.results
}
