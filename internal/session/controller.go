// Package session drives one remote refresh session: it obtains a session id,
// follows the session's event stream, folds each event with progress.Apply and
// carries out the resulting intents.
//
// A Controller is single-use. Its reader goroutine is the only mutator of the
// session's progress model; callbacks receive cloned snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"osreport/internal/api"
	"osreport/internal/progress"
)

// Stream is an ordered source of raw event payloads.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// Transport starts sessions and opens their event streams.
type Transport interface {
	StartRefresh(ctx context.Context) (string, error)
	OpenStream(ctx context.Context, sessionID string) (Stream, error)
}

// APITransport adapts an api.Client to Transport.
type APITransport struct {
	Client *api.Client
}

func (t APITransport) StartRefresh(ctx context.Context) (string, error) {
	return t.Client.StartRefresh(ctx)
}

func (t APITransport) OpenStream(ctx context.Context, sessionID string) (Stream, error) {
	return t.Client.StreamProgress(ctx, sessionID)
}

// Observer sees every applied event and the end of the session.
type Observer interface {
	ObserveEvent(sessionID string, ev progress.Event)
	ObserveEnd(sessionID string, final progress.Model, err error)
}

// Options configures a Controller. Only Transport is required.
type Options struct {
	Transport Transport
	Logger    *slog.Logger

	// OnUpdate receives a snapshot after every applied event.
	OnUpdate func(progress.Model)
	// OnReload fires once the reload delay after a completed session.
	OnReload func()
	// OnDone fires once when the session ends on its own: nil after a
	// terminal event, ErrStreamInterrupted when the stream ends early.
	OnDone func(progress.Model, error)

	Observer Observer
	// ReloadDelay overrides the delay carried by the reload intent when > 0.
	ReloadDelay time.Duration
}

// Controller runs one refresh session.
type Controller struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	started   bool
	cancelled bool
	id        string
	model     progress.Model
	stream    Stream
	cancelCtx context.CancelFunc
	reload    *time.Timer

	closeOnce sync.Once
	doneOnce  sync.Once
	finished  chan struct{}

	// obsMu serializes observer calls. Nothing reaches the observer after
	// ObserveEnd.
	obsMu   sync.Mutex
	obsDone bool
}

// New creates an idle controller.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		opts:     opts,
		logger:   logger,
		model:    progress.NewModel(""),
		finished: make(chan struct{}),
	}
}

// Start requests a session id, opens its stream and starts the reader.
// It returns once the stream is open; events are processed in the background.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	if c.cancelled {
		c.mu.Unlock()
		close(c.finished)
		return ErrCancelled
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancelCtx = cancel
	c.mu.Unlock()

	id, err := c.opts.Transport.StartRefresh(ctx)
	if err != nil {
		cancel()
		close(c.finished)
		if c.isCancelled() {
			return ErrCancelled
		}
		return fmt.Errorf("start refresh: %w", err)
	}

	stream, err := c.opts.Transport.OpenStream(ctx, id)
	if err != nil {
		cancel()
		close(c.finished)
		if c.isCancelled() {
			return ErrCancelled
		}
		return fmt.Errorf("open progress stream %s: %w", id, err)
	}

	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		_ = stream.Close()
		cancel()
		close(c.finished)
		return ErrCancelled
	}
	c.id = id
	c.stream = stream
	c.model = progress.NewModel(id)
	snapshot := c.model.Clone()
	c.mu.Unlock()

	c.logger.Info("refresh session started", "session_id", id)
	c.publish(snapshot)

	go c.read(stream)
	return nil
}

// Cancel closes the stream immediately and discards the session. No terminal
// event is synthesized and no callback fires afterwards, except that the
// observer of a running session sees ObserveEnd with ErrCancelled. A reload
// already scheduled by a completed session still runs.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	id := c.id
	cancel := c.cancelCtx
	c.mu.Unlock()

	c.closeStream()
	if cancel != nil {
		cancel()
	}
	if id != "" {
		c.doneOnce.Do(func() {
			c.observeEnd(id, c.Model(), ErrCancelled)
		})
	}
	c.logger.Info("refresh session cancelled", "session_id", id)
}

// ID returns the server-issued session id, empty before Start succeeds.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Model returns a snapshot of the current progress model.
func (c *Controller) Model() progress.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Clone()
}

// Wait blocks until the reader goroutine exits or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) read(stream Stream) {
	defer close(c.finished)

	for {
		data, err := stream.Next()
		if err != nil {
			if c.isCancelled() {
				return
			}
			c.closeStream()
			c.logger.Warn("progress stream ended early", "session_id", c.ID(), "error", err)
			c.end(fmt.Errorf("%w: %w", ErrStreamInterrupted, err))
			return
		}

		ev, err := progress.DecodeEvent(data)
		if err != nil {
			c.logger.Warn("dropping malformed progress event", "session_id", c.ID(), "error", err)
			continue
		}

		c.mu.Lock()
		if c.cancelled {
			c.mu.Unlock()
			return
		}
		next, intents := progress.Apply(c.model, ev)
		c.model = next
		snapshot := next.Clone()
		c.mu.Unlock()

		c.observeEvent(snapshot.SessionID, ev)
		c.publish(snapshot)

		for _, in := range intents {
			c.carryOut(in)
		}
		if snapshot.Terminal {
			c.end(nil)
			return
		}
	}
}

func (c *Controller) carryOut(in progress.Intent) {
	switch in.Kind {
	case progress.IntentCloseStream:
		c.closeStream()
	case progress.IntentScheduleReload:
		delay := in.Delay
		if c.opts.ReloadDelay > 0 {
			delay = c.opts.ReloadDelay
		}
		c.mu.Lock()
		if c.opts.OnReload != nil && c.reload == nil {
			c.reload = time.AfterFunc(delay, c.opts.OnReload)
		}
		c.mu.Unlock()
	}
}

func (c *Controller) publish(m progress.Model) {
	if c.opts.OnUpdate == nil || c.isCancelled() {
		return
	}
	c.opts.OnUpdate(m)
}

func (c *Controller) end(err error) {
	c.doneOnce.Do(func() {
		final := c.Model()
		if err == nil && final.Failed {
			c.logger.Warn("refresh session failed", "session_id", final.SessionID, "message", final.Message)
		} else if err == nil {
			c.logger.Info("refresh session complete", "session_id", final.SessionID, "summary", final.Summary)
		}
		c.observeEnd(final.SessionID, final, err)
		if c.opts.OnDone != nil && !c.isCancelled() {
			c.opts.OnDone(final, err)
		}
	})
}

func (c *Controller) observeEvent(id string, ev progress.Event) {
	if c.opts.Observer == nil {
		return
	}
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	if c.obsDone || c.isCancelled() {
		return
	}
	c.opts.Observer.ObserveEvent(id, ev)
}

func (c *Controller) observeEnd(id string, final progress.Model, err error) {
	if c.opts.Observer == nil {
		return
	}
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	if c.obsDone {
		return
	}
	c.obsDone = true
	c.opts.Observer.ObserveEnd(id, final, err)
}

// closeStream closes the stream at most once. Before the stream is open it
// does nothing.
func (c *Controller) closeStream() {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return
	}
	c.closeOnce.Do(func() {
		if err := stream.Close(); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug("closing progress stream", "error", err)
		}
	})
}

func (c *Controller) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
