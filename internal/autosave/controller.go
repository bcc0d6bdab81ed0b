// Package autosave debounces edits to a document and persists the complete
// snapshot once the author pauses.
//
// A Controller walks idle -> pending -> saving -> saved|error -> idle. Every
// edit during pending restarts the quiet period. At most one save is in
// flight per document; a save requested meanwhile runs after it completes.
// Failed saves are reported and never retried on their own.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultDelay is the quiet period after the last edit before saving.
	DefaultDelay = 2 * time.Second
	// DefaultDisplayWindow is how long saved or error stays visible.
	DefaultDisplayWindow = 2 * time.Second
	// DefaultSaveTimeout bounds a single save call.
	DefaultSaveTimeout = 30 * time.Second
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("autosave: controller closed")

// Saver persists the full snapshot of a document.
type Saver interface {
	Save(ctx context.Context, docID string, fields Fields) error
}

// SaverFunc adapts a function into a Saver.
type SaverFunc func(ctx context.Context, docID string, fields Fields) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, docID string, fields Fields) error {
	return f(ctx, docID, fields)
}

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	Delay         time.Duration
	DisplayWindow time.Duration
	SaveTimeout   time.Duration
	Clock         Clock
	// OnStatus observes every status transition in order. It is called
	// without the controller lock held but must not edit or save.
	OnStatus func(Status)
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	if o.DisplayWindow <= 0 {
		o.DisplayWindow = DefaultDisplayWindow
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = DefaultSaveTimeout
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Controller tracks one document's unsaved edits.
type Controller struct {
	docID string
	saver Saver
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	current    Fields
	lastSaved  Fields
	status     Status
	err        error
	debounce   Timer
	debounceID uint64
	display    Timer
	displayID  uint64
	inFlight   bool
	queued     bool
	done       chan struct{}
	closed     bool
	notify     []Status
	notifyMu   sync.Mutex
}

// New returns a Controller for docID whose persisted state is initial.
func New(ctx context.Context, docID string, initial Fields, saver Saver, opts Options) *Controller {
	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		docID:     docID,
		saver:     saver,
		opts:      opts.withDefaults(),
		ctx:       ctx,
		cancel:    cancel,
		current:   initial.Clone(),
		lastSaved: initial.Clone(),
		status:    StatusIdle,
	}
}

// Set changes one field.
func (c *Controller) Set(field, value string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.current[field] = value
	c.editedLocked()
	c.unlockAndNotify()
}

// Replace swaps in a whole new set of fields.
func (c *Controller) Replace(fields Fields) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.current = fields.Clone()
	c.editedLocked()
	c.unlockAndNotify()
}

// Save persists the current snapshot now. It does nothing when there are no
// unsaved changes; while a save is in flight the request is queued.
func (c *Controller) Save() {
	c.mu.Lock()
	if !c.closed {
		c.requestSaveLocked()
	}
	c.unlockAndNotify()
}

// Flush saves pending changes and waits until no save is in flight or
// queued. It returns the outcome of the last save.
func (c *Controller) Flush(ctx context.Context) error {
	c.Save()
	for {
		c.mu.Lock()
		if !c.inFlight && !c.queued {
			err := c.err
			closed := c.closed
			c.mu.Unlock()
			if closed && err == nil && c.dirty() {
				return ErrClosed
			}
			return err
		}
		done := c.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the timers and waits for an in-flight save to finish. Unsaved
// edits are dropped; call Flush first to keep them.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.queued = false
	c.stopDebounceLocked()
	c.stopDisplayLocked()
	c.mu.Unlock()

	c.wg.Wait()
	c.cancel()
}

// Status reports the current saving status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the error of the most recent failed save, cleared by the next
// successful one.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Dirty reports whether the document differs from the last saved snapshot.
func (c *Controller) Dirty() bool {
	return c.dirty()
}

// Fields returns a copy of the current document.
func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// LastSaved returns a copy of the last successfully saved snapshot.
func (c *Controller) LastSaved() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved.Clone()
}

func (c *Controller) dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirtyLocked()
}

func (c *Controller) dirtyLocked() bool {
	return !c.current.Equal(c.lastSaved)
}

func (c *Controller) editedLocked() {
	if !c.dirtyLocked() {
		c.stopDebounceLocked()
		if c.status == StatusPending {
			c.setStatusLocked(StatusIdle)
		}
		return
	}
	c.stopDisplayLocked()
	c.armDebounceLocked()
	if !c.inFlight {
		c.setStatusLocked(StatusPending)
	}
}

func (c *Controller) armDebounceLocked() {
	c.stopDebounceLocked()
	id := c.debounceID
	c.debounce = c.opts.Clock.AfterFunc(c.opts.Delay, func() {
		c.mu.Lock()
		if c.closed || id != c.debounceID {
			c.mu.Unlock()
			return
		}
		c.debounce = nil
		c.requestSaveLocked()
		c.unlockAndNotify()
	})
}

func (c *Controller) stopDebounceLocked() {
	c.debounceID++
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

func (c *Controller) armDisplayLocked() {
	c.stopDisplayLocked()
	id := c.displayID
	c.display = c.opts.Clock.AfterFunc(c.opts.DisplayWindow, func() {
		c.mu.Lock()
		if c.closed || id != c.displayID {
			c.mu.Unlock()
			return
		}
		c.display = nil
		if c.status == StatusSaved || c.status == StatusError {
			c.setStatusLocked(StatusIdle)
		}
		c.unlockAndNotify()
	})
}

func (c *Controller) stopDisplayLocked() {
	c.displayID++
	if c.display != nil {
		c.display.Stop()
		c.display = nil
	}
}

func (c *Controller) requestSaveLocked() {
	if c.inFlight {
		c.queued = true
		return
	}
	if !c.dirtyLocked() {
		return
	}
	c.stopDebounceLocked()
	c.stopDisplayLocked()

	snapshot := c.current.Clone()
	done := make(chan struct{})
	c.inFlight = true
	c.done = done
	c.setStatusLocked(StatusSaving)

	c.wg.Add(1)
	go c.run(snapshot, done)
}

func (c *Controller) run(snapshot Fields, done chan struct{}) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.SaveTimeout)
	err := c.saver.Save(ctx, c.docID, snapshot)
	cancel()

	c.mu.Lock()
	c.inFlight = false
	c.done = nil
	close(done)

	if err != nil {
		c.err = err
		c.opts.Logger.Warn("autosave failed", slog.String("doc_id", c.docID), slog.Any("error", err))
		c.setStatusLocked(StatusError)
		c.armDisplayLocked()
	} else {
		c.err = nil
		c.lastSaved = snapshot
		if c.dirtyLocked() {
			// edits arrived while saving; their own timer or queued save follows
			c.setStatusLocked(StatusPending)
			if c.debounce == nil && !c.queued && !c.closed {
				// the edits reverted to the pre-save text, which cancelled the timer
				c.armDebounceLocked()
			}
		} else {
			c.stopDebounceLocked()
			c.setStatusLocked(StatusSaved)
			c.armDisplayLocked()
		}
	}

	if c.queued && !c.closed {
		c.queued = false
		c.requestSaveLocked()
	}
	c.unlockAndNotify()
}

func (c *Controller) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	if c.opts.OnStatus != nil {
		c.notify = append(c.notify, s)
	}
}

func (c *Controller) unlockAndNotify() {
	if c.opts.OnStatus == nil {
		c.mu.Unlock()
		return
	}
	pending := c.notify
	c.notify = nil
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, s := range pending {
		c.opts.OnStatus(s)
	}
}
