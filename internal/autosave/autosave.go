// Package autosave mirrors the in-memory catalog into a storage.Store.
//
// A Coordinator is a small state machine driven by one goroutine:
//
//	Idle -> Pending(deadline) -> Writing -> Idle
//
// Every Notify moves the deadline to now+Debounce, so only settled state is
// written. Writes run one at a time on the loop goroutine, so the last
// committed value is always the most recent settled snapshot.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/storage"
)

// SnapshotKey is the single key the catalog snapshot is stored under.
const SnapshotKey = "class9_app_data_v1"

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultMinSaving    = 800 * time.Millisecond
	DefaultWriteTimeout = 30 * time.Second
)

const (
	// QuotaMessage is shown when the store is out of space.
	QuotaMessage = "Storage full! The PDF you uploaded might be too large. Please delete some papers or upload smaller files."
	// FailureMessage is shown for every other failed save.
	FailureMessage = "Could not save your changes. They will be saved again with your next change."
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("autosave coordinator closed")

// Phase is the state of the coordinator.
type Phase int

const (
	Idle Phase = iota
	Pending
	Writing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Writing:
		return "writing"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// NoticeKind classifies the outcome of a write.
type NoticeKind int

const (
	Saved NoticeKind = iota
	QuotaExceeded
	Failed
)

func (k NoticeKind) String() string {
	switch k {
	case Saved:
		return "saved"
	case QuotaExceeded:
		return "quota_exceeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("NoticeKind(%d)", int(k))
}

func (k NoticeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Notice reports the outcome of a write to the user.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message,omitempty"`
	Err     error      `json:"-"`
	At      time.Time  `json:"at"`
}

// Config tunes a Coordinator. Zero values take the defaults above.
type Config struct {
	Key          string
	Debounce     time.Duration
	MinSaving    time.Duration
	WriteTimeout time.Duration

	// OnSaving observes every change of the saving indicator.
	OnSaving func(saving bool)
	// OnNotice observes the outcome of every write.
	OnNotice func(Notice)
}

// Coordinator debounces snapshots into the store.
type Coordinator struct {
	store storage.Store
	cfg   Config

	mu      sync.Mutex
	loaded  bool
	closed  bool
	latest  models.Snapshot
	version uint64
	written uint64
	phase   Phase
	saving  bool
	last    *Notice

	changed  chan struct{}
	flushReq chan chan error
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// New starts a coordinator writing into store.
func New(store storage.Store, cfg Config) *Coordinator {
	if cfg.Key == "" {
		cfg.Key = SnapshotKey
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MinSaving < 0 {
		cfg.MinSaving = 0
	} else if cfg.MinSaving == 0 {
		cfg.MinSaving = DefaultMinSaving
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	c := &Coordinator{
		store:    store,
		cfg:      cfg,
		changed:  make(chan struct{}, 1),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go c.run()
	return c
}

// MarkLoaded enables writes. Until it is called every Notify is dropped so
// startup defaults never overwrite durable data.
func (c *Coordinator) MarkLoaded() {
	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
}

// Notify records snap as the latest state and restarts the quiet period.
// It reports whether the snapshot was accepted.
func (c *Coordinator) Notify(snap models.Snapshot) bool {
	c.mu.Lock()
	if !c.loaded || c.closed {
		c.mu.Unlock()
		return false
	}
	c.latest = snap.Clone()
	c.version++
	c.mu.Unlock()

	select {
	case c.changed <- struct{}{}:
	default:
	}
	return true
}

// Flush writes any pending snapshot now and returns the write error.
func (c *Coordinator) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case c.flushReq <- reply:
	case <-c.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes any pending snapshot and stops the loop.
func (c *Coordinator) Close(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
	select {
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Saving reports whether the saving indicator is on.
func (c *Coordinator) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// Phase reports the current state of the machine.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LastNotice returns the outcome of the most recent write, if any.
func (c *Coordinator) LastNotice() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Notice{}, false
	}
	return *c.last, true
}

func (c *Coordinator) run() {
	defer close(c.stopped)

	debounce := time.NewTimer(c.cfg.Debounce)
	debounce.Stop()
	linger := time.NewTimer(c.cfg.MinSaving)
	linger.Stop()
	defer debounce.Stop()
	defer linger.Stop()

	for {
		select {
		case <-c.changed:
			// A flush may already have written this change.
			if c.hasPending() {
				debounce.Reset(c.cfg.Debounce)
				c.setPhase(Pending)
			}

		case <-debounce.C:
			c.writePending()
			linger.Reset(c.cfg.MinSaving)

		case <-linger.C:
			c.setSaving(false)

		case reply := <-c.flushReq:
			debounce.Stop()
			err := c.writePending()
			linger.Reset(c.cfg.MinSaving)
			reply <- err

		case <-c.done:
			debounce.Stop()
			if err := c.writePending(); err != nil {
				slog.Error("Final autosave failed", "err", err)
			}
			c.setSaving(false)
			return
		}
	}
}

// writePending writes the latest snapshot if it has not been attempted yet.
// A failed write is not retried; the next Notify schedules a fresh attempt.
func (c *Coordinator) writePending() error {
	c.mu.Lock()
	if c.version == c.written {
		c.phase = Idle
		c.mu.Unlock()
		return nil
	}
	snap := c.latest
	version := c.version
	c.phase = Writing
	c.mu.Unlock()

	c.setSaving(true)
	start := time.Now()
	err := c.write(snap)

	notice := Notice{Kind: Saved, At: time.Now(), Err: err}
	switch {
	case err == nil:
		slog.Debug("Saved catalog snapshot", "papers", len(snap.Papers), "took", time.Since(start))
	case storage.IsQuotaError(err):
		slog.Warn("Catalog snapshot does not fit in storage", "err", err)
		notice.Kind = QuotaExceeded
		notice.Message = QuotaMessage
	default:
		slog.Error("Failed to save catalog snapshot", "err", err)
		notice.Kind = Failed
		notice.Message = FailureMessage
	}

	c.mu.Lock()
	c.written = version
	c.last = &notice
	if c.version == c.written {
		c.phase = Idle
	} else {
		c.phase = Pending
	}
	c.mu.Unlock()

	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice(notice)
	}
	return err
}

func (c *Coordinator) write(snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()
	return c.store.Put(ctx, c.cfg.Key, data)
}

func (c *Coordinator) hasPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version != c.written
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Coordinator) setSaving(saving bool) {
	c.mu.Lock()
	changed := c.saving != saving
	c.saving = saving
	c.mu.Unlock()

	if changed && c.cfg.OnSaving != nil {
		c.cfg.OnSaving(saving)
	}
}
