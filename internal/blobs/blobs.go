// Package blobs holds decoded attachments behind short-lived, revocable
// handles so they can be previewed without re-decoding on every request.
package blobs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
	"github.com/maruel/ksid"
)

// DefaultTTL is how long a handle stays valid when nobody revokes it.
const DefaultTTL = 10 * time.Minute

var (
	// ErrViewerUnavailable means the payload could not be turned into a handle.
	ErrViewerUnavailable = errors.New("could not open viewer")
	// ErrNotFound means the handle was revoked, expired or never existed.
	ErrNotFound = errors.New("blob handle not found")
)

// Handle identifies a registered payload.
type Handle struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	MIMEType  string    `json:"mime_type"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

type entry struct {
	att     codec.Attachment
	expires time.Time
}

// Registry maps handle IDs to payloads.
type Registry struct {
	ttl     time.Duration
	entries map[string]entry
	mu      sync.RWMutex
	now     func() time.Time

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New creates a registry and starts its expiry janitor. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.janitor()
	return r
}

// Open decodes an embedded attachment and registers it.
func (r *Registry) Open(dataURI string) (Handle, error) {
	att, err := codec.Decode(dataURI)
	if err != nil {
		slog.Error("Unable to decode attachment for preview", "err", err)
		return Handle{}, fmt.Errorf("%w: %v", ErrViewerUnavailable, err)
	}
	return r.Register(att), nil
}

// Register stores an already decoded attachment.
func (r *Registry) Register(att codec.Attachment) Handle {
	id := ksid.NewID().String()
	expires := r.now().Add(r.ttl)

	r.mu.Lock()
	r.entries[id] = entry{att: att, expires: expires}
	r.mu.Unlock()

	return Handle{
		ID:        id,
		URL:       "/blob/" + id,
		MIMEType:  att.MIMEType,
		Size:      len(att.Data),
		ExpiresAt: expires,
	}
}

// Get returns the payload of a live handle.
func (r *Registry) Get(id string) (codec.Attachment, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok || !r.now().Before(e.expires) {
		return codec.Attachment{}, ErrNotFound
	}
	return e.att, nil
}

// Revoke releases a handle. Revoking an unknown handle is a no-op.
func (r *Registry) Revoke(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Len reports the number of registered handles, expired or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close stops the janitor and drops every handle.
func (r *Registry) Close() {
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
		r.mu.Lock()
		r.entries = make(map[string]entry)
		r.mu.Unlock()
	})
}

func (r *Registry) janitor() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if !now.Before(e.expires) {
			delete(r.entries, id)
		}
	}
}
