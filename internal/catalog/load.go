package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/storage"
)

// Source tells where a loaded snapshot came from.
type Source int

const (
	// FromStore means the snapshot was read from the store.
	FromStore Source = iota
	// FromSeed means the store had nothing and defaults were used.
	FromSeed
	// FromFallback means the stored value could not be used.
	FromFallback
)

// Load reads the snapshot stored under key. A missing key seeds the
// defaults. A stored snapshot without papers falls back to the default
// papers, and one without announcements to the default announcements.
//
// A read error returns the defaults together with the error; callers must
// not write the defaults back, or durable data could be overwritten.
func Load(ctx context.Context, store storage.Store, key string) (models.Snapshot, Source, error) {
	data, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("No saved catalog found, initializing with defaults")
		return DefaultSnapshot(), FromSeed, nil
	}
	if err != nil {
		return DefaultSnapshot(), FromFallback, fmt.Errorf("failed to load catalog: %w", err)
	}

	var stored struct {
		Papers        []models.Paper         `json:"papers"`
		Announcements *[]models.Announcement `json:"announcements"`
		Bookmarks     []string               `json:"bookmarks"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("Saved catalog is unreadable, using defaults", "err", err, "bytes", len(data))
		return DefaultSnapshot(), FromFallback, nil
	}

	snap := models.Snapshot{
		Papers:        stored.Papers,
		Announcements: DefaultAnnouncements(),
		Bookmarks:     stored.Bookmarks,
	}
	if len(snap.Papers) == 0 {
		snap.Papers = DefaultPapers()
	}
	if stored.Announcements != nil {
		snap.Announcements = *stored.Announcements
	}
	if snap.Bookmarks == nil {
		snap.Bookmarks = []string{}
	}
	normalize(&snap)

	slog.Debug("Loaded catalog", "papers", len(snap.Papers), "announcements", len(snap.Announcements), "bookmarks", len(snap.Bookmarks))
	return snap, FromStore, nil
}
