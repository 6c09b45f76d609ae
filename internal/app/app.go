// Package app wires the store, catalog, autosave, session and tutor into
// one running instance shared by the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/studyshelf/internal/autosave"
	"github.com/lehigh-university-libraries/studyshelf/internal/blobs"
	"github.com/lehigh-university-libraries/studyshelf/internal/catalog"
	"github.com/lehigh-university-libraries/studyshelf/internal/config"
	"github.com/lehigh-university-libraries/studyshelf/internal/gemini"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/ollama"
	"github.com/lehigh-university-libraries/studyshelf/internal/openai"
	"github.com/lehigh-university-libraries/studyshelf/internal/providers"
	"github.com/lehigh-university-libraries/studyshelf/internal/session"
	"github.com/lehigh-university-libraries/studyshelf/internal/storage"
	"github.com/lehigh-university-libraries/studyshelf/internal/tutor"
)

// App is a running studyshelf instance.
type App struct {
	Config   config.Config
	Store    storage.Store
	State    *catalog.State
	Autosave *autosave.Coordinator
	Sessions *session.Tracker
	Uploader *catalog.Uploader
	Blobs    *blobs.Registry
	Tutor    *tutor.Service

	source     catalog.Source
	persistent bool
	loadErr    error

	mu      sync.Mutex
	notices []autosave.Notice
}

// Status is a point-in-time view of persistence.
type Status struct {
	Saving     bool             `json:"saving"`
	Phase      string           `json:"phase"`
	Persistent bool             `json:"persistent"`
	Source     string           `json:"source"`
	Papers     int              `json:"papers"`
	LoadError  string           `json:"loadError,omitempty"`
	Notice     *autosave.Notice `json:"notice,omitempty"`
}

// Open builds an App from cfg. A store that cannot be opened or read does
// not fail Open: the app runs on defaults with saving disabled.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, persistent: true}

	var marker *session.Marker
	if cfg.Ephemeral {
		a.Store = storage.NewMemory(cfg.QuotaBytes)
	} else {
		marker = session.NewMarker(cfg.DataDir)
		store, err := storage.OpenBolt(storage.DefaultPath(cfg.DataDir), storage.Options{MaxBytes: cfg.QuotaBytes})
		if err != nil {
			slog.Error("Storage unavailable, changes will not be saved", "err", err)
			a.Store = storage.NewMemory(cfg.QuotaBytes)
			a.persistent = false
			a.loadErr = err
		} else {
			a.Store = store
		}
	}

	snap, source, err := catalog.Load(ctx, a.Store, autosave.SnapshotKey)
	a.source = source
	if err != nil {
		slog.Error("Failed to load catalog, changes will not be saved", "err", err)
		a.persistent = false
		a.loadErr = err
	}

	a.State = catalog.NewState(snap)
	a.Autosave = autosave.New(a.Store, autosave.Config{
		Key:       autosave.SnapshotKey,
		Debounce:  cfg.Debounce,
		MinSaving: cfg.MinSaving,
		OnNotice:  a.recordNotice,
	})
	a.State.Subscribe(func(s models.Snapshot) { a.Autosave.Notify(s) })

	if a.persistent {
		a.Autosave.MarkLoaded()
		if source == catalog.FromSeed {
			a.Autosave.Notify(a.State.Snapshot())
		}
	}

	a.Sessions = session.NewTracker(marker)
	a.Uploader = catalog.NewUploader(a.State)
	a.Blobs = blobs.New(cfg.PreviewTTL)
	a.Tutor = tutor.New(NewProvider(cfg.Tutor), tutor.Config{
		Model:         cfg.Tutor.Model,
		Timeout:       cfg.Tutor.Timeout,
		RatePerMinute: cfg.Tutor.RatePerMinute,
		Burst:         cfg.Tutor.Burst,
	})

	slog.Debug("Opened studyshelf",
		"data_dir", cfg.DataDir,
		"ephemeral", cfg.Ephemeral,
		"persistent", a.persistent,
		"papers", len(snap.Papers),
	)
	return a, nil
}

// NewProvider returns the tutor provider named in cfg, or nil for "none".
func NewProvider(cfg config.Tutor) providers.Provider {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey)
	case "ollama":
		return ollama.New(cfg.OllamaURL)
	case "none":
		return nil
	default:
		return gemini.New(cfg.GeminiAPIKey)
	}
}

// Persistent reports whether changes are being saved.
func (a *App) Persistent() bool {
	return a.persistent
}

// Source reports where the catalog was loaded from.
func (a *App) Source() catalog.Source {
	return a.source
}

// Notices drains the write outcomes recorded since the last call.
func (a *App) Notices() []autosave.Notice {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.notices
	a.notices = nil
	return out
}

func (a *App) recordNotice(n autosave.Notice) {
	if n.Kind == autosave.Saved {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notices = append(a.notices, n)
}

// Status reports the saving indicator and the latest write outcome.
func (a *App) Status() Status {
	s := Status{
		Saving:     a.Autosave.Saving(),
		Phase:      a.Autosave.Phase().String(),
		Persistent: a.persistent,
		Source:     sourceName(a.source),
		Papers:     len(a.State.Papers()),
	}
	if a.loadErr != nil {
		s.LoadError = a.loadErr.Error()
	}
	if n, ok := a.Autosave.LastNotice(); ok {
		s.Notice = &n
	}
	return s
}

// Flush writes any pending change now.
func (a *App) Flush(ctx context.Context) error {
	if !a.persistent {
		return nil
	}
	return a.Autosave.Flush(ctx)
}

// Close flushes pending changes and releases the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Autosave.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop autosave: %w", err))
	}
	if n, ok := a.Autosave.LastNotice(); ok && n.Kind != autosave.Saved {
		errs = append(errs, fmt.Errorf("last save failed: %w", n.Err))
	}
	a.Blobs.Close()
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}

func sourceName(s catalog.Source) string {
	switch s {
	case catalog.FromStore:
		return "store"
	case catalog.FromSeed:
		return "seed"
	case catalog.FromFallback:
		return "fallback"
	}
	return "unknown"
}
