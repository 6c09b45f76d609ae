// Package catalog owns the in-memory study catalog: papers, announcements
// and bookmarks. State is the only place that mutates them.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lehigh-university-libraries/studyshelf/internal/codec"
	"github.com/lehigh-university-libraries/studyshelf/internal/models"
)

var (
	ErrPaperNotFound = errors.New("paper not found")
	ErrDuplicateID   = errors.New("paper id already exists")
)

// Listener observes every committed snapshot. Listeners run while the
// state lock is held, in commit order, and must not call back into State.
type Listener func(models.Snapshot)

// State is the single mutation gate over the session's catalog.
type State struct {
	snap      models.Snapshot
	listeners []Listener
	mu        sync.RWMutex
}

// NewState wraps snap, dropping any bookmark that references a missing paper.
func NewState(snap models.Snapshot) *State {
	snap = snap.Clone()
	normalize(&snap)
	return &State{snap: snap}
}

// Subscribe registers l for every future update.
func (s *State) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Update applies fn to a copy of the state. If fn fails nothing changes;
// otherwise invariants are restored, the copy is committed and listeners
// are notified.
func (s *State) Update(fn func(*models.Snapshot) error) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.snap.Clone()
	if err := fn(&work); err != nil {
		return s.snap.Clone(), err
	}
	normalize(&work)
	s.snap = work

	for _, l := range s.listeners {
		l(work.Clone())
	}
	return work.Clone(), nil
}

func (s *State) Papers() []models.Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Paper(nil), s.snap.Papers...)
}

func (s *State) Announcements() []models.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Announcement(nil), s.snap.Announcements...)
}

func (s *State) Bookmarks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.Bookmarks...)
}

// Paper looks a paper up by id.
func (s *State) Paper(id string) (models.Paper, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.snap.Papers, id)
	if i < 0 {
		return models.Paper{}, false
	}
	return s.snap.Papers[i], true
}

// IsBookmarked reports whether id is in the bookmark set.
func (s *State) IsBookmarked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.snap.Bookmarks {
		if b == id {
			return true
		}
	}
	return false
}

// AddPaper prepends p and, when a is non-empty, the derived announcement.
func (s *State) AddPaper(p models.Paper, a *models.Announcement) error {
	_, err := s.Update(func(snap *models.Snapshot) error {
		if indexOf(snap.Papers, p.ID) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		snap.Papers = append([]models.Paper{p}, snap.Papers...)
		if a != nil {
			snap.Announcements = append([]models.Announcement{*a}, snap.Announcements...)
		}
		return nil
	})
	return err
}

// ImportPapers prepends every paper whose id is not already present and
// reports how many were added. An oversize or malformed embedded
// attachment rejects the whole batch.
func (s *State) ImportPapers(papers []models.Paper) (int, error) {
	for _, p := range papers {
		if err := codec.Check(p.PDFURL); err != nil {
			return 0, fmt.Errorf("paper %s: %w", p.ID, err)
		}
	}

	added := 0
	_, err := s.Update(func(snap *models.Snapshot) error {
		seen := make(map[string]struct{}, len(snap.Papers))
		for _, p := range snap.Papers {
			seen[p.ID] = struct{}{}
		}
		fresh := make([]models.Paper, 0, len(papers))
		for _, p := range papers {
			if _, dup := seen[p.ID]; dup || p.ID == "" {
				continue
			}
			seen[p.ID] = struct{}{}
			fresh = append(fresh, p)
		}
		added = len(fresh)
		snap.Papers = append(fresh, snap.Papers...)
		return nil
	})
	return added, err
}

// DeletePaper removes a paper and prunes it from the bookmarks in the same
// transition.
func (s *State) DeletePaper(id string) error {
	_, err := s.Update(func(snap *models.Snapshot) error {
		i := indexOf(snap.Papers, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrPaperNotFound, id)
		}
		snap.Papers = append(snap.Papers[:i], snap.Papers[i+1:]...)
		snap.Bookmarks = without(snap.Bookmarks, id)
		return nil
	})
	return err
}

// ToggleBookmark flips membership of id and returns the new membership.
func (s *State) ToggleBookmark(id string) (bool, error) {
	var bookmarked bool
	_, err := s.Update(func(snap *models.Snapshot) error {
		if indexOf(snap.Papers, id) < 0 {
			return fmt.Errorf("%w: %s", ErrPaperNotFound, id)
		}
		before := len(snap.Bookmarks)
		snap.Bookmarks = without(snap.Bookmarks, id)
		if len(snap.Bookmarks) == before {
			snap.Bookmarks = append(snap.Bookmarks, id)
			bookmarked = true
		}
		return nil
	})
	return bookmarked, err
}

// normalize keeps bookmarks unique and pointing at existing papers.
func normalize(snap *models.Snapshot) {
	if snap.Papers == nil {
		snap.Papers = []models.Paper{}
	}
	if snap.Announcements == nil {
		snap.Announcements = []models.Announcement{}
	}

	exists := make(map[string]struct{}, len(snap.Papers))
	for _, p := range snap.Papers {
		exists[p.ID] = struct{}{}
	}
	kept := make([]string, 0, len(snap.Bookmarks))
	seen := make(map[string]struct{}, len(snap.Bookmarks))
	for _, id := range snap.Bookmarks {
		if _, ok := exists[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, id)
	}
	snap.Bookmarks = kept
}

func indexOf(papers []models.Paper, id string) int {
	for i, p := range papers {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
