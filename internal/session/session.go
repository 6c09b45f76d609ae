// Package session provides the local, email-based identity.
//
// This is NOT an authentication boundary. Anyone can type any email and
// nothing is verified; admin status only decides which controls are shown.
// Do not use it to protect anything.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
)

// AdminEmails is the compiled-in admin allowlist.
var AdminEmails = []string{
	"lalitrajputrana0@gmail.com",
	"suryathakur00732@gmail.com",
}

const (
	GuestEmail = "guest@app.com"
	GuestName  = "Guest"
)

var (
	ErrEmptyEmail  = errors.New("email is required")
	ErrNotLoggedIn = errors.New("not logged in")
)

// IsAdmin reports whether email is on the allowlist.
func IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range AdminEmails {
		if email == admin {
			return true
		}
	}
	return false
}

// Login builds the user for email.
func Login(email string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.User{}, ErrEmptyEmail
	}
	name, _, _ := strings.Cut(email, "@")
	return models.User{
		Email:   email,
		IsAdmin: IsAdmin(email),
		Name:    name,
	}, nil
}

// Guest returns the guest user. Guests are never admins.
func Guest() models.User {
	return models.User{
		Email: GuestEmail,
		Name:  GuestName,
		Guest: true,
	}
}

// Tracker holds the current user. Every login or logout bumps the
// generation so in-flight work can tell it belongs to an older session.
type Tracker struct {
	user       *models.User
	generation uint64
	marker     *Marker
	mu         sync.RWMutex
}

// NewTracker restores the user mirrored in marker, if any. marker may be nil.
func NewTracker(marker *Marker) *Tracker {
	t := &Tracker{marker: marker}
	if marker != nil {
		if user, ok := marker.Load(); ok {
			t.user = &user
		}
	}
	return t
}

// Current returns the logged in user and the session generation.
func (t *Tracker) Current() (models.User, uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.user == nil {
		return models.User{}, t.generation, ErrNotLoggedIn
	}
	return *t.user, t.generation, nil
}

// Generation returns the current session generation.
func (t *Tracker) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Login starts a session for email and mirrors it into the marker.
func (t *Tracker) Login(email string) (models.User, error) {
	user, err := Login(email)
	if err != nil {
		return models.User{}, err
	}
	t.set(&user)
	if t.marker != nil {
		if err := t.marker.Save(user); err != nil {
			return user, err
		}
	}
	return user, nil
}

// LoginGuest starts a guest session. Guest sessions are not persisted.
func (t *Tracker) LoginGuest() models.User {
	user := Guest()
	t.set(&user)
	if t.marker != nil {
		_ = t.marker.Clear()
	}
	return user
}

// Logout ends the session and clears the marker.
func (t *Tracker) Logout() error {
	t.set(nil)
	if t.marker != nil {
		return t.marker.Clear()
	}
	return nil
}

func (t *Tracker) set(user *models.User) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user = user
	t.generation++
}
