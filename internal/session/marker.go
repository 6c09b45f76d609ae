package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
)

// MarkerFile is the file name of the session marker inside the data directory.
const MarkerFile = "class9_user.json"

// Marker mirrors the logged in user into a small JSON file so the next run
// can restore the session without logging in again.
type Marker struct {
	path string
}

func NewMarker(dataDir string) *Marker {
	return &Marker{path: filepath.Join(dataDir, MarkerFile)}
}

// Load returns the mirrored user. A missing or unreadable marker means no
// session; the latter is logged.
func (m *Marker) Load() (models.User, bool) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.User{}, false
	}
	if err != nil {
		slog.Warn("Unable to read session marker", "path", m.path, "err", err)
		return models.User{}, false
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil || user.Email == "" {
		slog.Warn("Ignoring invalid session marker", "path", m.path, "err", err)
		return models.User{}, false
	}
	// Recompute rather than trusting the file.
	user.IsAdmin = !user.Guest && IsAdmin(user.Email)
	return user, true
}

func (m *Marker) Save(user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session marker: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session marker: %w", err)
	}
	return nil
}

func (m *Marker) Clear() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session marker: %w", err)
	}
	return nil
}
