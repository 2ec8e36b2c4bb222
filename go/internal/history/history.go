// Package history keeps the device-local archive of finished games. The
// archive is a single JSON file, newest first, capped so it never grows past
// the last fifty games.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lobascore/lobascore/go/internal/models"
)

// MaxEntries caps the archive size; recording past the cap drops the oldest.
const MaxEntries = 50

// Archive is a file-backed game history. Safe for concurrent use within one
// process; the file is rewritten whole on every record.
type Archive struct {
	path string
	mu   sync.Mutex
}

// NewArchive stores the history at path.
func NewArchive(path string) *Archive {
	return &Archive{path: path}
}

// DefaultPath places the archive under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "lobascore", "history.json"), nil
}

// Record prepends a finished-game summary. Recording the same session twice
// is a no-op, so whichever client observes game over first wins and the rest
// stay idempotent.
func (a *Archive) Record(summary models.GameSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := a.load()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.SessionID == summary.SessionID {
			log.Debug().
				Str("session_id", summary.SessionID.String()).
				Msg("game already archived")
			return nil
		}
	}

	entries = append([]models.GameSummary{summary}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	if err := a.save(entries); err != nil {
		return err
	}

	log.Info().
		Str("session_id", summary.SessionID.String()).
		Str("winner", summary.WinnerName).
		Int("archived", len(entries)).
		Msg("game archived")
	return nil
}

// List returns the archived games, newest first. A missing file is an empty
// history.
func (a *Archive) List() ([]models.GameSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load()
}

// Contains reports whether a session is already archived.
func (a *Archive) Contains(sessionID uuid.UUID) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := a.load()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// Clear removes the archive file.
func (a *Archive) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (a *Archive) load() ([]models.GameSummary, error) {
	raw, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []models.GameSummary
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A corrupt archive is not worth failing a finished game over.
		log.Warn().Err(err).Str("path", a.path).Msg("discarding unreadable history")
		return nil, nil
	}
	return entries, nil
}

func (a *Archive) save(entries []models.GameSummary) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
