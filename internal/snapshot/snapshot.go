// Package snapshot persists retro state as JSON files for crash recovery.
//
// Every committed mutation is written to retro-<id>.json inside the data
// directory. On startup the store looks for the magic file current-retro.json;
// an operator restores a retro by renaming a backup to that name. Save
// failures are logged and swallowed, they never reach protocol handlers.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/spuklo/retromat/internal/domain"
)

const magicFile = "current-retro.json"

type Store struct {
	dir   string
	clock clockwork.Clock
}

func NewStore(dir string, clock clockwork.Clock) *Store {
	return &Store{dir: dir, clock: clock}
}

// Filename returns the backup file name for a retro, derived from its id.
func Filename(retro domain.Retro) string {
	return fmt.Sprintf("retro-%d.json", retro.ID)
}

// Save writes the retro to its backup file. Best effort: the error is
// returned for logging but callers treat it as non-fatal.
func (s *Store) Save(retro domain.Retro) error {
	data, err := json.MarshalIndent(retro, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal retro %d: %w", retro.ID, err)
	}
	path := filepath.Join(s.dir, Filename(retro))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadOrCreate returns the retro from the magic file if one exists and is
// well-formed, otherwise a fresh empty retro. Either way the result is saved
// immediately so a backup file exists from the first moment.
func (s *Store) LoadOrCreate() domain.Retro {
	retro, err := s.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Error("Failed to read snapshot, starting fresh", "file", magicFile, "error", err)
		}
		retro = domain.NewRetro(s.clock)
	} else {
		slog.Info("Loaded retro from snapshot", "file", magicFile, "retro_id", retro.ID)
	}

	if err := s.Save(retro); err != nil {
		slog.Error("Failed to save snapshot", "retro_id", retro.ID, "error", err)
	}
	return retro
}

func (s *Store) load() (domain.Retro, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, magicFile))
	if err != nil {
		return domain.Retro{}, err
	}
	var retro domain.Retro
	if err := json.Unmarshal(data, &retro); err != nil {
		return domain.Retro{}, fmt.Errorf("parse %s: %w", magicFile, err)
	}
	return retro, nil
}
