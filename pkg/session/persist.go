package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/persist"
)

// Save writes interactions.json (when an index exists) and pingroup.json
// into dir.
func (s *Session) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if s.Index != nil {
		path := filepath.Join(dir, persist.InteractionsFile)
		if err := persist.Save(path, persist.FromIndex(s.Name, s.Scene, s.Index)); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		s.log.Info("saved", logging.Path(path), logging.Int("pairs", s.Index.Len()))
	}
	path := filepath.Join(dir, persist.PinGroupFile)
	if err := persist.Save(path, persist.FromSpecs(s.Scene, s.Specs)); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.log.Info("saved", logging.Path(path), logging.Int("specs", len(s.Specs)))
	return nil
}

// Load rehydrates whichever of interactions.json and pingroup.json exist
// in dir. Names that no longer resolve are skipped as soft failures.
func (s *Session) Load(dir string) error {
	path := filepath.Join(dir, persist.InteractionsFile)
	doc, err := persist.LoadInteractions(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("load %s: %w", path, err)
	default:
		idx, skipped := doc.Index(s.Scene)
		for _, p := range skipped {
			s.softFail("persist", "interaction no longer resolves",
				logging.Name(p[0]), logging.String("cylinder", p[1]))
		}
		s.Index = idx
		s.Groups = nil
		s.log.Info("loaded", logging.Path(path), logging.Int("pairs", idx.Len()))
	}

	path = filepath.Join(dir, persist.PinGroupFile)
	pg, err := persist.LoadPinGroups(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("load %s: %w", path, err)
	default:
		specs, skipped := pg.Specs(s.Scene)
		for _, p := range skipped {
			s.softFail("persist", "pin pair no longer resolves",
				logging.Name(p[0]), logging.String("cylinder", p[1]))
		}
		s.Specs = specs
		s.log.Info("loaded", logging.Path(path), logging.Int("specs", len(specs)))
	}
	return s.selectionChanged()
}
