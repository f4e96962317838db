package session

import (
	"github.com/chazu/molprint/pkg/grouping"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/scene"
)

// Select adds the named primitives to the selection.
func (s *Session) Select(names ...string) error {
	if s.Selection.Add(s.resolve("select", names)...) {
		return s.selectionChanged()
	}
	return nil
}

// Deselect removes the named primitives from the selection.
func (s *Session) Deselect(names ...string) error {
	if s.Selection.Remove(s.resolve("select", names)...) {
		return s.selectionChanged()
	}
	return nil
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() error {
	if s.Selection.Clear() {
		return s.selectionChanged()
	}
	return nil
}

// SetSelection replaces the selection with the named primitives, in order.
// The watcher uses it to mirror a selection file.
func (s *Session) SetSelection(names ...string) error {
	next := scene.NewSelection(s.resolve("select", names)...)
	if equalIDs(next.IDs(), s.Selection.IDs()) {
		return nil
	}
	s.Selection = next
	return s.selectionChanged()
}

// selectionChanged regroups when auto-grouping is on and interactions
// exist.
func (s *Session) selectionChanged() error {
	if !s.Config.Grouping.AutoGroup || s.Index == nil || s.Index.Len() == 0 {
		return nil
	}
	_, err := s.Regroup()
	return err
}

// Regroup partitions the scene from the pin-referenced primitives and the
// selection.
func (s *Session) Regroup() (*grouping.Result, error) {
	idx, err := s.index()
	if err != nil {
		return nil, err
	}
	pinned := make([]grouping.PinSource, len(s.Specs))
	for i, sp := range s.Specs {
		pinned[i] = sp
	}
	seeds := grouping.Seeds(s.Selection, pinned...)
	timer := logging.StartTimer(s.log, "grouped", logging.Stage("grouping"), logging.Int("seeds", len(seeds)))
	res := grouping.Compute(idx, s.Scene, seeds)
	for _, id := range res.MissingSeeds {
		s.softFail("grouping", "seed no longer in scene", logging.PrimitiveID(int(id)))
	}
	s.Groups = res
	s.metrics.Groups.Set(float64(len(res.Groups)))
	s.metrics.RecordStage("grouping", timer.End())
	if len(res.Unreached) > 0 {
		s.log.Debug("primitives not reached by any seed",
			logging.Stage("grouping"), logging.Count(len(res.Unreached)))
	}
	return res, nil
}

// pruneSelection drops ids that are no longer in the scene.
func (s *Session) pruneSelection() {
	var gone []scene.ID
	for _, id := range s.Selection.IDs() {
		if _, ok := s.Scene.Get(id); !ok {
			gone = append(gone, id)
		}
	}
	s.Selection.Remove(gone...)
}

func equalIDs(a, b []scene.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
