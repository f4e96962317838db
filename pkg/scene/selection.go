package scene

// Selection is an insertion-ordered set of primitive IDs. The zero value
// is an empty selection ready to use.
type Selection struct {
	ids []ID
	set map[ID]struct{}
}

// NewSelection creates a selection holding ids in order.
func NewSelection(ids ...ID) *Selection {
	s := &Selection{}
	s.Add(ids...)
	return s
}

// Add appends ids not already present. It reports whether anything changed.
func (s *Selection) Add(ids ...ID) bool {
	if s.set == nil {
		s.set = make(map[ID]struct{})
	}
	changed := false
	for _, id := range ids {
		if _, ok := s.set[id]; ok {
			continue
		}
		s.set[id] = struct{}{}
		s.ids = append(s.ids, id)
		changed = true
	}
	return changed
}

// Remove drops ids. It reports whether anything changed.
func (s *Selection) Remove(ids ...ID) bool {
	changed := false
	for _, id := range ids {
		if _, ok := s.set[id]; !ok {
			continue
		}
		delete(s.set, id)
		changed = true
	}
	if changed {
		kept := s.ids[:0]
		for _, id := range s.ids {
			if _, ok := s.set[id]; ok {
				kept = append(kept, id)
			}
		}
		s.ids = kept
	}
	return changed
}

// Union adds every member of other. It reports whether anything changed.
func (s *Selection) Union(other *Selection) bool {
	if other == nil {
		return false
	}
	return s.Add(other.ids...)
}

// Contains reports membership.
func (s *Selection) Contains(id ID) bool {
	_, ok := s.set[id]
	return ok
}

// IDs returns a copy of the members in insertion order.
func (s *Selection) IDs() []ID {
	out := make([]ID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of members.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Clear empties the selection. It reports whether anything changed.
func (s *Selection) Clear() bool {
	if len(s.ids) == 0 {
		return false
	}
	s.ids = nil
	s.set = nil
	return true
}

// Clone returns an independent copy.
func (s *Selection) Clone() *Selection {
	return NewSelection(s.ids...)
}
