package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/molprint/pkg/geom"
)

var (
	// ErrNotFound is returned when a name or ID no longer resolves.
	ErrNotFound = errors.New("primitive not found")
	// ErrDuplicateName is returned when adding a primitive whose name is
	// already taken.
	ErrDuplicateName = errors.New("duplicate primitive name")
)

// Scene owns the primitives of one model and the name → ID table used to
// rehydrate persisted, name-keyed records.
type Scene struct {
	prims  map[ID]*Primitive
	names  map[string]ID
	nextID ID
	// version increases on every topology change (add, remove). Derived
	// indexes record the version they were built at.
	version uint64
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		prims:  make(map[ID]*Primitive),
		names:  make(map[string]ID),
		nextID: 1,
	}
}

// Add registers p, assigning its ID. Unnamed primitives get a generated
// name of the form "<kind>.<id>".
func (s *Scene) Add(p *Primitive) (ID, error) {
	if p == nil || p.Shape == nil {
		return NoID, errors.New("scene: primitive without shape")
	}
	id := s.nextID
	if p.Name == "" {
		p.Name = fmt.Sprintf("%s.%03d", p.Kind(), id)
	}
	if _, taken := s.names[p.Name]; taken {
		return NoID, fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	s.nextID++
	p.ID = id
	s.prims[id] = p
	s.names[p.Name] = id
	s.version++
	return id, nil
}

// MustAdd is Add for fixtures; it panics on error.
func (s *Scene) MustAdd(p *Primitive) ID {
	id, err := s.Add(p)
	if err != nil {
		panic(err)
	}
	return id
}

// Remove deletes a primitive. It reports whether anything was removed.
func (s *Scene) Remove(id ID) bool {
	p, ok := s.prims[id]
	if !ok {
		return false
	}
	delete(s.prims, id)
	delete(s.names, p.Name)
	s.version++
	return true
}

// Get returns the primitive with the given ID.
func (s *Scene) Get(id ID) (*Primitive, bool) {
	p, ok := s.prims[id]
	return p, ok
}

// Lookup returns the primitive with the given name.
func (s *Scene) Lookup(name string) (*Primitive, bool) {
	id, ok := s.names[name]
	if !ok {
		return nil, false
	}
	return s.prims[id], true
}

// Resolve maps a name to its ID, wrapping ErrNotFound on a miss.
func (s *Scene) Resolve(name string) (ID, error) {
	id, ok := s.names[name]
	if !ok {
		return NoID, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return id, nil
}

// Name returns the name of id, or "" if it no longer exists.
func (s *Scene) Name(id ID) string {
	if p, ok := s.prims[id]; ok {
		return p.Name
	}
	return ""
}

// Primitives returns every primitive ordered by ID.
func (s *Scene) Primitives() []*Primitive {
	out := make([]*Primitive, 0, len(s.prims))
	for _, p := range s.prims {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Spheres returns every sphere ordered by ID.
func (s *Scene) Spheres() []*Primitive {
	return s.filter(KindSphere)
}

// Cylinders returns every cylinder ordered by ID.
func (s *Scene) Cylinders() []*Primitive {
	return s.filter(KindCylinder)
}

func (s *Scene) filter(k Kind) []*Primitive {
	var out []*Primitive
	for _, p := range s.Primitives() {
		if p.Kind() == k {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of primitives.
func (s *Scene) Len() int {
	return len(s.prims)
}

// Version returns the topology version.
func (s *Scene) Version() uint64 {
	return s.version
}

// ResetGroups sets every primitive back to NoGroup.
func (s *Scene) ResetGroups() {
	for _, p := range s.prims {
		p.Group = NoGroup
	}
}

// ByRadius partitions prims into classes of equal radius (compared at three
// decimals), ordered by increasing radius. Order within a class is kept.
func ByRadius(prims []*Primitive) [][]*Primitive {
	sorted := make([]*Primitive, len(prims))
	copy(sorted, prims)
	sort.SliceStable(sorted, func(i, j int) bool {
		return geom.Round3(sorted[i].Radius()) < geom.Round3(sorted[j].Radius())
	})
	var out [][]*Primitive
	for i, p := range sorted {
		if i == 0 || geom.Round3(p.Radius()) != geom.Round3(sorted[i-1].Radius()) {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], p)
	}
	return out
}
