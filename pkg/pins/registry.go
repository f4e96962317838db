package pins

import (
	"sort"

	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/metrics"
	"github.com/chazu/molprint/pkg/scene"
)

// Role says what a helper is for during assembly.
type Role int

const (
	RolePin     Role = iota // subtracted from the sphere's group as a socket
	RoleCone                // flare or taper, subtracted with the pin
	RoleCutCube             // keyway slot, subtracted from the cylinder's group
)

func (r Role) String() string {
	switch r {
	case RolePin:
		return "pin"
	case RoleCone:
		return "cone"
	case RoleCutCube:
		return "cutcube"
	default:
		return "unknown"
	}
}

// Helper is a generated solid that exists only until assembly finishes.
type Helper struct {
	ID    scene.HelperID
	Role  Role
	Owner scene.ID
	Solid kernel.Solid
}

// Registry owns every live helper. Lookups of ids that were already
// cleaned up are soft failures: logged, counted and skipped.
type Registry struct {
	helpers map[scene.HelperID]*Helper
	next    scene.HelperID
	log     logging.Logger
	metrics *metrics.Registry
}

// NewRegistry creates an empty registry. log and m may be nil.
func NewRegistry(log logging.Logger, m *metrics.Registry) *Registry {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Registry{
		helpers: make(map[scene.HelperID]*Helper),
		next:    1,
		log:     log,
		metrics: m,
	}
}

// Add registers a helper and returns it.
func (r *Registry) Add(role Role, owner scene.ID, s kernel.Solid) *Helper {
	h := &Helper{ID: r.next, Role: role, Owner: owner, Solid: s}
	r.next++
	r.helpers[h.ID] = h
	return h
}

// Get looks up one helper.
func (r *Registry) Get(id scene.HelperID) (*Helper, bool) {
	h, ok := r.helpers[id]
	return h, ok
}

// Has implements scene.HelperResolver.
func (r *Registry) Has(id scene.HelperID) bool {
	_, ok := r.helpers[id]
	return ok
}

// Resolve returns the helpers for ids in order, skipping ids that no longer
// exist.
func (r *Registry) Resolve(stage string, ids ...scene.HelperID) []*Helper {
	out := make([]*Helper, 0, len(ids))
	for _, id := range ids {
		h, ok := r.helpers[id]
		if !ok {
			r.log.Warn("helper missing", logging.Stage(stage), logging.Int("helper_id", int(id)))
			if r.metrics != nil {
				r.metrics.RecordSoftFailure(stage)
			}
			continue
		}
		out = append(out, h)
	}
	return out
}

// Remove drops a helper.
func (r *Registry) Remove(id scene.HelperID) {
	delete(r.helpers, id)
}

// Len returns the number of live helpers.
func (r *Registry) Len() int { return len(r.helpers) }

// Helpers returns every live helper ordered by id.
func (r *Registry) Helpers() []*Helper {
	out := make([]*Helper, 0, len(r.helpers))
	for _, h := range r.helpers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear deletes every helper and resets the helper references of every
// primitive in sc. Helper ids are not reused afterwards.
func (r *Registry) Clear(sc *scene.Scene) {
	r.helpers = make(map[scene.HelperID]*Helper)
	if sc == nil {
		return
	}
	for _, p := range sc.Primitives() {
		p.ClearHelpers()
	}
}
