// Package pins generates the connectors that let separately printed groups
// snap together, and keeps the table of helper solids (pins, cones and cut
// cubes) until assembly is done with them.
package pins

import (
	"fmt"
	"strings"

	"github.com/chazu/molprint/pkg/config"
	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/scene"
)

// Type selects the connector variant.
type Type int

const (
	// Plain is a straight peg.
	Plain Type = iota
	// Split adds a flared cone at the sphere end and a keyway slot.
	Split
	// PrintInPlace adds a tapered cone along the whole connector.
	PrintInPlace
)

func (t Type) String() string {
	switch t {
	case Plain:
		return "plain"
	case Split:
		return "split"
	case PrintInPlace:
		return "pip"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Valid reports whether t is a known variant.
func (t Type) Valid() bool { return t >= Plain && t <= PrintInPlace }

// ParseType accepts a variant name or its number.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "0":
		return Plain, nil
	case "split", "1":
		return Split, nil
	case "pip", "print-in-place", "2":
		return PrintInPlace, nil
	}
	return 0, fmt.Errorf("unknown pin type %q", s)
}

// Pair is one sphere/cylinder interface to be pinned.
type Pair struct {
	Sphere   scene.ID
	Cylinder scene.ID
}

// Spec is a group of pairs pinned with the same connector settings.
type Spec struct {
	Type Type
	// Diameter is the connector radius as a fraction of the bond radius.
	Diameter float64
	Sides    int
	// Decrease shortens the connector so it does not bottom out.
	Decrease float64
	Pairs    []Pair
}

// NewSpec returns an empty spec carrying the configured defaults.
func NewSpec(t Type, cfg config.PinConfig) Spec {
	return Spec{
		Type:     t,
		Diameter: cfg.Diameter,
		Sides:    cfg.Sides,
		Decrease: cfg.Decrease,
	}
}

// Refs lists every primitive the spec references, sphere then cylinder per
// pair. Pinned primitives always seed grouping.
func (s Spec) Refs() []scene.ID {
	out := make([]scene.ID, 0, 2*len(s.Pairs))
	for _, p := range s.Pairs {
		out = append(out, p.Sphere, p.Cylinder)
	}
	return out
}

// Validate checks the connector settings.
func (s Spec) Validate() error {
	switch {
	case !s.Type.Valid():
		return fmt.Errorf("pins: invalid type %d", int(s.Type))
	case s.Diameter <= 0:
		return fmt.Errorf("pins: diameter must be positive, got %g", s.Diameter)
	case s.Sides < 3:
		return fmt.Errorf("pins: need at least 3 sides, got %d", s.Sides)
	case s.Decrease < 0:
		return fmt.Errorf("pins: decrease must not be negative, got %g", s.Decrease)
	}
	return nil
}

// PairsFromSelection returns every selected sphere/cylinder pair that the
// index connects, cylinders in selection order.
func PairsFromSelection(sc *scene.Scene, idx *interact.Index, sel *scene.Selection) []Pair {
	var spheres, cyls []scene.ID
	for _, id := range sel.IDs() {
		p, ok := sc.Get(id)
		if !ok {
			continue
		}
		if p.IsSphere() {
			spheres = append(spheres, id)
		} else {
			cyls = append(cyls, id)
		}
	}
	var out []Pair
	for _, c := range cyls {
		for _, s := range spheres {
			if idx.Has(s, c) {
				out = append(out, Pair{Sphere: s, Cylinder: c})
			}
		}
	}
	return out
}
