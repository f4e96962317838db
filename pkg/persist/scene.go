package persist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// SceneDoc is the import format for a model: a flat list of spheres and
// cylinders. Cylinders are given by their two endpoints.
type SceneDoc struct {
	Name       string            `json:"name"`
	Primitives []PrimitiveRecord `json:"primitives"`
}

// PrimitiveRecord is one sphere (Center) or cylinder (A, B).
type PrimitiveRecord struct {
	A      *[3]float64 `json:"a,omitempty"`
	B      *[3]float64 `json:"b,omitempty"`
	Center *[3]float64 `json:"center,omitempty"`
	HBond  bool        `json:"hbond,omitempty"`
	Kind   string      `json:"kind"`
	Name   string      `json:"name"`
	Radius float64     `json:"radius"`
}

// DecodeScene parses a scene document.
func DecodeScene(data []byte) (*SceneDoc, error) {
	var doc SceneDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: scene: %v", ErrMalformed, err)
	}
	return &doc, nil
}

// LoadScene reads a scene document from disk.
func LoadScene(path string) (*SceneDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeScene(data)
}

// Scene builds a scene from the document. Geometry is not validated here;
// duplicate names and unknown kinds are errors.
func (d *SceneDoc) Scene() (*scene.Scene, error) {
	sc := scene.New()
	for i, r := range d.Primitives {
		var p *scene.Primitive
		switch r.Kind {
		case "sphere":
			if r.Center == nil {
				return nil, fmt.Errorf("%w: primitive %d (%s): sphere needs a center", ErrMalformed, i, r.Name)
			}
			p = scene.NewSphere(r.Name, vec(*r.Center), r.Radius)
		case "cylinder":
			if r.A == nil || r.B == nil {
				return nil, fmt.Errorf("%w: primitive %d (%s): cylinder needs a and b", ErrMalformed, i, r.Name)
			}
			p = scene.NewCylinder(r.Name, vec(*r.A), vec(*r.B), r.Radius)
			c, _ := p.Cylinder()
			c.HBond = r.HBond
		default:
			return nil, fmt.Errorf("%w: primitive %d (%s): unknown kind %q", ErrMalformed, i, r.Name, r.Kind)
		}
		if _, err := sc.Add(p); err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}
	}
	return sc, nil
}

// FromScene exports the primitives of sc, in id order.
func FromScene(name string, sc *scene.Scene) *SceneDoc {
	doc := &SceneDoc{Name: name, Primitives: []PrimitiveRecord{}}
	for _, p := range sc.Primitives() {
		r := PrimitiveRecord{Name: p.Name, Kind: p.Kind().String(), Radius: p.Radius()}
		if c, ok := p.Cylinder(); ok {
			a, b := p.Endpoints()
			r.A, r.B = arr(a), arr(b)
			r.HBond = c.HBond
		} else {
			r.Center = arr(p.Center())
		}
		doc.Primitives = append(doc.Primitives, r)
	}
	return doc
}

func vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

func arr(v r3.Vec) *[3]float64 { return &[3]float64{v.X, v.Y, v.Z} }
