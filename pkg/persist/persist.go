// Package persist reads and writes the two session documents,
// interactions.json and pingroup.json.
//
// Documents refer to primitives by name, never by id, so they survive a
// reload. Rehydration resolves names through the scene's name table;
// names that no longer resolve are dropped and reported, not fatal.
//
// Output uses sorted keys, a two-space indent and a trailing newline, so a
// load followed by a save reproduces the file byte for byte.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/pins"
	"github.com/chazu/molprint/pkg/scene"
)

// File names inside a session directory.
const (
	InteractionsFile = "interactions.json"
	PinGroupFile     = "pingroup.json"
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("malformed document")

// InteractionsDoc is the persisted interaction index. Fields are declared
// in key order so the encoder emits sorted keys.
type InteractionsDoc struct {
	Name  string      `json:"name"`
	Pairs [][2]string `json:"pairs"`
}

// PinGroupRecord is one persisted pin spec.
type PinGroupRecord struct {
	Decrease float64     `json:"decrease"`
	Diameter float64     `json:"diameter"`
	Pairs    [][2]string `json:"pairs"`
	Sides    int         `json:"sides"`
	Type     int         `json:"type"`
}

// PinGroupDoc is the persisted list of pin specs.
type PinGroupDoc []PinGroupRecord

// Encode renders v in the canonical document format.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeInteractions parses an interactions document.
func DecodeInteractions(data []byte) (*InteractionsDoc, error) {
	var doc InteractionsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, InteractionsFile, err)
	}
	if doc.Pairs == nil {
		doc.Pairs = [][2]string{}
	}
	return &doc, nil
}

// DecodePinGroups parses a pin group document.
func DecodePinGroups(data []byte) (PinGroupDoc, error) {
	var doc PinGroupDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, PinGroupFile, err)
	}
	if doc == nil {
		doc = PinGroupDoc{}
	}
	for i := range doc {
		if doc[i].Pairs == nil {
			doc[i].Pairs = [][2]string{}
		}
	}
	return doc, nil
}

// FromIndex mirrors an index by name.
func FromIndex(name string, sc *scene.Scene, idx *interact.Index) *InteractionsDoc {
	doc := &InteractionsDoc{Name: name, Pairs: [][2]string{}}
	for _, p := range idx.Pairs(sc) {
		doc.Pairs = append(doc.Pairs, [2]string(p))
	}
	return doc
}

// Index rehydrates the document against sc. Pairs whose names no longer
// resolve are returned as skipped.
func (d *InteractionsDoc) Index(sc *scene.Scene) (*interact.Index, [][2]string) {
	pairs := make([]interact.Pair, len(d.Pairs))
	for i, p := range d.Pairs {
		pairs[i] = interact.Pair(p)
	}
	idx, skipped := interact.FromPairs(sc, pairs)
	var out [][2]string
	for _, s := range skipped {
		out = append(out, [2]string(s))
	}
	return idx, out
}

// FromSpecs mirrors pin specs by name. Pairs whose ids no longer resolve
// are dropped.
func FromSpecs(sc *scene.Scene, specs []pins.Spec) PinGroupDoc {
	doc := PinGroupDoc{}
	for _, s := range specs {
		rec := PinGroupRecord{
			Decrease: s.Decrease,
			Diameter: s.Diameter,
			Pairs:    [][2]string{},
			Sides:    s.Sides,
			Type:     int(s.Type),
		}
		for _, p := range s.Pairs {
			sn, cn := sc.Name(p.Sphere), sc.Name(p.Cylinder)
			if sn == "" || cn == "" {
				continue
			}
			rec.Pairs = append(rec.Pairs, [2]string{sn, cn})
		}
		doc = append(doc, rec)
	}
	return doc
}

// Specs rehydrates the pin groups against sc. Unresolvable pairs are
// skipped and returned.
func (d PinGroupDoc) Specs(sc *scene.Scene) ([]pins.Spec, [][2]string) {
	var (
		specs   []pins.Spec
		skipped [][2]string
	)
	for _, rec := range d {
		s := pins.Spec{
			Type:     pins.Type(rec.Type),
			Diameter: rec.Diameter,
			Sides:    rec.Sides,
			Decrease: rec.Decrease,
		}
		for _, p := range rec.Pairs {
			sp, okS := sc.Lookup(p[0])
			cp, okC := sc.Lookup(p[1])
			if !okS || !okC || !sp.IsSphere() || !cp.IsCylinder() {
				skipped = append(skipped, p)
				continue
			}
			s.Pairs = append(s.Pairs, pins.Pair{Sphere: sp.ID, Cylinder: cp.ID})
		}
		specs = append(specs, s)
	}
	return specs, skipped
}

// Save writes v to path in the canonical format, via a temporary file in
// the same directory.
func Save(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadInteractions reads an interactions document from disk.
func LoadInteractions(path string) (*InteractionsDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeInteractions(data)
}

// LoadPinGroups reads a pin group document from disk.
func LoadPinGroups(path string) (PinGroupDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodePinGroups(data)
}
