package session

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/molprint/pkg/config"
	"github.com/chazu/molprint/pkg/engine"
	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/kernel/kerneltest"
	"github.com/chazu/molprint/pkg/metrics"
	"github.com/chazu/molprint/pkg/persist"
	"github.com/chazu/molprint/pkg/pins"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// boxTester reports an overlap when bounding boxes touch.
type boxTester struct{}

func (boxTester) Overlaps(a, b *scene.Primitive) (bool, error) {
	ab, bb := a.Bounds(), b.Bounds()
	return ab.Min.X <= bb.Max.X && bb.Min.X <= ab.Max.X &&
		ab.Min.Y <= bb.Max.Y && bb.Min.Y <= ab.Max.Y &&
		ab.Min.Z <= bb.Max.Z && bb.Min.Z <= ab.Max.Z, nil
}

// water is H1 - B1 - O - B2 - H2 along X.
func water() *scene.Scene {
	sc := scene.New()
	sc.MustAdd(scene.NewSphere("O", r3.Vec{}, 0.456))
	sc.MustAdd(scene.NewSphere("H1", r3.Vec{X: 1}, 0.36))
	sc.MustAdd(scene.NewSphere("H2", r3.Vec{X: -1}, 0.36))
	sc.MustAdd(scene.NewCylinder("B1", r3.Vec{}, r3.Vec{X: 1}, 0.3))
	sc.MustAdd(scene.NewCylinder("B2", r3.Vec{}, r3.Vec{X: -1}, 0.3))
	return sc
}

type fixture struct {
	s   *Session
	k   *kerneltest.Kernel
	m   *metrics.Registry
	cfg *config.Config
}

func newFixture(t *testing.T, sc *scene.Scene) *fixture {
	t.Helper()
	f := &fixture{k: kerneltest.New(), m: metrics.NewRegistry(), cfg: config.Default()}
	s, err := New(f.cfg, sc, WithKernel(f.k, nil), WithTester(boxTester{}), WithMetrics(f.m))
	require.NoError(t, err)
	f.s = s
	return f
}

func (f *fixture) id(t *testing.T, name string) scene.ID {
	t.Helper()
	p, ok := f.s.Scene.Lookup(name)
	require.True(t, ok, name)
	return p.ID
}

func (f *fixture) names(ids []scene.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = f.s.Scene.Name(id)
	}
	return out
}

func TestNew(t *testing.T) {
	f := newFixture(t, water())
	assert.NotEmpty(t, f.s.RunID)
	assert.Equal(t, 0, f.s.Selection.Len())
	assert.Nil(t, f.s.Index)

	f.s.Config.Assembly.MultiColor = true
	assert.False(t, f.cfg.Assembly.MultiColor, "session owns a copy of the config")
}

func TestNewRejectsInvalidScene(t *testing.T) {
	sc := scene.New()
	sc.MustAdd(scene.NewSphere("flat", r3.Vec{}, 0))
	_, err := New(config.Default(), sc, WithKernel(kerneltest.New(), nil), WithTester(boxTester{}))
	assert.Error(t, err)
}

func TestBuildInteractions(t *testing.T) {
	f := newFixture(t, water())
	idx, err := f.s.BuildInteractions()
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
	assert.True(t, idx.Has(f.id(t, "O"), f.id(t, "B1")))
	assert.True(t, idx.Has(f.id(t, "H2"), f.id(t, "B2")))
	assert.Nil(t, f.s.Groups, "nothing selected, nothing to group from")
}

func TestSelectionRegroups(t *testing.T) {
	f := newFixture(t, water())
	_, err := f.s.BuildInteractions()
	require.NoError(t, err)

	require.NoError(t, f.s.Select("O"))
	require.NotNil(t, f.s.Groups)
	require.Len(t, f.s.Groups.Groups, 1)
	assert.Len(t, f.s.Groups.Groups[0].Members, 5)

	// both ends of B1 selected: the O-B1 interface is cut
	require.NoError(t, f.s.Select("B1"))
	require.Len(t, f.s.Groups.Groups, 2)
	assert.ElementsMatch(t, []string{"O", "H2", "B2"}, f.names(f.s.Groups.Groups[0].Members))
	assert.ElementsMatch(t, []string{"H1", "B1"}, f.names(f.s.Groups.Groups[1].Members))

	require.NoError(t, f.s.Deselect("B1"))
	assert.Len(t, f.s.Groups.Groups, 1)

	require.NoError(t, f.s.ClearSelection())
	assert.Empty(t, f.s.Groups.Groups)
	assert.Len(t, f.s.Groups.Unreached, 5)
}

func TestAutoGroupOff(t *testing.T) {
	f := newFixture(t, water())
	f.s.Config.Grouping.AutoGroup = false
	_, err := f.s.BuildInteractions()
	require.NoError(t, err)
	require.NoError(t, f.s.Select("O"))
	assert.Nil(t, f.s.Groups)

	res, err := f.s.Regroup()
	require.NoError(t, err)
	assert.Len(t, res.Groups, 1)
}

func TestSelectUnknownNameIsSoft(t *testing.T) {
	f := newFixture(t, water())
	require.NoError(t, f.s.Select("O", "Xe"))
	assert.Equal(t, 1, f.s.Selection.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.SoftFailuresTotal.WithLabelValues("select")))
}

func TestSetSelection(t *testing.T) {
	f := newFixture(t, water())
	_, err := f.s.BuildInteractions()
	require.NoError(t, err)
	require.NoError(t, f.s.SetSelection("H1", "O"))
	assert.Equal(t, []string{"H1", "O"}, f.names(f.s.Selection.IDs()))
	groups := f.s.Groups
	require.NoError(t, f.s.SetSelection("H1", "O"))
	assert.Same(t, groups, f.s.Groups, "an unchanged selection does not regroup")
}

func TestRegroupNeedsIndex(t *testing.T) {
	f := newFixture(t, water())
	_, err := f.s.Regroup()
	assert.ErrorIs(t, err, ErrNoIndex)

	_, err = f.s.BuildInteractions()
	require.NoError(t, err)
	f.s.Scene.MustAdd(scene.NewSphere("N", r3.Vec{Y: 5}, 0.465))
	_, err = f.s.Regroup()
	assert.ErrorIs(t, err, ErrStaleIndex)
	assert.Nil(t, f.s.Index, "a stale index is discarded")
}

func TestClassify(t *testing.T) {
	f := newFixture(t, water())
	_, err := f.s.Classify("hbonds")
	assert.ErrorIs(t, err, ErrNoIndex)

	_, err = f.s.BuildInteractions()
	require.NoError(t, err)
	_, err = f.s.Classify("lipids")
	assert.ErrorIs(t, err, ErrUnknownClassifier)

	b2, _ := f.s.Scene.Lookup("B2")
	b2.SetRadius(0.1)
	found, err := f.s.Classify("hbonds")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"O", "H2", "B2"}, f.names(found.IDs()))
	assert.True(t, b2.HBond())
	assert.Equal(t, 3, f.s.Selection.Len())
	assert.NotNil(t, f.s.Groups, "selection change regrouped")
}

func TestDefinePins(t *testing.T) {
	f := newFixture(t, water())
	_, err := f.s.DefinePins(pins.Plain)
	assert.ErrorIs(t, err, ErrNoIndex)

	_, err = f.s.BuildInteractions()
	require.NoError(t, err)
	_, err = f.s.DefinePins(pins.Plain)
	assert.ErrorIs(t, err, ErrNoPairs)

	require.NoError(t, f.s.Select("O", "B1"))
	spec, err := f.s.DefinePins(pins.Split)
	require.NoError(t, err)
	assert.Equal(t, []pins.Pair{{Sphere: f.id(t, "O"), Cylinder: f.id(t, "B1")}}, spec.Pairs)
	assert.Equal(t, f.cfg.Pins.Diameter, spec.Diameter)
	assert.Equal(t, 0, f.s.Selection.Len(), "selection cleared")
	require.Len(t, f.s.Specs, 1)
	assert.Len(t, f.s.Groups.Groups, 2, "pinned primitives keep seeding groups")
}

func TestAssembleAndFloor(t *testing.T) {
	f := newFixture(t, water())
	assert.ErrorIs(t, f.s.Floor("auto"), ErrNoBodies)

	_, err := f.s.BuildInteractions()
	require.NoError(t, err)
	require.NoError(t, f.s.Select("O", "B1"))
	_, err = f.s.DefinePins(pins.Plain)
	require.NoError(t, err)

	res, err := f.s.Assemble()
	require.NoError(t, err)
	require.Len(t, res.Bodies, 2)
	assert.Empty(t, res.Loose)
	assert.Equal(t, 0, f.s.Registry.Len(), "helpers are deleted after assembly")
	assert.NotNil(t, f.s.Body("group1"))
	assert.Nil(t, f.s.Body("group9"))

	require.NoError(t, f.s.Floor("auto"))
	for _, b := range f.s.Bodies {
		m, err := f.s.World(b)
		require.NoError(t, err)
		assert.Equal(t, 4, onPlate(m.Vertices), "%s rests on a face", b.Name)
	}

	assert.ErrorIs(t, f.s.Floor("auto", "nope"), ErrUnknownBody)
	assert.Error(t, f.s.Floor("sideways"))
}

func TestFloorFaces(t *testing.T) {
	f := newFixture(t, water())
	_, err := f.s.BuildInteractions()
	require.NoError(t, err)
	require.NoError(t, f.s.Select("O"))
	_, err = f.s.Assemble()
	require.NoError(t, err)

	faces, err := f.s.Faces("group0")
	require.NoError(t, err)
	require.Len(t, faces, 6, "a box body has six faces")

	assert.Error(t, f.s.FloorFaces("group0", []int{6}))
	require.NoError(t, f.s.FloorFaces("group0", []int{0}))
	m, err := f.s.World(f.s.Body("group0"))
	require.NoError(t, err)
	assert.Equal(t, 4, onPlate(m.Vertices))
}

// onPlate counts distinct vertices on the lowest z plane.
func onPlate(v []float32) int {
	min := math.Inf(1)
	for i := 2; i < len(v); i += 3 {
		min = math.Min(min, float64(v[i]))
	}
	seen := map[[3]float32]bool{}
	for i := 0; i+2 < len(v); i += 3 {
		if math.Abs(float64(v[i+2])-min) < 1e-4 {
			seen[[3]float32{v[i], v[i+1], v[i+2]}] = true
		}
	}
	return len(seen)
}

func TestClean(t *testing.T) {
	sc := water()
	sc.MustAdd(scene.NewSphere("ghost", r3.Vec{X: 0.05}, 0.1))
	f := newFixture(t, sc)
	_, err := f.s.BuildInteractions()
	require.NoError(t, err)
	require.NoError(t, f.s.Select("O", "B1"))
	_, err = f.s.DefinePins(pins.Split)
	require.NoError(t, err)
	require.NoError(t, f.s.Select("ghost", "O"))

	rep := f.s.Clean()
	assert.Equal(t, []string{"ghost"}, rep.Spheres)
	assert.Nil(t, f.s.Index, "topology changed")
	assert.Empty(t, f.s.Specs, "pin specs are dropped with the index")
	assert.Equal(t, []string{"O"}, f.names(f.s.Selection.IDs()))
}

func TestScaleAndDouble(t *testing.T) {
	f := newFixture(t, water())
	assert.Equal(t, 2, f.s.ScaleBonds(0.5))
	b1, _ := f.s.Scene.Lookup("B1")
	assert.InDelta(t, 0.15, b1.Radius(), 1e-12)
	assert.Equal(t, 3, f.s.ScaleAtoms(2))

	assert.Equal(t, 1, f.s.MakeDouble("B1", "O", "missing"))
	c, _ := b1.Cylinder()
	require.NotNil(t, c.Double)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.m.SoftFailuresTotal.WithLabelValues("double")),
		"O is skipped, missing is unresolved")
}

func TestAddStrut(t *testing.T) {
	sc := water()
	sc.MustAdd(scene.NewSphere("N", r3.Vec{Y: 1.5}, 0.465))
	f := newFixture(t, sc)
	_, err := f.s.BuildInteractions()
	require.NoError(t, err)

	id, err := f.s.AddStrut("O", "N")
	require.NoError(t, err)
	strut, _ := f.s.Scene.Get(id)
	assert.True(t, strut.HBond())
	assert.InDelta(t, f.cfg.Bonds.StrutRadius, strut.Radius(), 1e-12)
	assert.True(t, f.s.Index.Has(f.id(t, "N"), id))
	_, err = f.s.Regroup()
	assert.NoError(t, err, "index stays current")

	_, err = f.s.AddStrut("O", "nobody")
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestColors(t *testing.T) {
	f := newFixture(t, water())
	byRadius := f.s.Colors()
	assert.Equal(t, byRadius[f.id(t, "H1")], byRadius[f.id(t, "H2")])
	assert.NotEqual(t, byRadius[f.id(t, "O")], byRadius[f.id(t, "H1")])

	_, err := f.s.BuildInteractions()
	require.NoError(t, err)
	require.NoError(t, f.s.Select("O"))
	byGroup := f.s.Colors()
	assert.Equal(t, byGroup[f.id(t, "O")], byGroup[f.id(t, "H1")])
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	sc := water()
	f := newFixture(t, sc)
	_, err := f.s.BuildInteractions()
	require.NoError(t, err)
	require.NoError(t, f.s.Select("O", "B1"))
	_, err = f.s.DefinePins(pins.Split)
	require.NoError(t, err)
	require.NoError(t, f.s.Save(dir))

	for _, name := range []string{persist.InteractionsFile, persist.PinGroupFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	g := newFixture(t, sc)
	require.NoError(t, g.s.Load(dir))
	require.NotNil(t, g.s.Index)
	assert.Equal(t, 4, g.s.Index.Len())
	assert.Equal(t, f.s.Specs, g.s.Specs)
	assert.Len(t, g.s.Groups.Groups, 2, "loaded pins seed grouping")

	// loading from an empty directory is a no-op
	h := newFixture(t, sc)
	require.NoError(t, h.s.Load(t.TempDir()))
	assert.Nil(t, h.s.Index)
}

func TestRunScript(t *testing.T) {
	f := newFixture(t, water())
	script := `
(interactions)
(select "O" "B1")
(pins :plain)
(assemble)
(floor :multi)
`
	require.NoError(t, f.s.RunScript(script))
	assert.Len(t, f.s.Specs, 1)
	assert.Equal(t, pins.Plain, f.s.Specs[0].Type)
	assert.Len(t, f.s.Bodies, 2)
	assert.Equal(t, f.s.Bodies[0].Rotation, f.s.Bodies[1].Rotation, "floored as one piece")
}

func TestRunScriptErrors(t *testing.T) {
	f := newFixture(t, water())

	err := f.s.RunScript(`(interactions`)
	var se *ScriptError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.NotEmpty(t, se.Errors)
	assert.Nil(t, f.s.Index, "nothing ran")

	err = f.s.RunScript(`(multicolor) (classify :hbonds)`)
	var ce *CommandError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, 1, ce.Step)
	assert.Equal(t, engine.OpClassify, ce.Command.Op)
	assert.ErrorIs(t, err, ErrNoIndex)
	assert.True(t, f.s.Config.Assembly.MultiColor, "earlier steps stay applied")
}

func TestExecuteGuardsArity(t *testing.T) {
	f := newFixture(t, water())
	plan := &engine.Plan{Commands: []engine.Command{{Op: engine.OpStrut, Names: []string{"O"}}}}
	assert.Error(t, f.s.Execute(plan))
	plan = &engine.Plan{Commands: []engine.Command{{Op: "teleport"}}}
	assert.Error(t, f.s.Execute(plan))
}

var _ interact.OverlapTester = boxTester{}
