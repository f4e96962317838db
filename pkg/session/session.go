// Package session holds the state of one molprint run: the scene, the
// selection, the interaction index, grouping, pin specs and assembled
// bodies. Every stage reads and writes it explicitly; nothing is global.
//
// A Session is not safe for concurrent use.
package session

import (
	"errors"
	"fmt"

	"github.com/chazu/molprint/pkg/assembly"
	"github.com/chazu/molprint/pkg/classify"
	"github.com/chazu/molprint/pkg/config"
	"github.com/chazu/molprint/pkg/engine"
	"github.com/chazu/molprint/pkg/grouping"
	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/kernel/manifold"
	"github.com/chazu/molprint/pkg/kernel/sdfx"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/metrics"
	"github.com/chazu/molprint/pkg/pins"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/google/uuid"
)

var (
	ErrNoIndex           = errors.New("session: no interaction index, run interactions first")
	ErrStaleIndex        = errors.New("session: scene changed since interactions were built")
	ErrNoPairs           = errors.New("session: selection holds no interacting sphere/cylinder pair")
	ErrNoBodies          = errors.New("session: nothing assembled")
	ErrUnknownBody       = errors.New("session: unknown body")
	ErrUnknownClassifier = errors.New("session: unknown classifier")
)

// Session is the explicit context threaded through every stage.
type Session struct {
	// Name labels persisted documents.
	Name   string
	RunID  string
	Config *config.Config

	Scene     *scene.Scene
	Selection *scene.Selection
	Index     *interact.Index
	Groups    *grouping.Result
	Specs     []pins.Spec
	Registry  *pins.Registry

	Bodies []*assembly.Body
	Loose  []scene.ID

	log        logging.Logger
	metrics    *metrics.Registry
	kernel     kernel.Kernel
	fallback   kernel.Kernel
	tester     interact.OverlapTester
	classifier *classify.Classifier
	engine     *engine.Engine
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(s *Session) { s.metrics = m }
}

// WithKernel replaces the configured CSG backends. fallback may be nil.
func WithKernel(primary, fallback kernel.Kernel) Option {
	return func(s *Session) {
		s.kernel = primary
		s.fallback = fallback
	}
}

// WithTester replaces the mesh overlap test used to build interactions.
func WithTester(t interact.OverlapTester) Option {
	return func(s *Session) { s.tester = t }
}

func WithName(name string) Option {
	return func(s *Session) { s.Name = name }
}

// New creates a session over sc. cfg is copied, so script commands that
// flip settings do not leak into the caller's config.
func New(cfg *config.Config, sc *scene.Scene, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	own := *cfg
	s := &Session{
		Name:      "molecule",
		RunID:     uuid.NewString(),
		Config:    &own,
		Scene:     sc,
		Selection: scene.NewSelection(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.NewNopLogger()
	}
	s.log = s.log.With(logging.RunID(s.RunID))
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	if s.kernel == nil {
		primary, fallback, err := kernels(own.Kernel)
		if err != nil {
			return nil, err
		}
		s.kernel, s.fallback = primary, fallback
	}
	if s.tester == nil {
		mesher := sdfx.NewWithCells(own.Interact.MeshCells, kernel.PrecisionFast)
		s.tester = interact.NewMeshTester(mesher, own.Kernel.Segments)
	}
	s.Registry = pins.NewRegistry(s.log, s.metrics)
	s.classifier = classify.New(s.Config, s.log, s.metrics)
	s.engine = engine.NewEngine(own.Script.Timeout)

	if errs := scene.Validate(sc, s.Registry.Has); len(errs) > 0 {
		for _, e := range errs {
			s.log.Warn("scene validation", logging.String("problem", e.Error()))
		}
		for _, e := range errs {
			if e.Severity == scene.SeverityError {
				return nil, fmt.Errorf("session: invalid scene: %w", e)
			}
		}
	}
	s.log.Info("session started",
		logging.Int("primitives", sc.Len()), logging.String("kernel", own.Kernel.Backend))
	return s, nil
}

// kernels builds the primary backend and the lower precision fallback
// used to retry failed booleans.
func kernels(cfg config.KernelConfig) (kernel.Kernel, kernel.Kernel, error) {
	fallback := sdfx.NewWithCells(cfg.FallbackCells, kernel.PrecisionFast)
	switch cfg.Backend {
	case "manifold":
		k, err := manifold.New()
		if err != nil {
			return nil, nil, fmt.Errorf("session: %w", err)
		}
		return k, fallback, nil
	default:
		return sdfx.NewWithCells(cfg.Cells, kernel.PrecisionExact), fallback, nil
	}
}

// Logger returns the session logger, which carries the run id.
func (s *Session) Logger() logging.Logger { return s.log }

// Metrics returns the session's metric registry.
func (s *Session) Metrics() *metrics.Registry { return s.metrics }

// Kernel returns the primary CSG backend.
func (s *Session) Kernel() kernel.Kernel { return s.kernel }

func (s *Session) csg() *assembly.CSG {
	return assembly.NewCSG(s.kernel, s.fallback, s.Config.Assembly.RepairScale, s.log, s.metrics)
}

func (s *Session) pipeline() *assembly.Pipeline {
	return assembly.NewPipeline(s.csg(), s.Config.Kernel.Segments, s.Config.Pins.Scale, s.log, s.metrics)
}

// index returns the interaction index if it still matches the scene. A
// stale index is discarded along with the grouping built on it.
func (s *Session) index() (*interact.Index, error) {
	if s.Index == nil {
		return nil, ErrNoIndex
	}
	if s.Index.Stale(s.Scene) {
		s.Index = nil
		s.Groups = nil
		return nil, ErrStaleIndex
	}
	return s.Index, nil
}

// resolve maps names to ids. Unknown names are soft failures.
func (s *Session) resolve(stage string, names []string) []scene.ID {
	ids := make([]scene.ID, 0, len(names))
	for _, n := range names {
		p, ok := s.Scene.Lookup(n)
		if !ok {
			s.softFail(stage, "unknown primitive", logging.Name(n))
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}

func (s *Session) softFail(stage, msg string, fields ...logging.Field) {
	s.metrics.RecordSoftFailure(stage)
	s.log.Warn(msg, append(fields, logging.Stage(stage))...)
}
