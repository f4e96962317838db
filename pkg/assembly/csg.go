package assembly

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/metrics"
)

// DefaultRepairScale is how many times larger than a body its repair cube is.
const DefaultRepairScale = 30

// CSGError reports a boolean that failed on every strategy. Attempts holds
// one error per strategy tried, in order.
type CSGError struct {
	Op       string
	Stage    string
	Attempts []error
}

func (e *CSGError) Error() string {
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	s := fmt.Sprintf("csg %s failed after %d attempts", e.Op, len(e.Attempts))
	if e.Stage != "" {
		s = e.Stage + ": " + s
	}
	return s + ": " + strings.Join(msgs, "; ")
}

func (e *CSGError) Unwrap() []error { return e.Attempts }

// CSG wraps a primary kernel with the boolean failure policy: a failing
// boolean is retried once on Fallback, then both operands are repaired by
// intersecting them with a large cube and the boolean is retried on the
// primary. Everything but the booleans goes straight to the primary, so a
// CSG can stand in wherever a kernel.Kernel is expected.
type CSG struct {
	kernel.Kernel

	// Fallback is a lower precision kernel whose solids are interchangeable
	// with the primary's. Nil skips the fallback step.
	Fallback    kernel.Kernel
	RepairScale float64
	Stage       string

	log     logging.Logger
	metrics *metrics.Registry
}

// NewCSG creates the wrapper. fallback, log and m may be nil.
func NewCSG(primary, fallback kernel.Kernel, repairScale float64, log logging.Logger, m *metrics.Registry) *CSG {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if repairScale <= 0 {
		repairScale = DefaultRepairScale
	}
	return &CSG{
		Kernel:      primary,
		Fallback:    fallback,
		RepairScale: repairScale,
		log:         log,
		metrics:     m,
	}
}

type booleanFunc func(k kernel.Kernel, a, b kernel.Solid) (kernel.Solid, error)

func (c *CSG) Union(a, b kernel.Solid) (kernel.Solid, error) {
	return c.run("union", a, b, kernel.Kernel.Union)
}

func (c *CSG) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	return c.run("difference", a, b, kernel.Kernel.Difference)
}

func (c *CSG) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	return c.run("intersection", a, b, kernel.Kernel.Intersection)
}

func (c *CSG) run(op string, a, b kernel.Solid, f booleanFunc) (kernel.Solid, error) {
	start := time.Now()
	out, err := f(c.Kernel, a, b)
	if err == nil {
		c.record(op, "ok", start)
		return out, nil
	}
	attempts := []error{err}
	c.log.Warn("boolean failed", logging.String("op", op), logging.Stage(c.Stage), logging.Error(err))

	if c.Fallback != nil {
		c.retry("fallback")
		if out, err = f(c.Fallback, a, b); err == nil {
			c.record(op, "retried", start)
			return out, nil
		}
		attempts = append(attempts, fmt.Errorf("fallback: %w", err))
	}

	c.retry("repair")
	ra, errA := c.repair(a)
	rb, errB := c.repair(b)
	if err = errors.Join(errA, errB); err == nil {
		if out, err = f(c.Kernel, ra, rb); err == nil {
			c.record(op, "repaired", start)
			return out, nil
		}
	}
	attempts = append(attempts, fmt.Errorf("repair: %w", err))

	c.record(op, "failed", start)
	c.log.Error("boolean gave up", logging.String("op", op), logging.Stage(c.Stage), logging.Count(len(attempts)))
	return nil, &CSGError{Op: op, Stage: c.Stage, Attempts: attempts}
}

// RepairCube returns the axis-aligned cube RepairScale times the extent of
// s, centered on s. Intersecting a body with it leaves the shape alone but
// makes the engine rebuild a clean manifold.
func (c *CSG) RepairCube(s kernel.Solid) (kernel.Solid, error) {
	side := c.RepairScale * kernel.Extent(s)
	cube, err := c.Kernel.Box(side, side, side)
	if err != nil {
		return nil, fmt.Errorf("repair cube: %w", err)
	}
	at := kernel.Center(s)
	return c.Kernel.Translate(cube, at[0], at[1], at[2]), nil
}

// Repair intersects s with its repair cube, with the full retry policy.
func (c *CSG) Repair(s kernel.Solid) (kernel.Solid, error) {
	cube, err := c.RepairCube(s)
	if err != nil {
		return nil, err
	}
	return c.Intersection(s, cube)
}

// repair is Repair on the primary alone; it backs the last retry step.
func (c *CSG) repair(s kernel.Solid) (kernel.Solid, error) {
	cube, err := c.RepairCube(s)
	if err != nil {
		return nil, err
	}
	return c.Kernel.Intersection(s, cube)
}

// WithStage returns a copy of c that tags its logs and errors with stage.
func (c *CSG) WithStage(stage string) *CSG {
	cp := *c
	cp.Stage = stage
	cp.log = c.log.With(logging.Stage(stage))
	return &cp
}

func (c *CSG) record(op, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordCSG(op, outcome, time.Since(start))
	}
}

func (c *CSG) retry(strategy string) {
	if c.metrics != nil {
		c.metrics.RecordRetry(strategy)
	}
}
