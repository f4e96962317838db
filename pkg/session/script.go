package session

import (
	"fmt"
	"strings"

	"github.com/chazu/molprint/pkg/engine"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/pins"
)

// ScriptError reports problems in the script text. Nothing was executed.
type ScriptError struct {
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return "script: " + strings.Join(msgs, "; ")
}

// CommandError reports the plan step that failed. Earlier steps have
// already been applied.
type CommandError struct {
	Step    int
	Command engine.Command
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("step %d %s: %v", e.Step+1, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// RunScript evaluates source under the configured timeout, then executes
// the resulting plan.
func (s *Session) RunScript(source string) error {
	plan, evalErrs, err := s.engine.Evaluate(source)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	if len(evalErrs) > 0 {
		return &ScriptError{Errors: evalErrs}
	}
	return s.Execute(plan)
}

// Execute runs the plan's commands in order, stopping at the first error.
func (s *Session) Execute(plan *engine.Plan) error {
	timer := logging.StartTimer(s.log, "plan executed", logging.Stage("script"), logging.Count(plan.Len()))
	for i, c := range plan.Commands {
		s.log.Debug("command", logging.Int("step", i+1), logging.String("command", c.String()))
		if err := s.exec(c); err != nil {
			timer.EndError(err)
			return &CommandError{Step: i, Command: c, Err: err}
		}
	}
	s.metrics.RecordStage("script", timer.End())
	return nil
}

func (s *Session) exec(c engine.Command) error {
	var err error
	switch c.Op {
	case engine.OpSelect:
		err = s.Select(c.Names...)
	case engine.OpDeselect:
		err = s.Deselect(c.Names...)
	case engine.OpClearSelect:
		err = s.ClearSelection()
	case engine.OpInteractions:
		_, err = s.BuildInteractions()
	case engine.OpGroup:
		_, err = s.Regroup()
	case engine.OpClassify:
		_, err = s.Classify(c.Kind)
	case engine.OpPins:
		t := s.DefaultPinType()
		if c.Kind != "" {
			if t, err = pins.ParseType(c.Kind); err != nil {
				return err
			}
		}
		_, err = s.DefinePins(t)
	case engine.OpStrut:
		if len(c.Names) != 2 {
			return fmt.Errorf("strut needs two spheres, got %d", len(c.Names))
		}
		_, err = s.AddStrut(c.Names[0], c.Names[1])
	case engine.OpScaleBonds:
		s.ScaleBonds(c.Value)
	case engine.OpScaleAtoms:
		s.ScaleAtoms(c.Value)
	case engine.OpDouble:
		s.MakeDouble(c.Names...)
	case engine.OpClean:
		s.Clean()
	case engine.OpMultiColor:
		s.Config.Assembly.MultiColor = c.Flag
	case engine.OpAutoGroup:
		s.Config.Grouping.AutoGroup = c.Flag
	case engine.OpAssemble:
		_, err = s.Assemble()
	case engine.OpCPK:
		_, err = s.CPK()
	case engine.OpFloor:
		err = s.Floor(c.Kind, c.Names...)
	case engine.OpFloorFaces:
		if len(c.Names) != 1 {
			return fmt.Errorf("floor-faces needs one body")
		}
		err = s.FloorFaces(c.Names[0], c.Faces)
	case engine.OpSave:
		err = s.Save(c.Kind)
	case engine.OpLoad:
		err = s.Load(c.Kind)
	default:
		err = fmt.Errorf("unknown command %q", c.Op)
	}
	return err
}
