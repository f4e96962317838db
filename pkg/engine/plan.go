package engine

import (
	"fmt"
	"strings"
)

// Op names one session command.
type Op string

const (
	OpSelect       Op = "select"
	OpDeselect     Op = "deselect"
	OpClearSelect  Op = "clear-selection"
	OpInteractions Op = "interactions"
	OpGroup        Op = "group"
	OpClassify     Op = "classify"
	OpPins         Op = "pins"
	OpStrut        Op = "strut"
	OpScaleBonds   Op = "scale-bonds"
	OpScaleAtoms   Op = "scale-atoms"
	OpDouble       Op = "double"
	OpClean        Op = "clean"
	OpMultiColor   Op = "multicolor"
	OpAutoGroup    Op = "auto-group"
	OpAssemble     Op = "assemble"
	OpCPK          Op = "cpk"
	OpFloor        Op = "floor"
	OpFloorFaces   Op = "floor-faces"
	OpSave         Op = "save"
	OpLoad         Op = "load"
)

// Command is one step of a plan. Which fields matter depends on Op.
type Command struct {
	Op    Op
	Names []string
	// Kind is a classifier, pin type, floor mode or directory.
	Kind  string
	Value float64
	Flag  bool
	Faces []int
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(string(c.Op))
	if c.Kind != "" {
		fmt.Fprintf(&b, " %q", c.Kind)
	}
	for _, n := range c.Names {
		fmt.Fprintf(&b, " %q", n)
	}
	switch c.Op {
	case OpScaleBonds, OpScaleAtoms:
		fmt.Fprintf(&b, " %g", c.Value)
	case OpMultiColor, OpAutoGroup:
		fmt.Fprintf(&b, " %t", c.Flag)
	}
	for _, f := range c.Faces {
		fmt.Fprintf(&b, " %d", f)
	}
	b.WriteString(")")
	return b.String()
}

// Plan is the ordered list of commands a script produced. Scripts only
// describe work; a session executes the plan afterwards.
type Plan struct {
	Commands []Command
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{}
}

func (p *Plan) add(c Command) {
	p.Commands = append(p.Commands, c)
}

// Len returns the number of commands.
func (p *Plan) Len() int { return len(p.Commands) }

// Count returns how many commands have the given op.
func (p *Plan) Count(op Op) int {
	n := 0
	for _, c := range p.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}
