// Package engine evaluates molprint session scripts. A script is zygomys
// Lisp run in a sandbox; its builtins only queue commands, so evaluation
// yields a Plan that a session executes afterwards, outside the timeout.
//
//	(interactions)
//	(classify :hbonds)
//	(pins :split)
//	(assemble)
//	(floor :multi)
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultTimeout limits evaluation when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// EvalError is a non-fatal error in the script itself, such as a parse
// error or a builtin given bad arguments.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each Evaluate gets a fresh sandbox.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// NewEngine creates an engine. A non-positive timeout means
// DefaultTimeout.
func NewEngine(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{timeout: timeout}
}

// Timeout returns the evaluation limit.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Evaluate runs source and returns the plan it built.
//
//   - On success: plan, nil, nil
//   - On parse or builtin errors: nil, eval errors, nil
//   - On timeout, panic or supersession: nil, nil, error
func (e *Engine) Evaluate(source string) (*Plan, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		p, evalErrs, err := e.evaluate(source)
		ch <- evalResult{plan: p, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

func (e *Engine) evaluate(source string) (*Plan, []EvalError, error) {
	p := NewPlan()
	if strings.TrimSpace(source) == "" {
		return p, nil, nil
	}

	// The sandbox has no filesystem or system calls; save and load only
	// queue commands.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, p)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return p, nil, nil
}

// linePattern matches "Error on line N: ..." from the zygomys parser.
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, keeping the
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
