// Package engine evaluates orient scripts. It wraps zygomys in a sandboxed
// environment and produces a scene document plus the orient jobs the
// script requested.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/orient/pkg/kernel"
	"github.com/chazu/orient/pkg/orient"
	"github.com/chazu/orient/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
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

// Job is one (orient ...) call recorded by a script. Copy is nil when the
// script left the copy policy to the caller.
type Job struct {
	Index   int
	Objects orient.ObjectSet
	Source  uuid.UUID
	Targets []uuid.UUID
	Copy    *bool
}

// CopyPolicy returns the job's explicit policy, or def when none was given.
func (j Job) CopyPolicy(def bool) bool {
	if j.Copy == nil {
		return def
	}
	return *j.Copy
}

// Program is the output of a successful evaluation. Jobs are in script order
// and have not been run; the document holds every object the script created.
type Program struct {
	Doc  *scene.Document
	Jobs []Job
}

// Engine wraps the zygomys interpreter for orient scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh document.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	kernel  kernel.Kernel
	timeout time.Duration
	chords  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithChords makes documents produced by the engine accept polylines as
// lines, using their first and last vertex.
func WithChords(on bool) Option {
	return func(e *Engine) { e.chords = on }
}

// NewEngine creates a new Engine. k builds the solids scripts ask for and
// may be nil for scripts that only use points and curves.
func NewEngine(k kernel.Kernel, opts ...Option) *Engine {
	e := &Engine{kernel: k, timeout: EvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout reports the evaluation limit in effect.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Evaluate takes orient script source and produces a Program.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns program + nil errors + nil error
//   - On parse/eval failure: returns nil program + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Program, []EvalError, error) {
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
		ch <- evalResult{program: p, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

func (e *Engine) newDocument() *scene.Document {
	opts := []scene.Option{scene.WithChords(e.chords)}
	if e.kernel != nil {
		opts = append(opts, scene.WithKernel(e.kernel))
	}
	return scene.New(opts...)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Program, []EvalError, error) {
	p := &Program{Doc: e.newDocument()}

	// Empty source is a valid program with nothing in it.
	if strings.TrimSpace(source) == "" {
		return p, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, e.kernel, p)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	return p, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
