// Package engine evaluates parameter scripts for the elbow assembly.
// It wraps zygomys in a sandboxed environment and produces
// assembly.Parameters from user source code.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/assembly"
	zygo "github.com/glycerine/zygomys/zygo"
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

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Section string
	Message string
}

func (w EvalWarning) String() string {
	return w.Section + ": " + w.Message
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Params   *assembly.Parameters
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	base       assembly.Parameters
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBase sets the parameters a script starts from. Sections a script
// does not mention keep these values.
func WithBase(p assembly.Parameters) Option {
	return func(e *Engine) { e.base = p }
}

// WithLogger sets the logger for evaluation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrDiscard(l) }
}

// NewEngine creates a new Engine starting from assembly.DefaultParameters.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{base: assembly.DefaultParameters(), logger: logging.Discard()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs source and returns the parameters it describes.
//
// Return semantics:
//   - On success: returns params + nil errors + nil error
//   - On parse/eval failure: returns nil params + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*assembly.Parameters, []EvalError, error) {
	res, err := e.EvaluateResult(source)
	if err != nil {
		return nil, nil, err
	}
	return res.Params, res.Errors, nil
}

// EvaluateResult is Evaluate with warnings.
func (e *Engine) EvaluateResult(source string) (*EvalResult, error) {
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

		res := e.evaluate(source)
		ch <- evalResult{res: res}
	}()

	res, err := waitWithTimeout(ch, gen, &e.mu, &e.generation)
	if err != nil {
		e.logger.Warn("script evaluation failed", "generation", gen, "error", err)
		return nil, err
	}
	if len(res.Errors) > 0 {
		e.logger.Debug("script has errors", "generation", gen, "errors", len(res.Errors))
	}
	for _, w := range res.Warnings {
		e.logger.Warn("script warning", "section", w.Section, "message", w.Message)
	}
	return res, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) *EvalResult {
	p := e.base
	res := &EvalResult{}

	// Empty source keeps the base parameters.
	if strings.TrimSpace(source) == "" {
		res.Params = &p
		return res
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &builder{params: &p}
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		res.Errors = parseZygomysError(err)
		return res
	}
	if _, err := env.Run(); err != nil {
		res.Errors = parseZygomysError(err)
		return res
	}

	res.Params = &p
	res.Warnings = b.warnings
	return res
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?is)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	// Runtime errors may carry the builtin's message before the location.
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if loc := re.FindStringSubmatchIndex(msg); loc != nil {
			line, _ := strconv.Atoi(msg[loc[2]:loc[3]])
			detail := strings.TrimSpace(msg[loc[4]:loc[5]])
			if prefix := strings.TrimSpace(msg[:loc[0]]); prefix != "" {
				detail = strings.TrimSpace(prefix + " " + detail)
			}
			return []EvalError{{Line: line, Message: detail}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
