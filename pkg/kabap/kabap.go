// Package kabap is the public embedding surface for the Kabap engine
// (spec §6): the façade a host program drives to load, run and
// introspect a script, wrapping the lexer, optimiser, executor and
// .kat codec behind a single persistent Engine value.
//
// The functional-options construction (New(opts...)) follows the
// teacher's pkg/dwscript engine construction convention
// (engine, err := dwscript.New(WithTypeCheck(true))); Kabap's engine
// never fails to construct, so New returns *Engine directly rather
// than (*Engine, error).
package kabap

import (
	"github.com/kabaplang/kabap-go/internal/builtinext"
	"github.com/kabaplang/kabap-go/internal/executor"
	"github.com/kabaplang/kabap-go/internal/extension"
	"github.com/kabaplang/kabap-go/internal/kat"
	"github.com/kabaplang/kabap-go/internal/kerrors"
	"github.com/kabaplang/kabap-go/internal/lexer"
	"github.com/kabaplang/kabap-go/internal/optimiser"
	"github.com/kabaplang/kabap-go/internal/token"
)

// EngineMajor/EngineMinor identify this engine to extensions' Register
// handshake and to the built-in kabap.version reference.
const (
	EngineMajor = 1
	EngineMinor = 0
)

// DefaultScale and DefaultWatchdogLimit are restored whenever a fresh
// script is loaded via Script (spec §3: "config re-defaulted on fresh
// script").
const (
	DefaultScale         = 3
	DefaultWatchdogLimit = 1000
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithScale overrides the initial decimal scale.
func WithScale(scale int) Option {
	return func(e *Engine) { e.scale = scale }
}

// WithWatchdog overrides the initial watchdog tick limit.
func WithWatchdog(limit int) Option {
	return func(e *Engine) { e.watchdog = limit }
}

// WithDebug marks the engine as running in debug mode, a flag passed
// through to every extension's Register handshake.
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// Engine is a persistent, single-threaded Kabap embedding: construct
// once, then Script/TokensLoad and Run repeatedly (spec §5 forbids
// concurrent entry).
type Engine struct {
	store      *executor.Store
	extensions *extension.Registry
	extNames   []string

	scale    int
	watchdog int
	debug    bool

	prog      token.Program
	labels    token.Labels
	loadError bool

	stdout string
	stderr string
}

// New constructs an Engine with its built-in "kabap" extension already
// registered.
func New(opts ...Option) *Engine {
	e := &Engine{scale: DefaultScale, watchdog: DefaultWatchdogLimit}
	for _, opt := range opts {
		opt(e)
	}
	e.store = executor.NewStore()
	e.extensions = extension.New()
	e.registerBuiltin()
	return e
}

func (e *Engine) registerBuiltin() {
	e.extensions.Add(builtinext.New(EngineMajor, EngineMinor,
		func() int { return e.scale },
		func(n int) { e.scale = n },
	), EngineMajor, e.debug)
}

// Script parses and level-1-optimises text as fresh source, resetting
// configuration to the defaults and the runtime state via Reset. On a
// syntax or semantic error, Stderr is set and Script returns false;
// the engine's previous program (if any) is discarded.
func (e *Engine) Script(text string) bool {
	e.scale = DefaultScale
	e.watchdog = DefaultWatchdogLimit

	prog, labels, err := lexer.Tokenize(text)
	if err == nil {
		prog, labels, err = optimiser.Optimise(prog, labels, 1)
	}
	if err != nil {
		e.fail(err)
		return false
	}

	e.prog, e.labels = prog, labels
	e.loadError = false
	e.Reset()
	return true
}

// TokensLoad parses a .kat token stream, adopting its header's scale
// and watchdog configuration (spec §3: "preserved from .kat header on
// tokensLoad").
func (e *Engine) TokensLoad(text string) bool {
	header, prog, labels, err := kat.Load(text)
	if err != nil {
		e.fail(err)
		return false
	}
	e.scale = header.Scale
	e.watchdog = header.Watchdog
	e.prog, e.labels = prog, labels
	e.loadError = false
	e.Reset()
	return true
}

// TokensSave renders the currently loaded program at the given
// optimisation level. It returns ok=false if no program is loaded or
// the level is out of bounds.
func (e *Engine) TokensSave(level int) (string, bool) {
	if e.prog == nil {
		return "", false
	}
	prog, _, err := optimiser.Optimise(e.prog, e.labels, level)
	if err != nil {
		e.fail(err)
		return "", false
	}
	text := kat.Save(prog, kat.Header{
		Version:    kat.FormatMajor,
		Scale:      e.scale,
		Watchdog:   e.watchdog,
		OptimiseLv: level,
		Extensions: append([]string(nil), e.extNames...),
	})
	return text, true
}

func (e *Engine) fail(err error) {
	e.stderr = err.Error()
	e.loadError = true
	e.prog = nil
	e.labels = nil
}

// Run executes the loaded program. It returns false, leaving Stderr
// set, if no program is loaded, the last Script/TokensLoad call
// failed (the original error is preserved unchanged), or execution
// raises a runtime error.
func (e *Engine) Run() bool {
	if e.loadError {
		return false
	}
	if e.prog == nil {
		e.stderr = "Script or tokens must be loaded before running"
		return false
	}

	ex := executor.New(e.store, e.extensions, e.scale, e.watchdog)
	err := ex.Run(e.prog, e.labels)
	e.stdout = ex.Stdout.String()
	if err != nil {
		e.stderr = err.Error()
		return false
	}
	e.stderr = ""
	return true
}

// Reset clears variables, stdout and stderr and resets every
// registered extension, without discarding the loaded program.
func (e *Engine) Reset() {
	e.store.RemoveAll()
	e.stdout = ""
	e.stderr = ""
	e.loadError = false
	e.extensions.Reset()
}

// Stdout returns the accumulated output of the last Run.
func (e *Engine) Stdout() string { return e.stdout }

// Stderr returns the last recorded error message, if any.
func (e *Engine) Stderr() string { return e.stderr }

// VariableHas reports whether name is currently set.
func (e *Engine) VariableHas(name string) bool { return e.store.Has(name) }

// VariableGet returns a variable's value.
func (e *Engine) VariableGet(name string) (string, bool) { return e.store.Get(name) }

// VariableSet writes a variable, creating it if necessary.
func (e *Engine) VariableSet(name, value string) { e.store.Set(name, value) }

// VariableRemove deletes a single variable.
func (e *Engine) VariableRemove(name string) { e.store.Remove(name) }

// VariableRemoveAll clears every variable.
func (e *Engine) VariableRemoveAll() { e.store.RemoveAll() }

// StoreGet returns a snapshot of the entire variable store.
func (e *Engine) StoreGet() map[string]string {
	out := make(map[string]string)
	for _, name := range e.store.Names() {
		v, _ := e.store.Get(name)
		out[name] = v
	}
	return out
}

// StoreSet bulk-loads the variable store, replacing its contents.
func (e *Engine) StoreSet(values map[string]string) {
	e.store.RemoveAll()
	for k, v := range values {
		e.store.Set(k, v)
	}
}

// ScaleGet returns the current decimal scale.
func (e *Engine) ScaleGet() int { return e.scale }

// ScaleSet sets the decimal scale used to format arithmetic results.
func (e *Engine) ScaleSet(scale int) { e.scale = scale }

// WatchdogGet returns the current watchdog tick limit.
func (e *Engine) WatchdogGet() int { return e.watchdog }

// WatchdogSet sets the watchdog tick limit. Zero disables it; a
// negative value resets it to DefaultWatchdogLimit.
func (e *Engine) WatchdogSet(limit int) {
	if limit < 0 {
		limit = DefaultWatchdogLimit
	}
	e.watchdog = limit
}

// ExtensionAdd registers ext under its requested prefix. It returns
// false if ext declined registration or is a named extension already
// registered under the same name.
func (e *Engine) ExtensionAdd(ext extension.Extension) bool {
	ok := e.extensions.Add(ext, EngineMajor, e.debug)
	if ok {
		if named, isNamed := ext.(extension.Named); isNamed {
			e.extNames = append(e.extNames, named.Name())
		}
	}
	return ok
}

// ExtensionRemove removes a named extension. Anonymous extensions
// cannot be selectively removed; this sets Stderr and returns false.
func (e *Engine) ExtensionRemove(ext extension.Extension) bool {
	named, ok := ext.(extension.Named)
	if !ok {
		e.stderr = kerrors.New(kerrors.Semantic, "Cannot selectively remove an anonymous extension").Error()
		return false
	}
	if !e.extensions.Remove(ext) {
		return false
	}
	e.removeExtName(named.Name())
	return true
}

// ExtensionRemoveAll drops every extension, named and anonymous, then
// re-registers the built-in kabap extension.
func (e *Engine) ExtensionRemoveAll() {
	e.extensions.RemoveAll()
	e.extNames = nil
	e.registerBuiltin()
}

func (e *Engine) removeExtName(name string) {
	for i, n := range e.extNames {
		if n == name {
			e.extNames = append(e.extNames[:i], e.extNames[i+1:]...)
			return
		}
	}
}
