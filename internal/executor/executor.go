// Package executor implements Kabap's five-pass per-statement Executor
// (spec §4.3): the component that walks an optimised token.Program,
// resolving references, reducing operators and driving control flow.
package executor

import (
	"math"
	"strconv"
	"strings"

	"github.com/kabaplang/kabap-go/internal/extension"
	"github.com/kabaplang/kabap-go/internal/kerrors"
	"github.com/kabaplang/kabap-go/internal/numfmt"
	"github.com/kabaplang/kabap-go/internal/token"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

func lower(s string) string { return lowerCaser.String(s) }

// Store is the executor's variable store: a lowercase-name to
// string-value map, created at construction and cleared on reset.
type Store struct {
	values map[string]string
}

// NewStore creates an empty variable store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Has(name string) bool {
	_, ok := s.values[lower(name)]
	return ok
}

func (s *Store) Get(name string) (string, bool) {
	v, ok := s.values[lower(name)]
	return v, ok
}

func (s *Store) Set(name, value string) {
	s.values[lower(name)] = value
}

func (s *Store) Remove(name string) {
	delete(s.values, lower(name))
}

func (s *Store) RemoveAll() {
	s.values = make(map[string]string)
}

// Names returns every variable name currently stored, for callers that
// need to enumerate the store (e.g. a debug dump).
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	return names
}

// Watchdog bounds the number of statement iterations an Executor will
// run before aborting. A zero or negative Limit disables the bound.
type Watchdog struct {
	Limit int
	ticks int
}

func (w *Watchdog) Reset() { w.ticks = 0 }

func (w *Watchdog) Tick() error {
	if w.Limit <= 0 {
		return nil
	}
	w.ticks++
	if w.ticks == w.Limit {
		return kerrors.New(kerrors.Runtime, "Watchdog %d ticks timeout, execution break", w.Limit)
	}
	return nil
}

// Executor runs a tokenised program against a variable store and an
// extension registry, accumulating stdout as it goes.
type Executor struct {
	Store      *Store
	Extensions *extension.Registry
	Scale      int
	Watchdog   *Watchdog

	Stdout strings.Builder

	line int
}

// New creates an Executor. ext may be nil only for tests that don't
// exercise reference dispatch.
func New(store *Store, ext *extension.Registry, scale, watchdogLimit int) *Executor {
	return &Executor{
		Store:      store,
		Extensions: ext,
		Scale:      scale,
		Watchdog:   &Watchdog{Limit: watchdogLimit},
	}
}

// Run executes prog from its first statement, returning the first
// error encountered (or nil on a clean run or an explicit break).
func (e *Executor) Run(prog token.Program, labels token.Labels) error {
	e.Watchdog.Reset()
	e.line = 0
	e.Stdout.Reset()

	i := 0
	for i < len(prog) {
		if err := e.Watchdog.Tick(); err != nil {
			return err
		}
		jump, brk, err := e.execStatement(prog, labels, i)
		if err != nil {
			return err
		}
		if brk {
			return nil
		}
		if jump >= 0 {
			i = jump
			continue
		}
		i++
	}
	return nil
}

// execStatement runs one statement of prog and reports either a jump
// target (>=0), a break, or an error. The original program statement
// is never mutated: every pass works against a cloned buffer.
func (e *Executor) execStatement(prog token.Program, labels token.Labels, i int) (int, bool, error) {
	original := prog[i]
	work := original.Clone()

	if work.IsLineHint() {
		if n, err := strconv.Atoi(work[0].Value); err == nil {
			e.line = n
		}
		return -1, false, nil
	}
	if work.IsLabel() {
		return -1, false, nil
	}

	line := e.statementLine(work)

	if work[0].Type == token.Flow {
		switch work[0].Value {
		case "break":
			if len(work) != 1 {
				return -1, false, kerrors.At(kerrors.Semantic, line, "Nothing can be after break")
			}
			return -1, true, nil
		case "goto":
			if len(work) != 2 || work[1].Type != token.Reference {
				return -1, false, kerrors.At(kerrors.Semantic, line, "Expected label after goto")
			}
			target, ok := labels[lower(work[1].Value)]
			if !ok {
				return -1, false, kerrors.At(kerrors.Runtime, line, "Unknown label: %s", work[1].Value)
			}
			return target, false, nil
		}
	}

	isAssignment, err := detectAssignment(work, line)
	if err != nil {
		return -1, false, err
	}

	skipIdx := -1
	if isAssignment {
		skipIdx = 0
	}
	if err := e.substitute(work, skipIdx, line); err != nil {
		return -1, false, err
	}

	reduceFrom := 0
	switch {
	case isAssignment:
		reduceFrom = 2
	case work[0].Type == token.Flow && work[0].Value == "if":
		reduceFrom = 1
	}

	rest, err := reduceAll(work[reduceFrom:], e.Scale, line)
	if err != nil {
		return -1, false, err
	}
	work = append(work[:reduceFrom:reduceFrom], rest...)

	if isAssignment {
		if len(work) != 3 {
			return -1, false, kerrors.At(kerrors.Semantic, line, "Assignment takes only one right-hand value")
		}
		if err := e.writeAssignment(work[0], work[2], line); err != nil {
			return -1, false, err
		}
		return -1, false, nil
	}

	if work[0].Type == token.Flow && work[0].Value == "if" {
		switch {
		case len(work) < 2:
			return -1, false, kerrors.At(kerrors.Semantic, line, "Missing if condition to be evaluated")
		case len(work) > 2:
			return -1, false, kerrors.At(kerrors.Semantic, line, "Only 1 if condition can be evaluated")
		case work[1].Type != token.String && work[1].Type != token.Number:
			return -1, false, kerrors.At(kerrors.Semantic, line, "An if condition cannot contain a %s", work[1].Type)
		}
		if numfmt.Parse(work[1].Value, 0) == 0 {
			return skipConditional(prog, i), false, nil
		}
	}

	return -1, false, nil
}

func (e *Executor) statementLine(stmt token.Statement) int {
	if len(stmt) > 0 && stmt[0].Line > 0 {
		return stmt[0].Line
	}
	return e.line
}

// writeAssignment performs the single, pass-4 write of an assignment's
// reduced right-hand value into its left-hand target.
func (e *Executor) writeAssignment(lvalue, rvalue token.Token, line int) error {
	switch lvalue.Type {
	case token.Variable:
		e.Store.Set(lvalue.Value, rvalue.Value)
		return nil
	case token.Reference:
		if lower(lvalue.Value) == "return" {
			e.Stdout.WriteString(rvalue.Value)
			return nil
		}
		_, err := e.Extensions.Dispatch(extension.Message{Kind: extension.Write, Name: lvalue.Value, Value: rvalue.Value})
		if err != nil {
			return kerrors.At(kerrors.Runtime, line, "%s", err.Error())
		}
		return nil
	}
	return kerrors.At(kerrors.Semantic, line, "Assignment left-hand value must be a variable or reference")
}

// detectAssignment reports whether work is of the form
// LValue "=" RValue..., validating the single-"=" and LHS-shape
// invariants spec §4.3 requires of pass 0.
func detectAssignment(work token.Statement, line int) (bool, error) {
	eqCount := 0
	eqIdx := -1
	for idx, tok := range work {
		if tok.Type == token.Operator && tok.Value == "=" {
			eqCount++
			eqIdx = idx
		}
	}
	if eqCount == 0 {
		return false, nil
	}
	if eqCount > 1 {
		return false, kerrors.At(kerrors.Semantic, line, "Only 1 assignment can be in a statement")
	}
	if eqIdx != 1 {
		return false, kerrors.At(kerrors.Semantic, line, "Assignment expects 1 left-hand value")
	}
	if len(work) < 3 {
		return false, kerrors.At(kerrors.Semantic, line, "Assignment expects a right-hand value")
	}
	if work[0].Type != token.Variable && work[0].Type != token.Reference {
		return false, kerrors.At(kerrors.Semantic, line, "Assignment left-hand value must be a variable or reference")
	}
	for _, tok := range work[2:] {
		if !assignableRHS[tok.Type] {
			return false, kerrors.At(kerrors.Semantic, line, "Assignment cannot contain a %s", tok.Type)
		}
	}
	return true, nil
}

// assignableRHS lists the token kinds an assignment's right-hand side
// may contain (spec §7: "Assignment cannot contain a <kind>"). Flow
// tokens reach here because the lexer reclassifies any Reference
// spelled break/goto/if to Flow regardless of position, so a bare
// "$x = break;" must be rejected here rather than silently stored.
var assignableRHS = map[token.Type]bool{
	token.Variable:  true,
	token.Reference: true,
	token.String:    true,
	token.Number:    true,
	token.Operator:  true,
}

// substitute is pass 0's left-to-right reference resolution: every
// Variable (except the one at skipIdx, the LValue of an assignment) is
// replaced by its store value, and every Reference is replaced by the
// extension registry's READ dispatch result.
func (e *Executor) substitute(work token.Statement, skipIdx, line int) error {
	for idx := range work {
		if idx == skipIdx {
			continue
		}
		tok := work[idx]
		switch tok.Type {
		case token.Variable:
			val, ok := e.Store.Get(tok.Value)
			if !ok {
				return kerrors.At(kerrors.Runtime, line, "Undefined variable: %s", tok.Value)
			}
			work[idx] = token.New(token.String, val, tok.Line)
		case token.Reference:
			if lower(tok.Value) == "return" {
				return kerrors.At(kerrors.Runtime, line, "Cannot read from a return")
			}
			out, err := e.Extensions.Dispatch(extension.Message{Kind: extension.Read, Name: tok.Value})
			if err != nil {
				return kerrors.At(kerrors.Runtime, line, "%s", err.Error())
			}
			work[idx] = token.New(token.String, out.Value, tok.Line)
		}
	}
	return nil
}

// skipConditional finds the statement a false "if" at index i skips
// forward to: the statement after the matching BlockEnd for the block
// form, or the single statement immediately after the guard for the
// bare form. LineHints are transparent to the scan.
func skipConditional(prog token.Program, i int) int {
	depth := 0
	j := i + 1
	for j < len(prog) {
		stmt := prog[j]
		if stmt.IsLineHint() {
			j++
			continue
		}
		if len(stmt) == 1 && stmt[0].Type == token.BlockStart {
			depth++
			j++
			continue
		}
		if len(stmt) == 1 && stmt[0].Type == token.BlockEnd {
			depth--
			j++
			if depth == 0 {
				return j
			}
			continue
		}
		j++
		if depth == 0 {
			return j
		}
	}
	return j
}

var mathOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true, "^": true, "++": true, "--": true}
var unaryMathOps = map[string]bool{"++": true, "--": true}
var compareOps = map[string]bool{"<": true, "<=": true, "==": true, ">=": true, ">": true, "!=": true}

// reduceAll runs the math, string-concat and comparator passes in
// sequence (each right-to-left) over tokens.
func reduceAll(tokens []token.Token, scale int, line int) ([]token.Token, error) {
	tokens, err := reduceMath(tokens, scale, line)
	if err != nil {
		return nil, err
	}
	tokens, err = reduceConcat(tokens, line)
	if err != nil {
		return nil, err
	}
	return reduceCompare(tokens, line)
}

func reduceMath(tokens []token.Token, scale, line int) ([]token.Token, error) {
	for {
		idx := rightmost(tokens, func(t token.Token) bool { return t.Type == token.Operator && mathOps[t.Value] })
		if idx == -1 {
			return tokens, nil
		}
		op := tokens[idx].Value
		if unaryMathOps[op] {
			if idx == 0 {
				return nil, kerrors.At(kerrors.Semantic, line, "Missing left-hand operand before operator")
			}
			result, err := applyUnaryMath(tokens[idx-1], op, scale, line)
			if err != nil {
				return nil, err
			}
			tokens = splice(tokens, idx-1, idx, result)
			continue
		}
		if idx == 0 {
			return nil, kerrors.At(kerrors.Semantic, line, "Missing left-hand operand before operator")
		}
		if idx == len(tokens)-1 {
			return nil, kerrors.At(kerrors.Semantic, line, "Missing right-hand operand after operator")
		}
		result, err := applyBinaryMath(tokens[idx-1], op, tokens[idx+1], scale, line)
		if err != nil {
			return nil, err
		}
		tokens = splice(tokens, idx-1, idx+1, result)
	}
}

func reduceConcat(tokens []token.Token, line int) ([]token.Token, error) {
	for {
		idx := rightmost(tokens, func(t token.Token) bool { return t.Type == token.Operator && t.Value == "<<" })
		if idx == -1 {
			return tokens, nil
		}
		if idx == 0 {
			return nil, kerrors.At(kerrors.Semantic, line, "Missing left-hand operand before operator")
		}
		if idx == len(tokens)-1 {
			return nil, kerrors.At(kerrors.Semantic, line, "Missing right-hand operand after operator")
		}
		left, right := tokens[idx-1], tokens[idx+1]
		if !isValueToken(left) {
			return nil, kerrors.At(kerrors.Semantic, line, "Left-hand operand cannot be a %s", left.Type)
		}
		if !isValueToken(right) {
			return nil, kerrors.At(kerrors.Semantic, line, "Right-hand operand cannot be a %s", right.Type)
		}
		result := token.New(token.String, left.Value+right.Value, left.Line)
		tokens = splice(tokens, idx-1, idx+1, result)
	}
}

func reduceCompare(tokens []token.Token, line int) ([]token.Token, error) {
	for {
		idx := rightmost(tokens, func(t token.Token) bool { return t.Type == token.Operator && compareOps[t.Value] })
		if idx == -1 {
			return tokens, nil
		}
		if idx == 0 {
			return nil, kerrors.At(kerrors.Semantic, line, "Missing left-hand operand before operator")
		}
		if idx == len(tokens)-1 {
			return nil, kerrors.At(kerrors.Semantic, line, "Missing right-hand operand after operator")
		}
		left, op, right := tokens[idx-1], tokens[idx].Value, tokens[idx+1]
		if !isValueToken(left) {
			return nil, kerrors.At(kerrors.Semantic, line, "Left-hand operand cannot be a %s", left.Type)
		}
		if !isValueToken(right) {
			return nil, kerrors.At(kerrors.Semantic, line, "Right-hand operand cannot be a %s", right.Type)
		}
		var truth bool
		switch op {
		case "==":
			truth = lower(left.Value) == lower(right.Value)
		case "!=":
			truth = lower(left.Value) != lower(right.Value)
		default:
			lv, rv := numfmt.Parse(left.Value, 0), numfmt.Parse(right.Value, 0)
			switch op {
			case "<":
				truth = lv < rv
			case "<=":
				truth = lv <= rv
			case ">=":
				truth = lv >= rv
			case ">":
				truth = lv > rv
			}
		}
		val := "0"
		if truth {
			val = "1"
		}
		result := token.New(token.String, val, left.Line)
		tokens = splice(tokens, idx-1, idx+1, result)
	}
}

func isValueToken(t token.Token) bool {
	return t.Type == token.String || t.Type == token.Number
}

func applyUnaryMath(left token.Token, op string, scale, line int) (token.Token, error) {
	if !isValueToken(left) {
		return token.Token{}, kerrors.At(kerrors.Semantic, line, "Left-hand operand cannot be a %s", left.Type)
	}
	v := numfmt.Parse(left.Value, 0)
	if op == "++" {
		v++
	} else {
		v--
	}
	return token.New(token.Number, numfmt.Format(v, scale), left.Line), nil
}

func applyBinaryMath(left token.Token, op string, right token.Token, scale, line int) (token.Token, error) {
	if !isValueToken(left) {
		return token.Token{}, kerrors.At(kerrors.Semantic, line, "Left-hand operand cannot be a %s", left.Type)
	}
	if !isValueToken(right) {
		return token.Token{}, kerrors.At(kerrors.Semantic, line, "Right-hand operand cannot be a %s", right.Type)
	}
	lv, rv := numfmt.Parse(left.Value, 0), numfmt.Parse(right.Value, 0)
	var result float64
	switch op {
	case "+":
		result = lv + rv
	case "-":
		result = lv - rv
	case "*":
		result = lv * rv
	case "/":
		if rv == 0 {
			return token.New(token.Number, "0", left.Line), nil
		}
		result = lv / rv
	case "%":
		if rv == 0 {
			return token.New(token.Number, "0", left.Line), nil
		}
		result = math.Mod(lv, rv)
	case "^":
		result = math.Pow(lv, rv)
	}
	return token.New(token.Number, numfmt.Format(result, scale), left.Line), nil
}

// rightmost returns the highest index i for which match(tokens[i]) is
// true, or -1 if none match.
func rightmost(tokens []token.Token, match func(token.Token) bool) int {
	for i := len(tokens) - 1; i >= 0; i-- {
		if match(tokens[i]) {
			return i
		}
	}
	return -1
}

// splice replaces tokens[from:to+1] with a single token.
func splice(tokens []token.Token, from, to int, repl token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens)-(to-from))
	out = append(out, tokens[:from]...)
	out = append(out, repl)
	out = append(out, tokens[to+1:]...)
	return out
}
