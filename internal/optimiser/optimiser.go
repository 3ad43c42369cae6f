// Package optimiser implements Kabap's four-level token-stream
// rewriter (spec §4.2): level 0 is a no-op, each higher level includes
// the effects of the lower ones.
package optimiser

import (
	"strings"

	"github.com/kabaplang/kabap-go/internal/kerrors"
	"github.com/kabaplang/kabap-go/internal/token"
)

// MaxLevel is the highest valid optimisation level.
const MaxLevel = 3

// Optimise rewrites prog/labels at the given level, returning a new
// program and label table. The inputs are never mutated.
func Optimise(prog token.Program, labels token.Labels, level int) (token.Program, token.Labels, error) {
	if level < 0 || level > MaxLevel {
		return nil, nil, kerrors.New(kerrors.Semantic, "Optimisation level is out of bounds")
	}

	outProg := cloneProgram(prog)
	outLabels := cloneLabels(labels)

	if level == 0 {
		return outProg, outLabels, nil
	}

	// Level 1 is reserved for literal folding; not yet implemented, so
	// passing it through is a deliberate no-op rather than an error.

	if level >= 2 {
		outProg, outLabels = stripLineHints(outProg, outLabels)
	}

	if level >= 3 {
		outProg, outLabels = rewriteShortNames(outProg, outLabels)
	}

	return outProg, outLabels, nil
}

func cloneProgram(prog token.Program) token.Program {
	out := make(token.Program, len(prog))
	for i, s := range prog {
		out[i] = s.Clone()
	}
	return out
}

func cloneLabels(labels token.Labels) token.Labels {
	out := make(token.Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// stripLineHints discards every LineHint statement and renumbers the
// label table so every target index still points at the same logical
// statement.
func stripLineHints(prog token.Program, labels token.Labels) (token.Program, token.Labels) {
	removed := make([]bool, len(prog))
	for i, s := range prog {
		removed[i] = s.IsLineHint()
	}

	// newIndexOf[i] is the post-removal index that old index i maps to;
	// newIndexOf[len(prog)] handles labels whose target is "one past
	// the end" (a label as the final statement).
	newIndexOf := make([]int, len(prog)+1)
	removedSoFar := 0
	for i := 0; i <= len(prog); i++ {
		newIndexOf[i] = i - removedSoFar
		if i < len(prog) && removed[i] {
			removedSoFar++
		}
	}

	out := make(token.Program, 0, len(prog)-removedSoFar)
	for i, s := range prog {
		if !removed[i] {
			out = append(out, s)
		}
	}

	outLabels := make(token.Labels, len(labels))
	for name, idx := range labels {
		outLabels[name] = newIndexOf[idx]
	}
	return out, outLabels
}

// rewriteShortNames replaces every Variable, Label and
// Reference-as-goto-target value with a generated short name, assigned
// sequentially in first-encounter order using a spreadsheet-column
// scheme (a, b, ..., z, aa, ab, ...).
//
// Variables and labels/goto-targets occupy separate lookup keys (so a
// variable and a label with the same source text get distinct short
// names) but share one counter, so names are handed out in a single
// first-encounter sequence across both kinds.
func rewriteShortNames(prog token.Program, labels token.Labels) (token.Program, token.Labels) {
	names := make(map[string]string)
	next := 0
	shortName := func(key string) string {
		if n, ok := names[key]; ok {
			return n
		}
		n := columnName(next)
		next++
		names[key] = n
		return n
	}

	out := make(token.Program, len(prog))
	for i, s := range prog {
		newStmt := make(token.Statement, len(s))
		for j, tok := range s {
			switch tok.Type {
			case token.Variable:
				newStmt[j] = token.New(tok.Type, shortName("$"+strings.ToLower(tok.Value)), tok.Line)
			case token.Label:
				newStmt[j] = token.New(tok.Type, shortName(":"+strings.ToLower(tok.Value)), tok.Line)
			case token.Reference:
				if j > 0 && s[j-1].Type == token.Flow && s[j-1].Value == "goto" {
					newStmt[j] = token.New(tok.Type, shortName(":"+strings.ToLower(tok.Value)), tok.Line)
				} else {
					newStmt[j] = tok
				}
			default:
				newStmt[j] = tok
			}
		}
		out[i] = newStmt
	}

	outLabels := make(token.Labels, len(labels))
	for name, idx := range labels {
		outLabels[names[":"+name]] = idx
	}
	return out, outLabels
}

// columnName renders n (0-based) as a spreadsheet-style column name:
// 0->"a", 25->"z", 26->"aa", 27->"ab", ...
func columnName(n int) string {
	n++
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('a' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
