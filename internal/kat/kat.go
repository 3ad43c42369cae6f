// Package kat implements Kabap's ".kat" token-interchange format (spec
// §4.5): a text-based alternative entry/exit point around the lexer,
// one sigil-prefixed token per line behind a single header comment.
//
// The header/version-check shape is borrowed from the teacher's binary
// bytecode serializer (internal/bytecode/serializer.go) — a magic
// comment standing in for its magic-number-plus-version header — but
// the encoding itself is the spec-mandated text format, not a binary
// port.
package kat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kabaplang/kabap-go/internal/kerrors"
	"github.com/kabaplang/kabap-go/internal/token"
)

// FormatMajor is the ".kat" format's major version. A loaded file must
// declare a version no newer than this.
const FormatMajor = 1

// Header carries the engine configuration a .kat file was saved with.
type Header struct {
	Version    int
	Scale      int
	Watchdog   int
	OptimiseLv int
	Extensions []string
}

var sigilByType = map[token.Type]byte{
	token.LineHint:     '.',
	token.StatementEnd: ';',
	token.BlockStart:   '{',
	token.BlockEnd:     '}',
	token.Flow:         '>',
	token.Operator:     '_',
	token.Variable:     '$',
	token.String:       '"',
	token.Number:       '#',
	token.Reference:    '@',
	token.Label:        ':',
}

var typeBySigil = func() map[byte]token.Type {
	out := make(map[byte]token.Type, len(sigilByType))
	for typ, sigil := range sigilByType {
		out[sigil] = typ
	}
	return out
}()

// immediate reports whether a token type auto-delimits a statement in
// the .kat line stream (LineHint, StatementEnd-shaped markers, blocks
// and labels never need an explicit ';' separator line).
func immediate(typ token.Type) bool {
	switch typ {
	case token.LineHint, token.BlockStart, token.BlockEnd, token.Label:
		return true
	default:
		return false
	}
}

// Save renders prog/labels into .kat text at the given header values.
// Trailing blank lines are never emitted.
func Save(prog token.Program, header Header) string {
	var b strings.Builder
	b.WriteString(renderHeader(header))
	b.WriteByte('\n')

	prevImmediate := true
	for _, stmt := range prog {
		isImmediate := len(stmt) == 1 && immediate(stmt[0].Type)
		if !prevImmediate && !isImmediate {
			b.WriteString(";\n")
		}
		for _, tok := range stmt {
			writeTokenLine(&b, tok)
		}
		prevImmediate = isImmediate
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderHeader(h Header) string {
	return fmt.Sprintf("// Kabap=Tokens v=%d utf8=✓ s=%d wd=%d o=%d e=%s",
		h.Version, h.Scale, h.Watchdog, h.OptimiseLv, strings.Join(h.Extensions, ","))
}

func writeTokenLine(b *strings.Builder, tok token.Token) {
	sigil, ok := sigilByType[tok.Type]
	if !ok {
		return
	}
	b.WriteByte(sigil)
	b.WriteString(tok.Value)
	b.WriteByte('\n')
}

// Load parses .kat text, returning the header and the reconstructed
// program and label table.
func Load(text string) (Header, token.Program, token.Labels, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return Header{}, nil, nil, kerrors.New(kerrors.Syntactic, "Missing Kabap=Tokens header")
	}

	header, err := parseHeader(lines[0])
	if err != nil {
		return Header{}, nil, nil, err
	}

	var prog token.Program
	var stmt token.Statement
	labels := make(token.Labels)
	line := 1

	flush := func() {
		if len(stmt) > 0 {
			prog = append(prog, stmt)
			stmt = nil
		}
	}

	for _, raw := range lines[1:] {
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "//") {
			continue
		}
		sigil := raw[0]
		value := raw[1:]

		if sigil == ';' {
			flush()
			continue
		}

		typ, ok := typeBySigil[sigil]
		if !ok {
			return Header{}, nil, nil, kerrors.At(kerrors.Syntactic, line, "Unknown token sigil: %c", sigil)
		}

		tok := token.New(typ, value, line)
		if typ == token.LineHint {
			if n, err := strconv.Atoi(value); err == nil {
				line = n
			}
			flush()
			prog = append(prog, token.Statement{tok})
			continue
		}
		if typ == token.Label {
			flush()
			name := strings.ToLower(value)
			stmt = append(stmt, tok)
			prog = append(prog, stmt)
			labels[name] = len(prog)
			stmt = nil
			continue
		}
		if typ == token.BlockStart || typ == token.BlockEnd {
			flush()
			prog = append(prog, token.Statement{tok})
			continue
		}

		stmt = append(stmt, tok)
	}
	flush()

	return header, prog, labels, nil
}

func parseHeader(line string) (Header, error) {
	if !strings.HasPrefix(line, "// Kabap=Tokens") {
		return Header{}, kerrors.New(kerrors.Syntactic, "Missing Kabap=Tokens header")
	}
	fields := strings.Fields(line)
	h := Header{Scale: 3, Watchdog: 1000}
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch k {
		case "v":
			n, err := strconv.Atoi(v)
			if err != nil {
				return Header{}, kerrors.New(kerrors.Syntactic, "Malformed .kat version")
			}
			h.Version = n
		case "utf8":
			if v != "✓" {
				return Header{}, kerrors.New(kerrors.Syntactic, "Missing utf8 marker in .kat header")
			}
		case "s":
			if n, err := strconv.Atoi(v); err == nil {
				h.Scale = n
			}
		case "wd":
			if n, err := strconv.Atoi(v); err == nil {
				h.Watchdog = n
			}
		case "o":
			if n, err := strconv.Atoi(v); err == nil {
				h.OptimiseLv = n
			}
		case "e":
			if v != "" {
				h.Extensions = strings.Split(v, ",")
			}
		}
	}
	if h.Version == 0 {
		return Header{}, kerrors.New(kerrors.Syntactic, "Missing Kabap=Tokens version")
	}
	if h.Version > FormatMajor {
		return Header{}, kerrors.New(kerrors.Syntactic, "Tokens file version %d is newer than this engine (%d)", h.Version, FormatMajor)
	}
	return h, nil
}
