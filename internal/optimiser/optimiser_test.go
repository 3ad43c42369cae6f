package optimiser

import (
	"testing"

	"github.com/kabaplang/kabap-go/internal/lexer"
	"github.com/kabaplang/kabap-go/internal/token"
)

func TestOptimise_LevelOutOfBounds(t *testing.T) {
	if _, _, err := Optimise(nil, nil, -1); err == nil {
		t.Fatal("expected error for negative level")
	}
	if _, _, err := Optimise(nil, nil, 4); err == nil {
		t.Fatal("expected error for level above MaxLevel")
	}
}

func TestOptimise_LevelZeroIsNoop(t *testing.T) {
	prog, labels, err := lexer.Tokenize("\n$x = 1;\n")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	out, outLabels, err := Optimise(prog, labels, 0)
	if err != nil {
		t.Fatalf("Optimise: %v", err)
	}
	if len(out) != len(prog) {
		t.Errorf("level 0 changed statement count: got %d, want %d", len(out), len(prog))
	}
	if len(outLabels) != len(labels) {
		t.Errorf("level 0 changed label count")
	}
}

func TestOptimise_Level2DiscardsLineHints(t *testing.T) {
	prog, labels, err := lexer.Tokenize("\n\n$x = 1;\n:done\nreturn = $x;")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	out, outLabels, err := Optimise(prog, labels, 2)
	if err != nil {
		t.Fatalf("Optimise: %v", err)
	}
	for _, s := range out {
		if s.IsLineHint() {
			t.Fatalf("level 2 should discard LineHints, found one: %#v", out)
		}
	}
	target, ok := outLabels["done"]
	if !ok {
		t.Fatal("expected label 'done' to survive renumbering")
	}
	if target < 0 || target > len(out) {
		t.Fatalf("renumbered label target %d out of range (len %d)", target, len(out))
	}
	if out[target-1][0].Type != token.Label {
		t.Fatalf("renumbered target-1 should be the Label statement, got %#v", out[target-1])
	}
}

func TestOptimise_Level3RewritesShortNames(t *testing.T) {
	prog, labels, err := lexer.Tokenize("$counter = 0;\n:loop\n$counter = $counter + 1;\nif $counter < 3;\ngoto loop;\nreturn = $counter;")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	out, outLabels, err := Optimise(prog, labels, 3)
	if err != nil {
		t.Fatalf("Optimise: %v", err)
	}
	for _, s := range out {
		for _, tok := range s {
			if tok.Type == token.Variable && tok.Value == "counter" {
				t.Fatalf("expected variable name to be rewritten, still found 'counter': %#v", out)
			}
			if tok.Type == token.Label && tok.Value == "loop" {
				t.Fatalf("expected label name to be rewritten, still found 'loop': %#v", out)
			}
		}
	}
	if len(outLabels) != 1 {
		t.Fatalf("expected exactly one rewritten label, got %d: %#v", len(outLabels), outLabels)
	}

	var gotoName string
	for _, s := range out {
		if s[0].Type == token.Flow && s[0].Value == "goto" {
			gotoName = s[1].Value
		}
	}
	for name := range outLabels {
		if name != gotoName {
			t.Errorf("goto target %q should match the rewritten label name %q", gotoName, name)
		}
	}
}

func TestColumnName(t *testing.T) {
	cases := map[int]string{0: "a", 25: "z", 26: "aa", 27: "ab", 51: "az", 52: "ba"}
	for n, want := range cases {
		if got := columnName(n); got != want {
			t.Errorf("columnName(%d) = %q, want %q", n, got, want)
		}
	}
}
