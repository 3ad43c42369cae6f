package kabap

import "testing"

func TestEngine_SimpleAssignment(t *testing.T) {
	e := New()
	if !e.Script(`return = 2+2;`) {
		t.Fatalf("Script failed: %s", e.Stderr())
	}
	if !e.Run() {
		t.Fatalf("Run failed: %s", e.Stderr())
	}
	if e.Stdout() != "4" {
		t.Errorf("stdout = %q, want 4", e.Stdout())
	}
}

func TestEngine_ScriptErrorSurfacesInStderr(t *testing.T) {
	e := New()
	if e.Script(`@`) {
		t.Fatal("expected Script to fail on invalid character")
	}
	if e.Stderr() != "Line 1: Unexpected character: @" {
		t.Errorf("got %q", e.Stderr())
	}
	if e.Run() {
		t.Fatal("expected Run to fail after a failed Script")
	}
	if e.Stderr() != "Line 1: Unexpected character: @" {
		t.Errorf("Run should preserve the original parse error, got %q", e.Stderr())
	}
}

func TestEngine_RunWithoutScriptFails(t *testing.T) {
	e := New()
	if e.Run() {
		t.Fatal("expected Run to fail with nothing loaded")
	}
	if e.Stderr() != "Script or tokens must be loaded before running" {
		t.Errorf("got %q", e.Stderr())
	}
}

func TestEngine_VariablePersistsAcrossRuns(t *testing.T) {
	e := New()
	e.Script(`$x = $x + 1;`)
	e.VariableSet("x", "1")
	if !e.Run() {
		t.Fatalf("Run failed: %s", e.Stderr())
	}
	v, ok := e.VariableGet("x")
	if !ok || v != "2" {
		t.Errorf("x = %q, ok=%v, want 2", v, ok)
	}
}

func TestEngine_TokensRoundTrip(t *testing.T) {
	e := New()
	e.Script("$x = 1;\nreturn = $x + 1;")
	text, ok := e.TokensSave(0)
	if !ok {
		t.Fatalf("TokensSave failed: %s", e.Stderr())
	}

	e2 := New()
	if !e2.TokensLoad(text) {
		t.Fatalf("TokensLoad failed: %s", e2.Stderr())
	}
	if !e2.Run() {
		t.Fatalf("Run failed: %s", e2.Stderr())
	}
	if e2.Stdout() != "2" {
		t.Errorf("stdout = %q, want 2", e2.Stdout())
	}
}

func TestEngine_ScaleAndWatchdogConfig(t *testing.T) {
	e := New()
	e.Script(`return = 1/3;`)

	e.ScaleSet(0)
	e.WatchdogSet(-1)
	if e.WatchdogGet() != DefaultWatchdogLimit {
		t.Errorf("negative WatchdogSet should reset to default, got %d", e.WatchdogGet())
	}

	if !e.Run() {
		t.Fatalf("Run failed: %s", e.Stderr())
	}
	if e.Stdout() != "0" {
		t.Errorf("stdout = %q, want 0 at scale 0", e.Stdout())
	}
}

func TestEngine_KabapBuiltinExtension(t *testing.T) {
	e := New()
	e.Script(`return = kabap.version;`)
	if !e.Run() {
		t.Fatalf("Run failed: %s", e.Stderr())
	}
	if e.Stdout() == "" {
		t.Error("expected a non-empty kabap.version")
	}
}

func TestEngine_ExtensionRemoveAllRestoresBuiltin(t *testing.T) {
	e := New()
	e.ExtensionRemoveAll()
	e.Script(`return = kabap.version;`)
	if !e.Run() {
		t.Fatalf("expected kabap.version to survive ExtensionRemoveAll: %s", e.Stderr())
	}
}
