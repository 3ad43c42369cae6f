package builtinext

import (
	"testing"

	"github.com/kabaplang/kabap-go/internal/extension"
)

func TestBuiltinExtension_Version(t *testing.T) {
	ext := New(1, 2, func() int { return 3 }, func(int) {})
	msg, err := registryWith(ext).Dispatch(extension.Message{Kind: extension.Read, Name: "kabap.version"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Value != "1.2" {
		t.Errorf("got %q, want 1.2", msg.Value)
	}
}

func TestBuiltinExtension_ScaleReadWrite(t *testing.T) {
	scale := 3
	ext := New(1, 0, func() int { return scale }, func(n int) { scale = n })
	reg := registryWith(ext)

	msg, err := reg.Dispatch(extension.Message{Kind: extension.Read, Name: "kabap.scale"})
	if err != nil || msg.Value != "3" {
		t.Fatalf("got %q, err %v", msg.Value, err)
	}

	_, err = reg.Dispatch(extension.Message{Kind: extension.Write, Name: "kabap.scale", Value: "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scale != 5 {
		t.Errorf("scale = %d, want 5", scale)
	}
}

func TestBuiltinExtension_VersionIsReadOnly(t *testing.T) {
	ext := New(1, 0, func() int { return 0 }, func(int) {})
	_, err := registryWith(ext).Dispatch(extension.Message{Kind: extension.Write, Name: "kabap.version", Value: "9.9"})
	if err == nil {
		t.Fatal("expected write to kabap.version to fail")
	}
}

func TestBuiltinExtension_RandomInRange(t *testing.T) {
	ext := New(1, 0, func() int { return 0 }, func(int) {})
	msg, err := registryWith(ext).Dispatch(extension.Message{Kind: extension.Read, Name: "kabap.random"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Value == "" {
		t.Error("expected a non-empty random value")
	}
}

func registryWith(ext extension.Extension) *extension.Registry {
	r := extension.New()
	r.Add(ext, 1, false)
	return r
}
