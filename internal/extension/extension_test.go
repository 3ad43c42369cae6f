package extension

import "testing"

type stubExt struct {
	name    string
	prefix  string
	decline bool
	resets  int
	handle  func(Message) Message
}

func (s *stubExt) Name() string { return s.name }

func (s *stubExt) Register(engineMajor int, debug bool) (string, bool) {
	if s.decline {
		return "", false
	}
	return s.prefix, true
}

func (s *stubExt) Reset() { s.resets++ }

func (s *stubExt) Handle(msg Message) Message {
	if s.handle != nil {
		return s.handle(msg)
	}
	msg.Result = Ignored
	return msg
}

func TestRegistry_AddAndDispatch(t *testing.T) {
	r := New()
	ext := &stubExt{name: "test", prefix: "Test", handle: func(msg Message) Message {
		msg.Result = HandledOkay
		msg.Value = "bar"
		return msg
	}}
	if !r.Add(ext, 1, false) {
		t.Fatal("expected Add to succeed")
	}

	out, err := r.Dispatch(Message{Kind: Read, Name: "test.foo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value != "bar" {
		t.Errorf("got %q, want bar", out.Value)
	}
}

func TestRegistry_DuplicateNamedRejected(t *testing.T) {
	r := New()
	ext1 := &stubExt{name: "dup", prefix: "a"}
	ext2 := &stubExt{name: "dup", prefix: "b"}
	if !r.Add(ext1, 1, false) {
		t.Fatal("first Add should succeed")
	}
	if r.Add(ext2, 1, false) {
		t.Fatal("second Add of same name should fail")
	}
}

func TestRegistry_InsertionOrderAndFallthrough(t *testing.T) {
	r := New()
	first := &stubExt{name: "first", prefix: "p"}
	second := &stubExt{name: "second", prefix: "p", handle: func(msg Message) Message {
		msg.Result = HandledOkay
		msg.Value = "second"
		return msg
	}}
	r.Add(first, 1, false)
	r.Add(second, 1, false)

	out, err := r.Dispatch(Message{Kind: Read, Name: "p.x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value != "second" {
		t.Errorf("expected fallthrough to second extension, got %q", out.Value)
	}
}

func TestRegistry_CatchAll(t *testing.T) {
	r := New()
	catch := &stubExt{name: "catch", prefix: "", handle: func(msg Message) Message {
		msg.Result = HandledOkay
		msg.Value = "caught"
		return msg
	}}
	r.Add(catch, 1, false)

	out, err := r.Dispatch(Message{Kind: Read, Name: "unknown.x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value != "caught" {
		t.Errorf("got %q, want caught", out.Value)
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := New()
	_, err := r.Dispatch(Message{Kind: Read, Name: "missing.x"})
	if err == nil || err.Error() != "Reference not found: missing.x" {
		t.Errorf("got %v", err)
	}
}

func TestRegistry_HandledFailEmptyMessage(t *testing.T) {
	r := New()
	ext := &stubExt{name: "broken", prefix: "b", handle: func(msg Message) Message {
		msg.Result = HandledFail
		return msg
	}}
	r.Add(ext, 1, false)
	_, err := r.Dispatch(Message{Kind: Read, Name: "b.x"})
	if err == nil || err.Error() != "Extension is broken (no error message given)" {
		t.Errorf("got %v", err)
	}
}

func TestRegistry_InvalidResult(t *testing.T) {
	r := New()
	ext := &stubExt{name: "weird", prefix: "w", handle: func(msg Message) Message {
		return msg // Result left at zero value (Unset)
	}}
	r.Add(ext, 1, false)
	_, err := r.Dispatch(Message{Kind: Read, Name: "w.x"})
	if err == nil || err.Error() != "Extension is broken (invalid result value)" {
		t.Errorf("got %v", err)
	}
}

func TestRegistry_RemoveAnonymousFails(t *testing.T) {
	r := New()
	anon := &anonExt{prefix: "x"}
	r.Add(anon, 1, false)
	if r.Remove(anon) {
		t.Fatal("expected Remove to fail for anonymous extension")
	}
	r.RemoveAll()
	out, err := r.Dispatch(Message{Kind: Read, Name: "x.y"})
	_ = out
	if err == nil {
		t.Fatal("expected dispatch to fail after RemoveAll")
	}
}

type anonExt struct{ prefix string }

func (a *anonExt) Register(int, bool) (string, bool) { return a.prefix, true }
func (a *anonExt) Reset()                             {}
func (a *anonExt) Handle(msg Message) Message         { msg.Result = Ignored; return msg }
