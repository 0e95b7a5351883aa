package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestMemoryStore(t *testing.T) {
	var m MemoryStore
	if toks, err := m.Load(); err != nil || toks != (Tokens{}) {
		t.Fatalf("empty load = %+v, %v", toks, err)
	}
	_ = m.Save(Tokens{Access: "a", Refresh: "r"})
	if toks, _ := m.Load(); toks.Refresh != "r" {
		t.Errorf("load = %+v", toks)
	}
	_ = m.Clear()
	if toks, _ := m.Load(); toks != (Tokens{}) {
		t.Errorf("after clear = %+v", toks)
	}
}

func TestKeyringStoreRoundTrip(t *testing.T) {
	keyring.MockInit()
	k := NewKeyringStore("reflex-test", filepath.Join(t.TempDir(), "tokens.json"))

	if toks, err := k.Load(); err != nil || toks != (Tokens{}) {
		t.Fatalf("empty load = %+v, %v", toks, err)
	}
	want := Tokens{Access: "acc", Refresh: "ref"}
	if err := k.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := k.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
	if err := k.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := k.Load(); got != (Tokens{}) {
		t.Errorf("after clear = %+v", got)
	}
}

func TestKeyringFallbackFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	k := NewKeyringStore("", path)

	if err := k.setFallback(keyAccess, "file-acc"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("fallback perms = %o, want 600", perm)
	}
	if got, err := k.getFallback(keyAccess); err != nil || got != "file-acc" {
		t.Errorf("getFallback = %q, %v", got, err)
	}
	if err := k.clearFallback(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("fallback file not removed")
	}
}

func TestKeyringFallbackRequiresPath(t *testing.T) {
	k := NewKeyringStore("svc", "")
	if err := k.setFallback(keyAccess, "x"); err == nil {
		t.Error("setFallback without path succeeded")
	}
	if got, err := k.getFallback(keyAccess); err != nil || got != "" {
		t.Errorf("getFallback without path = %q, %v", got, err)
	}
}
