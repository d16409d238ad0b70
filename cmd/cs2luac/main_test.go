package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandGlobs_LiteralFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Widget.cs")
	if err := os.WriteFile(path, []byte("class Widget {}"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got, err := expandGlobs([]string{path})
	if err != nil {
		t.Fatalf("expandGlobs: %v", err)
	}
	if len(got) != 1 || got[0] != path {
		t.Errorf("expected [%s], got %v", path, got)
	}
}

func TestExpandGlobs_PatternAndDedup(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "A.cs")
	b := filepath.Join(dir, "B.cs")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("class X {}"), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	pattern := filepath.Join(dir, "*.cs")
	got, err := expandGlobs([]string{pattern, pattern, a})
	if err != nil {
		t.Fatalf("expandGlobs: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 deduplicated matches, got %d: %v", len(got), got)
	}
	if got[0] != a || got[1] != b {
		t.Errorf("expected sorted [%s %s], got %v", a, b, got)
	}
}

func TestExpandGlobs_NoMatches(t *testing.T) {
	got, err := expandGlobs([]string{filepath.Join(t.TempDir(), "*.cs")})
	if err != nil {
		t.Fatalf("expandGlobs: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestSymbolSet(t *testing.T) {
	set := symbolSet([]string{"DEBUG", "FEATURE_X"})
	if !set["DEBUG"] || !set["FEATURE_X"] {
		t.Errorf("expected both symbols present, got %v", set)
	}
	if len(set) != 2 {
		t.Errorf("expected exactly 2 symbols, got %d", len(set))
	}
}

func TestOpenCache_EmptyDSNIsInMemory(t *testing.T) {
	c, err := openCache("")
	if err != nil {
		t.Fatalf("openCache: %v", err)
	}
	defer c.Close()

	if err := c.Store("Box", "Box_int", "Box_int"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if got, ok := c.Lookup("Box", "Box_int"); !ok || got != "Box_int" {
		t.Errorf("expected cache hit, got %q, %v", got, ok)
	}
}

func TestOpenCache_CreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "nested", "cache.db")

	c, err := openCache(dsn)
	if err != nil {
		t.Fatalf("openCache: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Errorf("expected parent dir to exist: %v", err)
	}
}

func TestNewRootCmd_FlagsRegistered(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"out", "workers", "define", "cache", "verbose", "direct", "commit"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}
