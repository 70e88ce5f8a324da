package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"a.json", "sub/b.json", "sub/deep/c.json", "sub/readme.md"} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := expandInputs([]string{
		filepath.Join(dir, "**", "*.json"),
		filepath.Join(dir, "a.json"),
		"missing.json",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "sub", "b.json"),
		filepath.Join(dir, "sub", "deep", "c.json"),
		"missing.json",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandInputs() = %v, want %v", got, want)
	}
}

func TestExpandInputs_InvalidPattern(t *testing.T) {
	if _, err := expandInputs([]string{"models/[.json"}); err == nil {
		t.Error("expected an error for an invalid pattern")
	}
}
