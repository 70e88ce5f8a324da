package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foundry-zero/purec/internal/logging"
)

func TestFileWatcher_Rebuilds(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{model, other} {
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := newFileWatcher([]string{model}, logging.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rebuilds := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, 20*time.Millisecond, func() { rebuilds <- struct{}{} })
	}()

	if err := os.WriteFile(other, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rebuilds:
		t.Fatal("change to an unwatched file triggered a rebuild")
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(model, []byte(`{"elements": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rebuilds:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after the model changed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewFileWatcher_MissingDirectory(t *testing.T) {
	_, err := newFileWatcher([]string{filepath.Join(t.TempDir(), "gone", "model.json")}, logging.NewNopLogger())
	if err == nil {
		t.Error("expected an error for a missing directory")
	}
}
