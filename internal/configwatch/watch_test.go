package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
)

func TestWatcher_FiresOnConfigWrite(t *testing.T) {
	base := t.TempDir()
	paths := pathresolver.New(base)
	agentID := "agent-watch"

	if err := os.MkdirAll(paths.AgentDir(agentID), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	configPath := paths.ConfigPath(agentID)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	changed := make(chan string, 1)
	w := New(paths, agentID, func(path string) {
		select {
		case changed <- path:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	// Give the watcher a moment to register before triggering the event.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(configPath, []byte(`{"role":"updated"}`), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case path := <-changed:
		if filepath.Clean(path) != configPath {
			t.Fatalf("onChange path = %q, want %q", path, configPath)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config change notification")
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	base := t.TempDir()
	paths := pathresolver.New(base)
	agentID := "agent-watch-2"
	if err := os.MkdirAll(paths.AgentDir(agentID), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	changed := make(chan string, 1)
	w := New(paths, agentID, func(path string) { changed <- path })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	other := filepath.Join(paths.AgentDir(agentID), "notes.txt")
	if err := os.WriteFile(other, []byte("hello"), 0644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	select {
	case path := <-changed:
		t.Fatalf("unexpected change notification for %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}
