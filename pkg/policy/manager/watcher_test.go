package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewFileWatcher_RequiresPath(t *testing.T) {
	if _, err := NewFileWatcher(&FileWatcherConfig{}, nil); err == nil {
		t.Error("NewFileWatcher() without path should fail")
	}
}

func TestFileWatcher_StopBeforeWatch(t *testing.T) {
	fw, err := NewFileWatcher(&FileWatcherConfig{Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := fw.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestFileWatcher_ShouldProcessEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "policy.pl")

	fileWatcher := &FileWatcher{config: DefaultFileWatcherConfig(), file: file}
	dirWatcher := &FileWatcher{config: DefaultFileWatcherConfig()}

	tests := []struct {
		name    string
		watcher *FileWatcher
		event   fsnotify.Event
		want    bool
	}{
		{"file write", fileWatcher, fsnotify.Event{Name: file, Op: fsnotify.Write}, true},
		{"file rename into place", fileWatcher, fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"sibling file", fileWatcher, fsnotify.Event{Name: filepath.Join(dir, "other.pl"), Op: fsnotify.Write}, false},
		{"chmod only", fileWatcher, fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false},
		{"policy in directory", dirWatcher, fsnotify.Event{Name: filepath.Join(dir, "a.lucon"), Op: fsnotify.Write}, true},
		{"removed policy", dirWatcher, fsnotify.Event{Name: filepath.Join(dir, "a.pro"), Op: fsnotify.Remove}, true},
		{"non-policy file", dirWatcher, fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}, false},
		{"hidden editor file", dirWatcher, fsnotify.Event{Name: filepath.Join(dir, ".a.pl"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.watcher.shouldProcessEvent(tt.event); got != tt.want {
				t.Errorf("shouldProcessEvent(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestFileWatcher_DirectoryChanges(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.pl"), []byte("rule(a).\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(&FileWatcherConfig{Path: dir, DebounceInterval: 20 * time.Millisecond, SkipHidden: true}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fw.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// A burst of writes collapses into a single reload.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(dir, "a.pl"), []byte("rule(b).\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for reloads.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no reload after policy change")
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if n := reloads.Load(); n != 1 {
		t.Errorf("reloads = %d, want 1", n)
	}

	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := reloads.Load(); n != 1 {
		t.Errorf("reloads after unrelated file = %d, want 1", n)
	}

	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after Stop")
	}
}

func TestFileWatcher_MissingPath(t *testing.T) {
	fw, err := NewFileWatcher(&FileWatcherConfig{Path: filepath.Join(t.TempDir(), "absent")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Stop()

	if err := fw.Watch(context.Background(), func() error { return nil }); err == nil {
		t.Error("Watch() on a missing path should fail")
	}
}

func TestDebouncer(t *testing.T) {
	t.Run("coalesces bursts", func(t *testing.T) {
		d := NewDebouncer(30 * time.Millisecond)
		var calls atomic.Int32
		for i := 0; i < 10; i++ {
			d.Trigger(func() { calls.Add(1) })
		}
		time.Sleep(120 * time.Millisecond)
		if n := calls.Load(); n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
	})

	t.Run("latest callback wins", func(t *testing.T) {
		d := NewDebouncer(30 * time.Millisecond)
		var got atomic.Int32
		d.Trigger(func() { got.Store(1) })
		d.Trigger(func() { got.Store(2) })
		time.Sleep(120 * time.Millisecond)
		if v := got.Load(); v != 2 {
			t.Errorf("callback = %d, want 2", v)
		}
	})

	t.Run("stop cancels pending", func(t *testing.T) {
		d := NewDebouncer(30 * time.Millisecond)
		var calls atomic.Int32
		d.Trigger(func() { calls.Add(1) })
		d.Stop()
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(100 * time.Millisecond)
		if n := calls.Load(); n != 0 {
			t.Errorf("calls after Stop = %d, want 0", n)
		}
	})
}
