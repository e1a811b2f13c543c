package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sockpoke/internal/logs"
)

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sockpoke.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 {
		t.Fatalf("expected all lines, got %#v (%v)", lines, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected nothing, got %#v at %d", lines, offset)
	}
}

func TestLastRejectsDirectory(t *testing.T) {
	if _, _, err := logs.Last(t.TempDir(), 5); err == nil {
		t.Fatal("expected directory error")
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sockpoke.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var (
		mu   sync.Mutex
		seen []string
	)
	got := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, logs.FollowOptions{Offset: offset, Poll: 20 * time.Millisecond}, func(line string) {
			mu.Lock()
			seen = append(seen, line)
			mu.Unlock()
			if line == "later" {
				close(got)
			}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not emit appended line")
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "later" {
		t.Fatalf("unexpected follow lines: %#v", seen)
	}
}
