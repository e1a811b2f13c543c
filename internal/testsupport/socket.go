package testsupport

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// SocketPath returns an endpoint path short enough for sockaddr_un. t.TempDir
// paths embed the test name and can exceed the limit, so a dedicated short
// directory under os.TempDir is used instead.
func SocketPath(t testing.TB) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "spk-")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return filepath.Join(dir, "s.sock")
}

// WaitForPath polls until path exists or the timeout elapses.
func WaitForPath(t testing.TB, path string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Lstat(path); err == nil {
			return
		} else if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("stat %s: %v", path, err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// AssertMissing fails the test if path still exists.
func AssertMissing(t testing.TB, path string) {
	t.Helper()

	if _, err := os.Lstat(path); err == nil {
		t.Fatalf("expected %s to be removed", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("stat %s: %v", path, err)
	}
}

// SkipIfSocketsUnavailable skips tests in sandboxes that forbid Unix sockets.
func SkipIfSocketsUnavailable(t testing.TB, err error) {
	t.Helper()

	if err != nil && strings.Contains(err.Error(), "operation not permitted") {
		t.Skipf("skipping socket test: %v", err)
	}
}
