package exchange

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"sockpoke/internal/logging"
)

type listenFunc func(network, address string) (net.Listener, error)

// Endpoint is a claimed listener path. Release must be deferred right after a
// successful Claim; it removes the socket file and lock file if they exist.
type Endpoint struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
	listen listenFunc
}

// EndpointOptions controls how a listener claims its path.
type EndpointOptions struct {
	// Lock holds <path>.lock for the lifetime of the endpoint.
	Lock   bool
	Logger *slog.Logger
}

// Claim takes ownership of path for a listening session. With Lock set it
// fails with ErrEndpointBusy when another listener already owns the path, in
// which case nothing on disk is touched.
func Claim(path string, opts EndpointOptions) (*Endpoint, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	ep := &Endpoint{path: path, logger: logger, listen: net.Listen}
	if !opts.Lock {
		return ep, nil
	}

	lock, err := acquireLock(LockPath(path))
	if err != nil {
		return nil, &BindError{Path: path, Err: err}
	}
	ep.lock = lock
	logger.Debug("endpoint lock acquired", logging.String("lock", lock.Path()))
	return ep, nil
}

// lockAttempts bounds retries when the lock file is swapped out underneath us.
const lockAttempts = 3

func acquireLock(lockPath string) (*flock.Flock, error) {
	for range lockAttempts {
		lock := flock.New(lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire endpoint lock: %w", err)
		}
		if !ok {
			return nil, ErrEndpointBusy
		}
		if lockIsCurrent(lock) {
			return lock, nil
		}
		// A releasing listener unlinked the file we opened.
		_ = lock.Unlock()
	}
	return nil, ErrEndpointBusy
}

// lockIsCurrent reports whether the held descriptor is still the file at the
// lock path.
func lockIsCurrent(lock *flock.Flock) bool {
	held, err := lock.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(lock.Path())
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

// LockPath returns the advisory lock file guarding a listener endpoint.
func LockPath(path string) string {
	return path + ".lock"
}

// Path returns the claimed socket path.
func (e *Endpoint) Path() string {
	return e.path
}

// Bind creates the listening socket. When the path is already in use, the
// stale file is removed and the bind is retried exactly once.
func (e *Endpoint) Bind() (net.Listener, error) {
	if err := checkDirWritable(filepath.Dir(e.path)); err != nil {
		return nil, &BindError{Path: e.path, Err: err}
	}

	ln, err := e.listen("unix", e.path)
	if err == nil {
		return ln, nil
	}
	if !errors.Is(err, unix.EADDRINUSE) {
		return nil, &BindError{Path: e.path, Err: err}
	}

	e.logger.Info("removing stale endpoint",
		logging.String(logging.FieldEndpoint, e.path),
		logging.String(logging.FieldEventType, "stale_endpoint_removed"))
	if rmErr := os.Remove(e.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		return nil, &BindError{Path: e.path, Err: fmt.Errorf("remove stale endpoint: %w", rmErr)}
	}

	ln, err = e.listen("unix", e.path)
	if err != nil {
		return nil, &BindError{Path: e.path, Err: err}
	}
	return ln, nil
}

// Release removes the endpoint path if it still exists and drops the lock.
// It is safe to call on every exit path, including after a failed Bind.
func (e *Endpoint) Release() error {
	if e == nil {
		return nil
	}
	var errs []error
	if err := removeIfExists(e.path); err != nil {
		errs = append(errs, fmt.Errorf("remove endpoint: %w", err))
	}
	if e.lock != nil {
		// Unlink while still held so no new claimant can lock the old file.
		if err := removeIfExists(e.lock.Path()); err != nil {
			errs = append(errs, fmt.Errorf("remove endpoint lock: %w", err))
		}
		if err := e.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release endpoint lock: %w", err))
		}
		e.lock = nil
	}
	err := errors.Join(errs...)
	if err != nil {
		logging.WarnWithContext(e.logger, "endpoint cleanup failed", "endpoint_cleanup_failed",
			logging.String(logging.FieldEndpoint, e.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale endpoint may remain on disk"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually; the next listen also clears it"))
	}
	return err
}

func removeIfExists(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func checkDirWritable(dir string) error {
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("endpoint directory %s: %w", dir, err)
	}
	return nil
}

// Accept blocks until one peer connects or ctx is canceled.
func Accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("accept peer: %w", err)
	}
	return conn, nil
}

// Dial connects to a listening endpoint.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ConnectionError{Path: path, Err: err}
	}
	return conn, nil
}
