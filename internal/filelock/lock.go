// Package filelock provides POSIX advisory byte-range locking via
// fcntl(2)'s F_SETLK, applied directly to an already-open file's own
// file descriptor.
//
// It backs the class file's cross-process writer coordination: a
// read-write bucketstore open acquires a write lock on the class
// file's own fd before mapping it, retrying on contention rather than
// blocking indefinitely. This is deliberately fcntl, not flock(2):
// flock locks a whole open file description and has no byte-range
// concept, so two independent opens of the same path coordinated via a
// flock'd sidecar file would not actually exclude each other on the
// class file itself. fcntl locks byte ranges of the file's inode
// directly, which is what lets any process that opens the same path
// observe the same lock.
package filelock

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by TryLockFile when the lock is held by
// another process.
var ErrWouldBlock = errors.New("filelock: would block")

// Lock represents a held exclusive advisory lock on a byte range of a
// file. Call [Lock.Close] to release it. Close does not close the
// underlying file descriptor — the caller opened it and still owns it.
type Lock struct {
	file  *os.File
	start int64
	len   int64
}

// TryLockFile attempts to acquire a non-blocking exclusive (write)
// lock covering the byte range [start, start+len) of f's own file
// descriptor. len == 0 means "to the end of the file", per fcntl(2)'s
// special-casing of a zero length.
//
// Returns [ErrWouldBlock] if another process already holds a
// conflicting lock on the range.
func TryLockFile(f *os.File, start, len int64) (*Lock, error) {
	if err := fcntlSetlk(f, unix.F_WRLCK, start, len); err != nil {
		if isWouldBlock(err) {
			return nil, ErrWouldBlock
		}

		return nil, fmt.Errorf("locking %s: %w", f.Name(), err)
	}

	return &Lock{file: f, start: start, len: len}, nil
}

// TryLockFileRetry calls [TryLockFile] repeatedly, sleeping interval
// between attempts, until it succeeds or attempts are exhausted. This
// implements the class file open contract: up to attempts retries at
// a fixed interval on lock contention.
func TryLockFileRetry(f *os.File, start, len int64, attempts int, interval time.Duration) (*Lock, error) {
	var lastErr error

	for i := 0; i <= attempts; i++ {
		lock, err := TryLockFile(f, start, len)
		if err == nil {
			return lock, nil
		}

		if !errors.Is(err, ErrWouldBlock) {
			return nil, err
		}

		lastErr = err

		if i < attempts {
			time.Sleep(interval)
		}
	}

	return nil, lastErr
}

// Close releases the lock. It does not close the underlying file
// descriptor. Close is idempotent.
func (lk *Lock) Close() error {
	if lk == nil || lk.file == nil {
		return nil
	}

	err := fcntlSetlk(lk.file, unix.F_UNLCK, lk.start, lk.len)
	lk.file = nil

	if err != nil {
		return fmt.Errorf("unlocking: %w", err)
	}

	return nil
}

func fcntlSetlk(f *os.File, typ int16, start, len int64) error {
	flock := unix.Flock_t{
		Type:   typ,
		Whence: io.SeekStart,
		Start:  start,
		Len:    len,
	}

	return flockRetryEINTR(f, &flock)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EAGAIN)
}

// flockRetryEINTR wraps FcntlFlock, retrying on EINTR.
//
// EINTR means the syscall was interrupted by a signal before completing;
// the call didn't fail, it just needs to be retried. Capped to avoid
// spinning forever under a pathological signal storm.
func flockRetryEINTR(f *os.File, flock *unix.Flock_t) error {
	const maxEINTRRetries = 10000

	var err error

	for range maxEINTRRetries {
		err = unix.FcntlFlock(f.Fd(), unix.F_SETLK, flock)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}
