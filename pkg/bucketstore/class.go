package bucketstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/osbf-go/osbf/internal/filelock"
)

// Mode selects how a class file is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

const (
	lockRetryAttempts = 20
	lockRetryInterval = time.Second

	classFilePerm = 0o644
)

// Class is one open OSBF class file: the memory-mapped header and
// bucket array, plus — for a ReadWrite open — the advisory lock that
// makes this process the file's sole writer (spec.md §4.2).
type Class struct {
	path string
	mode Mode
	file *os.File
	data []byte
	lock *filelock.Lock
	t    *table
}

// Create makes a new, empty class file at path with numBuckets zeroed
// slots and a fresh header (version, buckets_start and num_buckets
// set, every counter zero). Fails with [ErrAlreadyExists] if path already
// exists (spec.md §4.2, grounded on the original create_db/db_flag_out
// path and original_source/osbf_bayes.c's file initialization).
func Create(path string, numBuckets uint32) error {
	if numBuckets == 0 {
		return newErr("Create", KindInvalidArgument, fmt.Errorf("numBuckets must be > 0"))
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, classFilePerm)
	if err != nil {
		if os.IsExist(err) {
			return newErr("Create", KindAlreadyExists, err)
		}

		return newErr("Create", KindIOFailure, err)
	}
	defer f.Close()

	if err := f.Truncate(fileSize(numBuckets)); err != nil {
		os.Remove(path)

		return newErr("Create", KindIOFailure, err)
	}

	buf := make([]byte, headerSize)
	h := newHeader(numBuckets)
	encodeHeader(buf, &h)

	if _, err := f.WriteAt(buf, 0); err != nil {
		os.Remove(path)

		return newErr("Create", KindIOFailure, err)
	}

	return nil
}

// Remove deletes a class file. The caller is responsible for ensuring
// no other handle still has it open.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return newErr("Remove", KindFileNotFound, err)
		}

		return newErr("Remove", KindIOFailure, err)
	}

	return nil
}

// Open maps an existing class file into memory. A ReadWrite open
// acquires an advisory write lock on bytes [0, 0) of the class file's
// own file descriptor first (spec.md §4.2, §4.9: fcntl(2) byte-range
// semantics, where a length of 0 means "to the end of file"), retrying
// on contention up to lockRetryAttempts times; it fails if another
// process already holds the lock once attempts are exhausted.
func Open(path string, mode Mode) (*Class, error) {
	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newErr("Open", KindFileNotFound, err)
		}

		return nil, newErr("Open", KindIOFailure, err)
	}

	var lk *filelock.Lock

	if mode == ReadWrite {
		lk, err = filelock.TryLockFileRetry(f, 0, 0, lockRetryAttempts, lockRetryInterval)
		if err != nil {
			f.Close()

			return nil, newErr("Open", KindIOFailure, err)
		}
	}

	info, err := f.Stat()
	if err != nil {
		releaseOnErr(f, lk)

		return nil, newErr("Open", KindIOFailure, err)
	}

	if info.Size() < headerSize {
		releaseOnErr(f, lk)

		return nil, newErr("Open", KindInvalidFormat, fmt.Errorf("class file too small: %d bytes", info.Size()))
	}

	prot := unix.PROT_READ
	if mode == ReadWrite {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		releaseOnErr(f, lk)

		return nil, newErr("Open", KindIOFailure, err)
	}

	h := decodeHeader(data)
	if h.Version != classVersion || h.DBFlags != classDBFlags {
		unix.Munmap(data)
		releaseOnErr(f, lk)

		return nil, newErr("Open", KindInvalidFormat, fmt.Errorf("bad header: version=%d db_flags=%d", h.Version, h.DBFlags))
	}

	if want := fileSize(h.NumBuckets); int64(len(data)) != want {
		unix.Munmap(data)
		releaseOnErr(f, lk)

		return nil, newErr("Open", KindInvalidFormat, fmt.Errorf("file size %d bytes does not match header num_buckets %d", len(data), h.NumBuckets))
	}

	return &Class{
		path: path,
		mode: mode,
		file: f,
		data: data,
		lock: lk,
		t: &table{
			data:       data,
			flags:      make([]byte, h.NumBuckets),
			numBuckets: h.NumBuckets,
		},
	}, nil
}

func releaseOnErr(f *os.File, lk *filelock.Lock) {
	if lk != nil {
		lk.Close()
	}

	f.Close()
}

// Close unmaps the file and releases the advisory lock, if held. A
// ReadWrite class first performs a one-byte no-op rewrite of the header
// through the file descriptor: mmap'd writes alone don't update mtime,
// and readers that cache a class by mtime need to observe the change
// (spec.md §4.2).
func (c *Class) Close() error {
	var firstErr error

	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.mode == ReadWrite {
		var b [1]byte
		if _, err := c.file.ReadAt(b[:], 0); err != nil {
			note(err)
		} else if _, err := c.file.WriteAt(b[:], 0); err != nil {
			note(err)
		}
	}

	note(unix.Munmap(c.data))

	if c.lock != nil {
		note(c.lock.Close())
	}

	note(c.file.Close())

	if firstErr != nil {
		return newErr("Close", KindIOFailure, firstErr)
	}

	return nil
}

// NumBuckets returns the fixed slot count the file was created with.
func (c *Class) NumBuckets() uint32 { return c.t.numBuckets }

func (c *Class) Learnings() uint32     { return binary.LittleEndian.Uint32(c.data[offLearnings:]) }
func (c *Class) SetLearnings(v uint32) { binary.LittleEndian.PutUint32(c.data[offLearnings:], v) }

func (c *Class) Mistakes() uint32     { return binary.LittleEndian.Uint32(c.data[offMistakes:]) }
func (c *Class) SetMistakes(v uint32) { binary.LittleEndian.PutUint32(c.data[offMistakes:], v) }

func (c *Class) Classifications() uint64 {
	return binary.LittleEndian.Uint64(c.data[offClassifications:])
}

func (c *Class) SetClassifications(v uint64) {
	binary.LittleEndian.PutUint64(c.data[offClassifications:], v)
}

func (c *Class) ExtraLearnings() uint32 {
	return binary.LittleEndian.Uint32(c.data[offExtraLearnings:])
}

func (c *Class) SetExtraLearnings(v uint32) {
	binary.LittleEndian.PutUint32(c.data[offExtraLearnings:], v)
}

// Find locates the slot for (hash,key): an existing match, or the first
// empty slot on its probe chain. Check Full to tell a completely-full
// table apart from a genuine empty slot.
func (c *Class) Find(hash, key uint32) uint32 { return c.t.find(hash, key) }

// Full reports whether i is the sentinel Find returns when the table
// is completely full with no match.
func (c *Class) Full(i uint32) bool { return i == c.t.fullSentinel() }

// Update applies delta to the value at slot i.
func (c *Class) Update(i uint32, delta int32) { c.t.update(i, delta) }

// Insert writes (hash,key,value) at slot i, microgrooming ahead of the
// write if the chain is longer than maxChainLen. Returns the slot
// actually written.
func (c *Class) Insert(i, hash, key, value, maxChainLen uint32) uint32 {
	return c.t.insert(i, hash, key, value, maxChainLen)
}

func (c *Class) Value(i uint32) uint32 { return c.t.getBucket(i).Value }
func (c *Class) Hash(i uint32) uint32  { return c.t.getBucket(i).Hash }
func (c *Class) Key(i uint32) uint32   { return c.t.getBucket(i).Key }

// Locked reports whether slot i's LOCK flag is set — "observed in
// training", per §4.1's update/insert semantics, as opposed to a
// chain neighbor it merely collided into.
func (c *Class) Locked(i uint32) bool { return c.t.locked(i) }

// Seen and MarkSeen track, for the lifetime of this open handle, which
// slots classification has already folded into a class's score for the
// current document (spec.md §4.5's "already seen" bitmap). This bit is
// independent of the LOCK/FREE flags microgroom and insert use.
func (c *Class) Seen(i uint32) bool { return c.t.seen(i) }
func (c *Class) MarkSeen(i uint32)  { c.t.markSeen(i) }

// DefaultChainLength returns the microgroom chain-length threshold this
// class uses when the caller doesn't configure one explicitly.
func (c *Class) DefaultChainLength() uint32 { return defaultChainLength(c.t.numBuckets) }
