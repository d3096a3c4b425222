package bucketstore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

// Dump writes path's raw bytes to csvPath as a flat CSV reinterpretation:
// every 12-byte record of the file — header bytes included — becomes one
// "hash;key;value\n" line (spec.md §6). The header's own fields fall out
// of this as the first few lines' fields, exactly as the legacy format
// requires for round-trip compatibility; Dump does not special-case them.
func Dump(path, csvPath string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newErr("Dump", KindFileNotFound, err)
		}

		return newErr("Dump", KindIOFailure, err)
	}
	defer f.Close()

	var out bytes.Buffer
	r := bufio.NewReaderSize(f, 64*1024)
	rec := make([]byte, bucketSize)

	for {
		_, err := io.ReadFull(r, rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return newErr("Dump", KindInvalidFormat, fmt.Errorf("truncated record: %w", err))
		}

		b := decodeBucket(rec)
		fmt.Fprintf(&out, "%d;%d;%d\n", b.Hash, b.Key, b.Value)
	}

	if err := atomic.WriteFile(csvPath, bytes.NewReader(out.Bytes())); err != nil {
		return newErr("Dump", KindIOFailure, err)
	}

	return nil
}

// Restore rebuilds a class file at dstPath from a CSV produced by Dump.
// Fails with ErrAlreadyExists if dstPath already exists. Every line's
// three fields are written back in order as raw 12-byte records. The
// result must carry a valid header, and its size must match the
// header's num_buckets; num_buckets is never re-derived from the line
// count (spec.md §6, §8 "round-trip dump/restore").
func Restore(csvPath, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return newErr("Restore", KindAlreadyExists, fmt.Errorf("%s already exists", dstPath))
	}

	f, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return newErr("Restore", KindFileNotFound, err)
		}

		return newErr("Restore", KindIOFailure, err)
	}
	defer f.Close()

	var out bytes.Buffer
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, ";", 3)
		if len(fields) != 3 {
			return newErr("Restore", KindInvalidFormat, fmt.Errorf("line %d: malformed record %q", lineNo, line))
		}

		b, err := parseCSVBucket(fields)
		if err != nil {
			return newErr("Restore", KindInvalidFormat, fmt.Errorf("line %d: %w", lineNo, err))
		}

		rec := make([]byte, bucketSize)
		encodeBucket(rec, b)
		out.Write(rec)
	}

	if err := scanner.Err(); err != nil {
		return newErr("Restore", KindIOFailure, err)
	}

	if out.Len() < headerSize {
		return newErr("Restore", KindInvalidFormat, fmt.Errorf("csv too short: %d bytes of records", out.Len()))
	}

	h := decodeHeader(out.Bytes())
	if h.Version != classVersion || h.DBFlags != classDBFlags {
		return newErr("Restore", KindInvalidFormat, fmt.Errorf("bad header: version=%d db_flags=%d", h.Version, h.DBFlags))
	}

	if want := fileSize(h.NumBuckets); int64(out.Len()) != want {
		return newErr("Restore", KindInvalidFormat, fmt.Errorf("csv yields %d bytes, header num_buckets %d wants %d", out.Len(), h.NumBuckets, want))
	}

	if err := atomic.WriteFile(dstPath, bytes.NewReader(out.Bytes())); err != nil {
		return newErr("Restore", KindIOFailure, err)
	}

	return nil
}

func parseCSVBucket(fields []string) (bucket, error) {
	hash, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return bucket{}, fmt.Errorf("hash: %w", err)
	}

	key, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return bucket{}, fmt.Errorf("key: %w", err)
	}

	value, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return bucket{}, fmt.Errorf("value: %w", err)
	}

	return bucket{Hash: uint32(hash), Key: uint32(key), Value: uint32(value)}, nil
}
