package bucketstore

import "encoding/binary"

// On-disk layout constants, grounded on original_source/osbflib.h's
// OSBF_HEADER_STRUCT / OSBF_BUCKET_STRUCT and spec.md §3/§6.
const (
	// classVersion is the only accepted header version ("OSBF-Bayes").
	classVersion uint32 = 5

	// classDBFlags is the only accepted value of the header's db_flags field.
	classDBFlags uint32 = 0

	// bucketSize is the on-disk size in bytes of one (hash,key,value) bucket.
	bucketSize = 12

	// headerBucketSlots is buckets_start expressed in bucket-size units:
	// the header is sized to the nearest whole number of buckets at or
	// below 4096 bytes, matching OSBF_CFC_HEADER_SIZE = 4096/sizeof(bucket).
	headerBucketSlots = 4096 / bucketSize // = 341

	// headerSize is the header region in bytes; buckets start immediately after.
	headerSize = headerBucketSlots * bucketSize // = 4092

	// maxValue is the saturating ceiling for a bucket's occurrence count.
	maxValue = 65535
)

// Header field byte offsets within the first headerSize bytes of a class
// file. Layout follows the original C struct's natural alignment
// (uint64 fields 8-byte aligned); the struct itself is 40 bytes, the
// remaining bytes up to headerSize are zero padding.
const (
	offVersion         = 0
	offDBFlags         = 4
	offBucketsStart    = 8
	offNumBuckets      = 12
	offLearnings       = 16
	offMistakes        = 20
	offClassifications = 24 // uint64, 8-byte aligned
	offExtraLearnings  = 32
	headerStructSize   = 36 // logical size before struct padding
)

// header mirrors OSBF_HEADER_STRUCT.
type header struct {
	Version         uint32
	DBFlags         uint32
	BucketsStart    uint32 // always headerBucketSlots
	NumBuckets      uint32
	Learnings       uint32
	Mistakes        uint32
	Classifications uint64
	ExtraLearnings  uint32
}

// newHeader builds the header for a freshly created class file with
// numBuckets slots and all counters at zero.
func newHeader(numBuckets uint32) header {
	return header{
		Version:      classVersion,
		DBFlags:      classDBFlags,
		BucketsStart: headerBucketSlots,
		NumBuckets:   numBuckets,
	}
}

// encodeHeader serializes h into the first headerSize bytes of buf.
// buf must be at least headerSize bytes long; bytes past headerStructSize
// are left untouched (callers zero-initialize new files).
func encodeHeader(buf []byte, h *header) {
	binary.LittleEndian.PutUint32(buf[offVersion:], h.Version)
	binary.LittleEndian.PutUint32(buf[offDBFlags:], h.DBFlags)
	binary.LittleEndian.PutUint32(buf[offBucketsStart:], h.BucketsStart)
	binary.LittleEndian.PutUint32(buf[offNumBuckets:], h.NumBuckets)
	binary.LittleEndian.PutUint32(buf[offLearnings:], h.Learnings)
	binary.LittleEndian.PutUint32(buf[offMistakes:], h.Mistakes)
	binary.LittleEndian.PutUint64(buf[offClassifications:], h.Classifications)
	binary.LittleEndian.PutUint32(buf[offExtraLearnings:], h.ExtraLearnings)
}

// decodeHeader parses the first headerSize bytes of buf into a header.
func decodeHeader(buf []byte) header {
	var h header

	h.Version = binary.LittleEndian.Uint32(buf[offVersion:])
	h.DBFlags = binary.LittleEndian.Uint32(buf[offDBFlags:])
	h.BucketsStart = binary.LittleEndian.Uint32(buf[offBucketsStart:])
	h.NumBuckets = binary.LittleEndian.Uint32(buf[offNumBuckets:])
	h.Learnings = binary.LittleEndian.Uint32(buf[offLearnings:])
	h.Mistakes = binary.LittleEndian.Uint32(buf[offMistakes:])
	h.Classifications = binary.LittleEndian.Uint64(buf[offClassifications:])
	h.ExtraLearnings = binary.LittleEndian.Uint32(buf[offExtraLearnings:])

	return h
}

// bucket mirrors OSBF_BUCKET_STRUCT: a single hash-table slot.
//
// value == 0 means the slot is empty; this in-band marker is load-bearing
// (see spec.md §3) and MUST be preserved by any reimplementation.
type bucket struct {
	Hash  uint32
	Key   uint32
	Value uint32
}

func encodeBucket(buf []byte, b bucket) {
	binary.LittleEndian.PutUint32(buf[0:], b.Hash)
	binary.LittleEndian.PutUint32(buf[4:], b.Key)
	binary.LittleEndian.PutUint32(buf[8:], b.Value)
}

func decodeBucket(buf []byte) bucket {
	return bucket{
		Hash:  binary.LittleEndian.Uint32(buf[0:]),
		Key:   binary.LittleEndian.Uint32(buf[4:]),
		Value: binary.LittleEndian.Uint32(buf[8:]),
	}
}

// fileSize returns the total class file size in bytes for numBuckets slots.
func fileSize(numBuckets uint32) int64 {
	return int64(headerSize) + int64(numBuckets)*bucketSize
}
