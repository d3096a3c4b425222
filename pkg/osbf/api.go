package osbf

import "github.com/osbf-go/osbf/pkg/bucketstore"

// CreateDB creates a new, empty class file with the given bucket count.
func CreateDB(path string, numBuckets uint32) error {
	return bucketstore.Create(path, numBuckets)
}

// RemoveDB deletes a class file.
func RemoveDB(path string) error {
	return bucketstore.Remove(path)
}

// Unlearn is Learn with sense fixed at -1: it reverses a prior Learn
// call on the same text (spec.md §4.4).
func Unlearn(path string, text []byte, cfg Config, flags Flags) error {
	return Learn(path, text, cfg, -1, flags)
}

// Dump writes path's header and bucket array out as CSV.
func Dump(path, csvPath string) error {
	return bucketstore.Dump(path, csvPath)
}

// Restore rebuilds a class file from a CSV produced by Dump.
func Restore(csvPath, dstPath string) error {
	return bucketstore.Restore(csvPath, dstPath)
}

// Import merges srcPath's buckets and counters into dstPath.
func Import(dstPath, srcPath string) error {
	return bucketstore.Import(dstPath, srcPath)
}

// Stats reports occupancy and chain-length statistics for path. Pass
// full to additionally walk the bucket array for used-bucket, chain
// count/length, displacement and unreachable-slot figures.
func Stats(path string, full bool) (bucketstore.Stats, error) {
	return bucketstore.Stat(path, full)
}
