package bucketstore

import "fmt"

// Import merges src's contents into dst: every nonzero slot of src
// (opened read-only) is looked up in dst (opened read-write) and either
// added to an existing match or inserted fresh, and the header's
// learning/mistake/classification counters are summed. Not part of the
// original scope's core four components, but present in the original
// implementation's public operation set (spec.md §9.1, grounded on
// osbf_import) and exposed here for completeness alongside Dump/Restore.
//
// Fails with ErrDatabaseFull if dst runs out of room partway through;
// dst is left holding whatever prefix of src merged before the failure.
func Import(dstPath, srcPath string) error {
	dst, err := Open(dstPath, ReadWrite)
	if err != nil {
		return err
	}
	defer dst.Close()

	src, err := Open(srcPath, ReadOnly)
	if err != nil {
		return err
	}
	defer src.Close()

	dst.SetLearnings(dst.Learnings() + src.Learnings())
	dst.SetExtraLearnings(dst.ExtraLearnings() + src.ExtraLearnings())
	dst.SetMistakes(dst.Mistakes() + src.Mistakes())
	dst.SetClassifications(dst.Classifications() + src.Classifications())

	maxChainLen := dst.DefaultChainLength()

	for i := uint32(0); i < src.NumBuckets(); i++ {
		value := src.Value(i)
		if value == 0 {
			continue
		}

		hash, key := src.Hash(i), src.Key(i)

		bindex := dst.Find(hash, key)
		if dst.Full(bindex) {
			return newErr("Import", KindDatabaseFull, fmt.Errorf("%s: no free slot for feature (%d,%d)", dstPath, hash, key))
		}

		if dst.Value(bindex) != 0 {
			dst.Update(bindex, int32(value))
		} else {
			dst.Insert(bindex, hash, key, value, maxChainLen)
		}
	}

	return nil
}
