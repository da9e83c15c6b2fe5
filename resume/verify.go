package resume

import (
	"github.com/cespare/xxhash/v2"
)

// PrefixDigest is a running xxhash64 state over chunks already flushed
// in a previous acquisition attempt. Recomputing it on resume is cheap
// enough to do for every chunk the checkpoint claims is already on
// disk, where re-running MD5/SHA-1 over the same bytes would not be.
type PrefixDigest struct {
	d *xxhash.Digest
}

// NewPrefixDigest starts a fresh running digest.
func NewPrefixDigest() *PrefixDigest {
	return &PrefixDigest{d: xxhash.New()}
}

// Write feeds one already-flushed chunk's raw bytes into the digest.
func (p *PrefixDigest) Write(raw []byte) {
	_, _ = p.d.Write(raw)
}

// Sum returns the running digest value.
func (p *PrefixDigest) Sum() uint64 {
	return p.d.Sum64()
}

// VerifyPrefix recomputes the xxhash64 digest of rawChunks (the chunks a
// caller is re-supplying on resume, in order) and reports whether it
// matches want, the digest value recorded in a Checkpoint at the time
// those chunks were originally flushed. A mismatch means the caller's
// input has diverged from what was already written and the checkpoint
// cannot be trusted.
func VerifyPrefix(want uint64, rawChunks [][]byte) bool {
	d := NewPrefixDigest()
	for _, raw := range rawChunks {
		d.Write(raw)
	}
	return d.Sum() == want
}
