// Package hash provides the xxHash64 digests used for identifier tracking
// and spool block checksums.
package hash

import "github.com/cespare/xxhash/v2"

// separator keeps ("ab","c") and ("a","bc") from hashing alike.
const separator = 0x1F

// Value hashes a field name together with the canonical form of its value.
func Value(field, value string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(field)
	_, _ = d.Write([]byte{separator})
	_, _ = d.WriteString(value)

	return d.Sum64()
}

// Block hashes a raw spool block.
func Block(b []byte) uint64 {
	return xxhash.Sum64(b)
}
