// Package diskspace probes free space on the volume holding a path.
package diskspace

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrUnsupported is returned by Available on platforms without a probe.
var ErrUnsupported = errors.New("disk space probe unsupported on this platform")

// Probe reports the bytes available to the caller on the volume holding path.
type Probe func(path string) (uint64, error)

// Available returns the bytes available to the caller on the volume holding
// path. When path does not exist yet, its nearest existing ancestor is probed.
func Available(path string) (uint64, error) {
	return available(existingAncestor(path))
}

func existingAncestor(path string) string {
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
