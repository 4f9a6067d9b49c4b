// Package collision detects rewritten identifier values that repeat across
// duplicated records.
package collision

import (
	"fmt"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/internal/hash"
)

// Origin locates the record that produced a tracked value.
type Origin struct {
	Dup    uint32
	Source uint64
}

type entry struct {
	field  string
	value  string
	origin Origin
}

// Tracker records every (field, value) pair seen during duplication and
// reports the first repeat. Values are bucketed by their xxHash64 digest;
// distinct values sharing a digest are kept side by side and counted.
//
// A Tracker is not safe for concurrent use.
type Tracker struct {
	seen           map[uint64][]entry
	count          int
	hashCollisions int
}

// NewTracker creates a tracker sized for about capacity values.
func NewTracker(capacity int) *Tracker {
	return &Tracker{seen: make(map[uint64][]entry, capacity)}
}

// Track records value for field at origin.
//
// Returns errs.ErrIdentifierCollision when the same field already holds the
// same value from another record.
func (t *Tracker) Track(field, value string, origin Origin) error {
	h := hash.Value(field, value)
	bucket := t.seen[h]
	for _, e := range bucket {
		if e.field == field && e.value == value {
			return fmt.Errorf("%w: %s=%q from copy %d record %d repeats copy %d record %d",
				errs.ErrIdentifierCollision, field, value,
				origin.Dup, origin.Source, e.origin.Dup, e.origin.Source)
		}
	}
	if len(bucket) > 0 {
		t.hashCollisions++
	}

	t.seen[h] = append(bucket, entry{field: field, value: value, origin: origin})
	t.count++

	return nil
}

// Count returns the number of tracked values.
func (t *Tracker) Count() int {
	return t.count
}

// HashCollisions returns how many distinct values landed in an occupied bucket.
func (t *Tracker) HashCollisions() int {
	return t.hashCollisions
}

// Reset clears all tracked values while keeping the map's capacity.
func (t *Tracker) Reset() {
	clear(t.seen)
	t.count = 0
	t.hashCollisions = 0
}
