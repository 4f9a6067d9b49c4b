package pool

import "sync"

var payloadSlicePool = sync.Pool{
	New: func() any { return &[][]byte{} },
}

// resize returns *ptr with length size, reallocating when capacity is short.
func resize[T any](ptr *[]T, size int) []T {
	slice := (*ptr)[:0]
	if cap(slice) < size {
		slice = make([]T, size)
	} else {
		slice = slice[:size]
		clear(slice)
	}
	*ptr = slice

	return slice
}

// GetPayloadSlice retrieves a zeroed [][]byte of length size. The caller must
// call the returned cleanup function once the slice is no longer used.
//
// Example:
//
//	payloads, cleanup := pool.GetPayloadSlice(batchSize)
//	defer cleanup()
func GetPayloadSlice(size int) ([][]byte, func()) {
	ptr, _ := payloadSlicePool.Get().(*[][]byte)
	slice := resize(ptr, size)

	return slice, func() {
		clear(*ptr)
		payloadSlicePool.Put(ptr)
	}
}
