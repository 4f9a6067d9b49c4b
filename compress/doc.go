// Package compress provides the block codecs used by the duplication spool.
//
// Duplicated record payloads are held in memory as compressed blocks between
// the duplication and writing stages. Survey payloads repeat heavily across
// duplicates, so even the fastest codecs shrink the resident spool several
// times over.
//
// # Codecs
//
//   - None (format.CompressionNone): blocks are copied verbatim
//   - LZ4 (format.CompressionLZ4): default, fastest decode
//   - S2 (format.CompressionS2): Snappy-compatible, slightly better ratio
//   - Zstd (format.CompressionZstd): best ratio, highest CPU cost
//
// # Usage
//
//	codec, err := compress.New(format.CompressionLZ4)
//	if err != nil {
//	    return err
//	}
//	block, err := codec.Compress(nil, raw)
//	...
//	raw, err = codec.Decompress(raw[:0], block, rawLen)
//
// Both directions append to a caller supplied destination so spool buffers
// can be recycled. Decompress takes the exact raw length recorded when the
// block was written and reports any mismatch as errs.ErrCorruptBlock.
//
// # Statistics
//
// Stats tracks raw and compressed byte totals across goroutines; the
// processor reports the spool ratio in the performance report.
//
// All codecs are stateless values backed by sync.Pool encoders and are safe
// for concurrent use.
package compress
