package compress

import "github.com/arloliu/mddup/format"

// NoOpCodec stores blocks verbatim.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

func NewNoOpCodec() NoOpCodec { return NoOpCodec{} }

func (NoOpCodec) Type() format.CompressionType { return format.CompressionNone }

// Compress appends a copy of src to dst. The copy is required because spool
// callers reuse their block buffer.
func (NoOpCodec) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (NoOpCodec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	if err := checkSize(format.CompressionNone, len(src), rawSize); err != nil {
		return nil, err
	}

	return append(dst, src...), nil
}
