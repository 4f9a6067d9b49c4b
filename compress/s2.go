package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
)

// S2Codec compresses blocks with S2, a faster Snappy extension.
type S2Codec struct{}

var _ Codec = S2Codec{}

func NewS2Codec() S2Codec { return S2Codec{} }

func (S2Codec) Type() format.CompressionType { return format.CompressionS2 }

func (S2Codec) Compress(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return dst, nil
	}

	return append(dst, s2.Encode(nil, src)...), nil
}

func (S2Codec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	if rawSize == 0 && len(src) == 0 {
		return dst, nil
	}

	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("%w: s2: %w", errs.ErrCorruptBlock, err)
	}
	if err := checkSize(format.CompressionS2, n, rawSize); err != nil {
		return nil, err
	}

	out, err := s2.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: s2: %w", errs.ErrCorruptBlock, err)
	}

	return append(dst, out...), nil
}
