package compress

import (
	"fmt"
	"slices"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
)

// lz4CompressorPool pools lz4.Compressor instances, whose hash tables are
// expensive to allocate per block.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Codec compresses blocks with the LZ4 block format. It is the default
// spool codec.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

func NewLZ4Codec() LZ4Codec { return LZ4Codec{} }

func (LZ4Codec) Type() format.CompressionType { return format.CompressionLZ4 }

// Compress appends the LZ4 block for src to dst. The destination is sized to
// CompressBlockBound so incompressible input is stored as literals.
func (LZ4Codec) Compress(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return dst, nil
	}

	start := len(dst)
	dst = slices.Grow(dst, lz4.CompressBlockBound(len(src)))
	out := dst[start : start+lz4.CompressBlockBound(len(src))]

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(src, out)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("lz4: empty block for %d input bytes", len(src))
	}

	return dst[:start+n], nil
}

// Decompress decodes src into exactly rawSize bytes appended to dst.
func (LZ4Codec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	if rawSize == 0 && len(src) == 0 {
		return dst, nil
	}

	start := len(dst)
	dst = slices.Grow(dst, rawSize)
	out := dst[start : start+rawSize]

	n, err := lz4.UncompressBlock(src, out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %w", errs.ErrCorruptBlock, err)
	}
	if err := checkSize(format.CompressionLZ4, n, rawSize); err != nil {
		return nil, err
	}

	return dst[:start+n], nil
}
