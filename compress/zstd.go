package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
)

// zstdDecoderPool pools decoders; klauspost/compress/zstd decoders run
// allocation-free once warmed up.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedFastest),
			zstd.WithEncoderCRC(false),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return encoder
	},
}

// ZstdCodec compresses blocks with Zstandard at its fastest level. It trades
// CPU for the smallest resident spool on highly repetitive payloads.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

func NewZstdCodec() ZstdCodec { return ZstdCodec{} }

func (ZstdCodec) Type() format.CompressionType { return format.CompressionZstd }

func (ZstdCodec) Compress(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return dst, nil
	}

	encoder, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	return encoder.EncodeAll(src, dst), nil
}

func (ZstdCodec) Decompress(dst, src []byte, rawSize int) ([]byte, error) {
	if rawSize == 0 && len(src) == 0 {
		return dst, nil
	}

	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	start := len(dst)
	out, err := decoder.DecodeAll(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", errs.ErrCorruptBlock, err)
	}
	if err := checkSize(format.CompressionZstd, len(out)-start, rawSize); err != nil {
		return nil, err
	}

	return out, nil
}
