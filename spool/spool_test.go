package spool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
)

func payloadFor(i int) []byte {
	// Widths vary so block framing is exercised.
	p := make([]byte, 1+i%7)
	for j := range p {
		p[j] = byte(i + j)
	}

	return p
}

func collect(t *testing.T, s *Spool) [][]byte {
	t.Helper()

	var out [][]byte
	require.NoError(t, s.Each(context.Background(), func(payloads [][]byte) error {
		for _, p := range payloads {
			out = append(out, append([]byte(nil), p...))
		}

		return nil
	}))

	return out
}

func TestSpool_RoundTrip(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone, format.CompressionLZ4, format.CompressionS2, format.CompressionZstd,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			s, err := New(WithCompression(ct), WithBlockRecords(64))
			require.NoError(t, err)
			defer s.Release()
			require.Equal(t, ct, s.Compression())

			var want [][]byte
			for i := range 1000 {
				p := payloadFor(i)
				want = append(want, p)
				require.NoError(t, s.Append(p))
			}

			require.Equal(t, uint64(1000), s.Len())
			require.Equal(t, want, collect(t, s))
			require.Equal(t, int64(16), s.Stats().Blocks())
		})
	}
}

func TestSpool_EmptyPayloads(t *testing.T) {
	s, err := New(WithBlockRecords(2))
	require.NoError(t, err)

	require.NoError(t, s.AppendBatch([][]byte{{}, {1}, {}}))

	got := collect(t, s)
	require.Len(t, got, 3)
	require.Empty(t, got[0])
	require.Equal(t, []byte{1}, got[1])
	require.Empty(t, got[2])
}

func TestSpool_BlockBoundaries(t *testing.T) {
	s, err := New(WithBlockRecords(10))
	require.NoError(t, err)

	for i := range 25 {
		require.NoError(t, s.Append(payloadFor(i)))
	}

	var sizes []int
	require.NoError(t, s.Each(context.Background(), func(payloads [][]byte) error {
		sizes = append(sizes, len(payloads))
		return nil
	}))
	require.Equal(t, []int{10, 10, 5}, sizes)

	// A second pass sees the same blocks.
	require.Len(t, collect(t, s), 25)
}

func TestSpool_ResidentBytesShrink(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	record := make([]byte, 200)
	for i := range 5000 {
		record[0] = byte(i)
		require.NoError(t, s.Append(record))
	}
	require.NoError(t, s.Flush())

	raw := s.Stats().RawBytes()
	require.Greater(t, raw, int64(5000*200))
	require.Less(t, s.ResidentBytes(), raw/4)
	require.Less(t, s.Stats().Ratio(), 0.25)
}

func TestSpool_CallbackError(t *testing.T) {
	s, err := New(WithBlockRecords(5))
	require.NoError(t, err)
	require.NoError(t, s.AppendBatch([][]byte{{1}, {2}, {3}, {4}, {5}, {6}}))

	calls := 0
	stop := fmt.Errorf("stop")
	err = s.Each(context.Background(), func([][]byte) error {
		calls++
		return stop
	})

	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}

func TestSpool_Cancelled(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Append([]byte("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Each(ctx, func([][]byte) error { return nil })
	require.ErrorIs(t, err, errs.ErrCancelled)
}

func TestSpool_CorruptBlock(t *testing.T) {
	s, err := New(WithCompression(format.CompressionNone))
	require.NoError(t, err)
	require.NoError(t, s.Append([]byte("payload")))
	require.NoError(t, s.Flush())

	s.blocks[0].data[len(s.blocks[0].data)-1] ^= 0xFF

	err = s.Each(context.Background(), func([][]byte) error { return nil })
	require.ErrorIs(t, err, errs.ErrCorruptBlock)
}

func TestSpool_InvalidOptions(t *testing.T) {
	_, err := New(WithBlockRecords(0))
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	_, err = New(WithCompression(format.CompressionType(0x7F)))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestSpool_Release(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Append([]byte("x")))

	s.Release()

	require.Zero(t, s.Len())
	require.Empty(t, collect(t, s))
}
