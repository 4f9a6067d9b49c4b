package hash

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, Value("RespondentSerial", "1000001"), Value("RespondentSerial", "1000001"))
	require.NotEqual(t, Value("RespondentSerial", "1000001"), Value("RespondentSerial", "1000002"))
	require.NotEqual(t, Value("ab", "c"), Value("a", "bc"))
	require.NotEqual(t, Value("ID", "7"), Value("Serial", "7"))
}

func TestBlock(t *testing.T) {
	data := []byte("MDD_DUPLICATED_V1")
	require.Equal(t, xxhash.Sum64(data), Block(data))
	require.Equal(t, xxhash.Sum64(nil), Block(nil))
}
