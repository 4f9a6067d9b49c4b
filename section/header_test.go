package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
)

func TestParseDatasetHeader_MinimumSize(t *testing.T) {
	_, err := ParseDatasetHeader([]byte{1, 2, 3}, 0)
	require.ErrorIs(t, err, errs.ErrInvalidFileFormat)

	_, err = ParseDatasetHeader(nil, 0)
	require.ErrorIs(t, err, errs.ErrInvalidFileFormat)

	h, err := ParseDatasetHeader([]byte{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	require.Equal(t, PlaceholderHeader(2), h)
	require.Zero(t, h.Size)
	require.False(t, h.IsDeclared())
}

func TestParseDatasetHeader_Placeholder(t *testing.T) {
	h, err := ParseDatasetHeader([]byte("arbitrary binary content"), 5)

	require.NoError(t, err)
	require.Equal(t, DatasetSignature, h.Signature)
	require.Equal(t, Placeholder, h.Version)
	require.Equal(t, Placeholder, h.CreationDate)
	require.Empty(t, h.Description)
	require.Zero(t, h.RecordCount)
	require.Equal(t, uint32(5), h.VariableCount)
}

func TestParseDatasetHeader_Declared(t *testing.T) {
	out := NewOutputHeader(300, 5)
	data := append(out.Bytes(), make([]byte, 64)...)

	h, err := ParseDatasetHeader(data, 5)

	require.NoError(t, err)
	require.True(t, h.IsDeclared())
	require.Equal(t, uint32(300), h.RecordCount)
	require.Equal(t, OutputVersion, h.Version)
	require.Equal(t, len("MDD_DUPLICATED_V1\n300\n"), h.Size)
	require.Equal(t, out.Size, h.Size)
}

func TestParseDatasetHeader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unterminated count", "MDD_DUPLICATED_V1\n12"},
		{"non numeric count", "MDD_DUPLICATED_V1\nabc\n"},
		{"negative count", "MDD_DUPLICATED_V1\n-1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDatasetHeader([]byte(tt.data), 0)
			require.ErrorIs(t, err, errs.ErrInvalidFileFormat)
		})
	}
}

func TestOutputHeader_Bytes(t *testing.T) {
	require.Equal(t, "MDD_DUPLICATED_V1\n0\n", string(NewOutputHeader(0, 0).Bytes()))
	require.Equal(t, "MDD_DUPLICATED_V1\n123456\n", string(NewOutputHeader(123456, 3).Bytes()))
}

func TestRecordWidth(t *testing.T) {
	require.Zero(t, RecordWidth(nil))

	vars := []Variable{
		{Name: "a", Type: format.TypeText, Width: 10},
		{Name: "b", Width: 0},
		{Name: "c", Width: 6},
	}
	require.Equal(t, uint64(16), RecordWidth(vars))
}
