package mdd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/record"
	"github.com/arloliu/mddup/section"
)

func sequentialBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}

	return b
}

func TestParser_DeclaredWidths(t *testing.T) {
	vars := []section.Variable{
		{Name: "RespondentSerial", Type: format.TypeNumber, Width: 4},
		{Name: "Name", Type: format.TypeText, Width: 4},
		{Name: "Flag", Type: format.TypeBoolean, Width: 2},
	}
	data := sequentialBytes(1005)

	ds, err := NewParser().Parse(context.Background(), data, vars)

	require.NoError(t, err)
	require.Equal(t, 10, ds.RecordWidth)
	require.Len(t, ds.Records, 100)
	require.Equal(t, 100, ds.EstimatedRecords)
	require.False(t, ds.Truncated)
	require.Equal(t, section.PlaceholderHeader(3), ds.Header)

	for i, r := range ds.Records {
		require.Equal(t, uint64(i), r.ID)
		require.Equal(t, data[i*10:(i+1)*10], r.Payload)
		require.Equal(t, record.Number(float64(i)), r.Fields["RespondentSerial"])
	}
}

func TestParser_FallbackWidth(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		vars    []section.Variable
		width   int
		records int
	}{
		{"no widths", 5000, []section.Variable{{Name: "A"}}, 5, 1000},
		{"no variables", 2500, nil, 2, 1250},
		{"sum too large", 20000, []section.Variable{{Name: "A", Width: 10_000}}, 20, 1000},
		{"sum larger than file", 3000, []section.Variable{{Name: "A", Width: 4000}}, 3, 1000},
		{"tiny file", 4, nil, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewParser().Parse(context.Background(), make([]byte, tt.size), tt.vars)
			require.NoError(t, err)
			require.Equal(t, tt.width, ds.RecordWidth)
			require.Len(t, ds.Records, tt.records)
		})
	}
}

func TestParser_MinimumSize(t *testing.T) {
	p := NewParser()

	_, err := p.Parse(context.Background(), []byte{1, 2, 3}, nil)
	require.ErrorIs(t, err, errs.ErrInvalidFileFormat)

	ds, err := p.Parse(context.Background(), []byte{1, 2, 3, 4}, nil)
	require.NoError(t, err)
	require.Len(t, ds.Records, 4)
}

func TestParser_RecordCap(t *testing.T) {
	vars := []section.Variable{{Name: "A", Width: 1}}

	ds, err := NewParser().Parse(context.Background(), make([]byte, 12_000), vars)
	require.NoError(t, err)
	require.Len(t, ds.Records, section.DefaultRecordCap)
	require.Equal(t, 12_000, ds.EstimatedRecords)
	require.True(t, ds.Truncated)

	ds, err = NewParser(WithRecordCap(50)).Parse(context.Background(), make([]byte, 100), vars)
	require.NoError(t, err)
	require.Len(t, ds.Records, 50)

	_, err = NewParserWithOptions(WithRecordCap(section.MaxRecordCap + 1))
	require.ErrorIs(t, err, errs.ErrRecordCapExceeded)
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	p, err := NewParserWithOptions(WithRecordCap(section.MaxRecordCap))
	require.NoError(t, err)
	require.Equal(t, section.MaxRecordCap, p.RecordCap())

	_, err = NewParserWithOptions(WithRecordCap(0))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestParser_DeclaredHeader(t *testing.T) {
	header := section.NewOutputHeader(6, 0)
	data := append(header.Bytes(), sequentialBytes(30)...)

	ds, err := NewParser().Parse(context.Background(), data, nil)

	require.NoError(t, err)
	require.True(t, ds.Header.IsDeclared())
	require.Equal(t, 5, ds.RecordWidth)
	require.Len(t, ds.Records, 6)
	require.Equal(t, sequentialBytes(30)[25:], ds.Records[5].Payload)
}

func TestParser_OverlayBuilder(t *testing.T) {
	calls := 0
	builder := record.OverlayBuilderFunc(func(index int, payload []byte, _ []section.Variable) record.FieldOverlay {
		calls++
		return record.FieldOverlay{"ID": record.Integer(int64(payload[0]))}
	})

	ds, err := NewParser(WithOverlayBuilder(builder)).Parse(context.Background(), sequentialBytes(8), []section.Variable{{Name: "ID", Width: 2}})

	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, record.Integer(6), ds.Records[3].Fields["ID"])

	_, err = NewParserWithOptions(WithOverlayBuilder(nil))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().Parse(ctx, make([]byte, 100), nil)
	require.ErrorIs(t, err, errs.ErrCancelled)
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir, "survey", sequentialBytes(40), "A\n")

	ds, err := NewParser().ParseFile(context.Background(), pair.Dataset, []section.Variable{{Name: "A", Width: 8}})
	require.NoError(t, err)
	require.Len(t, ds.Records, 5)
	require.Equal(t, 40, ds.Size)

	_, err = NewParser().ParseFile(context.Background(), filepath.Join(dir, "nope.mdd"), nil)
	require.ErrorIs(t, err, errs.ErrFileNotFound)
}
