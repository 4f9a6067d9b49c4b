package section

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/arloliu/mddup/errs"
)

// DatasetHeader describes a dataset binary file.
//
// Attributes are best effort: files that do not start with OutputTag carry
// placeholder values, and Size is zero so the whole file is record data.
type DatasetHeader struct {
	Signature     string
	Version       string
	CreationDate  string
	Description   string
	RecordCount   uint32 // declared record count, 0 when unknown
	VariableCount uint32
	// Size is the number of leading bytes occupied by the header.
	Size int
}

// PlaceholderHeader returns the header used when nothing could be decoded.
func PlaceholderHeader(variableCount int) DatasetHeader {
	return DatasetHeader{
		Signature:     DatasetSignature,
		Version:       Placeholder,
		CreationDate:  Placeholder,
		VariableCount: uint32(variableCount), //nolint:gosec
	}
}

// NewOutputHeader creates the header written in front of duplicated datasets.
func NewOutputHeader(recordCount, variableCount int) DatasetHeader {
	h := DatasetHeader{
		Signature:     OutputTag,
		Version:       OutputVersion,
		CreationDate:  Placeholder,
		RecordCount:   uint32(recordCount),   //nolint:gosec
		VariableCount: uint32(variableCount), //nolint:gosec
	}
	h.Size = len(h.Bytes())

	return h
}

// IsDeclared reports whether the header was read from an OutputTag prefix.
func (h DatasetHeader) IsDeclared() bool {
	return h.Signature == OutputTag
}

// Bytes serializes the header as "<OutputTag>\n<record count>\n".
func (h DatasetHeader) Bytes() []byte {
	b := make([]byte, 0, len(OutputTag)+12)
	b = append(b, OutputTag...)
	b = append(b, '\n')
	b = strconv.AppendUint(b, uint64(h.RecordCount), 10)

	return append(b, '\n')
}

// ParseDatasetHeader inspects the start of a dataset file.
//
// Parameters:
//   - data: file contents (or at least its first bytes)
//   - variableCount: number of variables declared by the companion file
//
// Returns:
//   - DatasetHeader: declared header when data begins with OutputTag, placeholder otherwise
//   - error: ErrInvalidFileFormat when data is shorter than MinDatasetSize or the
//     declared record count line is malformed
func ParseDatasetHeader(data []byte, variableCount int) (DatasetHeader, error) {
	if len(data) < MinDatasetSize {
		return DatasetHeader{}, fmt.Errorf("%w: %d bytes, need at least %d",
			errs.ErrInvalidFileFormat, len(data), MinDatasetSize)
	}

	prefix := OutputTag + "\n"
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return PlaceholderHeader(variableCount), nil
	}

	rest := data[len(prefix):]
	end := bytes.IndexByte(rest, '\n')
	if end < 0 {
		return DatasetHeader{}, fmt.Errorf("%w: unterminated record count line", errs.ErrInvalidFileFormat)
	}

	count, err := strconv.ParseUint(string(rest[:end]), 10, 32)
	if err != nil {
		return DatasetHeader{}, fmt.Errorf("%w: record count %q", errs.ErrInvalidFileFormat, rest[:end])
	}

	return DatasetHeader{
		Signature:     OutputTag,
		Version:       OutputVersion,
		CreationDate:  Placeholder,
		RecordCount:   uint32(count),
		VariableCount: uint32(variableCount), //nolint:gosec
		Size:          len(prefix) + end + 1,
	}, nil
}
