package mdd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/internal/options"
	"github.com/arloliu/mddup/record"
	"github.com/arloliu/mddup/section"
)

// cancelCheckInterval is how many records are sliced between context checks.
const cancelCheckInterval = 1024

// Dataset is a parsed dataset binary file.
type Dataset struct {
	Header    section.DatasetHeader
	Variables []section.Variable
	Records   []record.Record

	// Size is the file length in bytes.
	Size int
	// RecordWidth is the estimated byte width of one record frame.
	RecordWidth int
	// EstimatedRecords is the frame count before the record cap was applied.
	EstimatedRecords int
	// Truncated reports whether the record cap cut records off.
	Truncated bool
}

// Parser slices dataset files into records.
type Parser struct {
	recordCap int
	overlay   record.OverlayBuilder
}

// ParserOption configures a Parser.
type ParserOption = options.Option[*Parser]

// WithRecordCap sets the maximum number of records taken from one dataset.
// The cap may not exceed section.MaxRecordCap.
func WithRecordCap(n int) ParserOption {
	return options.New("WithRecordCap", func(p *Parser) error {
		if err := options.Positive(n); err != nil {
			return err
		}
		if n > section.MaxRecordCap {
			return fmt.Errorf("%w: %d > %d", errs.ErrRecordCapExceeded, n, section.MaxRecordCap)
		}
		p.recordCap = n

		return nil
	})
}

// WithOverlayBuilder replaces the placeholder overlay synthesis.
func WithOverlayBuilder(b record.OverlayBuilder) ParserOption {
	return options.New("WithOverlayBuilder", func(p *Parser) error {
		if b == nil {
			return errors.New("nil overlay builder")
		}
		p.overlay = b

		return nil
	})
}

// NewParser creates a parser with DefaultRecordCap and placeholder overlays.
// Invalid options panic; use NewParserWithOptions to handle them.
func NewParser(opts ...ParserOption) *Parser {
	p, err := NewParserWithOptions(opts...)
	if err != nil {
		panic(err)
	}

	return p
}

// NewParserWithOptions creates a parser, reporting invalid options.
func NewParserWithOptions(opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		recordCap: section.DefaultRecordCap,
		overlay:   record.PlaceholderOverlay,
	}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	return p, nil
}

// RecordCap returns the configured record cap.
func (p *Parser) RecordCap() int { return p.recordCap }

// ParseFile reads the whole dataset at path into memory and parses it.
//
// Returns ErrFileNotFound or ErrIO for read failures, ErrInvalidFileFormat for
// a file shorter than section.MinDatasetSize or a malformed declared header,
// and ErrCancelled when ctx is done.
func (p *Parser) ParseFile(ctx context.Context, path string, vars []section.Variable) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrFileNotFound, err, "read dataset")
		}

		return nil, errs.Wrap(errs.ErrIO, err, "read dataset")
	}

	return p.Parse(ctx, data, vars)
}

// Parse slices data into record frames. Payloads alias data.
func (p *Parser) Parse(ctx context.Context, data []byte, vars []section.Variable) (*Dataset, error) {
	header, err := section.ParseDatasetHeader(data, len(vars))
	if err != nil {
		return nil, err
	}

	body := data[header.Size:]
	width := EstimateRecordWidth(len(body), vars, header)
	estimated := len(body) / width
	count := min(estimated, p.recordCap)

	ds := &Dataset{
		Header:           header,
		Variables:        vars,
		Records:          make([]record.Record, 0, count),
		Size:             len(data),
		RecordWidth:      width,
		EstimatedRecords: estimated,
		Truncated:        count < estimated,
	}

	for i := range count {
		if i%cancelCheckInterval == 0 && ctx.Err() != nil {
			return nil, errs.Wrap(errs.ErrCancelled, ctx.Err(), "parse dataset")
		}

		start := i * width
		payload := body[start : start+width : start+width]
		ds.Records = append(ds.Records, record.Record{
			ID:      uint64(i),
			Payload: payload,
			Fields:  p.overlay.Build(i, payload, vars),
		})
	}

	return ds, nil
}

// EstimateRecordWidth derives the byte width of one record frame.
//
// The declared widths are used when their sum lies in (0, MaxRecordWidth)
// and fits in the body. Otherwise a declared record count divides the body,
// and failing that the body is split into HeuristicRecordCount frames. The
// result is always at least 1.
func EstimateRecordWidth(bodyLen int, vars []section.Variable, header section.DatasetHeader) int {
	sum := section.RecordWidth(vars)
	if sum > 0 && sum < section.MaxRecordWidth && sum <= uint64(bodyLen) { //nolint:gosec
		return int(sum) //nolint:gosec
	}

	if header.IsDeclared() && header.RecordCount > 0 {
		if w := bodyLen / int(header.RecordCount); w > 0 {
			return w
		}
	}

	return max(bodyLen/section.HeuristicRecordCount, 1)
}
