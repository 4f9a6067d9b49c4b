package archive

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/internal/pool"
)

// ReportName is the file name of the performance report.
const ReportName = "performance_report.txt"

// Report is the plain-text performance summary of one job.
type Report struct {
	Generated       time.Time
	OriginalRecords uint64
	FinalRecords    uint64
	DuplicateCount  uint32
	ProcessingTime  time.Duration
	OutputBytes     int64
	SpoolRatio      float64 // compressed/raw spool bytes, zero when unknown
	DatasetDigest   string  // BLAKE3 of the written dataset, hex
	DatasetInput    string
	CompanionInput  string
	Output          string
}

// RecordsPerSecond returns the final record throughput.
func (r Report) RecordsPerSecond() float64 {
	if r.ProcessingTime <= 0 {
		return 0
	}

	return float64(r.FinalRecords) / r.ProcessingTime.Seconds()
}

// OutputMB returns OutputBytes in MiB.
func (r Report) OutputMB() float64 {
	return float64(r.OutputBytes) / (1 << 20)
}

// MemoryEfficiency returns final records per MiB of output.
func (r Report) MemoryEfficiency() float64 {
	mb := r.OutputMB()
	if mb <= 0 {
		return 0
	}

	return float64(r.FinalRecords) / mb
}

// WriteTo renders the report.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	fmt.Fprintf(cw, "DUPLICATION PERFORMANCE REPORT\n")
	fmt.Fprintf(cw, "===============================\n")
	fmt.Fprintf(cw, "Generated: %s\n\n", r.Generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(cw, "PROCESSING DETAILS:\n")
	fmt.Fprintf(cw, "- Original records: %d\n", r.OriginalRecords)
	fmt.Fprintf(cw, "- Final records: %d\n", r.FinalRecords)
	fmt.Fprintf(cw, "- Duplication factor: %dx\n", r.DuplicateCount)
	fmt.Fprintf(cw, "- Processing time: %.2fs\n", r.ProcessingTime.Seconds())
	fmt.Fprintf(cw, "- Records per second: %.0f\n", r.RecordsPerSecond())
	fmt.Fprintf(cw, "- Output file size: %.2f MB\n", r.OutputMB())
	fmt.Fprintf(cw, "- Memory efficiency: %.2f records/MB\n", r.MemoryEfficiency())
	if r.SpoolRatio > 0 {
		fmt.Fprintf(cw, "- Spool compression ratio: %.3f\n", r.SpoolRatio)
	}
	if r.DatasetDigest != "" {
		fmt.Fprintf(cw, "- Dataset BLAKE3: %s\n", r.DatasetDigest)
	}
	fmt.Fprintf(cw, "\nFILES:\n")
	fmt.Fprintf(cw, "- MDD input: %s\n", r.DatasetInput)
	fmt.Fprintf(cw, "- DDF input: %s\n", r.CompanionInput)
	fmt.Fprintf(cw, "- Output: %s\n", r.Output)

	if cw.err != nil {
		return cw.n, cw.err
	}

	return cw.n, bw.Flush()
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err

	return n, err
}

// WriteReport writes r as ReportName inside dir and returns its path.
func WriteReport(dir string, r Report) (string, error) {
	path := filepath.Join(dir, ReportName)

	f, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(errs.ErrIO, err, "create report")
	}
	if _, err := r.WriteTo(f); err != nil {
		_ = f.Close()
		return "", errs.Wrap(errs.ErrIO, err, "write report")
	}
	if err := f.Close(); err != nil {
		return "", errs.Wrap(errs.ErrIO, err, "close report")
	}

	return path, nil
}

// DigestFile returns the hex BLAKE3-256 digest of the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.Wrap(errs.ErrIO, err, "open for digest")
	}
	defer f.Close()

	h := blake3.New()
	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	if _, err := io.CopyBuffer(h, onlyReader{f}, buf.B[:cap(buf.B)]); err != nil {
		return "", errs.Wrap(errs.ErrIO, err, "digest "+filepath.Base(path))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
