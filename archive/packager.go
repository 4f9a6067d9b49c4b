package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/internal/options"
	"github.com/arloliu/mddup/internal/pool"
)

// Ext is the archive file extension.
const Ext = ".zip"

// DefaultLevel is the default DEFLATE level.
const DefaultLevel = 6

// FileFunc is called after each archived entry with the 1-based entry index,
// the entry count and the entry name.
type FileFunc func(done, total int, name string)

// Archive describes a written archive.
type Archive struct {
	Path  string
	Files []string // entry names in archive order
	Size  int64    // archive size in bytes
	Raw   int64    // total uncompressed entry bytes
}

// Packager writes zip archives.
type Packager struct {
	method    format.ArchiveMethod
	level     int
	keepInput bool
}

// Option configures a Packager.
type Option = options.Option[*Packager]

// WithMethod selects the entry compression method.
func WithMethod(m format.ArchiveMethod) Option {
	return options.New("WithMethod", func(p *Packager) error {
		switch m {
		case format.ArchiveStore, format.ArchiveDeflate, format.ArchiveZstd:
			p.method = m
			return nil
		default:
			return fmt.Errorf("unsupported archive method %s", m)
		}
	})
}

// WithLevel sets the compression level, 1 (fastest) to 9 (smallest).
// Zstd maps the level onto its own speed presets.
func WithLevel(level int) Option {
	return options.New("WithLevel", func(p *Packager) error {
		if level < flate.BestSpeed || level > flate.BestCompression {
			return fmt.Errorf("compression level %d outside [%d, %d]", level, flate.BestSpeed, flate.BestCompression)
		}
		p.level = level

		return nil
	})
}

// WithKeepInput leaves the source directory in place after packaging.
func WithKeepInput(keep bool) Option {
	return options.NoError("WithKeepInput", func(p *Packager) { p.keepInput = keep })
}

// New creates a packager using DEFLATE at DefaultLevel.
func New(opts ...Option) (*Packager, error) {
	p := &Packager{method: format.ArchiveDeflate, level: DefaultLevel}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	return p, nil
}

// PathFor returns the archive path for an output directory.
func PathFor(dir string) string {
	dir = filepath.Clean(dir)
	return filepath.Join(filepath.Dir(dir), filepath.Base(dir)+Ext)
}

// Pack archives the regular files directly inside dir into PathFor(dir),
// then removes dir unless the packager keeps its input.
//
// ctx is checked before each entry. Container failures are reported as
// errs.ErrArchive, file system failures as errs.ErrIO.
func (p *Packager) Pack(ctx context.Context, dir string, onFile FileFunc) (*Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "read output directory")
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}

	dest := PathFor(dir)
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-"+filepath.Base(dest)+"-*")
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "create archive")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	p.register(zw)

	ar := &Archive{Path: dest, Files: files}
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.ErrCancelled, err, "package output")
		}

		n, err := p.addFile(zw, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		ar.Raw += n

		if onFile != nil {
			onFile(i+1, len(files), name)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrArchive, err, "finish archive")
	}
	if err := tmp.Sync(); err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "sync archive")
	}
	if err := tmp.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "close archive")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "rename archive")
	}
	committed = true

	st, err := os.Stat(dest)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "stat archive")
	}
	ar.Size = st.Size()

	if !p.keepInput {
		if err := os.RemoveAll(dir); err != nil {
			return ar, errs.Wrap(errs.ErrIO, err, "remove output directory")
		}
	}

	return ar, nil
}

func (p *Packager) register(zw *zip.Writer) {
	switch p.method {
	case format.ArchiveDeflate:
		level := p.level
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	case format.ArchiveZstd:
		zw.RegisterCompressor(zstd.ZipMethodWinZip,
			zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(p.level))))
	}
}

func (p *Packager) zipMethod() uint16 {
	switch p.method {
	case format.ArchiveStore:
		return zip.Store
	case format.ArchiveZstd:
		return zstd.ZipMethodWinZip
	default:
		return zip.Deflate
	}
}

// addFile streams one file into the archive and returns its size.
func (p *Packager) addFile(zw *zip.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, err, "open "+filepath.Base(path))
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, err, "stat "+filepath.Base(path))
	}

	hdr, err := zip.FileInfoHeader(st)
	if err != nil {
		return 0, errs.Wrap(errs.ErrArchive, err, "entry header")
	}
	hdr.Method = p.zipMethod()

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, errs.Wrap(errs.ErrArchive, err, "create entry "+hdr.Name)
	}

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	n, err := io.CopyBuffer(w, onlyReader{f}, buf.B[:cap(buf.B)])
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			return 0, errs.Wrap(errs.ErrIO, err, "read "+hdr.Name)
		}

		return 0, errs.Wrap(errs.ErrArchive, err, "write entry "+hdr.Name)
	}

	return n, nil
}

// onlyReader hides the file's WriterTo so CopyBuffer uses the pooled buffer.
type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

// Open opens an archive with zstd entries readable.
func Open(path string) (*zip.ReadCloser, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrFileNotFound, err, "open archive")
		}

		return nil, errs.Wrap(errs.ErrArchive, err, "open archive")
	}
	rc.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	return rc, nil
}

// Verify reads every entry of the archive at path, which checks each entry's
// CRC-32, and returns the entry names in order.
func Verify(ctx context.Context, path string) ([]string, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	names := make([]string, 0, len(rc.File))
	for _, f := range rc.File {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.ErrCancelled, err, "verify archive")
		}

		r, err := f.Open()
		if err != nil {
			return nil, errs.Wrap(errs.ErrArchive, err, "open entry "+f.Name)
		}
		_, err = io.CopyBuffer(io.Discard, r, buf.B[:cap(buf.B)])
		_ = r.Close()
		if err != nil {
			return nil, errs.Wrap(errs.ErrArchive, err, "verify entry "+f.Name)
		}
		names = append(names, f.Name)
	}

	return names, nil
}
