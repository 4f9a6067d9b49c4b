package ddf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/section"
)

// Banner holds the comment block written at the top of a companion file.
type Banner struct {
	DuplicateCount uint32
	Generated      time.Time
	TotalRecords   uint64
}

// Write writes the banner followed by one declaration per variable.
// Unknown types are declared as Text. Double quotes inside labels are
// replaced by single quotes so the output parses back.
func Write(w io.Writer, vars []section.Variable, banner Banner) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# DDF File - Duplicated %d times\n", banner.DuplicateCount)
	fmt.Fprintf(bw, "# Generated: %s\n", banner.Generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(bw, "# Total records: %d\n", banner.TotalRecords)
	bw.WriteString("\n")

	for i := range vars {
		v := &vars[i]
		fmt.Fprintf(bw, "%s \"%s\" %s Width(%d)\n",
			v.Name, strings.ReplaceAll(v.Label, `"`, "'"), v.Type.DeclaredName(), v.Width)
	}

	return bw.Flush()
}

// WriteFile writes a companion file at path, truncating any existing file.
func WriteFile(path string, vars []section.Variable, banner Banner) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.ErrIO, err, "create companion file")
	}

	if err := Write(f, vars, banner); err != nil {
		f.Close()
		return errs.Wrap(errs.ErrIO, err, "write companion file")
	}

	return errs.Wrap(errs.ErrIO, f.Close(), "close companion file")
}
