package record

import (
	"strconv"
	"strings"

	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/section"
)

var identifierMarkers = []string{"serial", "id", "unique"}

// IsIdentifier reports whether a variable name suggests a uniqueness constraint:
// it case-insensitively contains "serial", "id" or "unique". The match is a plain
// substring test, so "Width" counts as an identifier.
func IsIdentifier(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range identifierMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	return false
}

// IdentifierFields returns the names of identifier-like variables in declaration order.
func IdentifierFields(vars []section.Variable) []string {
	var names []string
	for i := range vars {
		if IsIdentifier(vars[i].Name) {
			names = append(names, vars[i].Name)
		}
	}

	return names
}

// Rewrite identifies one output copy: duplication index Dup of the source
// record at position Source in the whole source dataset.
type Rewrite struct {
	Dup    uint32
	Source uint64
}

// Suffix returns the text appended to string identifiers, "_d<dup>_r<source>".
func (rw Rewrite) Suffix() string {
	b := make([]byte, 0, 24)
	b = append(b, "_d"...)
	b = strconv.AppendUint(b, uint64(rw.Dup), 10)
	b = append(b, "_r"...)
	b = strconv.AppendUint(b, rw.Source, 10)

	return string(b)
}

// Offset returns the amount added to numeric identifiers, dup*IdentifierStride + source.
func (rw Rewrite) Offset() int64 {
	return int64(rw.Dup)*section.IdentifierStride + int64(rw.Source) //nolint:gosec
}

// Apply rewrites the named fields of o in place. Text fields get Suffix, Number
// and Integer fields get Offset; Boolean and Null fields are left alone.
// visit, when non-nil, is called with each rewritten field.
func (rw Rewrite) Apply(o FieldOverlay, fields []string, visit func(name string, v FieldValue) error) error {
	var suffix string
	offset := rw.Offset()

	for _, name := range fields {
		v, ok := o[name]
		if !ok {
			continue
		}

		switch v.Kind { //nolint:exhaustive
		case format.KindText:
			if suffix == "" {
				suffix = rw.Suffix()
			}
			v.Text += suffix
		case format.KindNumber:
			v.Number += float64(offset)
		case format.KindInteger:
			v.Integer += offset
		default:
			continue
		}
		o[name] = v

		if visit != nil {
			if err := visit(name, v); err != nil {
				return err
			}
		}
	}

	return nil
}
