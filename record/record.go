// Package record models one logical row of a dataset: an opaque byte payload plus a
// logical field-value overlay used for targeted identifier rewriting.
//
// The overlay is not a decode of the payload. It is produced by an OverlayBuilder
// kept apart from payload slicing, so a real binary decoder can replace the
// placeholder builder without touching duplication or writing code.
package record

import (
	"strconv"

	"github.com/arloliu/mddup/format"
)

// FieldValue is a typed field value: Text, Number, Integer, Boolean or Null.
type FieldValue struct {
	Kind    format.FieldKind
	Text    string
	Number  float64
	Integer int64
	Bool    bool
}

func Text(s string) FieldValue { return FieldValue{Kind: format.KindText, Text: s} }
func Number(f float64) FieldValue { return FieldValue{Kind: format.KindNumber, Number: f} }
func Integer(i int64) FieldValue { return FieldValue{Kind: format.KindInteger, Integer: i} }
func Boolean(b bool) FieldValue { return FieldValue{Kind: format.KindBoolean, Bool: b} }
func Null() FieldValue { return FieldValue{Kind: format.KindNull} }
func (v FieldValue) IsNull() bool { return v.Kind == format.KindNull }

// String renders the value canonically. Two values of the same kind render
// equal strings exactly when they are equal.
func (v FieldValue) String() string {
	switch v.Kind {
	case format.KindText:
		return v.Text
	case format.KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case format.KindInteger:
		return strconv.FormatInt(v.Integer, 10)
	case format.KindBoolean:
		return strconv.FormatBool(v.Bool)
	default:
		return "null"
	}
}

// FieldOverlay maps variable names to field values.
type FieldOverlay map[string]FieldValue

// Clone returns an independent copy of the overlay.
func (o FieldOverlay) Clone() FieldOverlay {
	if o == nil {
		return nil
	}
	c := make(FieldOverlay, len(o))
	for k, v := range o {
		c[k] = v
	}

	return c
}

// Record is one row of a dataset.
//
// Payload length is independent of the overlay. Payload bytes are shared
// between a source record and its duplicates and must be treated as read-only.
type Record struct {
	ID      uint64 // sequence number within its dataset
	Payload []byte
	Fields  FieldOverlay
}

// Clone returns a copy with an independent overlay and a shared payload.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Payload: r.Payload, Fields: r.Fields.Clone()}
}

// overlayEntryCost approximates the resident bytes of one overlay entry.
const overlayEntryCost = 50

// EstimateMemoryMB estimates the resident size of records in megabytes by
// sampling up to 100 records.
func EstimateMemoryMB(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}

	sample := min(len(records), 100)
	total := 0
	for i := range sample {
		total += len(records[i].Payload) + len(records[i].Fields)*overlayEntryCost
	}
	avg := total / sample

	return float64(avg*len(records)) / (1 << 20)
}
