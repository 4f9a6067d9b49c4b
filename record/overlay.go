package record

import (
	"strconv"

	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/section"
)

// OverlayBuilder computes the field overlay of the record at index.
type OverlayBuilder interface {
	Build(index int, payload []byte, vars []section.Variable) FieldOverlay
}

// OverlayBuilderFunc adapts a function to OverlayBuilder.
type OverlayBuilderFunc func(index int, payload []byte, vars []section.Variable) FieldOverlay

func (f OverlayBuilderFunc) Build(index int, payload []byte, vars []section.Variable) FieldOverlay {
	return f(index, payload, vars)
}

// PlaceholderOverlay synthesizes positional values instead of decoding payload bytes:
// Text variables get "Text_<index>", Number variables the index, Boolean
// variables alternate by parity, every other type is Null.
var PlaceholderOverlay OverlayBuilder = OverlayBuilderFunc(placeholder)

func placeholder(index int, _ []byte, vars []section.Variable) FieldOverlay {
	o := make(FieldOverlay, len(vars))
	for i := range vars {
		var v FieldValue
		switch vars[i].Type { //nolint:exhaustive
		case format.TypeText:
			v = Text("Text_" + strconv.Itoa(index))
		case format.TypeNumber:
			v = Number(float64(index))
		case format.TypeBoolean:
			v = Boolean(index%2 == 0)
		default:
			v = Null()
		}
		o[vars[i].Name] = v
	}

	return o
}
