package section

import "github.com/arloliu/mddup/format"

// Variable describes one variable of a dataset, as declared by its companion file.
//
// An ordered slice of Variables defines the byte layout of one record: the
// sum of widths approximates a record's length.
type Variable struct {
	Name     string // unique within a dataset
	Label    string
	Type     format.VariableType
	Position uint32 // 0-based declaration index
	Width    uint32 // bytes, 0 when not declared
}

// RecordWidth returns the sum of the declared widths of vars.
func RecordWidth(vars []Variable) uint64 {
	var total uint64
	for i := range vars {
		total += uint64(vars[i].Width)
	}

	return total
}
