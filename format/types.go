package format

import (
	"fmt"
	"strings"
)

type (
	VariableType    uint8
	FieldKind       uint8
	CompressionType uint8
	ArchiveMethod   uint8
)

const (
	TypeUnknown     VariableType = 0x0 // TypeUnknown marks a variable whose type was not declared.
	TypeText        VariableType = 0x1 // TypeText represents free text variables.
	TypeNumber      VariableType = 0x2 // TypeNumber represents numeric (double) variables.
	TypeDate        VariableType = 0x3 // TypeDate represents date/time variables.
	TypeBoolean     VariableType = 0x4 // TypeBoolean represents boolean variables.
	TypeCategorical VariableType = 0x5 // TypeCategorical represents categorical response variables.

	KindNull    FieldKind = 0x0 // KindNull is an absent value.
	KindText    FieldKind = 0x1 // KindText holds a string value.
	KindNumber  FieldKind = 0x2 // KindNumber holds a float64 value.
	KindInteger FieldKind = 0x3 // KindInteger holds an int64 value.
	KindBoolean FieldKind = 0x4 // KindBoolean holds a bool value.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.

	ArchiveStore   ArchiveMethod = 0x1 // ArchiveStore stores entries without compression.
	ArchiveDeflate ArchiveMethod = 0x2 // ArchiveDeflate compresses entries with DEFLATE.
	ArchiveZstd    ArchiveMethod = 0x3 // ArchiveZstd compresses entries with zstd (zip method 93).
)

func (v VariableType) String() string {
	switch v {
	case TypeText:
		return "Text"
	case TypeNumber:
		return "Number"
	case TypeDate:
		return "Date"
	case TypeBoolean:
		return "Boolean"
	case TypeCategorical:
		return "Categorical"
	default:
		return "Unknown"
	}
}

// DeclaredName returns the keyword written to companion files for the type.
// Unknown variables are declared as Text.
func (v VariableType) DeclaredName() string {
	switch v {
	case TypeNumber:
		return "Double"
	case TypeDate:
		return "Date"
	case TypeBoolean:
		return "Boolean"
	case TypeCategorical:
		return "Categorical"
	default:
		return "Text"
	}
}

// ParseVariableType maps a companion-file type keyword to a VariableType.
// The second return value is false when the token is not a type keyword.
func ParseVariableType(token string) (VariableType, bool) {
	switch strings.ToLower(token) {
	case "text", "string":
		return TypeText, true
	case "double", "number", "long", "integer", "float":
		return TypeNumber, true
	case "date", "datetime":
		return TypeDate, true
	case "boolean", "bool":
		return TypeBoolean, true
	case "categorical":
		return TypeCategorical, true
	default:
		return TypeUnknown, false
	}
}

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindNumber:
		return "Number"
	case KindInteger:
		return "Integer"
	case KindBoolean:
		return "Boolean"
	default:
		return "Null"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompressionType parses a case-insensitive compression name.
func ParseCompressionType(name string) (CompressionType, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

func (m ArchiveMethod) String() string {
	switch m {
	case ArchiveStore:
		return "Store"
	case ArchiveDeflate:
		return "Deflate"
	case ArchiveZstd:
		return "Zstd"
	default:
		return "Unknown"
	}
}

// ParseArchiveMethod parses a case-insensitive archive method name.
func ParseArchiveMethod(name string) (ArchiveMethod, error) {
	switch strings.ToLower(name) {
	case "store", "none":
		return ArchiveStore, nil
	case "deflate", "":
		return ArchiveDeflate, nil
	case "zstd":
		return ArchiveZstd, nil
	default:
		return 0, fmt.Errorf("unknown archive method %q", name)
	}
}

// State is a duplication job's position in its pipeline.
type State uint8

const (
	StatePending     State = 0x0
	StateValidating  State = 0x1
	StateLoading     State = 0x2
	StateDuplicating State = 0x3
	StateWriting     State = 0x4
	StateReporting   State = 0x5
	StatePackaging   State = 0x6
	StateComplete    State = 0x7
	StateFailed      State = 0x8
	StateCancelled   State = 0x9
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateValidating:
		return "Validating"
	case StateLoading:
		return "Loading"
	case StateDuplicating:
		return "Duplicating"
	case StateWriting:
		return "Writing"
	case StateReporting:
		return "Reporting"
	case StatePackaging:
		return "Packaging"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transition can follow s.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}
