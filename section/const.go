package section

// Dataset and companion file conventions.
const (
	DatasetExt   = ".mdd" // DatasetExt is the extension of the binary dataset file.
	CompanionExt = ".ddf" // CompanionExt is the extension of the companion variable file.

	DatasetSignature = "MDD"               // DatasetSignature is the placeholder signature of undecoded headers.
	OutputTag        = "MDD_DUPLICATED_V1" // OutputTag opens every dataset file written by this package.
	OutputVersion    = "V1"                // OutputVersion is the version carried by OutputTag.
	Placeholder      = "Unknown"           // Placeholder fills header attributes that could not be decoded.
)

// Layout heuristics used when slicing a dataset into record frames.
const (
	MinDatasetSize       = 4         // minimum valid dataset size in bytes
	MaxRecordWidth       = 10_000    // exclusive upper bound of a plausible declared record width
	HeuristicRecordCount = 1_000     // divisor used when the declared width is implausible
	DefaultRecordCap     = 10_000    // default ceiling on records sliced from one dataset
	BytesPerRecordHint   = 200       // rough record size used for quick file-info estimates
	IdentifierStride     = 1_000_000 // numeric identifier offset per duplication index

	// MaxRecordCap bounds the configurable record cap. Placeholder numeric
	// identifiers equal the record index, so index+offset stays unique across
	// copies only while indexes stay below half the stride.
	MaxRecordCap = IdentifierStride / 2
)
