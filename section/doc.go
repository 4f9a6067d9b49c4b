// Package section defines the structural pieces of a dataset file pair: the dataset
// header, the variable descriptors declared by the companion file, and the layout
// constants used to slice a dataset into record frames.
//
// # Dataset Layout
//
// Source datasets are treated as opaque: every byte belongs to some record frame and
// the header carries placeholder attributes. Datasets written by this module start
// with a short text header and are followed by the raw record payloads:
//
//	┌──────────────────────────────────────────┐
//	│ "MDD_DUPLICATED_V1\n"                    │
//	│ "<record count>\n"                       │
//	├──────────────────────────────────────────┤
//	│ payload of record 0                      │
//	│ payload of record 1                      │
//	│ ...                                      │
//	└──────────────────────────────────────────┘
//
// ParseDatasetHeader recognizes this prefix, so a duplicated dataset can itself be
// parsed and duplicated again.
//
// # Record Width
//
// The width of one record frame is the sum of the declared variable widths when
// that sum lies in (0, MaxRecordWidth) and does not exceed the file length. Any
// other sum falls back to file length / HeuristicRecordCount.
package section
