// Package mdd handles the dataset side of a file pair: pairing and validating the
// binary dataset with its companion file, slicing a dataset into record frames,
// and streaming duplicated records back out to a new dataset file.
//
// The binary layout is not decoded. Parsing estimates a fixed record width
// from the companion's declared variable widths (or a heuristic when those are
// missing or implausible) and slices the file into opaque payloads. Field
// values for identifier rewriting come from a record.OverlayBuilder.
package mdd
