// Package archive packages a job's output directory into a zip archive and
// writes the plain-text performance report.
//
// The archive sits next to the output directory and is named after it:
//
//	out/duplicated_3x_20260301_120000/       (removed unless kept)
//	out/duplicated_3x_20260301_120000.zip
//
// Only regular files directly inside the directory are archived, in name
// order. Entries use DEFLATE at level 6 by default; Store and zstd (method
// 93) are available through options. The archive is assembled in a
// temporary file and renamed into place once complete.
package archive
