// Package layout turns task metadata into deterministic, filesystem-safe
// object keys below the mirror root.
//
// # Structure
//
// A resolved key has three parts: the course folder rendered from
// [Options.FolderTemplate], a content type segment, and the file name
// rendered from [Options.FilePattern]:
//
//	2026/First Semester/CS101-Intro to Computing/files/files_001_syllabus.pdf
//
// # Templates
//
// The folder template recognizes {year}, {semester}, {course_code} and
// {course_name}; absent fields substitute fixed fallback literals. The file
// pattern recognizes {type}, {number} (zero-padded to [Options.NumberWidth])
// and {name}.
//
// # Sanitization
//
// Every segment is cleaned for portability: characters that are invalid on
// common filesystems are dropped or replaced, whitespace is collapsed,
// leading and trailing dots and spaces are trimmed, and Windows reserved
// device names are prefixed with an underscore. Segments are truncated to
// [Options.MaxNameLength] characters; file names keep their extension when
// truncated.
//
// # Failure
//
// Resolve returns a [ResolutionError] when the rendered file name has an
// empty stem or the key nests deeper than [Options.MaxDepth]. Both are local
// to the offending task.
package layout
