package layout

import (
	"fmt"
	"path"
	"strings"
)

// replacements maps characters that are invalid or hazardous in file names
// on common filesystems.
var replacements = map[rune]string{
	'<':  "",
	'>':  "",
	':':  "-",
	'"':  "'",
	'/':  "-",
	'\\': "-",
	'|':  "-",
	'?':  "",
	'*':  "",
	'\n': " ",
	'\t': " ",
}

// reservedNames are device names Windows refuses as file name stems.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Sanitize cleans a single path segment: replaces or drops characters that
// are unsafe on common filesystems, collapses whitespace, and trims leading
// and trailing dots and spaces. The result may be empty.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if rep, ok := replacements[r]; ok {
			b.WriteString(rep)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.Join(strings.Fields(b.String()), " ")
	s = strings.Trim(s, " .")

	if isReserved(s) {
		s = "_" + s
	}
	return s
}

// isReserved reports whether the stem before the first dot is a Windows
// reserved device name.
func isReserved(s string) bool {
	stem := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		stem = s[:i]
	}
	return reservedNames[strings.ToUpper(stem)]
}

// Truncate shortens s to at most max characters. It never splits a rune and
// trims trailing dots and spaces left at the cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " .")
}

// WithSuffix inserts a numeric disambiguator before the key's extension.
func WithSuffix(key string, n int) string {
	ext := path.Ext(key)
	stem := strings.TrimSuffix(key, ext)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// WithUnique inserts an opaque fragment before the key's extension. Used
// when numeric disambiguation runs out of candidates.
func WithUnique(key, fragment string) string {
	ext := path.Ext(key)
	stem := strings.TrimSuffix(key, ext)
	return fmt.Sprintf("%s_%s%s", stem, fragment, ext)
}
