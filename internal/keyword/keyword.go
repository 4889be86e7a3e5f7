// Package keyword turns free text into the canonical token sequence used for
// indexing and searching media.
package keyword

import "strings"

var punctuation = strings.NewReplacer(
	".", " ",
	"_", " ",
	"@", " ",
	"(", " ",
	")", " ",
	"-", " ",
)

// Normalize replaces the separator punctuation with spaces, lowercases the
// text and splits it on whitespace. An empty result means "no match", never
// "match everything".
func Normalize(text string) []string {
	text = strings.ToLower(punctuation.Replace(text))
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return []string{}
	}
	return fields
}

// Join renders tokens as the single-space keyword string stored in the index
// and carried inside pagination payloads.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Canonical is Join(Normalize(text)).
func Canonical(text string) string {
	return Join(Normalize(text))
}

// ForIngest builds the keyword column for a newly ingested document from its
// caption and file name.
func ForIngest(caption, fileName string) string {
	tokens := Normalize(caption)
	tokens = append(tokens, Normalize(fileName)...)
	return Join(tokens)
}
