// AngelaMos | 2026
// extract.go

// Package extract pulls structured fields out of free-text model answers.
// Every function is pure and safe for concurrent use.
package extract

import (
	"regexp"
	"strings"
)

const DefaultChakra = "Heart Chakra"

var (
	symbolLine    = regexp.MustCompile(`(?i)(?:s[íi]mbolo|symbol)[^:\n]*:[^\S\n]*([^\n]+)`)
	chakraLine    = regexp.MustCompile(`(?i)chakra[^:\n]*:[^\S\n]*([^\n]+)`)
	frequencyLine = regexp.MustCompile(`(?i)(?:frequ[êe]ncia|frequency)[^:\n]*:[^\S\n]*([^\n]+)`)
)

// Symbols returns the value of every "symbol: value" line, in order of
// appearance. Labels match in English and Portuguese, case-insensitively,
// with any suffix before the colon ("Símbolo 2:", "Symbols found:").
func Symbols(text string) []string {
	matches := symbolLine.FindAllStringSubmatch(text, -1)
	symbols := make([]string, 0, len(matches))
	for _, m := range matches {
		if v := clean(m[1]); v != "" {
			symbols = append(symbols, v)
		}
	}
	return symbols
}

// ChakraFocus returns the first "chakra: value" value, or DefaultChakra.
func ChakraFocus(text string) string {
	if v := firstValue(chakraLine, text); v != "" {
		return v
	}
	return DefaultChakra
}

// EnergyFrequency returns the first "frequency: value" value, or "".
func EnergyFrequency(text string) string {
	return firstValue(frequencyLine, text)
}

func firstValue(re *regexp.Regexp, text string) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v := clean(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// clean drops markdown emphasis left around the value.
func clean(s string) string {
	return strings.Trim(s, " \t\r*_`")
}
