// AngelaMos | 2026
// numerology.go

// Package numerology computes Pythagorean core numbers from a full name and
// a birth date.
package numerology

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/carterperez-dev/mystic-backend/internal/core"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Reading holds the five core numbers. Master numbers 11, 22 and 33 are
// never reduced.
type Reading struct {
	Destiny      int `json:"destiny"`
	Soul         int `json:"soul"`
	Personality  int `json:"personality"`
	Expression   int `json:"expression"`
	PersonalYear int `json:"personalYear"`
}

// ParseBirthDate accepts YYYY-MM-DD or DD/MM/YYYY.
func ParseBirthDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.InvalidInput(
		"birthDate must be YYYY-MM-DD or DD/MM/YYYY, got %q", s,
	)
}

// Calculate derives the reading for fullName born on birthDate, with the
// personal year taken from now.
func Calculate(fullName string, birthDate time.Time, now time.Time) (Reading, error) {
	letters := normalize(fullName)
	if letters == "" {
		return Reading{}, core.InvalidInput("fullName must contain letters")
	}

	var all, vowels, consonants int
	for _, r := range letters {
		v := letterValue(r)
		all += v
		if isVowel(r) {
			vowels += v
		} else {
			consonants += v
		}
	}

	return Reading{
		Destiny:      reduce(digitSum(birthDate.Year()) + digitSum(int(birthDate.Month())) + digitSum(birthDate.Day())),
		Soul:         reduce(vowels),
		Personality:  reduce(consonants),
		Expression:   reduce(all),
		PersonalYear: reduce(digitSum(birthDate.Day()) + digitSum(int(birthDate.Month())) + digitSum(now.Year())),
	}, nil
}

// Topics renders the reading as the ordered list of questions sent to the
// model, one per number.
func (r Reading) Topics(fullName string) []string {
	return []string{
		fmt.Sprintf("Destiny number %d for %s", r.Destiny, fullName),
		fmt.Sprintf("Soul number %d for %s", r.Soul, fullName),
		fmt.Sprintf("Personality number %d for %s", r.Personality, fullName),
		fmt.Sprintf("Expression number %d for %s", r.Expression, fullName),
		fmt.Sprintf("Personal year %d for %s", r.PersonalYear, fullName),
	}
}

// normalize strips accents and keeps only upper-case ASCII letters.
func normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func letterValue(r rune) int {
	return int(r-'A')%9 + 1
}

// Y counts as a consonant.
func isVowel(r rune) bool {
	return strings.ContainsRune("AEIOU", r)
}

func digitSum(n int) int {
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}

func reduce(n int) int {
	for n > 9 && n != 11 && n != 22 && n != 33 {
		n = digitSum(n)
	}
	return n
}
