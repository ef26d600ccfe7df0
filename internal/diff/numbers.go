package diff

import (
	"strconv"
	"strings"
)

// numberWords maps English number words (normalized) to their integer
// values. Covers cardinal and ordinal forms for 0-90 plus hundred and
// thousand.
var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	"hundred": 100, "thousand": 1000,
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
	"fifteenth": 15, "sixteenth": 16, "seventeenth": 17, "eighteenth": 18,
	"nineteenth": 19, "twentieth": 20,
	"thirtieth": 30, "fortieth": 40, "fiftieth": 50,
	"sixtieth": 60, "seventieth": 70, "eightieth": 80, "ninetieth": 90,
}

var ordinalSuffixes = []string{"st", "nd", "rd", "th"}

// parseNumber returns the integer value of a normalized word when it
// represents a number: Arabic numerals ("42"), Arabic ordinals ("2nd"),
// cardinal words ("twenty") or ordinal words ("twentieth"). The second
// return value reports whether the word parsed as a number at all.
func parseNumber(normWord string) (int, bool) {
	arabic := normWord
	for _, suffix := range ordinalSuffixes {
		if trimmed, ok := strings.CutSuffix(arabic, suffix); ok {
			arabic = trimmed
			break
		}
	}
	if v, err := strconv.Atoi(arabic); err == nil {
		return v, true
	}
	v, ok := numberWords[normWord]
	return v, ok
}

// numbersEquivalent reports whether two normalized words represent the
// same number.
func numbersEquivalent(normA, normB string) bool {
	va, ok := parseNumber(normA)
	if !ok {
		return false
	}
	vb, ok := parseNumber(normB)
	return ok && va == vb
}
