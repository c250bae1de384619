package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonNumeric     = regexp.MustCompile(`[^\d.,\-mMbB]`)
	numericLiteral = regexp.MustCompile(`(-?[\d.,]*\d[\d.,]*)([mMbB])?`)
)

// ExtractNumber pulls the first number out of loosely formatted text such as
// "R1.2B" or "45.6%". A trailing m/M scales by a million and b/B by a billion;
// there is no thousand-scale letter. It reports false when no number is present.
func ExtractNumber(text string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(text, "")
	m := numericLiteral.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, false
	}

	v, ok := parseLeadingFloat(strings.ReplaceAll(m[1], ",", ""))
	if !ok {
		return 0, false
	}

	switch m[2] {
	case "m", "M":
		v *= 1e6
	case "b", "B":
		v *= 1e9
	}
	return v, true
}

// parseLeadingFloat parses the longest prefix of s that is a valid decimal,
// so "1.2.3" yields 1.2.
func parseLeadingFloat(s string) (float64, bool) {
	end := 0
	seenDot := false
	seenDigit := false
scan:
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !seenDot:
			seenDot = true
		case r >= '0' && r <= '9':
			seenDigit = true
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
