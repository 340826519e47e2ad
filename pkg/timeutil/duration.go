// Package timeutil parses the human time spans accepted by the links API,
// e.g. "2w", "1 hour" or "1.5 months".
package timeutil

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Calendar units use fixed averages: a month is one twelfth of the mean
// Gregorian year, a year is a Julian year. The API treats expiry spans as
// plain offsets, not calendar arithmetic.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 2629746000 * time.Millisecond
	Year  = 31557600000 * time.Millisecond
)

var units = map[string]time.Duration{
	"milliseconds": time.Millisecond,
	"seconds":      time.Second,
	"minutes":      time.Minute,
	"hours":        time.Hour,
	"days":         Day,
	"weeks":        Week,
	"months":       Month,
	"years":        Year,

	"millisecond": time.Millisecond,
	"second":      time.Second,
	"minute":      time.Minute,
	"hour":        time.Hour,
	"day":         Day,
	"week":        Week,
	"month":       Month,
	"year":        Year,

	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  Day,
	"D":  Day,
	"w":  Week,
	"M":  Month,
	"y":  Year,
}

var durationRegExp = buildRegExp()

func buildRegExp() *regexp.Regexp {
	tokens := make([]string, 0, len(units))
	for unit := range units {
		tokens = append(tokens, unit)
	}
	// Longest tokens first so e.g. "ms" is never cut short by "m".
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return regexp.MustCompile(`^(-?\d+(?:\.\d+)?) *(` + strings.Join(tokens, "|") + `)$`)
}

// ParseDuration parses "<number><optional space><unit>" after trimming
// surrounding whitespace. Fractional and negative numbers are allowed; a
// negative span makes a link expired on arrival. Input that does not
// match the grammar is not an error: it reports ok=false and the caller picks
// its own default.
func ParseDuration(value string) (time.Duration, bool) {
	match := durationRegExp.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return 0, false
	}
	number, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(number * float64(units[match[2]])), true
}
