// internal/quantity/quantity.go

// Package quantity converts the free-text quantities shown on video cards
// ("1.4K views", "12:05", "2 years ago") into comparable numbers.
//
// Every parser is total: unparseable or empty input yields 0. Callers that
// need to tell "absent" from "zero" must check the source text first.
package quantity

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	viewWordRegex   = regexp.MustCompile(`(?i)views?\b`)
	viewNumberRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([KMB])?\b`)
	noViewsRegex    = regexp.MustCompile(`(?i)^\s*no\s+views\s*$`)

	// a unit ends at a word boundary or runs straight into the next number ("1h30m")
	hoursRegex   = regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?|h)(?:\b|\d)`)
	minutesRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?|m)(?:\b|\d)`)
	secondsRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:seconds?|secs?|s)(?:\b|\d)`)

	yearsRegex = regexp.MustCompile(`(?i)\b(\d+)\s*years?\b`)
)

var suffixMultipliers = map[string]float64{
	"K": 1e3,
	"M": 1e6,
	"B": 1e9,
}

// ParseViewCount converts view-count text such as "1.4K views" or
// "1,234 views" into a number. Returns 0 for anything it cannot read,
// including the "No views" phrase.
func ParseViewCount(text string) int64 {
	cleaned := viewWordRegex.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0
	}

	match := viewNumberRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return 0
	}

	// an out-of-range literal comes back as +Inf and is clamped below
	number, err := strconv.ParseFloat(match[1], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}

	if multiplier, ok := suffixMultipliers[strings.ToUpper(match[2])]; ok {
		number *= multiplier
	}

	number = math.Round(number)
	if number >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(number)
}

// IsNoViews reports whether text is the bare "No views" phrase
func IsNoViews(text string) bool {
	return noViewsRegex.MatchString(text)
}

// ParseDuration converts "MM:SS", "HH:MM:SS" or worded durations
// ("1 hour 2 minutes", "45 sec") into seconds.
func ParseDuration(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	if strings.Contains(text, ":") {
		return parseClock(text)
	}

	total := 0
	total += firstInt(hoursRegex, text) * 3600
	total += firstInt(minutesRegex, text) * 60
	total += firstInt(secondsRegex, text)
	return total
}

// parseClock handles the colon-separated badge form
func parseClock(text string) int {
	parts := strings.Split(text, ":")
	values := make([]int, len(parts))
	for i, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || value < 0 {
			return 0
		}
		values[i] = value
	}

	switch len(values) {
	case 2:
		return values[0]*60 + values[1]
	case 3:
		return values[0]*3600 + values[1]*60 + values[2]
	default:
		return 0
	}
}

// ParseVideoAge returns the number of whole years in text like
// "2 years ago". Anything younger than a year, or unreadable, is 0.
func ParseVideoAge(text string) int {
	return firstInt(yearsRegex, text)
}

func firstInt(re *regexp.Regexp, text string) int {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return value
}

// FormatViews renders a view count the way the site abbreviates it
func FormatViews(views int64) string {
	switch {
	case views >= 1e9:
		return trimFloat(float64(views)/1e9) + "B"
	case views >= 1e6:
		return trimFloat(float64(views)/1e6) + "M"
	case views >= 1e3:
		return trimFloat(float64(views)/1e3) + "K"
	default:
		return strconv.FormatInt(views, 10)
	}
}

func trimFloat(value float64) string {
	return strconv.FormatFloat(math.Floor(value*10)/10, 'f', -1, 64)
}

// FormatSeconds renders seconds as H:MM:SS or M:SS
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return strconv.Itoa(h) + ":" + pad2(m) + ":" + pad2(s)
	}
	return strconv.Itoa(m) + ":" + pad2(s)
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
