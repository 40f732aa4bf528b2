package correlate

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Field extraction over free-text log lines. Every extractor returns nil
// on no match; nothing here errors.

var (
	forPairRe  = regexp.MustCompile(`(?i)\bfor\s+([A-Za-z0-9]+/[A-Za-z0-9]+(?::[A-Za-z0-9]+)?)`)
	barePairRe = regexp.MustCompile(`\b([A-Za-z0-9]{2,}/[A-Za-z0-9]{2,}(?::[A-Za-z0-9]+)?)\b`)
	tradeIDRe  = regexp.MustCompile(`(?i)\btrade_id\s*[:=]\s*(\d+)`)

	// compiled per label, shared across report refreshes
	labelReMu   sync.Mutex
	labeledRes  = map[string]*regexp.Regexp{}
	durationRes = map[string]*regexp.Regexp{}
)

// ExtractPair returns the pair named by a "for <PAIR>" clause, falling back
// to the first bare BASE/QUOTE[:SETTLE] token. Empty string on no match.
func ExtractPair(message string) string {
	if m := forPairRe.FindStringSubmatch(message); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := barePairRe.FindStringSubmatch(message); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func labeledRe(label string) *regexp.Regexp {
	labelReMu.Lock()
	defer labelReMu.Unlock()
	if re, ok := labeledRes[label]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*[:=]?\s*(-?\d+(?:\.\d+)?)\s*%?`)
	labeledRes[label] = re
	return re
}

// ExtractLabeledNumber finds "Label: 1.23", "Label=1.23%" etc.
// (case-insensitive) and returns the numeric value, or nil.
func ExtractLabeledNumber(message, label string) *float64 {
	m := labeledRe(label).FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

func durationRe(label string) *regexp.Regexp {
	labelReMu.Lock()
	defer labelReMu.Unlock()
	if re, ok := durationRes[label]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) +
		`\s*[:=]?\s*(-?\d+(?:\.\d+)?)\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h)?\b`)
	durationRes[label] = re
	return re
}

// ExtractDurationMinutes finds "<label>[:=] <number> [unit]" and converts
// the value to minutes. Missing unit means minutes already.
func ExtractDurationMinutes(message, label string) *float64 {
	m := durationRe(label).FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	switch {
	case m[2] == "":
		// minutes
	case strings.HasPrefix(strings.ToLower(m[2]), "s"):
		v /= 60
	case strings.HasPrefix(strings.ToLower(m[2]), "h"):
		v *= 60
	}
	return &v
}

// ExtractTradeID finds "trade_id:<digits>" or "trade_id=<digits>".
func ExtractTradeID(message string) *int {
	m := tradeIDRe.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &id
}
