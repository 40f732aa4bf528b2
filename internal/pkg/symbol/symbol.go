// Package symbol normalizes trading pair notation across bot log and
// ledger sources ("BTC/USDT", "BTC/USDT:USDT", "btc/usdt").
package symbol

import "strings"

// Pair is a parsed trading pair. Settle is empty for spot-style names.
type Pair struct {
	Base   string
	Quote  string
	Settle string
}

// Parse splits a BASE/QUOTE[:SETTLE] token. Returns the zero Pair when the
// input does not look like a pair.
func Parse(s string) Pair {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pair{}
	}
	settle := ""
	if idx := strings.Index(s, ":"); idx >= 0 {
		settle = strings.TrimSpace(s[idx+1:])
		s = s[:idx]
	}
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Pair{}
	}
	base := strings.TrimSpace(parts[0])
	quote := strings.TrimSpace(parts[1])
	if base == "" || quote == "" {
		return Pair{}
	}
	return Pair{
		Base:   strings.ToUpper(base),
		Quote:  strings.ToUpper(quote),
		Settle: strings.ToUpper(settle),
	}
}

// String renders the canonical uppercase form, keeping the settle suffix.
func (p Pair) String() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	s := p.Base + "/" + p.Quote
	if p.Settle != "" {
		s += ":" + p.Settle
	}
	return s
}

// IsValid reports whether both legs are present.
func (p Pair) IsValid() bool {
	return p.Base != "" && p.Quote != ""
}

// Normalize lower-cases and trims a pair for use as an index key. The settle
// suffix is preserved so futures and spot variants stay distinct.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Simplify is Normalize with any ":settle" suffix stripped, used to
// cross-match futures naming ("BTC/USDT:USDT") against spot ("BTC/USDT").
func Simplify(s string) string {
	s = Normalize(s)
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return s
}
