package correlate

import (
	"fmt"
	"regexp"
	"strings"
)

// ReasonCode is the closed set of missed-trade classifications.
type ReasonCode string

const (
	ReasonDeepDCABlock           ReasonCode = "deep_dca_block"
	ReasonLongDisabled           ReasonCode = "long_disabled"
	ReasonTimeFilter             ReasonCode = "time_filter"
	ReasonETHVolatility          ReasonCode = "eth_volatility"
	ReasonFundingRateUnfavorable ReasonCode = "funding_rate_unfavorable"
	ReasonFundingRateTooHigh     ReasonCode = "funding_rate_too_high"
	ReasonFundingRateTooLow      ReasonCode = "funding_rate_too_low"
	ReasonFundingRateGuard       ReasonCode = "funding_rate_guard"
	ReasonMomentum               ReasonCode = "momentum"
	ReasonSlippage               ReasonCode = "slippage"
	ReasonTrailingEntryCondition ReasonCode = "trailing_entry_condition"
	ReasonInsufficientData       ReasonCode = "insufficient_data"
	ReasonEntryError             ReasonCode = "entry_error"
	ReasonTradeRejected          ReasonCode = "trade_rejected"
	ReasonUnclassified           ReasonCode = "unclassified"
)

// Rule is one ordered classification step: the first rule whose Contains
// disjunction matches the lowercased message wins.
type Rule struct {
	Code     ReasonCode
	Label    string
	Contains []string
}

func (r Rule) matches(lower string) bool {
	for _, needle := range r.Contains {
		if needle != "" && strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// defaultRules is evaluated top to bottom. Ordering is deliberate:
// specific funding-rate rules sit above the generic funding-rate guard,
// and error-ish rules sit near the bottom so domain rules see the
// message first.
func defaultRules() []Rule {
	return []Rule{
		{Code: ReasonDeepDCABlock, Label: "Deep DCA block", Contains: []string{
			"blocking new entry", "blocking new trades:", "deep dca",
		}},
		{Code: ReasonLongDisabled, Label: "Long entries disabled", Contains: []string{
			"long entries disabled", "longs disabled", "long side disabled", "not allowed to go long",
		}},
		{Code: ReasonTimeFilter, Label: "Time filter", Contains: []string{
			"outside trading window", "outside trading hours", "time filter", "blocked by schedule",
		}},
		{Code: ReasonETHVolatility, Label: "ETH volatility block", Contains: []string{
			"eth volatility", "eth move too large", "eth is too volatile",
		}},
		{Code: ReasonFundingRateUnfavorable, Label: "Funding rate unfavorable", Contains: []string{
			"funding rate unfavorable", "unfavorable funding",
		}},
		{Code: ReasonFundingRateTooHigh, Label: "Funding rate too high", Contains: []string{
			"funding rate too high",
		}},
		{Code: ReasonFundingRateTooLow, Label: "Funding rate too low", Contains: []string{
			"funding rate too low",
		}},
		{Code: ReasonFundingRateGuard, Label: "Funding rate guard", Contains: []string{
			"funding rate", "funding guard",
		}},
		{Code: ReasonMomentum, Label: "Momentum check", Contains: []string{
			"momentum",
		}},
		{Code: ReasonSlippage, Label: "Slippage too high", Contains: []string{
			"slippage",
		}},
		{Code: ReasonTrailingEntryCondition, Label: "Trailing entry condition", Contains: []string{
			"trailing entry", "trailing not triggered", "waiting for trailing",
		}},
		{Code: ReasonInsufficientData, Label: "Insufficient data", Contains: []string{
			"insufficient data", "not enough data", "no candles", "dataframe is empty",
		}},
		{Code: ReasonEntryError, Label: "Entry error", Contains: []string{
			"error entering", "entry failed", "unable to enter", "exception",
		}},
		{Code: ReasonTradeRejected, Label: "Trade rejected", Contains: []string{
			"rejected",
		}},
	}
}

// denyMarkers suppress a message from the missed-trade stream entirely:
// a manual denial is not a missed trade.
var denyMarkers = []string{
	"user denied", "denied by user", "user_denied", "entry denied by user",
}

// Classifier maps a message to exactly one reason code. It is pure and
// safe for concurrent use once built.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier from the built-in rule table plus any
// override rules, which are appended after the built-ins and before the
// unclassified fallback.
func NewClassifier(overrides ...Rule) *Classifier {
	rules := defaultRules()
	for _, r := range overrides {
		if r.Code == "" || len(r.Contains) == 0 {
			continue
		}
		lowered := make([]string, 0, len(r.Contains))
		for _, s := range r.Contains {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				lowered = append(lowered, s)
			}
		}
		if len(lowered) == 0 {
			continue
		}
		r.Contains = lowered
		if r.Label == "" {
			r.Label = string(r.Code)
		}
		rules = append(rules, r)
	}
	return &Classifier{rules: rules}
}

// IsSuppressed reports whether the message is a manual denial that must be
// excluded from the missed-trade stream.
func (c *Classifier) IsSuppressed(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range denyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Classify returns the first matching rule's code and label. Total: an
// empty or unmatched message yields ReasonUnclassified.
func (c *Classifier) Classify(message string) (ReasonCode, string) {
	lower := strings.ToLower(message)
	for _, rule := range c.rules {
		if rule.matches(lower) {
			return rule.Code, rule.Label
		}
	}
	return ReasonUnclassified, "Unclassified"
}

var fundingCompareRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*%\s*([<>])\s*(-?\d+(?:\.\d+)?)\s*%`)

// ExtractDetails renders a short human-readable explanation for codes that
// have a template. Codes without one yield nil.
func ExtractDetails(code ReasonCode, message string) *string {
	switch code {
	case ReasonFundingRateTooLow, ReasonFundingRateTooHigh, ReasonFundingRateGuard, ReasonFundingRateUnfavorable:
		m := fundingCompareRe.FindStringSubmatch(message)
		if m == nil {
			return nil
		}
		rel := "below"
		if m[2] == ">" {
			rel = "above"
		}
		s := fmt.Sprintf("Funding rate %s%% %s limit %s%%", m[1], rel, m[3])
		return &s
	case ReasonSlippage:
		if v := ExtractLabeledNumber(message, "slippage"); v != nil {
			s := fmt.Sprintf("Slippage %.2f%%", *v)
			return &s
		}
		return nil
	default:
		return nil
	}
}
