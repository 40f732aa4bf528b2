package correlate

import "strings"

// trailingMarkers identify a trailing-entry state transition line
// (start/stop/update/triggering).
var trailingMarkers = []string{
	"triggering long",
	"triggering short",
	"trailing entry started",
	"trailing entry stopped",
	"trailing entry updated",
	"start trailing",
	"stop trailing",
	"update trailing",
}

// IsTrailingTrigger reports whether the sample describes a trailing-entry
// state transition.
func IsTrailingTrigger(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range trailingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ParseTriggerEvent converts one log sample into a TriggerEvent. Returns
// false when the sample is not a trailing-trigger line. All numeric fields
// are best-effort; an unparseable field stays nil.
func ParseTriggerEvent(sample LogSample) (TriggerEvent, bool) {
	if !IsTrailingTrigger(sample.Message) {
		return TriggerEvent{}, false
	}
	msg := sample.Message
	ev := TriggerEvent{
		Sample:          sample,
		Pair:            ExtractPair(msg),
		Side:            parseSide(msg),
		ProfitPct:       ExtractLabeledNumber(msg, "profit"),
		OffsetPct:       ExtractLabeledNumber(msg, "offset"),
		DurationMinutes: ExtractDurationMinutes(msg, "duration"),
		StartValue:      ExtractLabeledNumber(msg, "start value"),
		CurrentValue:    ExtractLabeledNumber(msg, "current value"),
		LowLimit:        ExtractLabeledNumber(msg, "low limit"),
		UpLimit:         ExtractLabeledNumber(msg, "up limit"),
		MatchSource:     MatchNone,
	}
	return ev, true
}

func parseSide(message string) Side {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "long"):
		return SideLong
	case strings.Contains(lower, "short"):
		return SideShort
	default:
		return SideUnknown
	}
}
