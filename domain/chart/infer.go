package chart

import "regexp"

// maxPieLabels is the largest label count for which a single series is
// inferred to be a pie.
const maxPieLabels = 6

var timeLabel = regexp.MustCompile(`(?i)(\b\d{4}\b|\b(jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|june?|july?|aug(ust)?|sep(t|tember)?|oct(ober)?|nov(ember)?|dec(ember)?)\b|\bgames?\b|\bweeks?\b)`)

var shareTitle = regexp.MustCompile(`(?i)(percentage|distribution|share)`)

// InferKind picks a chart kind for a payload that did not state one.
//
// Precedence, first match wins:
//   - exactly one series and at most six labels: pie
//   - any label looks like a time axis (year, month, "game", "week"): line
//   - title mentions a percentage, distribution or share: pie
//   - more than one series: bar
//   - otherwise: bar
func InferKind(title string, labels []string, seriesCount int) Kind {
	if seriesCount == 1 && len(labels) <= maxPieLabels {
		return KindPie
	}
	for _, label := range labels {
		if timeLabel.MatchString(label) {
			return KindLine
		}
	}
	if shareTitle.MatchString(title) {
		return KindPie
	}
	// Multiple series and the default case both render as grouped bars.
	return KindBar
}
