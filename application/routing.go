package application

import "strings"

var visualizationKeywords = []string{
	"compare", "comparison", "vs", "versus", "trend", "over time",
	"chart", "graph", "visualize", "show me", "plot",
	"career", "progression", "leaders", "top", "ranking",
}

var predictionKeywords = []string{
	"predict", "prediction", "forecast", "project", "projection",
	"expected", "next game", "next season",
}

// NeedsVisualization reports whether a query asks for something a chart
// answers. Matching is a case-insensitive substring test, so "top" also
// matches "stop".
func NeedsVisualization(query string) bool {
	return containsAny(query, visualizationKeywords)
}

// NeedsPrediction reports whether a query asks for a forecast.
func NeedsPrediction(query string) bool {
	return containsAny(query, predictionKeywords)
}

func containsAny(query string, keywords []string) bool {
	q := strings.ToLower(query)
	for _, k := range keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
