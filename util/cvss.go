// Package util provides utility functions for the backend.
package util

import (
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
)

// nvdMetricKeys lists the NVD metric arrays in order of preference
var nvdMetricKeys = []string{"cvssMetricV40", "cvssMetricV31", "cvssMetricV30", "cvssMetricV2"}

// CalculateCVSSScore calculates the CVSS base score from a vector string.
// Version 2 vectors carry no "CVSS:" prefix.
func CalculateCVSSScore(vectorStr string) float64 {
	switch {
	case vectorStr == "":
		return 0
	case strings.HasPrefix(vectorStr, "CVSS:4.0"):
		if cvss40, err := gocvss40.ParseVector(vectorStr); err == nil {
			return cvss40.Score()
		}
	case strings.HasPrefix(vectorStr, "CVSS:3.1"):
		if cvss31, err := gocvss31.ParseVector(vectorStr); err == nil {
			return cvss31.BaseScore()
		}
	case strings.HasPrefix(vectorStr, "CVSS:3.0"):
		if cvss30, err := gocvss30.ParseVector(vectorStr); err == nil {
			return cvss30.BaseScore()
		}
	case !strings.HasPrefix(vectorStr, "CVSS:"):
		if cvss20, err := gocvss20.ParseVector(vectorStr); err == nil {
			return cvss20.BaseScore()
		}
	}
	return 0
}

// SeverityFromMetrics returns the highest base score found among the vectors of
// the most recent CVSS version present in an NVD "metrics" object, and its rating
func SeverityFromMetrics(metrics interface{}) (float64, string) {
	metricMap, ok := metrics.(map[string]interface{})
	if !ok {
		return 0, GetSeverityRating(0)
	}

	for _, key := range nvdMetricKeys {
		entries, ok := metricMap[key].([]interface{})
		if !ok || len(entries) == 0 {
			continue
		}

		var highest float64
		for _, entry := range entries {
			entryMap, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			data, ok := entryMap["cvssData"].(map[string]interface{})
			if !ok {
				continue
			}
			vector, _ := data["vectorString"].(string)
			if score := CalculateCVSSScore(vector); score > highest {
				highest = score
			}
		}

		if highest > 0 {
			return highest, GetSeverityRating(highest)
		}
	}

	return 0, GetSeverityRating(0)
}

// GetSeverityRating returns the severity rating for a given CVSS score
func GetSeverityRating(score float64) string {
	switch {
	case score == 0:
		return "NONE"
	case score < 4.0:
		return "LOW"
	case score < 7.0:
		return "MEDIUM"
	case score < 9.0:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}
