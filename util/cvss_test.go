package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCVSSScore(t *testing.T) {
	assert.InDelta(t, 9.8, CalculateCVSSScore("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"), 0.001)
	assert.InDelta(t, 7.5, CalculateCVSSScore("AV:N/AC:L/Au:N/C:P/I:P/A:P"), 0.001)
	assert.Zero(t, CalculateCVSSScore(""))
	assert.Zero(t, CalculateCVSSScore("CVSS:3.1/garbage"))
}

func TestGetSeverityRating(t *testing.T) {
	assert.Equal(t, "NONE", GetSeverityRating(0))
	assert.Equal(t, "LOW", GetSeverityRating(3.9))
	assert.Equal(t, "MEDIUM", GetSeverityRating(4.0))
	assert.Equal(t, "HIGH", GetSeverityRating(7.5))
	assert.Equal(t, "CRITICAL", GetSeverityRating(9.8))
}

func metricEntry(vector string) map[string]interface{} {
	return map[string]interface{}{
		"cvssData": map[string]interface{}{"vectorString": vector},
	}
}

func TestSeverityFromMetrics(t *testing.T) {
	t.Run("prefers newest version present", func(t *testing.T) {
		metrics := map[string]interface{}{
			"cvssMetricV31": []interface{}{
				metricEntry("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"),
			},
			"cvssMetricV2": []interface{}{
				metricEntry("AV:N/AC:L/Au:N/C:P/I:P/A:P"),
			},
		}
		score, rating := SeverityFromMetrics(metrics)
		assert.InDelta(t, 9.8, score, 0.001)
		assert.Equal(t, "CRITICAL", rating)
	})

	t.Run("falls back to v2", func(t *testing.T) {
		metrics := map[string]interface{}{
			"cvssMetricV2": []interface{}{
				metricEntry("AV:N/AC:L/Au:N/C:P/I:P/A:P"),
			},
		}
		score, rating := SeverityFromMetrics(metrics)
		assert.InDelta(t, 7.5, score, 0.001)
		assert.Equal(t, "HIGH", rating)
	})

	t.Run("missing metrics", func(t *testing.T) {
		score, rating := SeverityFromMetrics(nil)
		assert.Zero(t, score)
		assert.Equal(t, "NONE", rating)
	})
}
