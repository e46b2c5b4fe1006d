// Package util provides utility functions for the backend.
//
//revive:disable-next-line:var-naming
package util

import (
	"regexp"
	"strings"
	"time"

	"github.com/ortelius/pdvd-cvesync/model"
)

// NVDTimestampLayout is the only timestamp format accepted from the upstream feed
const NVDTimestampLayout = "2006-01-02T15:04:05.999999"

// DateLayout is the canonical calendar-date form stored for published and last_modified
const DateLayout = "2006-01-02"

// time.Parse tolerates a missing fraction even when the layout has one, so the
// shape is checked first: date, time, and one to six fractional digits.
var nvdTimestampShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{1,6}$`)

// CleanDate converts an upstream timestamp into a YYYY-MM-DD date.
// Any other value, including nil and non-strings, returns model.Unknown and false.
func CleanDate(value interface{}) (string, bool) {
	str, ok := value.(string)
	if !ok || !nvdTimestampShape.MatchString(str) {
		return model.Unknown, false
	}

	t, err := time.Parse(NVDTimestampLayout, str)
	if err != nil {
		return model.Unknown, false
	}
	return t.Format(DateLayout), true
}

// DateToTimestamp turns a stored YYYY-MM-DD date back into the upstream timestamp
// form at midnight, for use as a modifiedSince cutoff
func DateToTimestamp(date string) (string, bool) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02T15:04:05.000"), true
}

// StringOrDefault returns the trimmed string value, or defVal when the value is
// absent, not a string, or blank
func StringOrDefault(value interface{}, defVal string) string {
	str, ok := value.(string)
	if !ok {
		return defVal
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return defVal
	}
	return str
}
