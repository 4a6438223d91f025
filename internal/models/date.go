package models

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006年1月2日",
	time.RFC3339,
}

// ParseDate parses the date formats produced by the race and horse history tables.
// Dates are normalized to midnight UTC so that same-day comparisons are exact.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
