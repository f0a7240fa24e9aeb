package util

import (
	"fmt"
	"strconv"
	"time"
)

// PromptTimeLayout is the timestamp format models are asked to produce and
// the format embedded in synthesis prompts.
const PromptTimeLayout = "2006-01-02 15:04:05"

// ParseTimeFlexible accepts RFC3339 (with or without fractional seconds), the
// prompt layout, or epoch milliseconds.
func ParseTimeFlexible(timeStr string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, timeStr)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.ParseInLocation(PromptTimeLayout, timeStr, time.Local)
	if err == nil {
		return t.UTC(), nil
	}

	ms, err := strconv.ParseInt(timeStr, 10, 64)
	if err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}

// FormatPromptTime renders a timestamp the way prompts expect it.
func FormatPromptTime(t time.Time) string {
	return t.Format(PromptTimeLayout)
}
