package util

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Model responses are not guaranteed to be pure JSON: they arrive wrapped in
// prose or markdown fences, with // and /* */ comments, trailing commas,
// single-quoted keys, or stray control characters. ExtractJSONObject pulls the
// first decodable JSON object out of such text. Leniency stops here: callers
// convert the result to their strict types immediately.

var (
	ErrNoJSONObject = errors.New("no JSON object found in text")

	lineCommentRe   = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	singleQuoteKey  = regexp.MustCompile(`'([^']*)'\s*:`)
	singleQuoteVal  = regexp.MustCompile(`:\s*'([^']*)'`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

func ExtractJSONObject(raw string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(raw)

	var direct map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil {
		return direct, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSONObject
	}
	candidate := trimmed[start : end+1]

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		return parsed, nil
	}

	repaired := RepairJSON(candidate)
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, ErrNoJSONObject
	}
	return parsed, nil
}

// RepairJSON applies the repair rules in a fixed order: comments out, trailing
// commas out, single quotes to double quotes, control characters stripped.
func RepairJSON(s string) string {
	s = lineCommentRe.ReplaceAllString(s, "")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = singleQuoteKey.ReplaceAllString(s, `"$1":`)
	s = singleQuoteVal.ReplaceAllString(s, `: "$1"`)
	s = controlCharRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

var firstIntRe = regexp.MustCompile(`\b(\d+)\b`)

// FirstInt returns the first integer appearing in the text. Used for model
// answers that are asked to be a bare number.
func FirstInt(raw string) (int, bool) {
	m := firstIntRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
