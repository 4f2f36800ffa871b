package main

import (
	"regexp"

	"github.com/fatih/color"
)

var (
	jsonKeyPattern     = regexp.MustCompile(`"([^"]+)"\s*:`)
	jsonStringPattern  = regexp.MustCompile(`: "([^"]*)"`)
	jsonNumberPattern  = regexp.MustCompile(`: (-?[0-9]+(\.[0-9]+)?|NaN)`)
	jsonKeywordPattern = regexp.MustCompile(`: (true|false|null)`)
)

// colorizeJSON applies terminal colour to a pretty-printed JSON document:
// keys in cyan, string values in green, numbers (and NaN) in yellow,
// booleans/null in magenta. It is a line-oriented approximation, not a
// real JSON parser — good enough for report output, not a general tool.
func colorizeJSON(text string) string {
	text = jsonKeyPattern.ReplaceAllString(text, color.CyanString(`"$1"`)+":")
	text = jsonStringPattern.ReplaceAllString(text, ": "+color.GreenString(`"$1"`))
	text = jsonNumberPattern.ReplaceAllString(text, ": "+color.YellowString("$1"))
	text = jsonKeywordPattern.ReplaceAllString(text, ": "+color.MagentaString("$1"))
	return text
}
