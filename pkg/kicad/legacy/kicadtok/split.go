// Package kicadtok splits records of the legacy KiCad text formats into tokens.
package kicadtok

import "strings"

// SplitLine splits a record on single spaces, keeping quoted text together.
//
// Quotes around a token are stripped. Runs of spaces inside quotes are kept,
// runs of spaces outside quotes collapse. Escaped quotes (\") are passed
// through as-is and never close a quoted span. An unterminated quote keeps
// the rest of the line in the last token.
func SplitLine(line string) []string {
	var out []string
	quoted := false

	for _, item := range strings.Split(line, " ") {
		if quoted {
			last := len(out) - 1
			if closesQuote(item) {
				quoted = false
				out[last] += " " + item[:len(item)-1]
			} else {
				out[last] += " " + item
			}
			continue
		}

		if strings.HasPrefix(item, `"`) {
			if len(item) > 1 && closesQuote(item) {
				out = append(out, item[1:len(item)-1])
			} else {
				quoted = true
				out = append(out, item[1:])
			}
			continue
		}

		if item != "" {
			out = append(out, item)
		}
	}

	return out
}

// Quote wraps text in double quotes the way the legacy writers do.
func Quote(text string) string {
	return `"` + text + `"`
}

func closesQuote(item string) bool {
	return strings.HasSuffix(item, `"`) && !strings.HasSuffix(item, `\"`)
}
