package runtime

import "strings"

// firstNonEmpty returns the first value that is not blank, trimmed.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// orNone renders blank values as <none> so summary columns never look empty.
func orNone(s string) string {
	return firstNonEmpty(s, "<none>")
}

// mark renders a flag in the summary.
func mark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}
