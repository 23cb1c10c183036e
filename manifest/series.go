package manifest

import "strings"

// series renders a list of items using the standard English "series"
// (Oxford comma) format: "A", "A and B", or "A, B, and C".
func series(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func quote(s string) string {
	return "`" + s + "`"
}
