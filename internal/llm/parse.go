package llm

import (
	"strconv"
	"strings"
	"unicode"
)

// Model replies are untrusted input: the expected payload usually arrives
// wrapped in prose, markdown fences or stray whitespace. The helpers here
// extract the first parseable signal instead of assuming well-formedness.

// FirstInt extracts the first run of digits from a model reply and parses it.
// Returns ok=false when the reply carries no digits at all.
func FirstInt(reply string) (int, bool) {
	start := -1
	for i, r := range reply {
		if unicode.IsDigit(r) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			n, err := strconv.Atoi(reply[start:i])
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	if start == -1 {
		return 0, false
	}
	n, err := strconv.Atoi(reply[start:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// JSONObject returns the substring between the first '{' and the last '}'
// of a reply, or ok=false when no balanced pair exists.
func JSONObject(reply string) (string, bool) {
	return between(reply, '{', '}')
}

// JSONArray returns the substring between the first '[' and the last ']'
// of a reply, or ok=false when no balanced pair exists.
func JSONArray(reply string) (string, bool) {
	return between(reply, '[', ']')
}

func between(s string, open, close byte) (string, bool) {
	first := strings.IndexByte(s, open)
	last := strings.LastIndexByte(s, close)
	if first == -1 || last == -1 || last < first {
		return "", false
	}
	return s[first : last+1], true
}
