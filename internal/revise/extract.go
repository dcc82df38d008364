package revise

import "strings"

// UpdateMarker is the literal token the model must emit before a plan update.
const UpdateMarker = "PLAN_UPDATE:"

// splitUpdate locates the marker token in a model reply and extracts the JSON
// object that follows it using a brace-balance scan. The explanation text
// after the payload may itself contain braces or span multiple lines, so
// splitting on newlines or matching with a regex is not safe; the payload ends
// at the first point brace depth returns to zero outside a string literal.
//
// found is false when the reply carries no marker. When the marker is present
// but no balanced object follows, found is true and payload is empty, which
// callers treat as an invalid update.
func splitUpdate(reply string) (payload, explanation string, found bool) {
	idx := strings.Index(reply, UpdateMarker)
	if idx < 0 {
		return "", "", false
	}

	rest := reply[idx+len(UpdateMarker):]
	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return "", strings.TrimSpace(rest), true
	}

	depth := 0
	inString := false
	escaped := false
	end := -1
	for i := start; i < len(rest); i++ {
		c := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		// Unbalanced object: report the marker but no payload.
		return "", strings.TrimSpace(rest[start:]), true
	}

	explanation = strings.TrimSpace(rest[end:])
	if explanation == "" {
		explanation = strings.TrimSpace(reply[:idx])
	}
	return rest[start:end], explanation, true
}
