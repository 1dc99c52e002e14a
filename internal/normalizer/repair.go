package normalizer

import "strings"

// ExtractObject returns the text between the first '{' and the last '}'
// inclusive, dropping whatever commentary the model put around it.
func ExtractObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", &MalformedResponseError{Raw: raw}
	}
	return raw[start : end+1], nil
}

// Repair escapes raw control characters and doubled quotes inside the string
// value of bodyField. Everything outside that value is copied as is, and a
// backslash always lets the next byte through untouched, so repairing valid
// JSON is a no-op.
//
// The scan works on bytes: every byte it inspects is ASCII, and UTF-8
// continuation bytes never collide with them.
func Repair(text, bodyField string) string {
	markers := bodyMarkers(bodyField)

	var b strings.Builder
	b.Grow(len(text) + len(text)/32)

	inString := false
	inBody := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' {
			b.WriteByte(c)
			escaped = true
			continue
		}

		if !inString {
			if m := matchMarker(text[i:], markers); m != "" {
				b.WriteString(m)
				i += len(m) - 1
				inString, inBody = true, true
				continue
			}
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		if !inBody {
			if c == '"' {
				inString = false
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			// "" внутри тела - артефакт модели для вложенной кавычки
			if i+1 < len(text) && text[i+1] == '"' {
				b.WriteString(`\"`)
				i++
				continue
			}
			inString, inBody = false, false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// bodyMarkers returns `"field": "` and its compact form `"field":"`.
func bodyMarkers(field string) []string {
	if field == "" {
		field = CanonicalFields.Content
	}
	key := `"` + field + `":`
	return []string{key + ` "`, key + `"`}
}

func matchMarker(s string, markers []string) string {
	for _, m := range markers {
		if strings.HasPrefix(s, m) {
			return m
		}
	}
	return ""
}
