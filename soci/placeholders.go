package soci

import "strings"

// RewritePlaceholders scans query for SOCI-style ":name" named
// placeholders and bare "?" positional placeholders (outside of single-
// quoted string literals) and rewrites each occurrence, in left-to-right
// order, using native(ordinal) where ordinal is the placeholder's 1-based
// position. It returns the rewritten query plus the name recorded for
// each ordinal ("" for an anonymous "?").
//
// This is a stdlib-only component: no example in the corpus ships a
// generic SQL placeholder rewriter (the pack's query layers either use a
// single native style throughout or rely on a code generator), so each
// backend calls this shared helper instead of re-deriving the same
// tokenizer independently.
func RewritePlaceholders(query string, native func(ordinal int) string) (string, []string) {
	var out strings.Builder
	var names []string
	ordinal := 0

	i, n := 0, len(query)
	for i < n {
		c := query[i]
		switch {
		case c == '\'':
			// copy the quoted literal verbatim, including escaped quotes ('')
			out.WriteByte(c)
			i++
			for i < n {
				out.WriteByte(query[i])
				if query[i] == '\'' {
					i++
					if i < n && query[i] == '\'' {
						out.WriteByte(query[i])
						i++
						continue
					}
					break
				}
				i++
			}
		case c == ':' && i+1 < n && isIdentStart(query[i+1]):
			start := i + 1
			j := start
			for j < n && isIdentPart(query[j]) {
				j++
			}
			name := query[start:j]
			ordinal++
			out.WriteString(native(ordinal))
			names = append(names, name)
			i = j
		case c == '?':
			ordinal++
			out.WriteString(native(ordinal))
			names = append(names, "")
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String(), names
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
