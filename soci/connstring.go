package soci

import (
	"fmt"
	"strings"
)

// ParseConnectionString parses a SOCI-style connection string: whitespace
// separated key=value pairs, where a value may be single- or double-quoted
// to embed whitespace or '=' (e.g. `host=localhost port=5432
// password='a b' dbname=test`). This is a stdlib-only component: no example
// in the corpus ships a generic non-URL key=value-with-quotes tokenizer
// (the pack's DSN builders go the other way, composing URLs, not parsing
// this format), so there is nothing to ground the parsing logic itself on
// beyond the original connection-string grammar it replaces.
func ParseConnectionString(s string) (map[string]string, error) {
	out := make(map[string]string)
	i, n := 0, len(s)

	skipSpace := func() {
		for i < n && isSpace(s[i]) {
			i++
		}
	}

	for {
		skipSpace()
		if i >= n {
			break
		}

		keyStart := i
		for i < n && s[i] != '=' && !isSpace(s[i]) {
			i++
		}
		if i >= n || s[i] != '=' {
			return nil, fmt.Errorf("soci: malformed connection string at offset %d: expected '=' after key", keyStart)
		}
		key := s[keyStart:i]
		if key == "" {
			return nil, fmt.Errorf("soci: malformed connection string at offset %d: empty key", keyStart)
		}
		i++ // skip '='

		var value string
		if i < n && (s[i] == '\'' || s[i] == '"') {
			quote := s[i]
			i++
			valStart := i
			for i < n && s[i] != quote {
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("soci: malformed connection string: unterminated quote starting at offset %d", valStart-1)
			}
			value = s[valStart:i]
			i++ // skip closing quote
		} else {
			valStart := i
			for i < n && !isSpace(s[i]) {
				i++
			}
			value = s[valStart:i]
		}

		out[strings.ToLower(key)] = value
	}

	return out, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// BuildConnectionString renders params in the grammar ParseConnectionString
// reads, quoting any value that contains whitespace or a quote character
// (with double quotes when the value contains a single quote). The grammar
// has no escape sequence, so a value containing both quote characters does
// not survive a round trip. Backends use it when they need to
// round-trip a parsed connection string (e.g. after stripping a
// backend-only key before handing the rest to a driver DSN builder).
func BuildConnectionString(params map[string]string) string {
	var b strings.Builder
	first := true
	for k, v := range params {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		if strings.ContainsAny(v, " \t\n\r'\"") {
			quote := byte('\'')
			if strings.ContainsRune(v, '\'') {
				quote = '"'
			}
			b.WriteByte(quote)
			b.WriteString(v)
			b.WriteByte(quote)
		} else {
			b.WriteString(v)
		}
	}
	return b.String()
}
