// Package scan recovers a ticket code from whatever a badge scanner sends:
// a bare code, a JSON object, base64-wrapped JSON, JSON buried in noise, or
// a plain run of digits.
package scan

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// PreferredKeys are the attribute names a ticket code has been stored under
// in QR payloads over time, in lookup order.
var PreferredKeys = []string{
	"ticket_code",
	"ticketCode",
	"ticket_id",
	"ticketId",
	"ticketid",
	"ticket",
	"code",
	"c",
	"tc",
	"id",
}

var (
	keyShape       = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)
	base64Shape    = regexp.MustCompile(`^[A-Za-z0-9+/_-]+={0,2}$`)
	digitRun       = regexp.MustCompile(`[0-9]{4,12}`)
	integerLiteral = regexp.MustCompile(`^[0-9]+$`)
)

// extractors run in precedence order; the first hit wins.
var extractors = []Extractor[string]{
	fromKeyShape,
	fromJSON,
	fromBase64,
	fromEmbeddedJSON,
	fromDigits,
}

// Normalize returns the ticket code carried by raw, or false when none can be
// found.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	return FirstOf(s, extractors...)
}

// IsKey reports whether s has the shape of a ticket code.
func IsKey(s string) bool {
	return keyShape.MatchString(s)
}

func fromKeyShape(s string) (string, bool) {
	if !keyShape.MatchString(s) {
		return "", false
	}
	// Unpadded base64 of a JSON object can look like a plain code.
	if _, ok := fromBase64(s); ok {
		return "", false
	}
	return s, true
}

func fromJSON(s string) (string, bool) {
	if !gjson.Valid(s) {
		return "", false
	}
	return Search(gjson.Parse(s))
}

func fromBase64(s string) (string, bool) {
	if len(s)%4 != 0 || !base64Shape.MatchString(s) {
		return "", false
	}
	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	decoded, err := enc.DecodeString(s)
	if err != nil {
		return "", false
	}
	return fromJSON(strings.TrimSpace(string(decoded)))
}

// fromEmbeddedJSON tries every JSON object found in the noise, in order.
func fromEmbeddedJSON(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := closingBrace(s, i)
		if end < 0 {
			continue
		}
		candidate := s[i : end+1]
		if !gjson.Valid(candidate) {
			continue
		}
		if code, ok := Search(gjson.Parse(candidate)); ok {
			return code, true
		}
		i = end
	}
	return "", false
}

// closingBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings, or -1.
func closingBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func fromDigits(s string) (string, bool) {
	run := digitRun.FindString(s)
	return run, run != ""
}

// Search looks for a ticket code in a parsed JSON value. Preferred keys on
// the value itself are checked first; otherwise nested objects and arrays are
// walked depth-first in document order. Values without ticket key shape are
// passed over.
func Search(v gjson.Result) (string, bool) {
	if v.IsObject() {
		for _, key := range PreferredKeys {
			if code, ok := scalar(v.Get(key)); ok {
				return code, true
			}
		}
	}
	if !v.IsObject() && !v.IsArray() {
		return "", false
	}

	var (
		code  string
		found bool
	)
	v.ForEach(func(_, child gjson.Result) bool {
		if child.IsObject() || child.IsArray() {
			code, found = Search(child)
		}
		return !found
	})
	return code, found
}

// scalar accepts a string with ticket key shape, or a plain integer.
func scalar(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		return s, IsKey(s)
	case gjson.Number:
		return v.Raw, integerLiteral.MatchString(v.Raw) && IsKey(v.Raw)
	default:
		return "", false
	}
}
