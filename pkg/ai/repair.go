package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// maxRepairCuts bounds how many value boundaries the truncation repair walks
// back before giving up.
const maxRepairCuts = 8

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// UnmarshalFlexible attempts to unmarshal JSON into the target with multiple fallback strategies.
// It first tries standard JSON unmarshaling, then handles double-encoded JSON strings,
// and finally attempts to repair malformed JSON before parsing.
//
// This is useful for parsing AI-generated JSON which may be malformed or wrapped in strings.
//
// Example:
//
//	var result MyStruct
//	// All of these inputs would work:
//	UnmarshalFlexible(`{"name": "test"}`, &result)           // standard JSON
//	UnmarshalFlexible(`"{\"name\": \"test\"}"`, &result)     // double-encoded
//	UnmarshalFlexible(`{name: "test"}`, &result)             // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}

	if err := json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	return fmt.Errorf(
		"unmarshal failed after repair: input=%s repaired=%s",
		input, repaired,
	)
}

// RecoverObject parses model output into out, tolerating progressively more
// damage: flexible parsing first, then truncation repair by cutting back to
// the last complete value and closing the open delimiters, finally salvage
// of whatever complete top-level fields exist. The bool reports whether a
// degraded path produced the result. When nothing can be recovered the
// returned error carries the raw output.
//
// out must be a non-nil pointer. Every attempt parses into a fresh value so
// a failed intermediate parse cannot leak partial data into the result.
func RecoverObject(input string, out any) (bool, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, fmt.Errorf("out must be a non-nil pointer")
	}

	input = stripCodeFence(input)

	if tryUnmarshal(input, out) {
		return false, nil
	}

	boundaries := valueBoundaries(input)
	tried := 0
	for i := len(boundaries) - 1; i >= 0 && tried < maxRepairCuts; i-- {
		cut := boundaries[i]
		if cut >= len(input) {
			continue
		}
		candidate := strings.TrimRight(input[:cut], ", \t\r\n")
		if candidate == "" {
			break
		}
		patched := candidate + closeDelimiters(candidate)
		tried++
		if tryUnmarshal(patched, out) {
			return true, nil
		}
	}

	if salvaged, ok := salvageFields(input); ok {
		if tryUnmarshal(salvaged, out) {
			return true, nil
		}
	}

	return false, &Error{
		Reason: ReasonMalformedResponse,
		Raw:    input,
		Err:    fmt.Errorf("model output could not be recovered"),
	}
}

// tryUnmarshal parses into a fresh instance of out's type and copies the
// value over only on success.
func tryUnmarshal(input string, out any) bool {
	fresh := reflect.New(reflect.TypeOf(out).Elem()).Interface()
	if err := UnmarshalFlexible(input, fresh); err != nil {
		return false
	}
	reflect.ValueOf(out).Elem().Set(reflect.ValueOf(fresh).Elem())
	return true
}

// valueBoundaries returns ascending cut positions after which the preceding
// text ends on a complete JSON value. Positions inside strings are skipped.
func valueBoundaries(s string) []int {
	var boundaries []int
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
				boundaries = append(boundaries, i+1)
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case ',':
			boundaries = append(boundaries, i)
		case '}', ']':
			boundaries = append(boundaries, i+1)
		}
	}
	return boundaries
}

// closeDelimiters returns the closers needed to balance s: a quote when the
// scan ends inside a string, then one closer per open brace or bracket in
// reverse order.
func closeDelimiters(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// salvageFields rebuilds a JSON object from the complete top-level fields of
// a damaged object, dropping everything from the first incomplete field on.
func salvageFields(s string) (string, bool) {
	s = strings.TrimSpace(s)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	type field struct {
		key   string
		value string
	}
	var fields []field

	i := start + 1
	for i < len(s) {
		i = skipSpaceAndCommas(s, i)
		if i >= len(s) || s[i] == '}' {
			break
		}
		if s[i] != '"' {
			break
		}
		key, next, ok := scanJSONString(s, i)
		if !ok {
			break
		}
		i = skipSpaceAndCommas(s, next)
		if i >= len(s) || s[i] != ':' {
			break
		}
		i++
		i = skipSpaceAndCommas(s, i)
		value, next, ok := scanJSONValue(s, i)
		if !ok || !json.Valid([]byte(value)) {
			break
		}
		fields = append(fields, field{key: key, value: value})
		i = next
	}

	if len(fields) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteByte('{')
	for idx, f := range fields {
		if idx > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.key)
		b.WriteByte(':')
		b.WriteString(f.value)
	}
	b.WriteByte('}')
	return b.String(), true
}

func skipSpaceAndCommas(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\r', '\n', ',':
			i++
		default:
			return i
		}
	}
	return i
}

// scanJSONString scans the string literal starting at s[i] == '"' and
// returns it with quotes plus the index after the closing quote.
func scanJSONString(s string, i int) (string, int, bool) {
	if i >= len(s) || s[i] != '"' {
		return "", i, false
	}
	j := i + 1
	escaped := false
	for j < len(s) {
		ch := s[j]
		if escaped {
			escaped = false
			j++
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			return s[i : j+1], j + 1, true
		}
		j++
	}
	return "", i, false
}

// scanJSONValue scans one complete JSON value starting at s[i] and returns
// its text plus the index after it. Truncated values report false.
func scanJSONValue(s string, i int) (string, int, bool) {
	if i >= len(s) {
		return "", i, false
	}
	switch s[i] {
	case '"':
		return scanJSONString(s, i)
	case '{', '[':
		depth := 0
		inString := false
		escaped := false
		for j := i; j < len(s); j++ {
			ch := s[j]
			if inString {
				if escaped {
					escaped = false
					continue
				}
				switch ch {
				case '\\':
					escaped = true
				case '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return s[i : j+1], j + 1, true
				}
			}
		}
		return "", i, false
	}

	// Primitive: scan to the next separator.
	j := i
	for j < len(s) {
		switch s[j] {
		case ',', '}', ']', ' ', '\t', '\r', '\n':
			if j == i {
				return "", i, false
			}
			return s[i:j], j, true
		}
		j++
	}
	// A primitive running to the end of input may itself be truncated.
	return "", i, false
}
