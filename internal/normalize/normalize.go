// Package normalize recovers a single well-formed JSON object from the OCR
// endpoint's reply. The endpoint is not contractually stable: observed
// responses have been double-encoded as JSON strings, wrapped in stray
// quotes, concatenated with a second object or trailing prose, terminated
// with sentence punctuation, or shipped with escaped quote characters.
//
// Recovery is an ordered chain of total string transformations. Each step
// fires only on a detectable textual marker and never guesses at field
// values; if no step chain yields a valid object the whole call fails.
package normalize

import (
	"encoding/json"
	"strings"

	apperrors "github.com/surajmurari02/ocr-card/internal/errors"
	"github.com/surajmurari02/ocr-card/internal/logger"
	"github.com/sirupsen/logrus"
)

// snippetLen bounds how much of the original text travels in a ParseError.
const snippetLen = 120

// Normalize applies the recovery chain to raw response text and returns the
// decoded object. Failures carry reason "unparsable" when no candidate text
// decodes at all, or "not_an_object" when something decodes but is not a
// JSON object even after unwrapping one level of string encoding.
func Normalize(raw string) (map[string]interface{}, error) {
	text := strings.TrimSpace(raw)

	steps := []string{}
	if next := FirstObject(text); next != text {
		steps = append(steps, "first_object")
		text = next
	}
	if next := StripWrappingQuotes(text); next != text {
		steps = append(steps, "strip_quotes")
		text = next
	}
	if next := StripTrailingPeriod(text); next != text {
		steps = append(steps, "strip_period")
		text = next
	}
	if next := Unescape(text); next != text {
		steps = append(steps, "unescape")
		text = next
	}

	value, err := decodeValue(text)
	if err != nil {
		// Last resort: the window between the first '{' and the last '}'
		window, ok := braceWindow(text)
		if !ok {
			return nil, apperrors.NewParseError(apperrors.ReasonUnparsable, snippet(raw), err)
		}
		steps = append(steps, "brace_window")
		if value, err = decodeValue(window); err != nil {
			return nil, apperrors.NewParseError(apperrors.ReasonUnparsable, snippet(raw), err)
		}
	}

	// One extra level of string wrapping is tolerated
	if inner, ok := value.(string); ok {
		var unwrapped interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(inner)), &unwrapped); err == nil {
			steps = append(steps, "string_unwrap")
			value = unwrapped
		}
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, apperrors.NewParseError(apperrors.ReasonNotAnObject, snippet(raw), nil)
	}

	if len(steps) > 0 {
		logger.WithFields(logrus.Fields{
			"recovery_steps": strings.Join(steps, ","),
		}).Debug("Recovered JSON object from malformed response")
	}
	return obj, nil
}

// FirstObject truncates text at the end of the first complete JSON object
// when more than one '{' is present, discarding concatenated objects or
// trailing prose.
//
// The depth counter deliberately counts braces inside string literals too,
// matching the behavior the recovery chain was tuned against; a brace inside
// a field value can therefore truncate early, and the later brace-window
// fallback is what rescues such inputs. Text that never returns to depth
// zero truncates to empty.
func FirstObject(text string) string {
	if strings.Count(text, "{") <= 1 {
		return text
	}

	depth := 0
	end := 0
	for i, ch := range text {
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
				return text[:end]
			}
		}
	}
	return text[:end]
}

// StripWrappingQuotes removes exactly one leading and one trailing quote
// when the text is wrapped in both, handling responses double-encoded as a
// JSON string.
func StripWrappingQuotes(text string) string {
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		return text[1 : len(text)-1]
	}
	return text
}

// StripTrailingPeriod removes sentence punctuation the endpoint sometimes
// appends after the object.
func StripTrailingPeriod(text string) string {
	return strings.TrimSuffix(text, ".")
}

// Unescape reverses one level of backslash escaping when any backslash is
// present, handling the escaped-string sibling of the quote-wrapped case.
func Unescape(text string) string {
	if !strings.Contains(text, `\`) {
		return text
	}
	text = strings.ReplaceAll(text, `\"`, `"`)
	return strings.ReplaceAll(text, `\\`, `\`)
}

// braceWindow returns the substring from the first '{' through the last '}'
// inclusive, when both exist in order.
func braceWindow(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

func decodeValue(text string) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, err
	}
	return value, nil
}

func snippet(raw string) string {
	if len(raw) > snippetLen {
		return raw[:snippetLen]
	}
	return raw
}
