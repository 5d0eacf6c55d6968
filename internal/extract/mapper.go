// Package extract maps the normalized response object onto the canonical
// contact record. Key spellings drift across endpoint versions, so each
// canonical field resolves through an ordered candidate list, with a
// bounded edit-distance fallback for near-miss spellings.
package extract

import (
	"sort"
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/surajmurari02/ocr-card/pkg/models"
)

// fuzzyMinLen guards short keys (like "name") from edit-distance matching,
// where a single-character budget would be a large relative change.
const fuzzyMinLen = 5

// candidateKeys lists accepted spellings per canonical field, first present
// key wins. Only company and mobile have known aliases; the rest resolve by
// their own name.
var candidateKeys = map[string][]string{
	"name":        {"name"},
	"designation": {"designation"},
	"company":     {"company", "company_name"},
	"mobile":      {"mobile", "phone"},
	"email":       {"email"},
	"address":     {"address"},
	"confidence":  {"confidence"},
}

// reservedKeys is the union of all exact candidate spellings; the fuzzy pass
// never claims a key that belongs verbatim to some canonical field.
var reservedKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, candidates := range candidateKeys {
		for _, k := range candidates {
			m[k] = true
		}
	}
	return m
}()

// Map builds a CanonicalResult from a decoded response object and the
// measured elapsed time. It is pure and total: absent or mistyped keys
// yield absent fields, never an error, and repeated calls on the same
// inputs produce identical results.
func Map(obj map[string]interface{}, elapsedSeconds float64) models.CanonicalResult {
	result := models.CanonicalResult{
		ProcessingTime: elapsedSeconds,
		Raw:            obj,
	}

	result.Name = lookupString(obj, "name")
	result.Designation = lookupString(obj, "designation")
	result.Company = lookupString(obj, "company")
	result.Mobile = lookupString(obj, "mobile")
	result.Email = lookupString(obj, "email")
	result.Address = lookupString(obj, "address")
	result.Confidence = lookupNumber(obj, "confidence")

	return result
}

func lookupString(obj map[string]interface{}, field string) *string {
	if value, ok := lookup(obj, field); ok {
		if s, ok := value.(string); ok {
			return &s
		}
	}
	return nil
}

func lookupNumber(obj map[string]interface{}, field string) *float64 {
	if value, ok := lookup(obj, field); ok {
		if f, ok := value.(float64); ok {
			return &f
		}
	}
	return nil
}

func lookup(obj map[string]interface{}, field string) (interface{}, bool) {
	candidates := candidateKeys[field]
	for _, key := range candidates {
		if value, ok := obj[key]; ok {
			return value, true
		}
	}
	if key, ok := fuzzyMatch(obj, candidates); ok {
		return obj[key], true
	}
	return nil, false
}

// fuzzyMatch tolerates single-character misspellings ("emial", "adress") of
// any accepted candidate. It runs only after every exact lookup missed, and
// keys are visited in sorted order so the choice is deterministic.
func fuzzyMatch(obj map[string]interface{}, candidates []string) (string, bool) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if len(normalized) < fuzzyMinLen || reservedKeys[normalized] {
			continue
		}
		for _, candidate := range candidates {
			if len(candidate) < fuzzyMinLen {
				continue
			}
			if levenshtein.Distance(normalized, candidate) == 1 {
				return key, true
			}
		}
	}
	return "", false
}
