package kpi

import "encoding/json"

// Suggestion is one item of a classifier suggestion list. The model
// mixes bare alias strings with structured records, so this is a tagged
// union: exactly one of Alias or Record is set after unmarshalling.
type Suggestion struct {
	Alias  string
	Record map[string]any
}

// candidateFields are probed in priority order when a suggestion is a
// structured record rather than a bare alias.
var candidateFields = []string{"metric", "kpi", "name", "id"}

// UnmarshalJSON accepts either a JSON string or a JSON object. Other
// shapes unmarshal to an empty suggestion, which normalization drops.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	s.Alias = ""
	s.Record = nil

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Alias = str
		return nil
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err == nil {
		s.Record = rec
	}
	return nil
}

// candidate extracts the alias candidate from the suggestion: the bare
// string itself, or the first string-valued candidate field of the
// record. Records with no string field are dropped.
func (s Suggestion) candidate() (string, bool) {
	if s.Alias != "" {
		return s.Alias, true
	}
	for _, field := range candidateFields {
		if v, ok := s.Record[field]; ok {
			if str, ok := v.(string); ok && str != "" {
				return str, true
			}
		}
	}
	return "", false
}

// NormalizeSuggestions flattens a raw classifier suggestion list into an
// ordered alias list. Duplicates are dropped by exact string equality,
// first occurrence wins; empty input yields nil.
func NormalizeSuggestions(raw []Suggestion) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range raw {
		alias, ok := s.candidate()
		if !ok {
			continue
		}
		if _, dup := seen[alias]; dup {
			continue
		}
		seen[alias] = struct{}{}
		out = append(out, alias)
	}
	return out
}
