package dialogue

import (
	"fmt"
	"strings"
)

// extractor updates the slot for one field from a raw user answer. A miss leaves
// the slot unset; it is never an error.
type extractor func(slots *Slots, raw string)

var extractors = map[Field]extractor{
	FieldSeverity:           extractSeverity,
	FieldReproducibility:    extractReproducibility,
	FieldEvidence:           extractEvidence,
	FieldAffectedComponents: extractAffectedComponents,
}

// ApplyResponse records raw as the answer for field and runs the field's extractor.
// The returned state has missing_info recomputed; the input state is not modified.
func ApplyResponse(st State, field Field, raw string) (State, error) {
	extract, ok := extractors[field]
	if !ok {
		return st, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	out := st.Clone()
	out.Responses[field] = raw
	extract(&out.Slots, raw)
	out.MissingInfo = Evaluate(out.Slots)
	return out, nil
}

func extractSeverity(slots *Slots, raw string) {
	slots.Severity = ParseSeverity(raw)
}

// ParseSeverity returns the first severity keyword contained in raw, checked in
// critical, high, medium, low order. It returns "" when none is present.
func ParseSeverity(raw string) Severity {
	lower := strings.ToLower(raw)
	for _, sev := range severityOrder {
		if strings.Contains(lower, string(sev)) {
			return sev
		}
	}
	return ""
}

func extractReproducibility(slots *Slots, raw string) {
	slots.Reproducibility = raw
}

func extractEvidence(slots *Slots, raw string) {
	lower := strings.ToLower(raw)
	slots.Evidence = Evidence{
		Screenshots: strings.Contains(lower, "screenshot"),
		Logs:        strings.Contains(lower, "log"),
		Videos:      strings.Contains(lower, "video"),
	}
}

func extractAffectedComponents(slots *Slots, raw string) {
	slots.AffectedComponents = SplitComponents(raw)
}

// SplitComponents splits a comma or newline separated list, trimming each entry
// and dropping empty ones.
func SplitComponents(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	components := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			components = append(components, p)
		}
	}
	return components
}
