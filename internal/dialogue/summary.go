package dialogue

import (
	"fmt"
	"strings"
)

// Summary is the draft shown to the reporter before confirmation.
type Summary struct {
	ProblemStatement   string   `json:"problem_statement"`
	Severity           Severity `json:"severity"`
	Reproducibility    string   `json:"reproducibility"`
	Evidence           Evidence `json:"evidence"`
	AffectedComponents []string `json:"affected_components"`
	Text               string   `json:"summary"`
}

// Summarize renders the draft for a complete set of slots.
func Summarize(slots Slots) (Summary, error) {
	if Evaluate(slots).Any() {
		return Summary{}, ErrIncompleteSlots
	}

	var b strings.Builder
	b.WriteString("Issue Summary:\n")
	b.WriteString("--------------\n")
	fmt.Fprintf(&b, "Problem: %s\n", slots.ProblemStatement)
	fmt.Fprintf(&b, "Severity: %s\n", slots.Severity)
	fmt.Fprintf(&b, "Reproducibility: %s\n", slots.Reproducibility)
	fmt.Fprintf(&b, "Evidence: %s, %s, %s\n",
		checkmark("Screenshots", slots.Evidence.Screenshots),
		checkmark("Logs", slots.Evidence.Logs),
		checkmark("Videos", slots.Evidence.Videos))
	fmt.Fprintf(&b, "Affected Components: %s", strings.Join(slots.AffectedComponents, ", "))

	return Summary{
		ProblemStatement:   slots.ProblemStatement,
		Severity:           slots.Severity,
		Reproducibility:    slots.Reproducibility,
		Evidence:           slots.Evidence,
		AffectedComponents: append([]string(nil), slots.AffectedComponents...),
		Text:               b.String(),
	}, nil
}

func checkmark(label string, present bool) string {
	if present {
		return label + " ✓"
	}
	return label + " ✗"
}
