package dialogue

import (
	"strings"
	"time"
)

type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusInReview TicketStatus = "in_review"
)

const (
	minSentenceTitleLen = 10
	maxFallbackTitleLen = 60
)

// Ticket is the finalized record produced once the reporter confirms the draft.
type Ticket struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Severity           Severity     `json:"severity"`
	Reproducibility    string       `json:"reproducibility"`
	Evidence           Evidence     `json:"evidence"`
	AffectedComponents []string     `json:"affected_components"`
	Status             TicketStatus `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
}

func (t Ticket) clone() Ticket {
	t.AffectedComponents = append([]string(nil), t.AffectedComponents...)
	return t
}

// Finalize builds the ticket for a complete set of slots.
func Finalize(slots Slots, id string, now time.Time) (Ticket, error) {
	if Evaluate(slots).Any() {
		return Ticket{}, ErrIncompleteSlots
	}

	return Ticket{
		ID:                 id,
		Title:              Title(slots.ProblemStatement),
		Description:        Describe(slots),
		Severity:           slots.Severity,
		Reproducibility:    slots.Reproducibility,
		Evidence:           slots.Evidence,
		AffectedComponents: append([]string(nil), slots.AffectedComponents...),
		Status:             TicketStatusPending,
		CreatedAt:          now,
	}, nil
}

// Title uses the first sentence of the problem statement when it is longer than
// ten characters, otherwise the first sixty characters of the whole statement.
func Title(problem string) string {
	sentence, _, _ := strings.Cut(problem, ".")
	if len([]rune(sentence)) > minSentenceTitleLen {
		return sentence
	}

	runes := []rune(problem)
	if len(runes) > maxFallbackTitleLen {
		runes = runes[:maxFallbackTitleLen]
	}
	return string(runes)
}

// Describe renders the markdown body of a ticket.
func Describe(slots Slots) string {
	var b strings.Builder

	b.WriteString("## Problem Description\n")
	b.WriteString(slots.ProblemStatement)
	b.WriteString("\n\n## Reproducibility\n")
	b.WriteString(slots.Reproducibility)
	b.WriteString("\n\n## Evidence\n")

	var evidence []string
	if slots.Evidence.Screenshots {
		evidence = append(evidence, "- Screenshots available")
	}
	if slots.Evidence.Logs {
		evidence = append(evidence, "- Logs available")
	}
	if slots.Evidence.Videos {
		evidence = append(evidence, "- Videos available")
	}
	b.WriteString(strings.Join(evidence, "\n"))

	b.WriteString("\n\n## Affected Components\n")
	components := make([]string, len(slots.AffectedComponents))
	for i, c := range slots.AffectedComponents {
		components[i] = "- " + c
	}
	b.WriteString(strings.Join(components, "\n"))

	return b.String()
}
