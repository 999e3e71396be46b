package model

import (
	"time"

	"basegraph.app/intake/internal/dialogue"
)

type TicketStatus string

// Pending and in-review come from the intake dialogue; the rest are set later by
// product managers triaging the queue.
const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusInReview  TicketStatus = "in_review"
	TicketStatusApproved  TicketStatus = "approved"
	TicketStatusRejected  TicketStatus = "rejected"
	TicketStatusCompleted TicketStatus = "completed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInReview, TicketStatusApproved, TicketStatusRejected, TicketStatusCompleted:
		return true
	default:
		return false
	}
}

type Evidence = dialogue.Evidence

// Ticket is a finalized intake ticket as persisted and delivered downstream.
type Ticket struct {
	ID                 string            `json:"id"`
	SessionID          string            `json:"session_id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Severity           dialogue.Severity `json:"severity"`
	Reproducibility    string            `json:"reproducibility"`
	Evidence           Evidence          `json:"evidence"`
	AffectedComponents []string          `json:"affected_components"`
	Status             TicketStatus      `json:"status"`
	AssignedTo         *string           `json:"assigned_to,omitempty"`
	Topic              *string           `json:"topic,omitempty"`
	TopicCluster       *string           `json:"topic_cluster,omitempty"`
	Tracker            *string           `json:"tracker,omitempty"`
	ExternalID         *string           `json:"external_id,omitempty"`
	ExternalURL        *string           `json:"external_url,omitempty"`
	NotifiedAt         *time.Time        `json:"notified_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// TicketFromDialogue converts the engine's finalized ticket into the persisted form.
func TicketFromDialogue(sessionID string, t dialogue.Ticket) *Ticket {
	return &Ticket{
		ID:                 t.ID,
		SessionID:          sessionID,
		Title:              t.Title,
		Description:        t.Description,
		Severity:           t.Severity,
		Reproducibility:    t.Reproducibility,
		Evidence:           t.Evidence,
		AffectedComponents: append([]string(nil), t.AffectedComponents...),
		Status:             TicketStatus(t.Status),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.CreatedAt,
	}
}

// Delivered reports whether the ticket already exists in an external tracker.
func (t *Ticket) Delivered() bool {
	return t.ExternalID != nil && *t.ExternalID != ""
}

// ExternalLink returns the tracker URL or "" when the ticket was not delivered.
func (t *Ticket) ExternalLink() string {
	if t.ExternalURL == nil {
		return ""
	}
	return *t.ExternalURL
}
