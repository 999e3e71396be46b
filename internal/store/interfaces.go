package store

import (
	"context"
	"errors"
	"time"

	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ListTicketsParams filters ticket listings. Zero values mean "any".
type ListTicketsParams struct {
	Status       *model.TicketStatus
	TopicCluster *string
	Limit        int32
	Offset       int32
}

// UpdateTicketParams edits a ticket. Nil fields are left unchanged.
type UpdateTicketParams struct {
	Title       *string
	Description *string
	Severity    *dialogue.Severity
	Status      *model.TicketStatus
	AssignedTo  *string
}

// TicketStore defines the contract for finalized ticket data access
type TicketStore interface {
	Create(ctx context.Context, ticket *model.Ticket) error // no-op if the ID already exists
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Ticket, error)
	List(ctx context.Context, params ListTicketsParams) ([]model.Ticket, error)
	UpdateStatus(ctx context.Context, ids []string, status model.TicketStatus) (int64, error)
	Update(ctx context.Context, id string, params UpdateTicketParams) error
	Delete(ctx context.Context, id string) error
	SetTopic(ctx context.Context, id string, topic, cluster string) error
	SetExternalRef(ctx context.Context, id, tracker, externalID, externalURL string) error
	MarkNotified(ctx context.Context, id string, at time.Time) error
}
