package worker

import (
	"context"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/service/issue_tracker"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// TicketProcessor abstracts delivery of one finalized ticket for testability.
type TicketProcessor interface {
	Process(ctx context.Context, ticketID string, snapshot *model.Ticket) error
}

// FiledRefs remembers issues created in the tracker per ticket id, written
// before the ref is stored on the ticket.
type FiledRefs interface {
	// Get returns nil, nil when no issue was filed for ticketID.
	Get(ctx context.Context, ticketID string) (*issue_tracker.ExternalRef, error)
	Put(ctx context.Context, ticketID string, ref *issue_tracker.ExternalRef) error
}
