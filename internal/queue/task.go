package queue

import "basegraph.app/intake/internal/model"

type TaskType string

const (
	TaskTypeTicketDelivery TaskType = "ticket_delivery"
)

// DeliveryMessage asks the worker to push a finalized ticket to its tracker and notifiers.
// Ticket is the snapshot taken at confirmation; the worker stores it when the
// intake side could not.
type DeliveryMessage struct {
	TicketID  string
	SessionID string
	Ticket    *model.Ticket
	TraceID   *string
	Attempt   int
}
