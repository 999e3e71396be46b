package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
	"basegraph.app/intake/internal/store"
)

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrInvalidStatus   = errors.New("invalid ticket status")
	ErrInvalidSeverity = errors.New("invalid ticket severity")
	ErrNoTickets       = errors.New("no ticket ids given")
	ErrNoChanges       = errors.New("no ticket fields to update")
	ErrInvalidTracker  = errors.New("unknown tracker")
)

// SinkFactory builds the sink for a tracker picked by a product manager.
type SinkFactory func(tracker string) (issue_tracker.TicketSink, error)

// PushResult is the outcome of pushing one ticket to a tracker. Err is set
// when that ticket failed; the others are still pushed.
type PushResult struct {
	TicketID string
	Ref      *issue_tracker.ExternalRef
	Err      error
}

// TicketService is the product-manager side of finalized tickets.
type TicketService interface {
	Get(ctx context.Context, id string) (*model.Ticket, error)
	List(ctx context.Context, params store.ListTicketsParams) ([]model.Ticket, error)
	// UpdateStatus moves all ids to status atomically and returns the updated tickets.
	UpdateStatus(ctx context.Context, ids []string, status model.TicketStatus) ([]model.Ticket, error)
	// Update edits one ticket. Nil and blank fields are left unchanged.
	Update(ctx context.Context, id string, params store.UpdateTicketParams) (*model.Ticket, error)
	Delete(ctx context.Context, id string) error
	// PushToTracker files each ticket in tracker and marks it completed.
	PushToTracker(ctx context.Context, ids []string, tracker string) ([]PushResult, error)
}

type ticketService struct {
	tickets  store.TicketStore
	txRunner TxRunner
	sinks    SinkFactory
}

// NewTicketService wires the product-manager operations. sinks may be nil when
// no tracker credentials are configured.
func NewTicketService(tickets store.TicketStore, txRunner TxRunner, sinks SinkFactory) TicketService {
	return &ticketService{tickets: tickets, txRunner: txRunner, sinks: sinks}
}

func (s *ticketService) Get(ctx context.Context, id string) (*model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("fetching ticket: %w", err)
	}
	return t, nil
}

func (s *ticketService) List(ctx context.Context, params store.ListTicketsParams) ([]model.Ticket, error) {
	if params.Status != nil && !params.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	tickets, err := s.tickets.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return tickets, nil
}

func (s *ticketService) UpdateStatus(ctx context.Context, ids []string, status model.TicketStatus) ([]model.Ticket, error) {
	if len(ids) == 0 {
		return nil, ErrNoTickets
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var updated []model.Ticket
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		n, err := stores.Tickets().UpdateStatus(ctx, ids, status)
		if err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		if n == 0 {
			return ErrTicketNotFound
		}

		updated, err = stores.Tickets().ListByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("reloading tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "ticket status updated",
		"status", status,
		"requested", len(ids),
		"updated", len(updated))

	return updated, nil
}

func (s *ticketService) Update(ctx context.Context, id string, params store.UpdateTicketParams) (*model.Ticket, error) {
	params.Title = nonBlank(params.Title)
	params.Description = nonBlank(params.Description)
	params.AssignedTo = nonBlank(params.AssignedTo)

	if params.Title == nil && params.Description == nil && params.Severity == nil &&
		params.Status == nil && params.AssignedTo == nil {
		return nil, ErrNoChanges
	}
	if params.Status != nil && !params.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if params.Severity != nil && !params.Severity.Valid() {
		return nil, ErrInvalidSeverity
	}

	var updated *model.Ticket
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Tickets().Update(ctx, id, params); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTicketNotFound
			}
			return fmt.Errorf("updating ticket: %w", err)
		}

		var err error
		updated, err = stores.Tickets().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reloading ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "ticket updated", "ticket_id", id)
	return updated, nil
}

func (s *ticketService) Delete(ctx context.Context, id string) error {
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTicketNotFound
		}
		return fmt.Errorf("deleting ticket: %w", err)
	}

	slog.InfoContext(ctx, "ticket deleted", "ticket_id", id)
	return nil
}

func (s *ticketService) PushToTracker(ctx context.Context, ids []string, tracker string) ([]PushResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoTickets
	}
	switch tracker {
	case config.TrackerGitLab, config.TrackerJira, config.TrackerLinear:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTracker, tracker)
	}
	if s.sinks == nil {
		return nil, fmt.Errorf("%w: %q", issue_tracker.ErrTrackerNotConfigured, tracker)
	}

	sink, err := s.sinks(tracker)
	if err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading tickets: %w", err)
	}
	if len(tickets) == 0 {
		return nil, ErrTicketNotFound
	}

	results := make([]PushResult, 0, len(tickets))
	failed := 0
	for i := range tickets {
		ref, err := s.push(ctx, sink, &tickets[i])
		if err != nil {
			failed++
			slog.WarnContext(ctx, "failed to push ticket to tracker",
				"error", err,
				"ticket_id", tickets[i].ID,
				"tracker", tracker)
		}
		results = append(results, PushResult{TicketID: tickets[i].ID, Ref: ref, Err: err})
	}

	slog.InfoContext(ctx, "tickets pushed to tracker",
		"tracker", tracker,
		"requested", len(ids),
		"pushed", len(results)-failed,
		"failed", failed)

	return results, nil
}

// push files ticket unless it already lives in the same tracker, then records
// the ref and marks the ticket completed.
func (s *ticketService) push(ctx context.Context, sink issue_tracker.TicketSink, ticket *model.Ticket) (*issue_tracker.ExternalRef, error) {
	if ticket.Delivered() && ticket.Tracker != nil && *ticket.Tracker == sink.Name() {
		ref := &issue_tracker.ExternalRef{Tracker: *ticket.Tracker, ID: *ticket.ExternalID, URL: ticket.ExternalLink()}
		if _, err := s.tickets.UpdateStatus(ctx, []string{ticket.ID}, model.TicketStatusCompleted); err != nil {
			return ref, fmt.Errorf("marking ticket completed: %w", err)
		}
		return ref, nil
	}

	ref, err := sink.CreateTicket(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("creating ticket in %s: %w", sink.Name(), err)
	}

	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Tickets().SetExternalRef(ctx, ticket.ID, ref.Tracker, ref.ID, ref.URL); err != nil {
			return fmt.Errorf("recording external ref: %w", err)
		}
		if _, err := stores.Tickets().UpdateStatus(ctx, []string{ticket.ID}, model.TicketStatusCompleted); err != nil {
			return fmt.Errorf("marking ticket completed: %w", err)
		}
		return nil
	})
	return ref, err
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
