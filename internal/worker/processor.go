package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
	"basegraph.app/intake/internal/service/notify"
	"basegraph.app/intake/internal/service/triage"
	"basegraph.app/intake/internal/store"
)

// DeliveryProcessor pushes a finalized ticket downstream. Each step records its
// outcome on the ticket and is skipped when already done, so redelivery is safe.
// Any of classifier, sink, notifier and refs may be nil to disable that step.
type DeliveryProcessor struct {
	tickets    store.TicketStore
	classifier triage.Classifier
	sink       issue_tracker.TicketSink
	notifier   notify.Notifier
	refs       FiledRefs
	now        func() time.Time
}

func NewDeliveryProcessor(
	tickets store.TicketStore,
	classifier triage.Classifier,
	sink issue_tracker.TicketSink,
	notifier notify.Notifier,
	refs FiledRefs,
) *DeliveryProcessor {
	return &DeliveryProcessor{
		tickets:    tickets,
		classifier: classifier,
		sink:       sink,
		notifier:   notifier,
		refs:       refs,
		now:        time.Now,
	}
}

// Process delivers ticketID. snapshot is the ticket as confirmed by the
// reporter; it is stored first when the intake side failed to persist it.
func (p *DeliveryProcessor) Process(ctx context.Context, ticketID string, snapshot *model.Ticket) error {
	ticket, err := p.load(ctx, ticketID, snapshot)
	if err != nil {
		return err
	}
	if ticket == nil {
		slog.WarnContext(ctx, "ticket not found, nothing to deliver")
		return nil
	}

	if p.classifier != nil && ticket.Topic == nil {
		topic, err := p.classifier.Classify(ctx, ticket)
		if err != nil {
			slog.WarnContext(ctx, "ticket classification failed", "error", err)
		} else if err := p.tickets.SetTopic(ctx, ticket.ID, topic.Topic, topic.Cluster); err != nil {
			slog.WarnContext(ctx, "failed to store ticket topic", "error", err)
		} else {
			ticket.Topic = &topic.Topic
			ticket.TopicCluster = &topic.Cluster
		}
	}

	if p.sink != nil && !ticket.Delivered() {
		ref, err := p.file(ctx, ticket)
		if err != nil {
			return err
		}
		if err := p.tickets.SetExternalRef(ctx, ticket.ID, ref.Tracker, ref.ID, ref.URL); err != nil {
			return fmt.Errorf("recording external ref: %w", err)
		}
		ticket.Tracker = &ref.Tracker
		ticket.ExternalID = &ref.ID
		ticket.ExternalURL = &ref.URL

		slog.InfoContext(ctx, "ticket filed in tracker",
			"tracker", ref.Tracker,
			"external_id", ref.ID,
			"external_url", ref.URL)
	}

	if p.notifier != nil && ticket.NotifiedAt == nil {
		if err := p.notifier.NotifyTicket(ctx, ticket); err != nil {
			slog.WarnContext(ctx, "ticket notification failed", "error", err)
			return nil
		}
		if err := p.tickets.MarkNotified(ctx, ticket.ID, p.now()); err != nil {
			slog.WarnContext(ctx, "failed to record notification", "error", err)
		}
	}

	return nil
}

func (p *DeliveryProcessor) load(ctx context.Context, ticketID string, snapshot *model.Ticket) (*model.Ticket, error) {
	ticket, err := p.tickets.GetByID(ctx, ticketID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading ticket: %w", err)
	}
	if snapshot == nil {
		return nil, nil
	}

	if err := p.tickets.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("storing ticket snapshot: %w", err)
	}
	slog.InfoContext(ctx, "stored ticket from delivery snapshot")

	ticket, err = p.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("reloading ticket: %w", err)
	}
	return ticket, nil
}

// file creates the tracker issue, reusing one filed on an earlier attempt whose
// external ref never reached the ticket store.
func (p *DeliveryProcessor) file(ctx context.Context, ticket *model.Ticket) (*issue_tracker.ExternalRef, error) {
	if p.refs != nil {
		ref, err := p.refs.Get(ctx, ticket.ID)
		if err != nil {
			return nil, fmt.Errorf("checking filed issues: %w", err)
		}
		if ref != nil {
			slog.InfoContext(ctx, "reusing issue filed on an earlier attempt", "tracker", ref.Tracker, "external_id", ref.ID)
			return ref, nil
		}
	}

	ref, err := p.sink.CreateTicket(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("creating ticket in %s: %w", p.sink.Name(), err)
	}

	if p.refs != nil {
		if err := p.refs.Put(ctx, ticket.ID, ref); err != nil {
			slog.WarnContext(ctx, "failed to remember filed issue", "error", err, "external_id", ref.ID)
		}
	}
	return ref, nil
}
