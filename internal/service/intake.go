package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/session"
	"basegraph.app/intake/internal/store"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is processing another message")
	ErrInvalidSession  = errors.New("invalid session id")
)

const maxSessionIDLength = 128

type IntakeConfig struct {
	IdleTTL       time.Duration
	FinishedGrace time.Duration
}

// IntakeService runs intake conversations on top of the dialogue controller,
// persisting state between turns so any replica can serve the next message.
type IntakeService interface {
	// Start opens a conversation. An empty sessionID gets a generated one,
	// which is returned alongside the first result.
	Start(ctx context.Context, sessionID, problem string) (string, dialogue.Result, error)
	Respond(ctx context.Context, sessionID, answer string) (dialogue.Result, error)
	Confirm(ctx context.Context, sessionID string, confirmed bool) (dialogue.Result, error)
	Resume(ctx context.Context, sessionID string) (dialogue.Result, error)
}

type intakeService struct {
	sessions session.Store
	locker   session.Locker
	tickets  store.TicketStore
	producer queue.Producer
	cfg      IntakeConfig
	ctrlOpts []dialogue.Option
}

// NewIntakeService wires the conversation driver. producer may be nil when no
// delivery worker runs; finalized tickets are then only persisted.
func NewIntakeService(
	sessions session.Store,
	locker session.Locker,
	tickets store.TicketStore,
	producer queue.Producer,
	cfg IntakeConfig,
	ctrlOpts ...dialogue.Option,
) IntakeService {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 24 * time.Hour
	}
	if cfg.FinishedGrace <= 0 {
		cfg.FinishedGrace = 30 * time.Minute
	}
	return &intakeService{
		sessions: sessions,
		locker:   locker,
		tickets:  tickets,
		producer: producer,
		cfg:      cfg,
		ctrlOpts: ctrlOpts,
	}
}

func (s *intakeService) Start(ctx context.Context, sessionID, problem string) (string, dialogue.Result, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	res, err := s.turn(ctx, sessionID, "start", true, func(c *dialogue.Controller) (dialogue.Result, error) {
		return c.Start(problem)
	})
	return sessionID, res, err
}

func (s *intakeService) Respond(ctx context.Context, sessionID, answer string) (dialogue.Result, error) {
	return s.turn(ctx, sessionID, "respond", false, func(c *dialogue.Controller) (dialogue.Result, error) {
		return c.Respond(answer)
	})
}

func (s *intakeService) Confirm(ctx context.Context, sessionID string, confirmed bool) (dialogue.Result, error) {
	return s.turn(ctx, sessionID, "confirm", false, func(c *dialogue.Controller) (dialogue.Result, error) {
		return c.Confirm(confirmed)
	})
}

// Resume reads without locking or saving; it never changes the session.
func (s *intakeService) Resume(ctx context.Context, sessionID string) (dialogue.Result, error) {
	if err := validateSessionID(sessionID); err != nil {
		return dialogue.Result{}, err
	}

	st, err := s.load(ctx, sessionID, false)
	if err != nil {
		return dialogue.Result{}, err
	}
	return dialogue.Restore(st, s.ctrlOpts...).Resume()
}

func (s *intakeService) turn(
	ctx context.Context,
	sessionID, action string,
	create bool,
	fn func(c *dialogue.Controller) (dialogue.Result, error),
) (dialogue.Result, error) {
	if err := validateSessionID(sessionID); err != nil {
		return dialogue.Result{}, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: &sessionID,
		Action:    &action,
		Component: "intake.service.intake",
	})

	span := logger.StartSpan(ctx, "intake."+action)
	defer span.End()
	ctx = span.Context()

	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			return dialogue.Result{}, ErrSessionBusy
		}
		span.RecordError(err)
		return dialogue.Result{}, fmt.Errorf("locking session: %w", err)
	}
	defer unlock()

	st, err := s.load(ctx, sessionID, create)
	if err != nil {
		return dialogue.Result{}, err
	}
	wasFinished := st.Step == dialogue.StepFinished

	ctrl := dialogue.Restore(st, s.ctrlOpts...)
	res, err := fn(ctrl)
	if err != nil {
		slog.InfoContext(ctx, "intake turn rejected", "error", err, "step", st.Step)
		return dialogue.Result{}, err
	}

	ttl := s.cfg.IdleTTL
	if ctrl.Step() == dialogue.StepFinished {
		ttl = s.cfg.FinishedGrace
	}
	if err := s.sessions.Save(ctx, sessionID, ctrl.State(), ttl); err != nil {
		span.RecordError(err)
		return dialogue.Result{}, fmt.Errorf("saving session: %w", err)
	}

	span.SetAttributes(map[string]string{"intake.step": string(res.NextStep)})
	slog.InfoContext(ctx, "intake turn completed", "from_step", st.Step, "next_step", res.NextStep)

	if !wasFinished && res.NextStep == dialogue.StepFinished && res.Ticket != nil {
		s.deliver(ctx, sessionID, *res.Ticket)
	}

	return res, nil
}

func (s *intakeService) load(ctx context.Context, sessionID string, create bool) (dialogue.State, error) {
	st, err := s.sessions.Get(ctx, sessionID)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, session.ErrNotFound) {
		if create {
			return dialogue.NewState(), nil
		}
		return dialogue.State{}, ErrSessionNotFound
	}
	return dialogue.State{}, fmt.Errorf("loading session: %w", err)
}

// deliver persists the finalized ticket and hands it to the delivery worker.
// The message carries the ticket itself, so a failed insert here is retried by
// the worker. Failures are logged only: the reporter's conversation is already
// complete.
func (s *intakeService) deliver(ctx context.Context, sessionID string, t dialogue.Ticket) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: &t.ID})

	ticket := model.TicketFromDialogue(sessionID, t)
	if err := s.tickets.Create(ctx, ticket); err != nil {
		slog.ErrorContext(ctx, "failed to persist finalized ticket, leaving it to the worker", "error", err)
	}

	if s.producer == nil {
		return
	}

	msg := queue.DeliveryMessage{TicketID: t.ID, SessionID: sessionID, Ticket: ticket}
	if traceID := logger.TraceID(ctx); traceID != "" {
		msg.TraceID = &traceID
	}
	if err := s.producer.Enqueue(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue ticket delivery", "error", err)
	}
}

func validateSessionID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxSessionIDLength {
		return ErrInvalidSession
	}
	return nil
}
