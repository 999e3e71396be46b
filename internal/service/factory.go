package service

import (
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/service/issue_tracker"
	"basegraph.app/intake/internal/session"
	"basegraph.app/intake/internal/store"
)

type Services struct {
	stores   *store.Stores
	txRunner TxRunner
	sessions session.Store
	locker   session.Locker
	producer queue.Producer
	intake   IntakeConfig
	tracker  config.TrackerConfig
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	sessions session.Store,
	locker session.Locker,
	producer queue.Producer,
	intake IntakeConfig,
	tracker config.TrackerConfig,
) *Services {
	return &Services{
		stores:   stores,
		txRunner: txRunner,
		sessions: sessions,
		locker:   locker,
		producer: producer,
		intake:   intake,
		tracker:  tracker,
	}
}

func (s *Services) Intake() IntakeService {
	return NewIntakeService(s.sessions, s.locker, s.stores.Tickets(), s.producer, s.intake)
}

func (s *Services) Tickets() TicketService {
	return NewTicketService(s.stores.Tickets(), s.txRunner, func(tracker string) (issue_tracker.TicketSink, error) {
		return issue_tracker.NewSinkFor(s.tracker, tracker)
	})
}
