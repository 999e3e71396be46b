package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"basegraph.app/intake/core/db"
	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
	"github.com/jackc/pgx/v5"
)

const ticketColumns = `id, session_id, title, description, severity, reproducibility, evidence,
	affected_components, status, assigned_to, topic, topic_cluster, tracker, external_id, external_url,
	notified_at, created_at, updated_at`

type ticketStore struct {
	db db.DBTX
}

func newTicketStore(conn db.DBTX) TicketStore {
	return &ticketStore{db: conn}
}

func (s *ticketStore) Create(ctx context.Context, t *model.Ticket) error {
	evidenceJSON, err := json.Marshal(t.Evidence)
	if err != nil {
		return fmt.Errorf("marshaling evidence: %w", err)
	}

	components := t.AffectedComponents
	if components == nil {
		components = []string{}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO tickets (id, session_id, title, description, severity, reproducibility,
			evidence, affected_components, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.SessionID, t.Title, t.Description, string(t.Severity), t.Reproducibility,
		evidenceJSON, components, string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *ticketStore) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	row := s.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *ticketStore) ListByIDs(ctx context.Context, ids []string) ([]model.Ticket, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (s *ticketStore) List(ctx context.Context, params ListTicketsParams) ([]model.Ticket, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	var status, cluster *string
	if params.Status != nil {
		v := string(*params.Status)
		status = &v
	}
	if params.TopicCluster != nil {
		cluster = params.TopicCluster
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR topic_cluster = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		status, cluster, limit, params.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (s *ticketStore) UpdateStatus(ctx context.Context, ids []string, status model.TicketStatus) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE tickets SET status = $2, updated_at = now() WHERE id = ANY($1)`,
		ids, string(status),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *ticketStore) Update(ctx context.Context, id string, params UpdateTicketParams) error {
	var severity, status *string
	if params.Severity != nil {
		v := string(*params.Severity)
		severity = &v
	}
	if params.Status != nil {
		v := string(*params.Status)
		status = &v
	}

	return s.execOne(ctx, `
		UPDATE tickets SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			severity    = COALESCE($4, severity),
			status      = COALESCE($5, status),
			assigned_to = COALESCE($6, assigned_to),
			updated_at  = now()
		WHERE id = $1`,
		id, params.Title, params.Description, severity, status, params.AssignedTo,
	)
}

func (s *ticketStore) Delete(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM tickets WHERE id = $1`, id)
}

func (s *ticketStore) SetTopic(ctx context.Context, id string, topic, cluster string) error {
	return s.execOne(ctx,
		`UPDATE tickets SET topic = $2, topic_cluster = $3, updated_at = now() WHERE id = $1`,
		id, topic, cluster,
	)
}

func (s *ticketStore) SetExternalRef(ctx context.Context, id, tracker, externalID, externalURL string) error {
	return s.execOne(ctx,
		`UPDATE tickets SET tracker = $2, external_id = $3, external_url = $4, updated_at = now() WHERE id = $1`,
		id, tracker, externalID, externalURL,
	)
}

func (s *ticketStore) MarkNotified(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx,
		`UPDATE tickets SET notified_at = $2, updated_at = now() WHERE id = $1`,
		id, at,
	)
}

func (s *ticketStore) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectTickets(rows pgx.Rows) ([]model.Ticket, error) {
	defer rows.Close()

	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var (
		t            model.Ticket
		severity     string
		status       string
		evidenceJSON []byte
	)
	err := row.Scan(
		&t.ID, &t.SessionID, &t.Title, &t.Description, &severity, &t.Reproducibility, &evidenceJSON,
		&t.AffectedComponents, &status, &t.AssignedTo, &t.Topic, &t.TopicCluster, &t.Tracker, &t.ExternalID, &t.ExternalURL,
		&t.NotifiedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(evidenceJSON) > 0 {
		if err := json.Unmarshal(evidenceJSON, &t.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshaling evidence: %w", err)
		}
	}
	t.Severity = dialogue.Severity(severity)
	t.Status = model.TicketStatus(status)
	return &t, nil
}
