package store_test

import (
	"context"
	"errors"
	"time"

	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execTag  string
	execErr  error
	rowErr   error
	execs    []execCall
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag(f.execTag), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: f.rowErr}
}

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(...any) error {
	return r.err
}

var _ = Describe("TicketStore", func() {
	var (
		ctx  context.Context
		conn *fakeDB
		s    store.TicketStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		conn = &fakeDB{execTag: "UPDATE 1"}
		s = store.NewStores(conn).Tickets()
	})

	It("maps missing rows to ErrNotFound", func() {
		conn.rowErr = pgx.ErrNoRows

		_, err := s.GetByID(ctx, "TICKET-1")
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
	})

	It("passes through other scan errors", func() {
		boom := errors.New("boom")
		conn.rowErr = boom

		_, err := s.GetByID(ctx, "TICKET-1")
		Expect(err).To(MatchError(boom))
	})

	It("inserts idempotently with evidence encoded as JSON", func() {
		t := &model.Ticket{
			ID:        "TICKET-1",
			SessionID: "s1",
			Title:     "Login fails",
			Status:    model.TicketStatusPending,
			Evidence:  model.Evidence{Logs: true},
			CreatedAt: time.Now(),
		}

		Expect(s.Create(ctx, t)).To(Succeed())
		Expect(conn.execs).To(HaveLen(1))
		Expect(conn.execs[0].sql).To(ContainSubstring("ON CONFLICT (id) DO NOTHING"))
		Expect(conn.execs[0].args[6]).To(MatchJSON(`{"screenshots":false,"logs":true,"videos":false}`))
		Expect(conn.execs[0].args[7]).To(Equal([]string{}))
	})

	It("reports affected rows for bulk status updates", func() {
		conn.execTag = "UPDATE 3"

		n, err := s.UpdateStatus(ctx, []string{"a", "b", "c"}, model.TicketStatusApproved)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(3)))
		Expect(conn.execs[0].args[1]).To(Equal("approved"))
	})

	It("returns ErrNotFound when a single-row update touches nothing", func() {
		conn.execTag = "UPDATE 0"

		err := s.SetExternalRef(ctx, "missing", "gitlab", "12", "https://gitlab.example.com/i/12")
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
	})

	It("edits only the fields that were given", func() {
		title := "Checkout fails for saved cards"
		severity := dialogue.SeverityCritical

		Expect(s.Update(ctx, "TICKET-1", store.UpdateTicketParams{Title: &title, Severity: &severity})).To(Succeed())
		Expect(conn.execs[0].sql).To(ContainSubstring("COALESCE($2, title)"))
		Expect(conn.execs[0].args[0]).To(Equal("TICKET-1"))
		Expect(conn.execs[0].args[1]).To(Equal(&title))
		Expect(conn.execs[0].args[2]).To(BeNil())
		Expect(*conn.execs[0].args[3].(*string)).To(Equal("critical"))
		Expect(conn.execs[0].args[4]).To(BeNil())
	})

	It("returns ErrNotFound when deleting a missing ticket", func() {
		conn.execTag = "DELETE 0"

		err := s.Delete(ctx, "missing")
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		Expect(conn.execs[0].sql).To(ContainSubstring("DELETE FROM tickets"))
	})
})
