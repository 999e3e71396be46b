package store

import (
	"basegraph.app/intake/core/db"
)

type Stores struct {
	conn db.DBTX
}

// NewStores binds every store to conn, which may be the pool or a transaction.
func NewStores(conn db.DBTX) *Stores {
	return &Stores{conn: conn}
}

func (s *Stores) Tickets() TicketStore {
	return newTicketStore(s.conn)
}
