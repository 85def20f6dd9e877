package observability

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times a repository operation and records its outcome. op is the
// logical name (e.g. "users.create"), not SQL text, so label cardinality
// stays fixed.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	if err != nil {
		p.DbErrorsTotal.WithLabelValues(op, dbErrorClass(err)).Inc()
		p.DbQueryDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return err
	}

	p.DbQueryDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
	return nil
}

// A handful of SQLSTATEs get their own class; everything else groups under
// its raw code so new failure modes still show up in dashboards.
func dbErrorClass(err error) string {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			return "fk_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	return "other"
}
