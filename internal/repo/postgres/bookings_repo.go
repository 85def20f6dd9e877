package postgres

import (
	"context"

	"github.com/gathrio/gathrio/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingsRepo surfaces only aggregate counts. Booking creation, payment
// and inventory live outside this service.
type BookingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBookingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BookingsRepo {
	return &BookingsRepo{pool: pool, prom: prom}
}

func (r *BookingsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// CountForOrganizer totals bookings across every event the organizer owns.
// Per-event counts ride along on the event rows themselves.
func (r *BookingsRepo) CountForOrganizer(ctx context.Context, organizerID string) (int, error) {
	var count int

	err := r.observe("bookings.count_for_organizer", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM bookings b
			JOIN events e ON e.id = b.event_id
			WHERE e.organizer_id = $1
		`, organizerID).Scan(&count)
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}
