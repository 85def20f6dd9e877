package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gathrio/gathrio/internal/domain/event"
	"github.com/gathrio/gathrio/internal/domain/ticket"
	"github.com/gathrio/gathrio/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const eventColumns = `e.id, e.organizer_id, e.title, e.description, e.event_type, e.category,
	e.start_time, e.end_time, e.timezone,
	e.venue_name, e.venue_address, e.venue_latitude, e.venue_longitude,
	e.max_in_person_capacity, e.max_virtual_capacity,
	e.banner_image_url, e.status, e.is_featured, e.created_at, e.updated_at`

const organizerColumns = `u.id, u.email, u.first_name, u.last_name`

const bookingCountExpr = `(SELECT COUNT(*) FROM bookings b WHERE b.event_id = e.id)`

// Create inserts the event and its ticket types in a single transaction:
// an event without at least one ticket type must never become visible.
func (r *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	err := r.observe("events.create", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		_, err = tx.Exec(ctx, `
			INSERT INTO events (
				id, organizer_id, title, description, event_type, category,
				start_time, end_time, timezone,
				venue_name, venue_address, venue_latitude, venue_longitude,
				max_in_person_capacity, max_virtual_capacity,
				banner_image_url, status, is_featured, created_at, updated_at
			) VALUES (
				$1,$2,$3,$4,$5,$6,
				$7,$8,$9,
				$10,$11,$12,$13,
				$14,$15,
				$16,$17,$18,$19,$20
			)`,
			e.ID, e.OrganizerID, e.Title, nullIfEmpty(e.Description), e.EventType, nullIfEmpty(e.Category),
			e.StartTime, e.EndTime, nullIfEmpty(e.Timezone),
			nullIfEmpty(e.VenueName), nullIfEmpty(e.VenueAddress), e.VenueLatitude, e.VenueLongitude,
			e.MaxInPersonCapacity, e.MaxVirtualCapacity,
			nullIfEmpty(e.BannerImageURL), e.Status, e.IsFeatured, e.CreatedAt, e.UpdatedAt,
		)

		if err != nil {
			return err
		}

		for _, tt := range e.TicketTypes {
			_, err = tx.Exec(ctx, `
				INSERT INTO ticket_types (
					id, event_id, name, description, attendance_mode,
					price, quantity_available, sale_start_time, sale_end_time,
					created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
				tt.ID, tt.EventID, tt.Name, nullIfEmpty(tt.Description), tt.AttendanceMode,
				tt.Price, tt.QuantityAvailable, tt.SaleStartTime, tt.SaleEndTime,
				tt.CreatedAt, tt.UpdatedAt,
			)

			if err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_id", func() error {
		err := r.pool.QueryRow(ctx, `
			SELECT `+eventColumns+`, `+organizerColumns+`, `+bookingCountExpr+` AS booking_count
			FROM events e
			JOIN users u ON u.id = e.organizer_id
			WHERE e.id = $1
		`, id).Scan(eventScanTargets(&e)...)

		if err != nil {
			return err
		}

		return r.attachTicketTypes(ctx, []*event.Event{&e})
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}

		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) List(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, int, error) {
	var conds []string
	var args []interface{}

	argPos := 1

	addCond := func(expr string, value interface{}) {
		conds = append(conds, fmt.Sprintf(expr, argPos))
		args = append(args, value)
		argPos++
	}

	// status defaults to published: drafts never leak into public listings.
	status := event.StatusPublished
	if filter.Status != nil {
		status = *filter.Status
	}
	addCond("e.status = $%d", status)

	if filter.Category != nil {
		addCond("e.category = $%d", *filter.Category)
	}

	if filter.EventType != nil {
		addCond("e.event_type = $%d", *filter.EventType)
	}

	if filter.IsFeatured != nil {
		addCond("e.is_featured = $%d", *filter.IsFeatured)
	}

	if filter.StartDate != nil {
		addCond("e.start_time >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		addCond("e.start_time <= $%d", *filter.EndDate)
	}

	if filter.Search != nil {
		pattern := "%" + *filter.Search + "%"
		conds = append(conds, fmt.Sprintf(
			"(e.title ILIKE $%d OR e.description ILIKE $%d OR e.category ILIKE $%d)",
			argPos, argPos, argPos,
		))
		args = append(args, pattern)
		argPos++
	}

	if filter.Location != nil {
		pattern := "%" + *filter.Location + "%"
		conds = append(conds, fmt.Sprintf(
			"(e.venue_name ILIKE $%d OR e.venue_address ILIKE $%d)",
			argPos, argPos,
		))
		args = append(args, pattern)
		argPos++
	}

	// Both bounds apply to one ticket tier: an event with tiers at $5 and
	// $50 does not match min=10&max=20.
	switch {
	case filter.MinPrice != nil && filter.MaxPrice != nil:
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ticket_types tt WHERE tt.event_id = e.id AND tt.price >= $%d AND tt.price <= $%d)",
			argPos, argPos+1,
		))
		args = append(args, *filter.MinPrice, *filter.MaxPrice)
		argPos += 2

	case filter.MinPrice != nil:
		addCond("EXISTS (SELECT 1 FROM ticket_types tt WHERE tt.event_id = e.id AND tt.price >= $%d)", *filter.MinPrice)

	case filter.MaxPrice != nil:
		addCond("EXISTS (SELECT 1 FROM ticket_types tt WHERE tt.event_id = e.id AND tt.price <= $%d)", *filter.MaxPrice)
	}

	query := `
		SELECT ` + eventColumns + `, ` + organizerColumns + `, ` + bookingCountExpr + ` AS booking_count,
		       COUNT(*) OVER() AS total
		FROM events e
		JOIN users u ON u.id = e.organizer_id
		WHERE ` + strings.Join(conds, " AND ")

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY e.is_featured DESC, e.start_time ASC, e.id ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	var out []event.Event
	total := 0

	err := r.observe("events.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]event.Event, 0, filter.Limit)

		for rows.Next() {
			var e event.Event
			var t int

			targets := append(eventScanTargets(&e), &t)

			if err := rows.Scan(targets...); err != nil {
				return err
			}

			total = t
			out = append(out, e)
		}

		if err := rows.Err(); err != nil {
			return err
		}

		refs := make([]*event.Event, len(out))
		for i := range out {
			refs[i] = &out[i]
		}

		return r.attachTicketTypes(ctx, refs)
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *EventsRepo) ListFeatured(ctx context.Context, limit int) ([]event.Event, error) {
	return r.listWhere(ctx, "events.list_featured", `
		e.is_featured = TRUE
		AND e.status = 'published'
		AND e.start_time >= NOW()
		ORDER BY e.start_time ASC
		LIMIT $1
	`, limit)
}

// ListLive returns published events currently in their start/end window.
func (r *EventsRepo) ListLive(ctx context.Context) ([]event.Event, error) {
	return r.listWhere(ctx, "events.list_live", `
		e.status = 'published'
		AND e.start_time <= NOW()
		AND e.end_time > NOW()
		ORDER BY e.start_time ASC
	`)
}

func (r *EventsRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error) {
	return r.listWhere(ctx, "events.list_by_organizer", `
		e.organizer_id = $1
		ORDER BY e.created_at DESC
	`, organizerID)
}

func (r *EventsRepo) listWhere(ctx context.Context, op, whereAndOrder string, args ...interface{}) ([]event.Event, error) {
	query := `
		SELECT ` + eventColumns + `, ` + organizerColumns + `, ` + bookingCountExpr + ` AS booking_count
		FROM events e
		JOIN users u ON u.id = e.organizer_id
		WHERE ` + whereAndOrder

	var out []event.Event

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var e event.Event

			if err := rows.Scan(eventScanTargets(&e)...); err != nil {
				return err
			}

			out = append(out, e)
		}

		if err := rows.Err(); err != nil {
			return err
		}

		refs := make([]*event.Event, len(out))
		for i := range out {
			refs[i] = &out[i]
		}

		return r.attachTicketTypes(ctx, refs)
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Update patches the event. Only the owning organizer may update; the two
// failure modes stay distinguishable so the handler can answer 404 vs 403.
func (r *EventsRepo) Update(ctx context.Context, id, organizerID string, req event.UpdateEventRequest) (event.Event, error) {
	err := r.observe("events.update", func() error {
		var owner string
		var start, end time.Time

		err := r.pool.QueryRow(ctx,
			`SELECT organizer_id, start_time, end_time FROM events WHERE id = $1`, id,
		).Scan(&owner, &start, &end)

		if err != nil {
			return err
		}

		if owner != organizerID {
			return event.ErrNotOwner
		}

		// the patched row must still have a forward time window
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		if !end.After(start) {
			return event.ErrInvalidTimeRange
		}

		_, err = r.pool.Exec(ctx, `
			UPDATE events
			SET title = COALESCE($2, title),
			    description = COALESCE($3, description),
			    event_type = COALESCE($4, event_type),
			    category = COALESCE($5, category),
			    start_time = COALESCE($6, start_time),
			    end_time = COALESCE($7, end_time),
			    timezone = COALESCE($8, timezone),
			    venue_name = COALESCE($9, venue_name),
			    venue_address = COALESCE($10, venue_address),
			    venue_latitude = COALESCE($11, venue_latitude),
			    venue_longitude = COALESCE($12, venue_longitude),
			    max_in_person_capacity = COALESCE($13, max_in_person_capacity),
			    max_virtual_capacity = COALESCE($14, max_virtual_capacity),
			    banner_image_url = COALESCE($15, banner_image_url),
			    status = COALESCE($16, status),
			    is_featured = COALESCE($17, is_featured),
			    updated_at = NOW()
			WHERE id = $1
		`,
			id,
			req.Title, req.Description, req.EventType, req.Category,
			req.StartTime, req.EndTime, req.Timezone,
			req.VenueName, req.VenueAddress, req.VenueLatitude, req.VenueLongitude,
			req.MaxInPersonCapacity, req.MaxVirtualCapacity,
			req.BannerImageURL, req.Status, req.IsFeatured,
		)

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}

		return event.Event{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *EventsRepo) Delete(ctx context.Context, id, organizerID string) error {
	return r.observe("events.delete", func() error {
		var owner string

		err := r.pool.QueryRow(ctx, `SELECT organizer_id FROM events WHERE id = $1`, id).Scan(&owner)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return event.ErrNotFound
			}
			return err
		}

		if owner != organizerID {
			return event.ErrNotOwner
		}

		_, err = r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)

		return err
	})
}

// attachTicketTypes loads ticket types for the given events in one query.
func (r *EventsRepo) attachTicketTypes(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, 0, len(events))
	byID := make(map[string]*event.Event, len(events))

	for _, e := range events {
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, name, description, attendance_mode,
		       price, quantity_available, sale_start_time, sale_end_time,
		       created_at, updated_at
		FROM ticket_types
		WHERE event_id = ANY($1)
		ORDER BY price ASC, created_at ASC
	`, ids)

	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var tt ticket.TicketType
		var desc *string

		err := rows.Scan(
			&tt.ID, &tt.EventID, &tt.Name, &desc, &tt.AttendanceMode,
			&tt.Price, &tt.QuantityAvailable, &tt.SaleStartTime, &tt.SaleEndTime,
			&tt.CreatedAt, &tt.UpdatedAt,
		)

		if err != nil {
			return err
		}

		if desc != nil {
			tt.Description = *desc
		}

		if e, ok := byID[tt.EventID]; ok {
			e.TicketTypes = append(e.TicketTypes, tt)
		}
	}

	return rows.Err()
}

// eventScanTargets builds the scan destinations matching eventColumns,
// organizerColumns and booking_count, with nullable columns bridged.
func eventScanTargets(e *event.Event) []interface{} {
	e.Organizer = &event.OrganizerSummary{}

	return []interface{}{
		&e.ID, &e.OrganizerID, &e.Title, nullString(&e.Description), nullString(&e.EventType), nullString(&e.Category),
		&e.StartTime, &e.EndTime, nullString(&e.Timezone),
		nullString(&e.VenueName), nullString(&e.VenueAddress), &e.VenueLatitude, &e.VenueLongitude,
		&e.MaxInPersonCapacity, &e.MaxVirtualCapacity,
		nullString(&e.BannerImageURL), &e.Status, &e.IsFeatured, &e.CreatedAt, &e.UpdatedAt,
		&e.Organizer.ID, &e.Organizer.Email, &e.Organizer.FirstName, &e.Organizer.LastName,
		&e.BookingCount,
	}
}

// nullString lets a NULL text column scan into a plain string field.
type nullStringScanner struct {
	dst *string
}

func nullString(dst *string) *nullStringScanner {
	return &nullStringScanner{dst: dst}
}

func (s *nullStringScanner) Scan(src any) error {
	if src == nil {
		*s.dst = ""
		return nil
	}

	switch v := src.(type) {
	case string:
		*s.dst = v
	case []byte:
		*s.dst = string(v)
	default:
		return fmt.Errorf("cannot scan %T into string", src)
	}

	return nil
}
