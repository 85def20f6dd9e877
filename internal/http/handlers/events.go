package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gathrio/gathrio/internal/config"
	"github.com/gathrio/gathrio/internal/domain/event"
	"github.com/gathrio/gathrio/internal/http/middlewares"
	"github.com/gathrio/gathrio/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit     = 20
	maxListLimit         = 100
	defaultFeaturedLimit = 6
)

type EventsStore interface {
	Create(ctx context.Context, e event.Event) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	List(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, int, error)
	ListFeatured(ctx context.Context, limit int) ([]event.Event, error)
	ListLive(ctx context.Context) ([]event.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error)
	Update(ctx context.Context, id, organizerID string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id, organizerID string) error
}

type BookingCounter interface {
	CountForOrganizer(ctx context.Context, organizerID string) (int, error)
}

// ListCache holds serialized listing responses keyed by filter.
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	InvalidateAll(ctx context.Context)
}

type EventsHandler struct {
	repo      EventsStore
	bookings  BookingCounter
	listCache ListCache
}

func NewEventsHandler(repo EventsStore, bookings BookingCounter, listCache ListCache) *EventsHandler {
	return &EventsHandler{repo: repo, bookings: bookings, listCache: listCache}
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !req.EndTime.After(req.StartTime) {
		RespondBadRequest(ctx, "endTime must be after startTime", nil)
		return
	}

	organizerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || organizerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	created, err := h.repo.Create(cctx, event.NewFromCreateRequest(organizerID, req))

	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	h.listCache.InvalidateAll(cctx)

	ctx.JSON(http.StatusCreated, created)
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	filter, ok := parseListFilter(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	key := utils.BuildEventsListCacheKey(filter)

	// cached or fresh, the bytes take the same conditional-request path
	if raw, hit := h.listCache.Get(cctx, key); hit {
		RespondRawJSONWithETag(ctx, http.StatusOK, raw)
		return
	}

	events, total, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	payload := gin.H{
		"events": events,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	}

	raw, err := json.Marshal(payload)

	if err != nil {
		ctx.JSON(http.StatusOK, payload)
		return
	}

	h.listCache.Set(cctx, key, raw)
	RespondRawJSONWithETag(ctx, http.StatusOK, raw)
}

func (h *EventsHandler) ListFeatured(ctx *gin.Context) {
	limit := defaultFeaturedLimit

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return
		}

		if n > maxListLimit {
			n = maxListLimit
		}

		limit = n
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	events, err := h.repo.ListFeatured(cctx, limit)

	if err != nil {
		RespondInternal(ctx, "Could not list featured events")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *EventsHandler) ListLive(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	events, err := h.repo.ListLive(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list live events")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *EventsHandler) MyEvents(ctx *gin.Context) {
	organizerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || organizerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	events, err := h.repo.ListByOrganizer(cctx, organizerID)

	if err != nil {
		RespondInternal(ctx, "Could not list your events")
		return
	}

	totalBookings, err := h.bookings.CountForOrganizer(cctx, organizerID)

	if err != nil {
		RespondInternal(ctx, "Could not count bookings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"events":        events,
		"totalBookings": totalBookings,
	})
}

func (h *EventsHandler) GetEventByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	e, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "not_found", "Event not found")
			return
		}

		RespondInternal(ctx, "Could not fetch event")
		return
	}

	ctx.JSON(http.StatusOK, e)
}

func (h *EventsHandler) UpdateEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	var req event.UpdateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// the repo re-checks against the stored row for one-sided patches
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		RespondBadRequest(ctx, "endTime must be after startTime", nil)
		return
	}

	organizerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || organizerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	updated, err := h.repo.Update(cctx, id, organizerID, req)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "not_found", "Event not found")
		case errors.Is(err, event.ErrNotOwner):
			RespondForbidden(ctx, "You can only update your own events")
		case errors.Is(err, event.ErrInvalidTimeRange):
			RespondBadRequest(ctx, "endTime must be after startTime", nil)
		default:
			RespondInternal(ctx, "Could not update event")
		}
		return
	}

	h.listCache.InvalidateAll(cctx)

	ctx.JSON(http.StatusOK, updated)
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	organizerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || organizerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err := h.repo.Delete(cctx, id, organizerID)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "not_found", "Event not found")
		case errors.Is(err, event.ErrNotOwner):
			RespondForbidden(ctx, "You can only delete your own events")
		default:
			RespondInternal(ctx, "Could not delete event")
		}
		return
	}

	h.listCache.InvalidateAll(cctx)

	ctx.Status(http.StatusNoContent)
}

// query parsing

func parseListFilter(ctx *gin.Context) (event.ListEventsFilter, bool) {
	var f event.ListEventsFilter

	f.Limit = defaultListLimit

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return f, false
		}

		if n > maxListLimit {
			n = maxListLimit
		}

		f.Limit = n
	}

	if raw := ctx.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 0 {
			RespondBadRequest(ctx, "offset must be a non-negative integer", nil)
			return f, false
		}

		f.Offset = n
	}

	f.Category = queryStr(ctx, "category")
	f.EventType = queryStr(ctx, "event_type")
	f.Status = queryStr(ctx, "status")
	f.Search = queryStr(ctx, "search")
	f.Location = queryStr(ctx, "location")

	if s := f.Status; s != nil {
		switch *s {
		case event.StatusDraft, event.StatusPublished, event.StatusCancelled, event.StatusCompleted:
		default:
			RespondBadRequest(ctx, "status must be one of draft, published, cancelled, completed", nil)
			return f, false
		}
	}

	if t := f.EventType; t != nil {
		switch *t {
		case event.TypeInPerson, event.TypeVirtual, event.TypeHybrid:
		default:
			RespondBadRequest(ctx, "event_type must be one of in_person, virtual, hybrid", nil)
			return f, false
		}
	}

	var ok bool

	if f.StartDate, ok = queryTime(ctx, "start_date"); !ok {
		return f, false
	}

	if f.EndDate, ok = queryTime(ctx, "end_date"); !ok {
		return f, false
	}

	if f.IsFeatured, ok = queryBool(ctx, "is_featured"); !ok {
		return f, false
	}

	if f.MinPrice, ok = queryFloat(ctx, "min_price"); !ok {
		return f, false
	}

	if f.MaxPrice, ok = queryFloat(ctx, "max_price"); !ok {
		return f, false
	}

	return f, true
}

func queryStr(ctx *gin.Context, name string) *string {
	v := strings.TrimSpace(ctx.Query(name))

	if v == "" {
		return nil
	}

	return &v
}

func queryTime(ctx *gin.Context, name string) (*time.Time, bool) {
	raw := ctx.Query(name)

	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, raw)

	if err != nil {
		// date-only form is also accepted
		t, err = time.Parse("2006-01-02", raw)

		if err != nil {
			RespondBadRequest(ctx, name+" must be an RFC 3339 datetime or YYYY-MM-DD date", nil)
			return nil, false
		}
	}

	t = t.UTC()

	return &t, true
}

func queryBool(ctx *gin.Context, name string) (*bool, bool) {
	raw := ctx.Query(name)

	if raw == "" {
		return nil, true
	}

	b, err := strconv.ParseBool(raw)

	if err != nil {
		RespondBadRequest(ctx, name+" must be true or false", nil)
		return nil, false
	}

	return &b, true
}

func queryFloat(ctx *gin.Context, name string) (*float64, bool) {
	raw := ctx.Query(name)

	if raw == "" {
		return nil, true
	}

	v, err := strconv.ParseFloat(raw, 64)

	if err != nil || v < 0 {
		RespondBadRequest(ctx, name+" must be a non-negative number", nil)
		return nil, false
	}

	return &v, true
}
