package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gathrio/gathrio/internal/domain/event"
	"github.com/gathrio/gathrio/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeEventsStore struct {
	createFn          func(ctx context.Context, e event.Event) (event.Event, error)
	getByIDFn         func(ctx context.Context, id string) (event.Event, error)
	listFn            func(ctx context.Context, f event.ListEventsFilter) ([]event.Event, int, error)
	listFeaturedFn    func(ctx context.Context, limit int) ([]event.Event, error)
	listLiveFn        func(ctx context.Context) ([]event.Event, error)
	listByOrganizerFn func(ctx context.Context, organizerID string) ([]event.Event, error)
	updateFn          func(ctx context.Context, id, organizerID string, req event.UpdateEventRequest) (event.Event, error)
	deleteFn          func(ctx context.Context, id, organizerID string) error
}

func (f *fakeEventsStore) Create(ctx context.Context, e event.Event) (event.Event, error) {
	return f.createFn(ctx, e)
}

func (f *fakeEventsStore) GetByID(ctx context.Context, id string) (event.Event, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeEventsStore) List(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, int, error) {
	return f.listFn(ctx, filter)
}

func (f *fakeEventsStore) ListFeatured(ctx context.Context, limit int) ([]event.Event, error) {
	return f.listFeaturedFn(ctx, limit)
}

func (f *fakeEventsStore) ListLive(ctx context.Context) ([]event.Event, error) {
	return f.listLiveFn(ctx)
}

func (f *fakeEventsStore) ListByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error) {
	return f.listByOrganizerFn(ctx, organizerID)
}

func (f *fakeEventsStore) Update(ctx context.Context, id, organizerID string, req event.UpdateEventRequest) (event.Event, error) {
	return f.updateFn(ctx, id, organizerID, req)
}

func (f *fakeEventsStore) Delete(ctx context.Context, id, organizerID string) error {
	return f.deleteFn(ctx, id, organizerID)
}

type fakeBookingCounter struct {
	count int
}

func (f *fakeBookingCounter) CountForOrganizer(_ context.Context, _ string) (int, error) {
	return f.count, nil
}

func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, userID)
		c.Next()
	}
}

type fakeListCache struct {
	data map[string][]byte
}

func newFakeListCache() *fakeListCache {
	return &fakeListCache{data: map[string][]byte{}}
}

func (f *fakeListCache) Get(_ context.Context, key string) ([]byte, bool) {
	b, ok := f.data[key]
	return b, ok
}

func (f *fakeListCache) Set(_ context.Context, key string, val []byte) {
	f.data[key] = val
}

func (f *fakeListCache) InvalidateAll(_ context.Context) {
	f.data = map[string][]byte{}
}

func setupEventsRouter(store *fakeEventsStore, identity gin.HandlerFunc) *gin.Engine {
	return setupEventsRouterWithCache(store, identity, newFakeListCache())
}

func setupEventsRouterWithCache(store *fakeEventsStore, identity gin.HandlerFunc, lc ListCache) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewEventsHandler(store, &fakeBookingCounter{count: 3}, lc)

	r := gin.New()

	group := r.Group("/api/events")

	if identity != nil {
		group.Use(identity)
	}

	group.POST("", h.CreateEvent)
	group.GET("", h.ListEvents)
	group.GET("/featured", h.ListFeatured)
	group.GET("/live", h.ListLive)
	group.GET("/my-events", h.MyEvents)
	group.GET("/:id", h.GetEventByID)
	group.PUT("/:id", h.UpdateEvent)
	group.DELETE("/:id", h.DeleteEvent)

	return r
}

func validCreateBody() string {
	start := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(52 * time.Hour).Format(time.RFC3339)

	return `{
		"title": "Go Conference",
		"startTime": "` + start + `",
		"endTime": "` + end + `",
		"ticketTypes": [
			{"name": "General", "attendanceMode": "in_person", "price": 25, "quantityAvailable": 100}
		]
	}`
}

func TestCreateEvent(t *testing.T) {
	var captured event.Event

	store := &fakeEventsStore{
		createFn: func(_ context.Context, e event.Event) (event.Event, error) {
			captured = e
			return e, nil
		},
	}

	r := setupEventsRouter(store, asUser("org-1"))

	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewBufferString(validCreateBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	if captured.OrganizerID != "org-1" {
		t.Fatalf("organizer must come from the token, got %q", captured.OrganizerID)
	}
	if captured.Status != event.StatusDraft {
		t.Fatalf("new events start as draft, got %q", captured.Status)
	}
	if captured.EventType != event.TypeInPerson {
		t.Fatalf("event type defaults to in_person, got %q", captured.EventType)
	}
	if len(captured.TicketTypes) != 1 {
		t.Fatalf("expected 1 ticket type, got %d", len(captured.TicketTypes))
	}
	if captured.TicketTypes[0].EventID != captured.ID {
		t.Fatalf("ticket type must belong to the new event")
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	store := &fakeEventsStore{
		createFn: func(_ context.Context, e event.Event) (event.Event, error) {
			t.Fatalf("store must not be reached on invalid input")
			return e, nil
		},
	}

	r := setupEventsRouter(store, asUser("org-1"))

	start := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(52 * time.Hour).Format(time.RFC3339)

	cases := []struct {
		name string
		body string
	}{
		{"no ticket types", `{"title":"Conf","startTime":"` + start + `","endTime":"` + end + `","ticketTypes":[]}`},
		{"missing times", `{"title":"Conf","ticketTypes":[{"name":"GA","attendanceMode":"in_person","quantityAvailable":10}]}`},
		{"end before start", `{"title":"Conf","startTime":"` + end + `","endTime":"` + start + `","ticketTypes":[{"name":"GA","attendanceMode":"in_person","quantityAvailable":10}]}`},
		{"bad attendance mode", `{"title":"Conf","startTime":"` + start + `","endTime":"` + end + `","ticketTypes":[{"name":"GA","attendanceMode":"astral","quantityAvailable":10}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d, body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestListEvents_FilterParsing(t *testing.T) {
	var captured event.ListEventsFilter

	store := &fakeEventsStore{
		listFn: func(_ context.Context, f event.ListEventsFilter) ([]event.Event, int, error) {
			captured = f
			return []event.Event{}, 0, nil
		},
	}

	r := setupEventsRouter(store, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/events?category=music&event_type=virtual&search=go&is_featured=true&min_price=10&max_price=50&limit=5&offset=20", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	if captured.Category == nil || *captured.Category != "music" {
		t.Fatalf("category filter missing")
	}
	if captured.EventType == nil || *captured.EventType != "virtual" {
		t.Fatalf("event_type filter missing")
	}
	if captured.Search == nil || *captured.Search != "go" {
		t.Fatalf("search filter missing")
	}
	if captured.IsFeatured == nil || !*captured.IsFeatured {
		t.Fatalf("is_featured filter missing")
	}
	if captured.MinPrice == nil || *captured.MinPrice != 10 {
		t.Fatalf("min_price filter missing")
	}
	if captured.MaxPrice == nil || *captured.MaxPrice != 50 {
		t.Fatalf("max_price filter missing")
	}
	if captured.Limit != 5 || captured.Offset != 20 {
		t.Fatalf("expected limit 5 offset 20, got %d/%d", captured.Limit, captured.Offset)
	}
}

func TestListEvents_LimitCapAndDefaults(t *testing.T) {
	var captured event.ListEventsFilter

	store := &fakeEventsStore{
		listFn: func(_ context.Context, f event.ListEventsFilter) ([]event.Event, int, error) {
			captured = f
			return nil, 0, nil
		},
	}

	r := setupEventsRouter(store, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if captured.Limit != 20 || captured.Offset != 0 {
		t.Fatalf("expected defaults 20/0, got %d/%d", captured.Limit, captured.Offset)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events?limit=500", nil))

	if captured.Limit != 100 {
		t.Fatalf("limit must cap at 100, got %d", captured.Limit)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events?limit=nope", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for junk limit, got %d", w.Code)
	}
}

func TestListEvents_ETag(t *testing.T) {
	store := &fakeEventsStore{
		listFn: func(_ context.Context, f event.ListEventsFilter) ([]event.Event, int, error) {
			return []event.Event{}, 0, nil
		},
	}

	r := setupEventsRouter(store, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
}

func TestListEvents_ETagOnCacheHit(t *testing.T) {
	calls := 0

	store := &fakeEventsStore{
		listFn: func(_ context.Context, f event.ListEventsFilter) ([]event.Event, int, error) {
			calls++
			return []event.Event{{ID: uuid.NewString(), Title: "Warm"}}, 1, nil
		},
	}

	lc := newFakeListCache()
	r := setupEventsRouterWithCache(store, nil, lc)

	// first request fills the cache
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}

	firstBody := w.Body.String()

	// second request is served from the cache with the same validator
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if calls != 1 {
		t.Fatalf("expected the store to be queried once, got %d", calls)
	}
	if w.Header().Get("ETag") != etag {
		t.Fatalf("cached response changed the ETag: %q vs %q", w.Header().Get("ETag"), etag)
	}
	if w.Body.String() != firstBody {
		t.Fatalf("cached body differs from the original")
	}

	// conditional request against the warm cache still gets a 304
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304 on a cache hit, got %d", w.Code)
	}
	if calls != 1 {
		t.Fatalf("conditional request must not reach the store, got %d calls", calls)
	}
}

func TestGetEventByID(t *testing.T) {
	id := uuid.NewString()

	store := &fakeEventsStore{
		getByIDFn: func(_ context.Context, got string) (event.Event, error) {
			if got != id {
				return event.Event{}, event.ErrNotFound
			}
			return event.Event{ID: id, Title: "Found"}, nil
		},
	}

	r := setupEventsRouter(store, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/"+id, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/"+uuid.NewString(), nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/not-a-uuid", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for junk id, got %d", w.Code)
	}
}

func TestUpdateEvent_OwnershipErrors(t *testing.T) {
	id := uuid.NewString()

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", event.ErrNotFound, http.StatusNotFound},
		{"not owner", event.ErrNotOwner, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeEventsStore{
				updateFn: func(_ context.Context, _, _ string, _ event.UpdateEventRequest) (event.Event, error) {
					return event.Event{}, tc.err
				},
			}

			r := setupEventsRouter(store, asUser("intruder"))

			req := httptest.NewRequest(http.MethodPut, "/api/events/"+id,
				bytes.NewBufferString(`{"title":"Renamed Event"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d, body=%s", tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateEvent_InvertedWindow(t *testing.T) {
	id := uuid.NewString()

	t.Run("both times in the patch", func(t *testing.T) {
		store := &fakeEventsStore{
			updateFn: func(_ context.Context, _, _ string, _ event.UpdateEventRequest) (event.Event, error) {
				t.Fatalf("store must not be reached for an inverted patch")
				return event.Event{}, nil
			},
		}

		r := setupEventsRouter(store, asUser("org-1"))

		req := httptest.NewRequest(http.MethodPut, "/api/events/"+id, bytes.NewBufferString(
			`{"startTime":"2027-06-01T18:00:00Z","endTime":"2027-06-01T09:00:00Z"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d, body=%s", w.Code, w.Body.String())
		}
	})

	// a one-sided patch is checked against the stored row, surfacing as a
	// sentinel from the store
	t.Run("patch inverts the stored window", func(t *testing.T) {
		store := &fakeEventsStore{
			updateFn: func(_ context.Context, _, _ string, _ event.UpdateEventRequest) (event.Event, error) {
				return event.Event{}, event.ErrInvalidTimeRange
			},
		}

		r := setupEventsRouter(store, asUser("org-1"))

		req := httptest.NewRequest(http.MethodPut, "/api/events/"+id,
			bytes.NewBufferString(`{"endTime":"2020-01-01T00:00:00Z"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d, body=%s", w.Code, w.Body.String())
		}
	})
}

func TestDeleteEvent(t *testing.T) {
	id := uuid.NewString()

	store := &fakeEventsStore{
		deleteFn: func(_ context.Context, gotID, organizerID string) error {
			if organizerID != "org-1" {
				return event.ErrNotOwner
			}
			return nil
		},
	}

	r := setupEventsRouter(store, asUser("org-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/events/"+id, nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestMyEvents_RequiresIdentity(t *testing.T) {
	store := &fakeEventsStore{
		listByOrganizerFn: func(_ context.Context, organizerID string) ([]event.Event, error) {
			return []event.Event{{ID: uuid.NewString(), OrganizerID: organizerID}}, nil
		},
	}

	// no identity middleware: anonymous caller
	r := setupEventsRouter(store, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/my-events", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}

	r = setupEventsRouter(store, asUser("org-9"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/my-events", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with identity, got %d", w.Code)
	}

	var resp struct {
		Events        []event.Event `json:"events"`
		TotalBookings int           `json:"totalBookings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].OrganizerID != "org-9" {
		t.Fatalf("expected the caller's events back, got %+v", resp.Events)
	}
	if resp.TotalBookings != 3 {
		t.Fatalf("expected totalBookings 3, got %d", resp.TotalBookings)
	}
}
