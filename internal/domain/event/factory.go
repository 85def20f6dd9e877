package event

import (
	"time"

	"github.com/gathrio/gathrio/internal/domain/ticket"
	"github.com/google/uuid"
)

func NewFromCreateRequest(organizerID string, req CreateEventRequest) Event {
	now := time.Now().UTC()

	eventType := req.EventType

	if eventType == "" {
		eventType = TypeInPerson
	}

	e := Event{
		ID:                  uuid.NewString(),
		OrganizerID:         organizerID,
		Title:               req.Title,
		Description:         req.Description,
		EventType:           eventType,
		Category:            req.Category,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		Timezone:            req.Timezone,
		VenueName:           req.VenueName,
		VenueAddress:        req.VenueAddress,
		VenueLatitude:       req.VenueLatitude,
		VenueLongitude:      req.VenueLongitude,
		MaxInPersonCapacity: req.MaxInPersonCapacity,
		MaxVirtualCapacity:  req.MaxVirtualCapacity,
		BannerImageURL:      req.BannerImageURL,
		Status:              StatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	e.TicketTypes = make([]ticket.TicketType, 0, len(req.TicketTypes))

	for _, tt := range req.TicketTypes {
		e.TicketTypes = append(e.TicketTypes, ticket.TicketType{
			ID:                uuid.NewString(),
			EventID:           e.ID,
			Name:              tt.Name,
			Description:       tt.Description,
			AttendanceMode:    tt.AttendanceMode,
			Price:             tt.Price,
			QuantityAvailable: tt.QuantityAvailable,
			SaleStartTime:     tt.SaleStartTime,
			SaleEndTime:       tt.SaleEndTime,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	return e
}
