package event

import (
	"errors"
	"time"

	"github.com/gathrio/gathrio/internal/domain/ticket"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	TypeInPerson = "in_person"
	TypeVirtual  = "virtual"
	TypeHybrid   = "hybrid"
)

var ErrNotFound = errors.New("event not found")
var ErrNotOwner = errors.New("event belongs to another organizer")
var ErrInvalidTimeRange = errors.New("event end time must be after start time")

// OrganizerSummary is the slice of the owning user embedded in event
// responses. No credential fields ever pass through here.
type OrganizerSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Event struct {
	ID                  string              `json:"id"`
	OrganizerID         string              `json:"organizerId"`
	Title               string              `json:"title"`
	Description         string              `json:"description,omitempty"`
	EventType           string              `json:"eventType"`
	Category            string              `json:"category,omitempty"`
	StartTime           time.Time           `json:"startTime"`
	EndTime             time.Time           `json:"endTime"`
	Timezone            string              `json:"timezone,omitempty"`
	VenueName           string              `json:"venueName,omitempty"`
	VenueAddress        string              `json:"venueAddress,omitempty"`
	VenueLatitude       *float64            `json:"venueLatitude,omitempty"`
	VenueLongitude      *float64            `json:"venueLongitude,omitempty"`
	MaxInPersonCapacity *int                `json:"maxInPersonCapacity,omitempty"`
	MaxVirtualCapacity  *int                `json:"maxVirtualCapacity,omitempty"`
	BannerImageURL      string              `json:"bannerImageUrl,omitempty"`
	Status              string              `json:"status"`
	IsFeatured          bool                `json:"isFeatured"`
	TicketTypes         []ticket.TicketType `json:"ticketTypes,omitempty"`
	Organizer           *OrganizerSummary   `json:"organizer,omitempty"`
	BookingCount        int                 `json:"bookingCount"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

type CreateEventRequest struct {
	Title               string                           `json:"title" binding:"required,min=3,max=200"`
	Description         string                           `json:"description" binding:"omitempty,max=5000"`
	EventType           string                           `json:"eventType" binding:"omitempty,oneof=in_person virtual hybrid"`
	Category            string                           `json:"category" binding:"omitempty,max=80"`
	StartTime           time.Time                        `json:"startTime" binding:"required"`
	EndTime             time.Time                        `json:"endTime" binding:"required"`
	Timezone            string                           `json:"timezone" binding:"omitempty,max=64"`
	VenueName           string                           `json:"venueName" binding:"omitempty,max=200"`
	VenueAddress        string                           `json:"venueAddress" binding:"omitempty,max=400"`
	VenueLatitude       *float64                         `json:"venueLatitude" binding:"omitempty"`
	VenueLongitude      *float64                         `json:"venueLongitude" binding:"omitempty"`
	MaxInPersonCapacity *int                             `json:"maxInPersonCapacity" binding:"omitempty,min=1"`
	MaxVirtualCapacity  *int                             `json:"maxVirtualCapacity" binding:"omitempty,min=1"`
	BannerImageURL      string                           `json:"bannerImageUrl" binding:"omitempty,url"`
	TicketTypes         []ticket.CreateTicketTypeRequest `json:"ticketTypes" binding:"required,min=1,dive"`
}

// UpdateEventRequest is a patch: nil fields are left untouched.
type UpdateEventRequest struct {
	Title               *string    `json:"title" binding:"omitempty,min=3,max=200"`
	Description         *string    `json:"description" binding:"omitempty,max=5000"`
	EventType           *string    `json:"eventType" binding:"omitempty,oneof=in_person virtual hybrid"`
	Category            *string    `json:"category" binding:"omitempty,max=80"`
	StartTime           *time.Time `json:"startTime" binding:"omitempty"`
	EndTime             *time.Time `json:"endTime" binding:"omitempty"`
	Timezone            *string    `json:"timezone" binding:"omitempty,max=64"`
	VenueName           *string    `json:"venueName" binding:"omitempty,max=200"`
	VenueAddress        *string    `json:"venueAddress" binding:"omitempty,max=400"`
	VenueLatitude       *float64   `json:"venueLatitude" binding:"omitempty"`
	VenueLongitude      *float64   `json:"venueLongitude" binding:"omitempty"`
	MaxInPersonCapacity *int       `json:"maxInPersonCapacity" binding:"omitempty,min=1"`
	MaxVirtualCapacity  *int       `json:"maxVirtualCapacity" binding:"omitempty,min=1"`
	BannerImageURL      *string    `json:"bannerImageUrl" binding:"omitempty,url"`
	Status              *string    `json:"status" binding:"omitempty,oneof=draft published cancelled completed"`
	IsFeatured          *bool      `json:"isFeatured" binding:"omitempty"`
}

// with pointers if optional, it will be nil
type ListEventsFilter struct {
	Category   *string
	EventType  *string
	Status     *string
	StartDate  *time.Time
	EndDate    *time.Time
	Search     *string
	Location   *string
	IsFeatured *bool
	MinPrice   *float64
	MaxPrice   *float64
	Limit      int
	Offset     int
}
