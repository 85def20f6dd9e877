package ticket

import "time"

const (
	AttendanceInPerson = "in_person"
	AttendanceVirtual  = "virtual"
)

type TicketType struct {
	ID                string     `json:"id"`
	EventID           string     `json:"eventId"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	AttendanceMode    string     `json:"attendanceMode"`
	Price             float64    `json:"price"`
	QuantityAvailable int        `json:"quantityAvailable"`
	SaleStartTime     *time.Time `json:"saleStartTime,omitempty"`
	SaleEndTime       *time.Time `json:"saleEndTime,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type CreateTicketTypeRequest struct {
	Name              string     `json:"name" binding:"required,min=1,max=120"`
	Description       string     `json:"description" binding:"omitempty,max=1000"`
	AttendanceMode    string     `json:"attendanceMode" binding:"required,oneof=in_person virtual"`
	Price             float64    `json:"price" binding:"min=0"`
	QuantityAvailable int        `json:"quantityAvailable" binding:"required,min=1"`
	SaleStartTime     *time.Time `json:"saleStartTime" binding:"omitempty"`
	SaleEndTime       *time.Time `json:"saleEndTime" binding:"omitempty"`
}
