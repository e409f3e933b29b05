package inventory

import "time"

type CreatePresentationRequest struct {
	EventID   string    `json:"event_id" binding:"required,uuid"`
	VenueID   string    `json:"venue_id" binding:"required,uuid"`
	VenueType string    `json:"venue_type" binding:"required,oneof=general numbered"`
	StartsAt  time.Time `json:"starts_at" binding:"required"`
	Status    string    `json:"status" binding:"omitempty,oneof=on_sale postponed sold_out cancelled"`
}

type UpdatePresentationRequest struct {
	Status   *string    `json:"status" binding:"omitempty,oneof=on_sale postponed sold_out cancelled"`
	StartsAt *time.Time `json:"starts_at" binding:"omitempty"`
}

type CreateTierRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	UnitPrice int64  `json:"unit_price" binding:"min=0"`
	Currency  string `json:"currency" binding:"required,len=3"`
	Capacity  int    `json:"capacity" binding:"required,min=1"`
}

// GenerateSeatsRequest creates seats From..To in each of Rows of one section
type GenerateSeatsRequest struct {
	Section   string   `json:"section" binding:"required,min=1,max=50"`
	Rows      []string `json:"rows" binding:"required,min=1,max=100,dive,required,max=10"`
	From      int      `json:"from" binding:"required,min=1"`
	To        int      `json:"to" binding:"required,gtefield=From"`
	UnitPrice int64    `json:"unit_price" binding:"min=0"`
	Currency  string   `json:"currency" binding:"required,len=3"`
}
