package reservations

// HoldRequest claims numbered seats for one checkout session
type HoldRequest struct {
	SeatIDs         []string `json:"seat_ids" binding:"required,min=1,max=20,dive,uuid"`
	HolderSessionID string   `json:"holder_session_id" binding:"required,max=128"`
}

// ReleaseRequest gives seats back on abandonment or when the countdown runs out
type ReleaseRequest struct {
	SeatIDs         []string `json:"seat_ids" binding:"required,min=1,max=20,dive,uuid"`
	HolderSessionID string   `json:"holder_session_id" binding:"required,max=128"`
}
