package model

import "time"

// RefreshRequest asks the refresh workers to re-fetch the dataset.
type RefreshRequest struct {
	ID          string
	Reason      string
	RequestedAt time.Time
}
