package model

import (
	"encoding/json"
	"time"

	"spotbook/pkg/interval"
)

// Reservation is an accepted stay on a spot. It is never modified after it
// has been written.
type Reservation struct {
	ID        string        `json:"id" bson:"_id"`
	SpotID    string        `json:"spotId" bson:"spot_id"`
	UserID    string        `json:"userId" bson:"user_id"`
	StartDate interval.Date `json:"startDate" bson:"start_date"`
	EndDate   interval.Date `json:"endDate" bson:"end_date"`
	CreatedAt time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updated_at"`

	// Seq is the per-spot insertion sequence assigned at commit.
	Seq int64 `json:"-" bson:"seq"`
}

func (r *Reservation) Period() interval.Range {
	return interval.Range{Start: r.StartDate, End: r.EndDate}
}

// BookingRequest is what the transport hands to the ledger once the caller is
// authenticated and the body is well formed.
type BookingRequest struct {
	SpotID      string
	RequesterID string
	Period      interval.Range
}

// Renter is the public face of the user holding a reservation.
type Renter struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// BookingView is a reservation as shown to a particular requester. For anyone
// but the spot owner only SpotID and the dates are populated.
type BookingView struct {
	ID        string        `json:"id,omitempty"`
	SpotID    string        `json:"spotId"`
	UserID    string        `json:"userId,omitempty"`
	User      *Renter       `json:"User,omitempty"`
	StartDate interval.Date `json:"startDate"`
	EndDate   interval.Date `json:"endDate"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

// MarshalJSON always writes User on owner views, as null when the renter is
// unknown to the directory. Public views carry no ID and leave it out.
func (v BookingView) MarshalJSON() ([]byte, error) {
	type view BookingView
	if v.ID == "" {
		return json.Marshal(view(v))
	}
	return json.Marshal(struct {
		view
		User *Renter `json:"User"`
	}{view: view(v), User: v.User})
}
