package model

import "time"

// SpotLock is an advisory lock document serializing booking writes for one
// spot across service instances. Owner is a random token so only the holder
// can release it; ExpiresAt bounds how long a crashed holder can block others.
type SpotLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
