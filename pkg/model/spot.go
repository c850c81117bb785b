package model

type Spot struct {
	ID      string `json:"id" bson:"_id" yaml:"id"`
	OwnerID string `json:"ownerId" bson:"owner_id" yaml:"ownerId"`
	Name    string `json:"name,omitempty" bson:"name,omitempty" yaml:"name"`
}

type User struct {
	ID        string `json:"id" bson:"_id" yaml:"id"`
	FirstName string `json:"firstName" bson:"first_name" yaml:"firstName"`
	LastName  string `json:"lastName" bson:"last_name" yaml:"lastName"`
}

func (u *User) Renter() *Renter {
	return &Renter{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}
