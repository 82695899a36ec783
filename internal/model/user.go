package model

import "time"

// User is an end customer, identified by contact number and scoped to the
// client that first registered them. Name, email and location are collected
// progressively during the registration conversation.
type User struct {
	ID            int64     `db:"user_id" json:"user_id"`
	ClientID      int64     `db:"client_id" json:"client_id"`
	ContactNumber string    `db:"user_contact" json:"user_contact"`
	Name          *string   `db:"user_name" json:"user_name,omitempty"`
	Email         *string   `db:"user_email" json:"user_email,omitempty"`
	Location      *string   `db:"user_location" json:"user_location,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Registered reports whether every progressively collected field is present.
func (u *User) Registered() bool {
	return u.Name != nil && u.Email != nil && u.Location != nil
}
