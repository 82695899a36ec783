package model

import "time"

// ClientSettings is the client's display configuration, stored as JSON on the
// client row.
type ClientSettings struct {
	BackButton   bool   `json:"backButton"`
	WelcomeImage string `json:"welcomeImage,omitempty"`
}

// Client is a tenant organization. Its contact number routes inbound WhatsApp
// messages to it; at most one client owns a given number.
type Client struct {
	ID            int64          `db:"client_id" json:"client_id"`
	Name          string         `db:"client_name" json:"client_name"`
	ContactNumber string         `db:"contact_number" json:"contact_number"`
	Email         string         `db:"email" json:"email"`
	LocationURL   string         `db:"location_url" json:"location_url"`
	Settings      ClientSettings `db:"-" json:"settings"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
