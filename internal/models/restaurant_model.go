package models

import "time"

type Restaurant struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	BrandType string    `db:"brand_type" json:"brand_type"`
	Category  string    `db:"category" json:"category"`
	Locations []string  `db:"locations" json:"locations"`
	Vision    string    `db:"vision" json:"vision"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Profile struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Credits   int       `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
