// Package property defines individual listings, optionally tied to a project.
package property

import "time"

// Status tracks a listing's lifecycle.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSold      Status = "SOLD"
	StatusWithdrawn Status = "WITHDRAWN"
)

// Property is a single listed unit.
type Property struct {
	ID          string
	OwnerID     string
	ProjectID   string // empty for standalone listings
	Title       string
	Description string
	Type        string // project.Type values reused for standalone listings
	City        string
	State       string
	Locality    string
	Pincode     string
	SqFt        float64
	Bedrooms    int
	Bathrooms   int
	Price       float64
	Images      []string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SearchFilter narrows property searches. Zero values are ignored.
type SearchFilter struct {
	City     string
	Type     string
	MinPrice float64
	MaxPrice float64
	Bedrooms int
	Limit    int
}
