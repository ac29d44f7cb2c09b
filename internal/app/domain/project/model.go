// Package project defines builders, locations and the projects they develop.
package project

import "time"

// Type classifies a project's inventory.
type Type string

const (
	TypeApartment  Type = "APARTMENT"
	TypeVilla      Type = "VILLA"
	TypePlot       Type = "PLOT"
	TypeCommercial Type = "COMMERCIAL"
)

// Valid reports whether the type is one of the known values.
func (t Type) Valid() bool {
	switch t {
	case TypeApartment, TypeVilla, TypePlot, TypeCommercial:
		return true
	}
	return false
}

// Status tracks a project's sales lifecycle.
type Status string

const (
	StatusUpcoming    Status = "UPCOMING"
	StatusUnderConstr Status = "UNDER_CONSTRUCTION"
	StatusReadyToMove Status = "READY_TO_MOVE"
	StatusSoldOut     Status = "SOLD_OUT"
)

// Builder is a property developer.
type Builder struct {
	ID          string
	Name        string
	Description string
	Website     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location pins a project or property on the map.
type Location struct {
	City     string
	State    string
	Locality string
	Pincode  string
	Lat      float64
	Lng      float64
}

// Project is a builder development at a location.
type Project struct {
	ID          string
	BuilderID   string
	Name        string
	Description string
	Type        Type
	Status      Status
	Location    Location
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
