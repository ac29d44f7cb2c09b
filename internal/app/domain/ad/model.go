// Package ad defines the paid home-page placement marketplace.
package ad

import "time"

// SlotConfig is one numbered placement row with its daily base price.
type SlotConfig struct {
	ID        string
	Slot      int
	BasePrice float64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Selection is one slot the buyer wants, aimed at exactly one target.
type Selection struct {
	Slot       int
	Days       int
	PropertyID string
	ProjectID  string
}

// Purchase is a persisted, priced slot booking.
type Purchase struct {
	ID              string
	BuyerID         string
	Slot            int
	PropertyID      string
	ProjectID       string
	Days            int
	BaseAmount      float64
	DiscountPercent float64
	FinalAmount     float64
	StartsAt        time.Time
	EndsAt          time.Time
	CreatedAt       time.Time
}

// Quote is the priced breakdown for one selection.
type Quote struct {
	Slot            int
	Days            int
	BaseAmount      float64
	DiscountPercent float64
	FinalAmount     float64
}

// Bill is the priced breakdown for a whole purchase.
type Bill struct {
	Quotes []Quote
	Total  float64
}
