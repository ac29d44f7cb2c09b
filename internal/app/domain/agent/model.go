// Package agent defines the join rows that tie users to projects and
// properties, each carrying a time-boxed promotion flag.
package agent

import "time"

// Promotion is the shared time-boxed highlight window. The flag is only
// meaningful while now is inside [Start, End); readers treat an elapsed
// window as not promoted.
type Promotion struct {
	IsPromoted bool
	Start      time.Time
	End        time.Time
}

// Expired reports whether the promotion window has elapsed at now.
func (p Promotion) Expired(now time.Time) bool {
	return p.IsPromoted && !p.End.IsZero() && p.End.Before(now)
}

// EffectivelyPromoted reports whether the row should surface as promoted at now.
func (p Promotion) EffectivelyPromoted(now time.Time) bool {
	return p.IsPromoted && !p.Expired(now)
}

// ProjectAgent registers a user as an agent for a project.
type ProjectAgent struct {
	ID        string
	ProjectID string
	UserID    string
	Promotion Promotion
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PropertyListing features a property with the same promotion shape.
type PropertyListing struct {
	ID         string
	PropertyID string
	UserID     string
	Promotion  Promotion
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
