// Package properties manages individual listings and search.
package properties

import (
	"context"
	"fmt"
	"strings"

	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/storage"
	"github.com/grihome/grihome/pkg/logger"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
	maxImages          = 20
)

// Service manages property listings.
type Service struct {
	store    storage.PropertyStore
	users    storage.UserStore
	projects storage.ProjectStore
	log      *logger.Logger
}

// New constructs a property service. users and projects may be nil to skip
// reference validation.
func New(store storage.PropertyStore, users storage.UserStore, projects storage.ProjectStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("properties")
	}
	return &Service{store: store, users: users, projects: projects, log: log}
}

// Create lists a property for its owner. ProjectID ties the unit to a
// development and is optional.
func (s *Service) Create(ctx context.Context, p property.Property) (property.Property, error) {
	p.OwnerID = strings.TrimSpace(p.OwnerID)
	p.ProjectID = strings.TrimSpace(p.ProjectID)
	p.Title = strings.TrimSpace(p.Title)
	p.City = strings.TrimSpace(p.City)
	p.State = strings.TrimSpace(p.State)

	if p.OwnerID == "" {
		return property.Property{}, fmt.Errorf("owner_id is required")
	}
	if p.Title == "" {
		return property.Property{}, fmt.Errorf("title is required")
	}
	if !project.Type(p.Type).Valid() {
		return property.Property{}, fmt.Errorf("type %s is not supported", p.Type)
	}
	if p.City == "" || p.State == "" {
		return property.Property{}, fmt.Errorf("city and state are required")
	}
	if p.Price <= 0 {
		return property.Property{}, fmt.Errorf("price must be positive")
	}
	if p.SqFt < 0 || p.Bedrooms < 0 || p.Bathrooms < 0 {
		return property.Property{}, fmt.Errorf("sqft, bedrooms and bathrooms cannot be negative")
	}
	if len(p.Images) > maxImages {
		return property.Property{}, fmt.Errorf("at most %d images are allowed", maxImages)
	}

	if s.users != nil {
		if _, err := s.users.GetUser(ctx, p.OwnerID); err != nil {
			return property.Property{}, fmt.Errorf("owner validation failed: %w", err)
		}
	}
	if p.ProjectID != "" && s.projects != nil {
		if _, err := s.projects.GetProject(ctx, p.ProjectID); err != nil {
			return property.Property{}, fmt.Errorf("project validation failed: %w", err)
		}
	}

	p.Status = property.StatusActive
	created, err := s.store.CreateProperty(ctx, p)
	if err != nil {
		return property.Property{}, err
	}
	s.log.WithField("property_id", created.ID).
		WithField("owner_id", created.OwnerID).
		WithField("city", created.City).
		Info("property listed")
	return created, nil
}

// Get returns one listing.
func (s *Service) Get(ctx context.Context, id string) (property.Property, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return property.Property{}, fmt.Errorf("property_id is required")
	}
	return s.store.GetProperty(ctx, id)
}

// List returns listings, optionally filtered by owner or project.
func (s *Service) List(ctx context.Context, ownerID, projectID string) ([]property.Property, error) {
	return s.store.ListProperties(ctx, strings.TrimSpace(ownerID), strings.TrimSpace(projectID))
}

// Search returns active listings matching the filter.
func (s *Service) Search(ctx context.Context, filter property.SearchFilter) ([]property.Property, error) {
	if filter.MinPrice < 0 || filter.MaxPrice < 0 {
		return nil, fmt.Errorf("price bounds cannot be negative")
	}
	if filter.MinPrice > 0 && filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return nil, fmt.Errorf("min_price exceeds max_price")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}
	if filter.Limit > maxSearchLimit {
		filter.Limit = maxSearchLimit
	}
	return s.store.SearchProperties(ctx, filter)
}

// Update edits mutable listing fields; only the owner may edit.
func (s *Service) Update(ctx context.Context, id, callerID string, title, description *string, price *float64, images *[]string) (property.Property, error) {
	p, err := s.store.GetProperty(ctx, strings.TrimSpace(id))
	if err != nil {
		return property.Property{}, err
	}
	if p.OwnerID != strings.TrimSpace(callerID) {
		return property.Property{}, fmt.Errorf("only the owner can edit a listing")
	}

	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return property.Property{}, fmt.Errorf("title cannot be empty")
		}
		p.Title = trimmed
	}
	if description != nil {
		p.Description = strings.TrimSpace(*description)
	}
	if price != nil {
		if *price <= 0 {
			return property.Property{}, fmt.Errorf("price must be positive")
		}
		p.Price = *price
	}
	if images != nil {
		if len(*images) > maxImages {
			return property.Property{}, fmt.Errorf("at most %d images are allowed", maxImages)
		}
		p.Images = *images
	}

	updated, err := s.store.UpdateProperty(ctx, p)
	if err != nil {
		return property.Property{}, err
	}
	s.log.WithField("property_id", updated.ID).Info("property updated")
	return updated, nil
}

// UpdateStatus marks a listing sold or withdrawn; only the owner may do so.
func (s *Service) UpdateStatus(ctx context.Context, id, callerID string, status property.Status) (property.Property, error) {
	switch status {
	case property.StatusActive, property.StatusSold, property.StatusWithdrawn:
	default:
		return property.Property{}, fmt.Errorf("status %s is not supported", status)
	}

	p, err := s.store.GetProperty(ctx, strings.TrimSpace(id))
	if err != nil {
		return property.Property{}, err
	}
	if p.OwnerID != strings.TrimSpace(callerID) {
		return property.Property{}, fmt.Errorf("only the owner can change listing status")
	}
	p.Status = status

	updated, err := s.store.UpdateProperty(ctx, p)
	if err != nil {
		return property.Property{}, err
	}
	s.log.WithField("property_id", updated.ID).WithField("status", string(status)).Info("property status updated")
	return updated, nil
}
