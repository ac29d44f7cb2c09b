// Package projects manages builders and their developments.
package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/storage"
	"github.com/grihome/grihome/internal/geocode"
	"github.com/grihome/grihome/pkg/logger"
)

// Geocoder resolves an address to coordinates. Lookups are best-effort; a
// failure never blocks a write.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (geocode.Result, error)
}

// Service manages builders and projects.
type Service struct {
	store    storage.ProjectStore
	geocoder Geocoder
	log      *logger.Logger
}

// New constructs a project service. geocoder may be nil.
func New(store storage.ProjectStore, geocoder Geocoder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("projects")
	}
	return &Service{store: store, geocoder: geocoder, log: log}
}

// CreateBuilder registers a developer.
func (s *Service) CreateBuilder(ctx context.Context, name, description, website string) (project.Builder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return project.Builder{}, fmt.Errorf("builder name is required")
	}

	created, err := s.store.CreateBuilder(ctx, project.Builder{
		Name:        name,
		Description: strings.TrimSpace(description),
		Website:     strings.TrimSpace(website),
	})
	if err != nil {
		return project.Builder{}, err
	}
	s.log.WithField("builder_id", created.ID).WithField("name", created.Name).Info("builder created")
	return created, nil
}

// GetBuilder returns one developer.
func (s *Service) GetBuilder(ctx context.Context, id string) (project.Builder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return project.Builder{}, fmt.Errorf("builder_id is required")
	}
	return s.store.GetBuilder(ctx, id)
}

// ListBuilders returns all developers.
func (s *Service) ListBuilders(ctx context.Context) ([]project.Builder, error) {
	return s.store.ListBuilders(ctx)
}

// Create registers a development under a builder. When the location lacks
// coordinates and a geocoder is configured, it fills them from the address.
func (s *Service) Create(ctx context.Context, builderID, name, description string, typ project.Type, status project.Status, loc project.Location) (project.Project, error) {
	builderID = strings.TrimSpace(builderID)
	name = strings.TrimSpace(name)

	if builderID == "" {
		return project.Project{}, fmt.Errorf("builder_id is required")
	}
	if name == "" {
		return project.Project{}, fmt.Errorf("project name is required")
	}
	if !typ.Valid() {
		return project.Project{}, fmt.Errorf("type %s is not supported", typ)
	}
	if status == "" {
		status = project.StatusUpcoming
	}
	loc.City = strings.TrimSpace(loc.City)
	loc.State = strings.TrimSpace(loc.State)
	if loc.City == "" || loc.State == "" {
		return project.Project{}, fmt.Errorf("city and state are required")
	}

	if _, err := s.store.GetBuilder(ctx, builderID); err != nil {
		return project.Project{}, fmt.Errorf("builder validation failed: %w", err)
	}

	s.fillCoordinates(ctx, &loc)

	created, err := s.store.CreateProject(ctx, project.Project{
		BuilderID:   builderID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Type:        typ,
		Status:      status,
		Location:    loc,
	})
	if err != nil {
		return project.Project{}, err
	}
	s.log.WithField("project_id", created.ID).
		WithField("builder_id", builderID).
		WithField("city", loc.City).
		Info("project created")
	return created, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id string) (project.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return project.Project{}, fmt.Errorf("project_id is required")
	}
	return s.store.GetProject(ctx, id)
}

// List returns projects, optionally filtered by builder and city.
func (s *Service) List(ctx context.Context, builderID, city string) ([]project.Project, error) {
	return s.store.ListProjects(ctx, strings.TrimSpace(builderID), strings.TrimSpace(city))
}

// UpdateStatus moves a project through its sales lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, status project.Status) (project.Project, error) {
	switch status {
	case project.StatusUpcoming, project.StatusUnderConstr, project.StatusReadyToMove, project.StatusSoldOut:
	default:
		return project.Project{}, fmt.Errorf("status %s is not supported", status)
	}

	p, err := s.store.GetProject(ctx, strings.TrimSpace(id))
	if err != nil {
		return project.Project{}, err
	}
	p.Status = status

	updated, err := s.store.UpdateProject(ctx, p)
	if err != nil {
		return project.Project{}, err
	}
	s.log.WithField("project_id", updated.ID).WithField("status", string(status)).Info("project status updated")
	return updated, nil
}

func (s *Service) fillCoordinates(ctx context.Context, loc *project.Location) {
	if s.geocoder == nil || loc.Lat != 0 || loc.Lng != 0 {
		return
	}
	parts := []string{loc.Locality, loc.City, loc.State}
	address := strings.Join(nonEmpty(parts), ", ")

	result, err := s.geocoder.Lookup(ctx, address)
	if err != nil {
		s.log.WithError(err).WithField("address", address).Warn("geocode lookup failed")
		return
	}
	loc.Lat = result.Lat
	loc.Lng = result.Lng
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
