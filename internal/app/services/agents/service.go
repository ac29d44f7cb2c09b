// Package agents manages project-agent registrations, featured property
// listings and their time-boxed promotions.
package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grihome/grihome/internal/app/domain/agent"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage"
	"github.com/grihome/grihome/pkg/logger"
)

const maxPromotionDays = 90

// Service manages agent registrations and promotions.
type Service struct {
	store      storage.AgentStore
	users      storage.UserStore
	projects   storage.ProjectStore
	properties storage.PropertyStore
	log        *logger.Logger
	now        func() time.Time
}

// New constructs an agent service. Reference stores may be nil to skip
// validation.
func New(store storage.AgentStore, users storage.UserStore, projects storage.ProjectStore, properties storage.PropertyStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("agents")
	}
	return &Service{
		store:      store,
		users:      users,
		projects:   projects,
		properties: properties,
		log:        log,
		now:        time.Now,
	}
}

// RegisterProjectAgent ties an agent to a project. A user registers for a
// given project at most once.
func (s *Service) RegisterProjectAgent(ctx context.Context, projectID, userID string) (agent.ProjectAgent, error) {
	projectID = strings.TrimSpace(projectID)
	userID = strings.TrimSpace(userID)
	if projectID == "" || userID == "" {
		return agent.ProjectAgent{}, fmt.Errorf("project_id and user_id are required")
	}

	if s.users != nil {
		u, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return agent.ProjectAgent{}, fmt.Errorf("user validation failed: %w", err)
		}
		if u.Role != user.RoleAgent {
			return agent.ProjectAgent{}, fmt.Errorf("user %s is not an agent", userID)
		}
	}
	if s.projects != nil {
		if _, err := s.projects.GetProject(ctx, projectID); err != nil {
			return agent.ProjectAgent{}, fmt.Errorf("project validation failed: %w", err)
		}
	}
	if _, err := s.store.GetProjectAgentByPair(ctx, projectID, userID); err == nil {
		return agent.ProjectAgent{}, fmt.Errorf("user %s is already an agent for project %s", userID, projectID)
	}

	created, err := s.store.CreateProjectAgent(ctx, agent.ProjectAgent{ProjectID: projectID, UserID: userID})
	if err != nil {
		return agent.ProjectAgent{}, err
	}
	s.log.WithField("project_id", projectID).WithField("user_id", userID).Info("project agent registered")
	return created, nil
}

// ListProjectAgents returns registrations for a project, clearing promotion
// flags whose window has elapsed before returning them.
func (s *Service) ListProjectAgents(ctx context.Context, projectID string) ([]agent.ProjectAgent, error) {
	rows, err := s.store.ListProjectAgents(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i, pa := range rows {
		if pa.Promotion.Expired(now) {
			cleared, err := s.clearProjectAgentPromotion(ctx, pa)
			if err != nil {
				return nil, err
			}
			rows[i] = cleared
		}
	}
	// Promoted agents surface first.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Promotion.EffectivelyPromoted(now) && !rows[j].Promotion.EffectivelyPromoted(now)
	})
	return rows, nil
}

// PromoteProjectAgent turns on the highlight flag for days starting now.
func (s *Service) PromoteProjectAgent(ctx context.Context, id string, days int) (agent.ProjectAgent, error) {
	if days <= 0 || days > maxPromotionDays {
		return agent.ProjectAgent{}, fmt.Errorf("promotion days must be between 1 and %d", maxPromotionDays)
	}
	pa, err := s.store.GetProjectAgent(ctx, strings.TrimSpace(id))
	if err != nil {
		return agent.ProjectAgent{}, err
	}

	now := s.now().UTC()
	pa.Promotion = agent.Promotion{IsPromoted: true, Start: now, End: now.AddDate(0, 0, days)}

	updated, err := s.store.UpdateProjectAgent(ctx, pa)
	if err != nil {
		return agent.ProjectAgent{}, err
	}
	s.log.WithField("project_agent_id", updated.ID).
		WithField("days", days).
		Info("project agent promoted")
	return updated, nil
}

// DemoteProjectAgent clears the highlight flag and its window.
func (s *Service) DemoteProjectAgent(ctx context.Context, id string) (agent.ProjectAgent, error) {
	pa, err := s.store.GetProjectAgent(ctx, strings.TrimSpace(id))
	if err != nil {
		return agent.ProjectAgent{}, err
	}

	updated, err := s.clearProjectAgentPromotion(ctx, pa)
	if err != nil {
		return agent.ProjectAgent{}, err
	}
	s.log.WithField("project_agent_id", updated.ID).Info("project agent demoted")
	return updated, nil
}

// FeatureProperty ties an agent (or the owner) to a property as a featured
// listing.
func (s *Service) FeatureProperty(ctx context.Context, propertyID, userID string) (agent.PropertyListing, error) {
	propertyID = strings.TrimSpace(propertyID)
	userID = strings.TrimSpace(userID)
	if propertyID == "" || userID == "" {
		return agent.PropertyListing{}, fmt.Errorf("property_id and user_id are required")
	}

	if s.users != nil {
		if _, err := s.users.GetUser(ctx, userID); err != nil {
			return agent.PropertyListing{}, fmt.Errorf("user validation failed: %w", err)
		}
	}
	if s.properties != nil {
		if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
			return agent.PropertyListing{}, fmt.Errorf("property validation failed: %w", err)
		}
	}

	created, err := s.store.CreatePropertyListing(ctx, agent.PropertyListing{PropertyID: propertyID, UserID: userID})
	if err != nil {
		return agent.PropertyListing{}, err
	}
	s.log.WithField("property_id", propertyID).WithField("user_id", userID).Info("property featured")
	return created, nil
}

// ListPropertyListings returns featured rows for a property, clearing elapsed
// promotions on the way out.
func (s *Service) ListPropertyListings(ctx context.Context, propertyID string) ([]agent.PropertyListing, error) {
	rows, err := s.store.ListPropertyListings(ctx, strings.TrimSpace(propertyID))
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i, pl := range rows {
		if pl.Promotion.Expired(now) {
			cleared, err := s.clearPropertyListingPromotion(ctx, pl)
			if err != nil {
				return nil, err
			}
			rows[i] = cleared
		}
	}
	// Promoted listings surface first.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Promotion.EffectivelyPromoted(now) && !rows[j].Promotion.EffectivelyPromoted(now)
	})
	return rows, nil
}

// PromotePropertyListing turns on the highlight flag for days starting now.
func (s *Service) PromotePropertyListing(ctx context.Context, id string, days int) (agent.PropertyListing, error) {
	if days <= 0 || days > maxPromotionDays {
		return agent.PropertyListing{}, fmt.Errorf("promotion days must be between 1 and %d", maxPromotionDays)
	}
	pl, err := s.store.GetPropertyListing(ctx, strings.TrimSpace(id))
	if err != nil {
		return agent.PropertyListing{}, err
	}

	now := s.now().UTC()
	pl.Promotion = agent.Promotion{IsPromoted: true, Start: now, End: now.AddDate(0, 0, days)}

	updated, err := s.store.UpdatePropertyListing(ctx, pl)
	if err != nil {
		return agent.PropertyListing{}, err
	}
	s.log.WithField("property_listing_id", updated.ID).
		WithField("days", days).
		Info("property listing promoted")
	return updated, nil
}

// DemotePropertyListing clears the highlight flag and its window.
func (s *Service) DemotePropertyListing(ctx context.Context, id string) (agent.PropertyListing, error) {
	pl, err := s.store.GetPropertyListing(ctx, strings.TrimSpace(id))
	if err != nil {
		return agent.PropertyListing{}, err
	}

	updated, err := s.clearPropertyListingPromotion(ctx, pl)
	if err != nil {
		return agent.PropertyListing{}, err
	}
	s.log.WithField("property_listing_id", updated.ID).Info("property listing demoted")
	return updated, nil
}

// SweepExpiredPromotions clears every promotion whose window has elapsed and
// returns the number of rows touched.
func (s *Service) SweepExpiredPromotions(ctx context.Context) (int, error) {
	cleared := 0

	agents, err := s.store.ListExpiredProjectAgents(ctx)
	if err != nil {
		return cleared, err
	}
	for _, pa := range agents {
		if _, err := s.clearProjectAgentPromotion(ctx, pa); err != nil {
			return cleared, err
		}
		cleared++
	}

	listings, err := s.store.ListExpiredPropertyListings(ctx)
	if err != nil {
		return cleared, err
	}
	for _, pl := range listings {
		if _, err := s.clearPropertyListingPromotion(ctx, pl); err != nil {
			return cleared, err
		}
		cleared++
	}

	if cleared > 0 {
		s.log.WithField("cleared", cleared).Info("expired promotions swept")
	}
	return cleared, nil
}

func (s *Service) clearProjectAgentPromotion(ctx context.Context, pa agent.ProjectAgent) (agent.ProjectAgent, error) {
	pa.Promotion = agent.Promotion{}
	return s.store.UpdateProjectAgent(ctx, pa)
}

func (s *Service) clearPropertyListingPromotion(ctx context.Context, pl agent.PropertyListing) (agent.PropertyListing, error) {
	pl.Promotion = agent.Promotion{}
	return s.store.UpdatePropertyListing(ctx, pl)
}
