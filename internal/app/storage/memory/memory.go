package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grihome/grihome/internal/app/domain/ad"
	"github.com/grihome/grihome/internal/app/domain/agent"
	"github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/forum"
	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users            map[string]user.User
	builders         map[string]project.Builder
	projects         map[string]project.Project
	properties       map[string]property.Property
	projectAgents    map[string]agent.ProjectAgent
	propertyListings map[string]agent.PropertyListing
	categories       map[string]forum.Category
	posts            map[string]forum.Post
	replies          map[string][]forum.Reply
	slotConfigs      map[int]ad.SlotConfig
	purchases        map[string]ad.Purchase
	sessions         map[string]auth.Session
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ProjectStore = (*Store)(nil)
var _ storage.PropertyStore = (*Store)(nil)
var _ storage.AgentStore = (*Store)(nil)
var _ storage.ForumStore = (*Store)(nil)
var _ storage.AdStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:           1,
		users:            make(map[string]user.User),
		builders:         make(map[string]project.Builder),
		projects:         make(map[string]project.Project),
		properties:       make(map[string]property.Property),
		projectAgents:    make(map[string]agent.ProjectAgent),
		propertyListings: make(map[string]agent.PropertyListing),
		categories:       make(map[string]forum.Category),
		posts:            make(map[string]forum.Post),
		replies:          make(map[string][]forum.Reply),
		slotConfigs:      make(map[int]ad.SlotConfig),
		purchases:        make(map[string]ad.Purchase),
		sessions:         make(map[string]auth.Session),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("email %s already registered", u.Email)
		}
		if strings.EqualFold(existing.Username, u.Username) {
			return user.User{}, fmt.Errorf("username %s already taken", u.Username)
		}
	}

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", u.ID)
	}
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user with email %s not found", email)
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user %s not found", username)
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sortByCreated(result, func(u user.User) time.Time { return u.CreatedAt })
	return result, nil
}

// ProjectStore implementation -------------------------------------------------

func (s *Store) CreateBuilder(_ context.Context, b project.Builder) (project.Builder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = s.nextIDLocked()
	} else if _, exists := s.builders[b.ID]; exists {
		return project.Builder{}, fmt.Errorf("builder %s already exists", b.ID)
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.builders[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBuilder(_ context.Context, b project.Builder) (project.Builder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.builders[b.ID]
	if !ok {
		return project.Builder{}, fmt.Errorf("builder %s not found", b.ID)
	}
	b.CreatedAt = original.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	s.builders[b.ID] = b
	return b, nil
}

func (s *Store) GetBuilder(_ context.Context, id string) (project.Builder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.builders[id]
	if !ok {
		return project.Builder{}, fmt.Errorf("builder %s not found", id)
	}
	return b, nil
}

func (s *Store) ListBuilders(_ context.Context) ([]project.Builder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]project.Builder, 0, len(s.builders))
	for _, b := range s.builders {
		result = append(result, b)
	}
	sortByCreated(result, func(b project.Builder) time.Time { return b.CreatedAt })
	return result, nil
}

func (s *Store) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.projects[p.ID]; exists {
		return project.Project{}, fmt.Errorf("project %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProject(_ context.Context, p project.Project) (project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.projects[p.ID]
	if !ok {
		return project.Project{}, fmt.Errorf("project %s not found", p.ID)
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) GetProject(_ context.Context, id string) (project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return project.Project{}, fmt.Errorf("project %s not found", id)
	}
	return p, nil
}

func (s *Store) ListProjects(_ context.Context, builderID, city string) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []project.Project
	for _, p := range s.projects {
		if builderID != "" && p.BuilderID != builderID {
			continue
		}
		if city != "" && !strings.EqualFold(p.Location.City, city) {
			continue
		}
		result = append(result, p)
	}
	sortByCreated(result, func(p project.Project) time.Time { return p.CreatedAt })
	return result, nil
}

// PropertyStore implementation ------------------------------------------------

func (s *Store) CreateProperty(_ context.Context, p property.Property) (property.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.properties[p.ID]; exists {
		return property.Property{}, fmt.Errorf("property %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Images = append([]string(nil), p.Images...)
	s.properties[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProperty(_ context.Context, p property.Property) (property.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.properties[p.ID]
	if !ok {
		return property.Property{}, fmt.Errorf("property %s not found", p.ID)
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Images = append([]string(nil), p.Images...)
	s.properties[p.ID] = p
	return p, nil
}

func (s *Store) GetProperty(_ context.Context, id string) (property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[id]
	if !ok {
		return property.Property{}, fmt.Errorf("property %s not found", id)
	}
	return p, nil
}

func (s *Store) ListProperties(_ context.Context, ownerID, projectID string) ([]property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []property.Property
	for _, p := range s.properties {
		if ownerID != "" && p.OwnerID != ownerID {
			continue
		}
		if projectID != "" && p.ProjectID != projectID {
			continue
		}
		result = append(result, p)
	}
	sortByCreated(result, func(p property.Property) time.Time { return p.CreatedAt })
	return result, nil
}

func (s *Store) SearchProperties(_ context.Context, filter property.SearchFilter) ([]property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []property.Property
	for _, p := range s.properties {
		if p.Status != property.StatusActive {
			continue
		}
		if filter.City != "" && !strings.EqualFold(p.City, filter.City) {
			continue
		}
		if filter.Type != "" && !strings.EqualFold(p.Type, filter.Type) {
			continue
		}
		if filter.MinPrice > 0 && p.Price < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && p.Price > filter.MaxPrice {
			continue
		}
		if filter.Bedrooms > 0 && p.Bedrooms < filter.Bedrooms {
			continue
		}
		result = append(result, p)
	}
	sortByCreated(result, func(p property.Property) time.Time { return p.CreatedAt })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// AgentStore implementation ---------------------------------------------------

func (s *Store) CreateProjectAgent(_ context.Context, pa agent.ProjectAgent) (agent.ProjectAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.projectAgents {
		if existing.ProjectID == pa.ProjectID && existing.UserID == pa.UserID {
			return agent.ProjectAgent{}, fmt.Errorf("user %s already registered for project %s", pa.UserID, pa.ProjectID)
		}
	}

	if pa.ID == "" {
		pa.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	pa.CreatedAt = now
	pa.UpdatedAt = now
	s.projectAgents[pa.ID] = pa
	return pa, nil
}

func (s *Store) UpdateProjectAgent(_ context.Context, pa agent.ProjectAgent) (agent.ProjectAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.projectAgents[pa.ID]
	if !ok {
		return agent.ProjectAgent{}, fmt.Errorf("project agent %s not found", pa.ID)
	}
	pa.ProjectID = original.ProjectID
	pa.UserID = original.UserID
	pa.CreatedAt = original.CreatedAt
	pa.UpdatedAt = time.Now().UTC()
	s.projectAgents[pa.ID] = pa
	return pa, nil
}

func (s *Store) GetProjectAgent(_ context.Context, id string) (agent.ProjectAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pa, ok := s.projectAgents[id]
	if !ok {
		return agent.ProjectAgent{}, fmt.Errorf("project agent %s not found", id)
	}
	return pa, nil
}

func (s *Store) GetProjectAgentByPair(_ context.Context, projectID, userID string) (agent.ProjectAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pa := range s.projectAgents {
		if pa.ProjectID == projectID && pa.UserID == userID {
			return pa, nil
		}
	}
	return agent.ProjectAgent{}, fmt.Errorf("registration for project %s not found", projectID)
}

func (s *Store) ListProjectAgents(_ context.Context, projectID string) ([]agent.ProjectAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []agent.ProjectAgent
	for _, pa := range s.projectAgents {
		if projectID != "" && pa.ProjectID != projectID {
			continue
		}
		result = append(result, pa)
	}
	sortByCreated(result, func(pa agent.ProjectAgent) time.Time { return pa.CreatedAt })
	return result, nil
}

func (s *Store) ListExpiredProjectAgents(_ context.Context) ([]agent.ProjectAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	var result []agent.ProjectAgent
	for _, pa := range s.projectAgents {
		if pa.Promotion.Expired(now) {
			result = append(result, pa)
		}
	}
	sortByCreated(result, func(pa agent.ProjectAgent) time.Time { return pa.CreatedAt })
	return result, nil
}

func (s *Store) CreatePropertyListing(_ context.Context, pl agent.PropertyListing) (agent.PropertyListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.propertyListings {
		if existing.PropertyID == pl.PropertyID && existing.UserID == pl.UserID {
			return agent.PropertyListing{}, fmt.Errorf("user %s already lists property %s", pl.UserID, pl.PropertyID)
		}
	}

	if pl.ID == "" {
		pl.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	pl.CreatedAt = now
	pl.UpdatedAt = now
	s.propertyListings[pl.ID] = pl
	return pl, nil
}

func (s *Store) UpdatePropertyListing(_ context.Context, pl agent.PropertyListing) (agent.PropertyListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.propertyListings[pl.ID]
	if !ok {
		return agent.PropertyListing{}, fmt.Errorf("property listing %s not found", pl.ID)
	}
	pl.PropertyID = original.PropertyID
	pl.UserID = original.UserID
	pl.CreatedAt = original.CreatedAt
	pl.UpdatedAt = time.Now().UTC()
	s.propertyListings[pl.ID] = pl
	return pl, nil
}

func (s *Store) GetPropertyListing(_ context.Context, id string) (agent.PropertyListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pl, ok := s.propertyListings[id]
	if !ok {
		return agent.PropertyListing{}, fmt.Errorf("property listing %s not found", id)
	}
	return pl, nil
}

func (s *Store) ListPropertyListings(_ context.Context, propertyID string) ([]agent.PropertyListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []agent.PropertyListing
	for _, pl := range s.propertyListings {
		if propertyID != "" && pl.PropertyID != propertyID {
			continue
		}
		result = append(result, pl)
	}
	sortByCreated(result, func(pl agent.PropertyListing) time.Time { return pl.CreatedAt })
	return result, nil
}

func (s *Store) ListExpiredPropertyListings(_ context.Context) ([]agent.PropertyListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	var result []agent.PropertyListing
	for _, pl := range s.propertyListings {
		if pl.Promotion.Expired(now) {
			result = append(result, pl)
		}
	}
	sortByCreated(result, func(pl agent.PropertyListing) time.Time { return pl.CreatedAt })
	return result, nil
}

// ForumStore implementation ---------------------------------------------------

func (s *Store) CreateCategory(_ context.Context, c forum.Category) (forum.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Slug, c.Slug) {
			return forum.Category{}, fmt.Errorf("category slug %s already exists", c.Slug)
		}
	}
	if c.ParentID != "" {
		if _, ok := s.categories[c.ParentID]; !ok {
			return forum.Category{}, fmt.Errorf("parent category %s not found", c.ParentID)
		}
	}

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (forum.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return forum.Category{}, fmt.Errorf("category %s not found", id)
	}
	return c, nil
}

func (s *Store) GetCategoryBySlug(_ context.Context, slug string) (forum.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if strings.EqualFold(c.Slug, slug) {
			return c, nil
		}
	}
	return forum.Category{}, fmt.Errorf("category %s not found", slug)
}

func (s *Store) ListCategories(_ context.Context) ([]forum.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]forum.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, c)
	}
	sortByCreated(result, func(c forum.Category) time.Time { return c.CreatedAt })
	return result, nil
}

func (s *Store) CreatePost(_ context.Context, p forum.Post) (forum.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[p.CategoryID]; !ok {
		return forum.Post{}, fmt.Errorf("category %s not found", p.CategoryID)
	}

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.posts[p.ID] = p
	return p, nil
}

func (s *Store) GetPost(_ context.Context, id string) (forum.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return forum.Post{}, fmt.Errorf("post %s not found", id)
	}
	return p, nil
}

func (s *Store) ListPosts(_ context.Context, categoryID string) ([]forum.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []forum.Post
	for _, p := range s.posts {
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		result = append(result, p)
	}
	sortByCreated(result, func(p forum.Post) time.Time { return p.CreatedAt })
	return result, nil
}

func (s *Store) CreateReply(_ context.Context, r forum.Reply) (forum.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[r.PostID]; !ok {
		return forum.Reply{}, fmt.Errorf("post %s not found", r.PostID)
	}

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	r.CreatedAt = time.Now().UTC()
	s.replies[r.PostID] = append(s.replies[r.PostID], r)
	return r, nil
}

func (s *Store) ListReplies(_ context.Context, postID string) ([]forum.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]forum.Reply, len(s.replies[postID]))
	copy(result, s.replies[postID])
	return result, nil
}

// AdStore implementation ------------------------------------------------------

func (s *Store) UpsertSlotConfig(_ context.Context, sc ad.SlotConfig) (ad.SlotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.slotConfigs[sc.Slot]; ok {
		sc.ID = existing.ID
		sc.CreatedAt = existing.CreatedAt
	} else {
		if sc.ID == "" {
			sc.ID = s.nextIDLocked()
		}
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now
	s.slotConfigs[sc.Slot] = sc
	return sc, nil
}

func (s *Store) GetSlotConfig(_ context.Context, slot int) (ad.SlotConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.slotConfigs[slot]
	if !ok {
		return ad.SlotConfig{}, fmt.Errorf("slot %d not configured", slot)
	}
	return sc, nil
}

func (s *Store) ListSlotConfigs(_ context.Context) ([]ad.SlotConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ad.SlotConfig, 0, len(s.slotConfigs))
	for _, sc := range s.slotConfigs {
		result = append(result, sc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot < result[j].Slot })
	return result, nil
}

func (s *Store) CreatePurchases(_ context.Context, purchases []ad.Purchase) ([]ad.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	created := make([]ad.Purchase, 0, len(purchases))
	for _, p := range purchases {
		if p.ID == "" {
			p.ID = s.nextIDLocked()
		}
		p.CreatedAt = now
		created = append(created, p)
	}
	// All rows validated before any map write so the batch stays atomic.
	for _, p := range created {
		s.purchases[p.ID] = p
	}
	return created, nil
}

func (s *Store) ListPurchases(_ context.Context, buyerID string) ([]ad.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ad.Purchase
	for _, p := range s.purchases {
		if buyerID != "" && p.BuyerID != buyerID {
			continue
		}
		result = append(result, p)
	}
	sortByCreated(result, func(p ad.Purchase) time.Time { return p.CreatedAt })
	return result, nil
}

func (s *Store) ListActivePurchases(_ context.Context) ([]ad.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	var result []ad.Purchase
	for _, p := range s.purchases {
		if p.StartsAt.After(now) || p.EndsAt.Before(now) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot < result[j].Slot })
	return result, nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess auth.Session) (auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.LastSeenAt = now
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, tokenHash string) (auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			if sess.ExpiresAt.Before(time.Now().UTC()) {
				// The SQL store's lookup filters expired rows, so an
				// expired session is indistinguishable from a missing one.
				return auth.Session{}, sql.ErrNoRows
			}
			return sess, nil
		}
	}
	return auth.Session{}, sql.ErrNoRows
}

func (s *Store) TouchSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	sess.LastSeenAt = time.Now().UTC()
	s.sessions[id] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s not found", id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	removed := 0
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func sortByCreated[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).Before(createdAt(items[j]))
	})
}
