package storage

import (
	"context"

	"github.com/grihome/grihome/internal/app/domain/ad"
	"github.com/grihome/grihome/internal/app/domain/agent"
	"github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/forum"
	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/domain/user"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// ProjectStore persists builders and projects.
type ProjectStore interface {
	CreateBuilder(ctx context.Context, b project.Builder) (project.Builder, error)
	UpdateBuilder(ctx context.Context, b project.Builder) (project.Builder, error)
	GetBuilder(ctx context.Context, id string) (project.Builder, error)
	ListBuilders(ctx context.Context) ([]project.Builder, error)

	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	UpdateProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
	ListProjects(ctx context.Context, builderID, city string) ([]project.Project, error)
}

// PropertyStore persists property listings.
type PropertyStore interface {
	CreateProperty(ctx context.Context, p property.Property) (property.Property, error)
	UpdateProperty(ctx context.Context, p property.Property) (property.Property, error)
	GetProperty(ctx context.Context, id string) (property.Property, error)
	ListProperties(ctx context.Context, ownerID, projectID string) ([]property.Property, error)
	SearchProperties(ctx context.Context, filter property.SearchFilter) ([]property.Property, error)
}

// AgentStore persists project-agent registrations and property listings.
type AgentStore interface {
	CreateProjectAgent(ctx context.Context, pa agent.ProjectAgent) (agent.ProjectAgent, error)
	UpdateProjectAgent(ctx context.Context, pa agent.ProjectAgent) (agent.ProjectAgent, error)
	GetProjectAgent(ctx context.Context, id string) (agent.ProjectAgent, error)
	GetProjectAgentByPair(ctx context.Context, projectID, userID string) (agent.ProjectAgent, error)
	ListProjectAgents(ctx context.Context, projectID string) ([]agent.ProjectAgent, error)
	ListExpiredProjectAgents(ctx context.Context) ([]agent.ProjectAgent, error)

	CreatePropertyListing(ctx context.Context, pl agent.PropertyListing) (agent.PropertyListing, error)
	UpdatePropertyListing(ctx context.Context, pl agent.PropertyListing) (agent.PropertyListing, error)
	GetPropertyListing(ctx context.Context, id string) (agent.PropertyListing, error)
	ListPropertyListings(ctx context.Context, propertyID string) ([]agent.PropertyListing, error)
	ListExpiredPropertyListings(ctx context.Context) ([]agent.PropertyListing, error)
}

// ForumStore persists the category tree, posts and replies.
type ForumStore interface {
	CreateCategory(ctx context.Context, c forum.Category) (forum.Category, error)
	GetCategory(ctx context.Context, id string) (forum.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (forum.Category, error)
	ListCategories(ctx context.Context) ([]forum.Category, error)

	CreatePost(ctx context.Context, p forum.Post) (forum.Post, error)
	GetPost(ctx context.Context, id string) (forum.Post, error)
	ListPosts(ctx context.Context, categoryID string) ([]forum.Post, error)

	CreateReply(ctx context.Context, r forum.Reply) (forum.Reply, error)
	ListReplies(ctx context.Context, postID string) ([]forum.Reply, error)
}

// AdStore persists slot configs and purchases.
type AdStore interface {
	UpsertSlotConfig(ctx context.Context, sc ad.SlotConfig) (ad.SlotConfig, error)
	GetSlotConfig(ctx context.Context, slot int) (ad.SlotConfig, error)
	ListSlotConfigs(ctx context.Context) ([]ad.SlotConfig, error)

	// CreatePurchases persists all rows of one bill atomically.
	CreatePurchases(ctx context.Context, purchases []ad.Purchase) ([]ad.Purchase, error)
	ListPurchases(ctx context.Context, buyerID string) ([]ad.Purchase, error)
	ListActivePurchases(ctx context.Context) ([]ad.Purchase, error)
}

// SessionStore persists issued token sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s auth.Session) (auth.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (auth.Session, error)
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)
}
