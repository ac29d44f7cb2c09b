// Package forum manages the scoped discussion board.
package forum

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/grihome/grihome/internal/app/domain/forum"
	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/storage"
	"github.com/grihome/grihome/pkg/logger"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const (
	maxTitleLen = 200
	maxBodyLen  = 20000
)

// Service manages categories, posts and replies.
type Service struct {
	store storage.ForumStore
	users storage.UserStore
	hub   *Hub
	log   *logger.Logger
}

// New constructs a forum service. users may be nil to skip author
// validation; hub may be nil to disable live reply fanout.
func New(store storage.ForumStore, users storage.UserStore, hub *Hub, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("forum")
	}
	return &Service{store: store, users: users, hub: hub, log: log}
}

// CreateCategory adds a node to the category tree. Scope fields left empty
// are inherited from the parent at read time.
func (s *Service) CreateCategory(ctx context.Context, parentID, name, slug, city, state, propertyType string) (forum.Category, error) {
	parentID = strings.TrimSpace(parentID)
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))

	if name == "" {
		return forum.Category{}, fmt.Errorf("category name is required")
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugRe.MatchString(slug) {
		return forum.Category{}, fmt.Errorf("slug must be lowercase letters, digits and hyphens")
	}
	if propertyType != "" && !project.Type(propertyType).Valid() {
		return forum.Category{}, fmt.Errorf("property_type %s is not supported", propertyType)
	}
	if parentID != "" {
		if _, err := s.store.GetCategory(ctx, parentID); err != nil {
			return forum.Category{}, fmt.Errorf("parent validation failed: %w", err)
		}
	}

	created, err := s.store.CreateCategory(ctx, forum.Category{
		ParentID:     parentID,
		Name:         name,
		Slug:         slug,
		City:         strings.TrimSpace(city),
		State:        strings.TrimSpace(state),
		PropertyType: strings.TrimSpace(propertyType),
	})
	if err != nil {
		return forum.Category{}, err
	}
	s.log.WithField("category_id", created.ID).WithField("slug", slug).Info("forum category created")
	return created, nil
}

// GetCategoryBySlug returns one category.
func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (forum.Category, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return forum.Category{}, fmt.Errorf("slug is required")
	}
	return s.store.GetCategoryBySlug(ctx, slug)
}

// CategoryTree returns the full tree with children attached and empty scope
// fields filled from ancestors.
func (s *Service) CategoryTree(ctx context.Context) ([]forum.CategoryNode, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	children := map[string][]forum.Category{}
	for _, c := range categories {
		children[c.ParentID] = append(children[c.ParentID], c)
	}

	var build func(parent forum.Category, nodes []forum.Category) []forum.CategoryNode
	build = func(parent forum.Category, nodes []forum.Category) []forum.CategoryNode {
		out := make([]forum.CategoryNode, 0, len(nodes))
		for _, c := range nodes {
			if c.City == "" {
				c.City = parent.City
			}
			if c.State == "" {
				c.State = parent.State
			}
			if c.PropertyType == "" {
				c.PropertyType = parent.PropertyType
			}
			out = append(out, forum.CategoryNode{
				Category: c,
				Children: build(c, children[c.ID]),
			})
		}
		return out
	}
	return build(forum.Category{}, children[""]), nil
}

// CreatePost starts a thread in a category.
func (s *Service) CreatePost(ctx context.Context, categoryID, authorID, title, body string) (forum.Post, error) {
	categoryID = strings.TrimSpace(categoryID)
	authorID = strings.TrimSpace(authorID)
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	if categoryID == "" || authorID == "" {
		return forum.Post{}, fmt.Errorf("category_id and author_id are required")
	}
	if title == "" || len(title) > maxTitleLen {
		return forum.Post{}, fmt.Errorf("title must be 1-%d characters", maxTitleLen)
	}
	if body == "" || len(body) > maxBodyLen {
		return forum.Post{}, fmt.Errorf("body must be 1-%d characters", maxBodyLen)
	}
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return forum.Post{}, fmt.Errorf("category validation failed: %w", err)
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, authorID); err != nil {
			return forum.Post{}, fmt.Errorf("author validation failed: %w", err)
		}
	}

	created, err := s.store.CreatePost(ctx, forum.Post{
		CategoryID: categoryID,
		AuthorID:   authorID,
		Title:      title,
		Body:       body,
	})
	if err != nil {
		return forum.Post{}, err
	}
	s.log.WithField("post_id", created.ID).WithField("category_id", categoryID).Info("forum post created")
	return created, nil
}

// GetPost returns one thread.
func (s *Service) GetPost(ctx context.Context, id string) (forum.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return forum.Post{}, fmt.Errorf("post_id is required")
	}
	return s.store.GetPost(ctx, id)
}

// ListPosts returns threads, optionally filtered by category.
func (s *Service) ListPosts(ctx context.Context, categoryID string) ([]forum.Post, error) {
	return s.store.ListPosts(ctx, strings.TrimSpace(categoryID))
}

// CreateReply appends a message to a thread and fans it out to live
// subscribers.
func (s *Service) CreateReply(ctx context.Context, postID, authorID, body string) (forum.Reply, error) {
	postID = strings.TrimSpace(postID)
	authorID = strings.TrimSpace(authorID)
	body = strings.TrimSpace(body)

	if postID == "" || authorID == "" {
		return forum.Reply{}, fmt.Errorf("post_id and author_id are required")
	}
	if body == "" || len(body) > maxBodyLen {
		return forum.Reply{}, fmt.Errorf("body must be 1-%d characters", maxBodyLen)
	}
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return forum.Reply{}, fmt.Errorf("post validation failed: %w", err)
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, authorID); err != nil {
			return forum.Reply{}, fmt.Errorf("author validation failed: %w", err)
		}
	}

	created, err := s.store.CreateReply(ctx, forum.Reply{
		PostID:   postID,
		AuthorID: authorID,
		Body:     body,
	})
	if err != nil {
		return forum.Reply{}, err
	}
	if s.hub != nil {
		s.hub.Broadcast(created)
	}
	s.log.WithField("reply_id", created.ID).WithField("post_id", postID).Info("forum reply created")
	return created, nil
}

// ListReplies returns a thread's messages oldest first.
func (s *Service) ListReplies(ctx context.Context, postID string) ([]forum.Reply, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, fmt.Errorf("post_id is required")
	}
	return s.store.ListReplies(ctx, postID)
}

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
