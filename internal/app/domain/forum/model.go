// Package forum defines the discussion board: a category tree scoped by
// geography and property type, with posts and replies.
package forum

import "time"

// Category is a node in the forum tree. City/State scope and PropertyType are
// optional; children inherit their parent's scope when unset.
type Category struct {
	ID           string
	ParentID     string // empty for roots
	Name         string
	Slug         string
	City         string
	State        string
	PropertyType string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Post is a discussion thread in a category.
type Post struct {
	ID         string
	CategoryID string
	AuthorID   string
	Title      string
	Body       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Reply is a message in a thread.
type Reply struct {
	ID        string
	PostID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// CategoryNode is a category with its resolved children, used for tree reads.
type CategoryNode struct {
	Category
	Children []CategoryNode
}
