package forum

import (
	"context"
	"strings"
	"testing"

	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage/memory"
)

func setup(t *testing.T) (*Service, *memory.Store, user.User) {
	t.Helper()
	store := memory.New()
	author, err := store.CreateUser(context.Background(), user.User{
		Email: "poster@example.com", Username: "poster1", Role: user.RoleBuyer,
	})
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	return New(store, store, nil, nil), store, author
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	svc, _, _ := setup(t)

	created, err := svc.CreateCategory(context.Background(), "", "Hyderabad Apartments", "", "Hyderabad", "Telangana", "APARTMENT")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Slug != "hyderabad-apartments" {
		t.Fatalf("slug = %s", created.Slug)
	}
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, "", "", "", "", "", ""); err == nil {
		t.Error("expected error for blank name")
	}
	if _, err := svc.CreateCategory(ctx, "", "X", "Bad Slug!", "", "", ""); err == nil {
		t.Error("expected error for invalid slug")
	}
	if _, err := svc.CreateCategory(ctx, "", "X", "x", "", "", "TREEHOUSE"); err == nil {
		t.Error("expected error for unknown property type")
	}
	if _, err := svc.CreateCategory(ctx, "missing-parent", "X", "x2", "", "", ""); err == nil {
		t.Error("expected error for unknown parent")
	}
}

func TestCategoryTreeInheritsScope(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, "", "Hyderabad", "hyderabad", "Hyderabad", "Telangana", "")
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	child, err := svc.CreateCategory(ctx, root.ID, "Villas", "hyderabad-villas", "", "", "VILLA")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, child.ID, "Gated", "hyderabad-villas-gated", "", "", ""); err != nil {
		t.Fatalf("create grandchild: %v", err)
	}

	tree, err := svc.CategoryTree(ctx)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree shape: %+v", tree)
	}

	villas := tree[0].Children[0]
	if villas.City != "Hyderabad" || villas.State != "Telangana" {
		t.Fatalf("child should inherit scope: %+v", villas.Category)
	}
	gated := villas.Children[0]
	if gated.City != "Hyderabad" || gated.PropertyType != "VILLA" {
		t.Fatalf("grandchild should inherit through the chain: %+v", gated.Category)
	}
}

func TestPostsAndReplies(t *testing.T) {
	svc, _, author := setup(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, "", "General", "general", "", "", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	post, err := svc.CreatePost(ctx, cat.ID, author.ID, "Which locality?", "Comparing Kondapur and Gachibowli.")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if _, err := svc.CreateReply(ctx, post.ID, author.ID, "Kondapur has better connectivity."); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if _, err := svc.CreateReply(ctx, post.ID, author.ID, "Gachibowli if you work in the financial district."); err != nil {
		t.Fatalf("create reply: %v", err)
	}

	replies, err := svc.ListReplies(ctx, post.ID)
	if err != nil {
		t.Fatalf("list replies: %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(replies))
	}
	if !strings.Contains(replies[0].Body, "Kondapur") {
		t.Fatalf("replies should be oldest first: %+v", replies)
	}
}

func TestCreatePostValidation(t *testing.T) {
	svc, _, author := setup(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, "", "General", "general", "", "", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if _, err := svc.CreatePost(ctx, cat.ID, author.ID, "", "body"); err == nil {
		t.Error("expected error for blank title")
	}
	if _, err := svc.CreatePost(ctx, cat.ID, author.ID, strings.Repeat("t", maxTitleLen+1), "body"); err == nil {
		t.Error("expected error for overlong title")
	}
	if _, err := svc.CreatePost(ctx, "missing", author.ID, "title", "body"); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := svc.CreatePost(ctx, cat.ID, "missing", "title", "body"); err == nil {
		t.Error("expected error for unknown author")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hyderabad Apartments":   "hyderabad-apartments",
		"  Plots & Land  ":       "plots-land",
		"READY-TO-MOVE!!":        "ready-to-move",
		"Gachibowli (Financial)": "gachibowli-financial",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
