package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	authdomain "github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/database"
)

// TestPostgresRoundTrip exercises the real database when TEST_POSTGRES_DSN is
// set; otherwise it is skipped. database.Open applies migrations.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration")
	}

	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	u, err := store.CreateUser(ctx, user.User{
		Email:    fmt.Sprintf("it-%s@example.com", suffix),
		Username: "it_" + suffix,
		Role:     user.RoleSeller,
		Name:     "Integration Seller",
		City:     "Hyderabad",
		State:    "Telangana",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	fetched, err := store.GetUserByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if fetched.ID != u.ID {
		t.Errorf("fetched id = %s, want %s", fetched.ID, u.ID)
	}

	prop, err := store.CreateProperty(ctx, property.Property{
		OwnerID:  u.ID,
		Title:    "Integration 2BHK " + suffix,
		Type:     "APARTMENT",
		City:     "Hyderabad",
		State:    "Telangana",
		Bedrooms: 2,
		Price:    7500000,
		Images:   []string{"https://img.example.com/1.jpg"},
		Status:   property.StatusActive,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}

	results, err := store.SearchProperties(ctx, property.SearchFilter{City: "Hyderabad", Bedrooms: 2, Limit: 100})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	found := false
	for _, p := range results {
		if p.ID == prop.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("property %s missing from search results", prop.ID)
	}

	sess, err := store.CreateSession(ctx, authdomain.Session{
		UserID:    u.ID,
		TokenHash: "it-hash-" + suffix,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := store.GetSessionByTokenHash(ctx, sess.TokenHash)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserID != u.ID {
		t.Errorf("session user = %s, want %s", got.UserID, u.ID)
	}

	if err := store.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
}
