package users

import (
	"context"
	"testing"

	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage/memory"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), nil)
}

func TestRegisterAndGet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "asha@example.com", "+919876543210", "asha_k", "", user.RoleSeller, "Asha K", "Hyderabad", "Telangana")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated user ID")
	}
	if created.Role != user.RoleSeller {
		t.Fatalf("role = %s, want SELLER", created.Role)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "asha_k" {
		t.Fatalf("username = %s", got.Username)
	}
}

func TestRegisterDefaultsToBuyer(t *testing.T) {
	svc := newService(t)
	created, err := svc.Register(context.Background(), "b@example.com", "", "buyer01", "", "", "", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Role != user.RoleBuyer {
		t.Fatalf("role = %s, want BUYER", created.Role)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		phone    string
		username string
		role     user.Role
	}{
		{"bad email", "not-an-email", "", "gooduser", user.RoleBuyer},
		{"short username", "x@example.com", "", "ab", user.RoleBuyer},
		{"bad phone", "x@example.com", "12ab", "gooduser", user.RoleBuyer},
		{"bad role", "x@example.com", "", "gooduser", user.Role("ADMIN")},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.email, tc.phone, tc.username, "", tc.role, "", "", ""); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@example.com", "", "dupuser", "", user.RoleBuyer, "", "", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "DUP@example.com", "", "otheruser", "", user.RoleBuyer, "", "", ""); err == nil {
		t.Fatal("expected duplicate email error")
	}
	if _, err := svc.Register(ctx, "other@example.com", "", "dupuser", "", user.RoleBuyer, "", "", ""); err == nil {
		t.Fatal("expected duplicate username error")
	}
}

func TestUpdateProfileResetsPhoneVerification(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "v@example.com", "+919876543210", "verified", "", user.RoleBuyer, "", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.MarkVerified(ctx, created.ID, false, true); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	newPhone := "+918888888888"
	updated, err := svc.UpdateProfile(ctx, created.ID, nil, &newPhone, nil, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PhoneVerified {
		t.Fatal("phone change should reset verification")
	}
	if updated.Phone != newPhone {
		t.Fatalf("phone = %s", updated.Phone)
	}
}
