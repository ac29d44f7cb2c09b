package agents

import (
	"context"
	"testing"
	"time"

	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage/memory"
)

type fixture struct {
	svc      *Service
	store    *memory.Store
	agent    user.User
	project  project.Project
	property property.Property
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	agentUser, err := store.CreateUser(ctx, user.User{Email: "agent@example.com", Username: "agent1", Role: user.RoleAgent})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	builder, err := store.CreateBuilder(ctx, project.Builder{Name: "Builder"})
	if err != nil {
		t.Fatalf("create builder: %v", err)
	}
	proj, err := store.CreateProject(ctx, project.Project{
		BuilderID: builder.ID, Name: "Towers", Type: project.TypeApartment,
		Status: project.StatusUpcoming, Location: project.Location{City: "Hyderabad", State: "Telangana"},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	prop, err := store.CreateProperty(ctx, property.Property{
		OwnerID: agentUser.ID, Title: "Unit 101", Type: "APARTMENT",
		City: "Hyderabad", State: "Telangana", Price: 5000000, Status: property.StatusActive,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}

	return &fixture{
		svc:      New(store, store, store, store, nil),
		store:    store,
		agent:    agentUser,
		project:  proj,
		property: prop,
	}
}

func TestRegisterProjectAgentOncePerPair(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, f.agent.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, f.agent.ID); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegisterRequiresAgentRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	buyer, err := f.store.CreateUser(ctx, user.User{Email: "b@example.com", Username: "buyer1", Role: user.RoleBuyer})
	if err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	if _, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, buyer.ID); err == nil {
		t.Fatal("expected error for non-agent user")
	}
}

func TestPromoteProjectAgentSetsWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pa, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	promoted, err := f.svc.PromoteProjectAgent(ctx, pa.ID, 7)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !promoted.Promotion.IsPromoted {
		t.Fatal("expected promoted flag")
	}
	gap := promoted.Promotion.End.Sub(promoted.Promotion.Start)
	if gap != 7*24*time.Hour {
		t.Fatalf("window = %v, want 168h", gap)
	}

	if _, err := f.svc.PromoteProjectAgent(ctx, pa.ID, 0); err == nil {
		t.Fatal("expected error for zero days")
	}
	if _, err := f.svc.PromoteProjectAgent(ctx, pa.ID, maxPromotionDays+1); err == nil {
		t.Fatal("expected error for excessive days")
	}
}

func TestDemoteProjectAgentClearsWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pa, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.PromoteProjectAgent(ctx, pa.ID, 7); err != nil {
		t.Fatalf("promote: %v", err)
	}

	demoted, err := f.svc.DemoteProjectAgent(ctx, pa.ID)
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if demoted.Promotion.IsPromoted {
		t.Fatal("expected promotion cleared")
	}
	if !demoted.Promotion.Start.IsZero() || !demoted.Promotion.End.IsZero() {
		t.Fatal("expected promotion window zeroed")
	}
}

func TestListClearsExpiredPromotions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pa, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.PromoteProjectAgent(ctx, pa.ID, 2); err != nil {
		t.Fatalf("promote: %v", err)
	}

	// Jump past the window.
	f.svc.now = func() time.Time { return time.Now().AddDate(0, 0, 3) }

	rows, err := f.svc.ListProjectAgents(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Promotion.IsPromoted {
		t.Fatal("expired promotion should be cleared on read")
	}

	stored, err := f.store.GetProjectAgent(ctx, pa.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Promotion.IsPromoted {
		t.Fatal("clear should be persisted")
	}
}

func TestListPromotedAgentsFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("register first: %v", err)
	}

	second, err := f.store.CreateUser(ctx, user.User{Email: "agent2@example.com", Username: "agent2", Role: user.RoleAgent})
	if err != nil {
		t.Fatalf("create second agent: %v", err)
	}
	registered, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, second.ID)
	if err != nil {
		t.Fatalf("register second: %v", err)
	}

	if _, err := f.svc.PromoteProjectAgent(ctx, registered.ID, 7); err != nil {
		t.Fatalf("promote: %v", err)
	}

	rows, err := f.svc.ListProjectAgents(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != registered.ID {
		t.Errorf("promoted agent not first: got %s", rows[0].ID)
	}
	if rows[1].ID != first.ID {
		t.Errorf("unpromoted agent not second: got %s", rows[1].ID)
	}
}

func TestSweepExpiredPromotions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pa, err := f.svc.RegisterProjectAgent(ctx, f.project.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	pl, err := f.svc.FeatureProperty(ctx, f.property.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("feature: %v", err)
	}

	// Backdate both promotions so the store sees them as elapsed.
	past := time.Now().AddDate(0, 0, -10)
	pa.Promotion.IsPromoted = true
	pa.Promotion.Start = past
	pa.Promotion.End = past.AddDate(0, 0, 2)
	if _, err := f.store.UpdateProjectAgent(ctx, pa); err != nil {
		t.Fatalf("backdate agent: %v", err)
	}
	pl.Promotion.IsPromoted = true
	pl.Promotion.Start = past
	pl.Promotion.End = past.AddDate(0, 0, 2)
	if _, err := f.store.UpdatePropertyListing(ctx, pl); err != nil {
		t.Fatalf("backdate listing: %v", err)
	}

	cleared, err := f.svc.SweepExpiredPromotions(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("cleared = %d, want 2", cleared)
	}

	again, err := f.svc.SweepExpiredPromotions(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again != 0 {
		t.Fatalf("second sweep cleared %d rows", again)
	}
}
