package projects

import (
	"context"
	"errors"
	"testing"

	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/storage/memory"
	"github.com/grihome/grihome/internal/geocode"
)

type stubGeocoder struct {
	result geocode.Result
	err    error
	calls  int
}

func (g *stubGeocoder) Lookup(ctx context.Context, address string) (geocode.Result, error) {
	g.calls++
	return g.result, g.err
}

func newBuilder(t *testing.T, svc *Service) project.Builder {
	t.Helper()
	b, err := svc.CreateBuilder(context.Background(), "Aparna Constructions", "", "https://aparna.example")
	if err != nil {
		t.Fatalf("create builder: %v", err)
	}
	return b
}

func TestCreateProjectGeocodesLocation(t *testing.T) {
	geocoder := &stubGeocoder{result: geocode.Result{Lat: 17.4622, Lng: 78.3568}}
	svc := New(memory.New(), geocoder, nil)
	builder := newBuilder(t, svc)

	created, err := svc.Create(context.Background(), builder.ID, "Aparna Serene Park", "", project.TypeApartment, "", project.Location{
		City: "Hyderabad", State: "Telangana", Locality: "Kondapur",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != project.StatusUpcoming {
		t.Fatalf("status = %s, want UPCOMING", created.Status)
	}
	if created.Location.Lat != 17.4622 || created.Location.Lng != 78.3568 {
		t.Fatalf("coordinates not filled: %+v", created.Location)
	}
	if geocoder.calls != 1 {
		t.Fatalf("geocoder calls = %d", geocoder.calls)
	}
}

func TestCreateProjectKeepsExplicitCoordinates(t *testing.T) {
	geocoder := &stubGeocoder{result: geocode.Result{Lat: 1, Lng: 1}}
	svc := New(memory.New(), geocoder, nil)
	builder := newBuilder(t, svc)

	created, err := svc.Create(context.Background(), builder.ID, "Prestige Lakeside", "", project.TypeVilla, project.StatusReadyToMove, project.Location{
		City: "Bengaluru", State: "Karnataka", Lat: 12.97, Lng: 77.59,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Location.Lat != 12.97 {
		t.Fatalf("lat overwritten: %v", created.Location.Lat)
	}
	if geocoder.calls != 0 {
		t.Fatal("geocoder should not be called when coordinates are set")
	}
}

func TestCreateProjectSurvivesGeocodeFailure(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("rate limited")}
	svc := New(memory.New(), geocoder, nil)
	builder := newBuilder(t, svc)

	created, err := svc.Create(context.Background(), builder.ID, "NCC Urban One", "", project.TypeApartment, "", project.Location{
		City: "Hyderabad", State: "Telangana",
	})
	if err != nil {
		t.Fatalf("create should not fail on geocode error: %v", err)
	}
	if created.Location.Lat != 0 || created.Location.Lng != 0 {
		t.Fatalf("unexpected coordinates: %+v", created.Location)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	builder := newBuilder(t, svc)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "X", "", project.TypeApartment, "", project.Location{City: "a", State: "b"}); err == nil {
		t.Error("expected error for missing builder")
	}
	if _, err := svc.Create(ctx, builder.ID, "X", "", project.Type("CASTLE"), "", project.Location{City: "a", State: "b"}); err == nil {
		t.Error("expected error for bad type")
	}
	if _, err := svc.Create(ctx, builder.ID, "X", "", project.TypeApartment, "", project.Location{}); err == nil {
		t.Error("expected error for missing city/state")
	}
	if _, err := svc.Create(ctx, "no-such-builder", "X", "", project.TypeApartment, "", project.Location{City: "a", State: "b"}); err == nil {
		t.Error("expected error for unknown builder")
	}
}

func TestListProjectsFiltersByCity(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	builder := newBuilder(t, svc)
	ctx := context.Background()

	for _, city := range []string{"Hyderabad", "Bengaluru", "Hyderabad"} {
		if _, err := svc.Create(ctx, builder.ID, "P-"+city, "", project.TypePlot, "", project.Location{City: city, State: "S"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	hyd, err := svc.List(ctx, "", "hyderabad")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(hyd) != 2 {
		t.Fatalf("expected 2 Hyderabad projects, got %d", len(hyd))
	}
}

func TestUpdateStatus(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	builder := newBuilder(t, svc)
	ctx := context.Background()

	created, err := svc.Create(ctx, builder.ID, "Phase 1", "", project.TypeApartment, "", project.Location{City: "a", State: "b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, created.ID, project.StatusSoldOut)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != project.StatusSoldOut {
		t.Fatalf("status = %s", updated.Status)
	}

	if _, err := svc.UpdateStatus(ctx, created.ID, project.Status("DEMOLISHED")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
