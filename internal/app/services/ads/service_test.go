package ads

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grihome/grihome/internal/app/domain/ad"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage/memory"
)

type adsFixture struct {
	svc   *Service
	store *memory.Store
	buyer user.User
	prop  property.Property
}

func setup(t *testing.T, window PreLaunchWindow) *adsFixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	buyer, err := store.CreateUser(ctx, user.User{Email: "buyer@example.com", Username: "buyer1", Role: user.RoleSeller})
	require.NoError(t, err)
	prop, err := store.CreateProperty(ctx, property.Property{
		OwnerID: buyer.ID, Title: "Unit 42", Type: "APARTMENT",
		City: "Hyderabad", State: "Telangana", Price: 6000000, Status: property.StatusActive,
	})
	require.NoError(t, err)

	svc := New(store, store, store, store, window, nil)
	for slot, price := range map[int]float64{1: 500, 2: 400, 3: 300} {
		_, err := svc.ConfigureSlot(ctx, slot, price, true)
		require.NoError(t, err)
	}
	return &adsFixture{svc: svc, store: store, buyer: buyer, prop: prop}
}

func TestQuoteTotalsSelections(t *testing.T) {
	f := setup(t, PreLaunchWindow{})
	ctx := context.Background()

	bill, err := f.svc.Quote(ctx, []ad.Selection{
		{Slot: 1, Days: 7, PropertyID: f.prop.ID},
		{Slot: 2, Days: 2, PropertyID: f.prop.ID},
	})
	require.NoError(t, err)
	require.Len(t, bill.Quotes, 2)

	// 500*7 with 10% off = 3150; 400*2 with no discount = 800.
	assert.Equal(t, 3150.0, bill.Quotes[0].FinalAmount)
	assert.Equal(t, 800.0, bill.Quotes[1].FinalAmount)
	assert.Equal(t, 3950.0, bill.Total)
}

func TestPurchaseIsAtomicAcrossSlots(t *testing.T) {
	f := setup(t, PreLaunchWindow{})
	ctx := context.Background()

	// Slot 3 inactive: the whole purchase must fail and book nothing.
	_, err := f.svc.ConfigureSlot(ctx, 3, 300, false)
	require.NoError(t, err)

	_, _, err = f.svc.Purchase(ctx, f.buyer.ID, []ad.Selection{
		{Slot: 1, Days: 5, PropertyID: f.prop.ID},
		{Slot: 3, Days: 5, PropertyID: f.prop.ID},
	})
	require.Error(t, err)

	history, err := f.svc.ListPurchases(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "failed purchase must not book any slot")
}

func TestPurchaseRejectsOccupiedSlot(t *testing.T) {
	f := setup(t, PreLaunchWindow{})
	ctx := context.Background()

	_, _, err := f.svc.Purchase(ctx, f.buyer.ID, []ad.Selection{{Slot: 1, Days: 10, PropertyID: f.prop.ID}})
	require.NoError(t, err)

	_, _, err = f.svc.Purchase(ctx, f.buyer.ID, []ad.Selection{{Slot: 1, Days: 2, PropertyID: f.prop.ID}})
	require.Error(t, err, "active slot cannot be sold twice")
}

func TestPurchaseValidation(t *testing.T) {
	f := setup(t, PreLaunchWindow{})
	ctx := context.Background()

	cases := []struct {
		name       string
		selections []ad.Selection
	}{
		{"empty", nil},
		{"days too high", []ad.Selection{{Slot: 1, Days: 31, PropertyID: f.prop.ID}}},
		{"days too low", []ad.Selection{{Slot: 1, Days: 0, PropertyID: f.prop.ID}}},
		{"no target", []ad.Selection{{Slot: 1, Days: 5}}},
		{"two targets", []ad.Selection{{Slot: 1, Days: 5, PropertyID: f.prop.ID, ProjectID: "pr1"}}},
		{"duplicate slot", []ad.Selection{{Slot: 1, Days: 5, PropertyID: f.prop.ID}, {Slot: 1, Days: 5, PropertyID: f.prop.ID}}},
		{"unconfigured slot", []ad.Selection{{Slot: 9, Days: 5, PropertyID: f.prop.ID}}},
		{"unknown property", []ad.Selection{{Slot: 1, Days: 5, PropertyID: "missing"}}},
	}
	for _, tc := range cases {
		_, _, err := f.svc.Purchase(ctx, f.buyer.ID, tc.selections)
		assert.Errorf(t, err, "case %s", tc.name)
	}
}

func TestPreLaunchPurchaseIsFreeAndCapped(t *testing.T) {
	now := time.Now().UTC()
	f := setup(t, PreLaunchWindow{Start: now.AddDate(0, 0, -1), End: now.AddDate(0, 0, 7)})
	ctx := context.Background()

	created, bill, err := f.svc.Purchase(ctx, f.buyer.ID, []ad.Selection{
		{Slot: 1, Days: 30, PropertyID: f.prop.ID},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	assert.Zero(t, bill.Total)
	assert.Equal(t, PreLaunchMaxDays, created[0].Days)
	assert.Equal(t, 100.0, created[0].DiscountPercent)
	assert.Zero(t, created[0].FinalAmount)

	window := created[0].EndsAt.Sub(created[0].StartsAt)
	assert.Equal(t, time.Duration(PreLaunchMaxDays)*24*time.Hour, window)
}

func TestActivePlacements(t *testing.T) {
	f := setup(t, PreLaunchWindow{})
	ctx := context.Background()

	_, _, err := f.svc.Purchase(ctx, f.buyer.ID, []ad.Selection{
		{Slot: 1, Days: 3, PropertyID: f.prop.ID},
		{Slot: 2, Days: 3, PropertyID: f.prop.ID},
	})
	require.NoError(t, err)

	active, err := f.svc.ActivePlacements(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
