// Package ads prices and sells the numbered home-page placement slots.
package ads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grihome/grihome/internal/app/domain/ad"
	"github.com/grihome/grihome/internal/app/storage"
	"github.com/grihome/grihome/pkg/logger"
)

// Service manages slot configuration, quoting and purchases.
type Service struct {
	store      storage.AdStore
	users      storage.UserStore
	properties storage.PropertyStore
	projects   storage.ProjectStore
	window     PreLaunchWindow
	log        *logger.Logger
	now        func() time.Time
}

// New constructs an ads service. Reference stores may be nil to skip
// validation.
func New(store storage.AdStore, users storage.UserStore, properties storage.PropertyStore, projects storage.ProjectStore, window PreLaunchWindow, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ads")
	}
	return &Service{
		store:      store,
		users:      users,
		properties: properties,
		projects:   projects,
		window:     window,
		log:        log,
		now:        time.Now,
	}
}

// ConfigureSlot creates or reprices a placement slot.
func (s *Service) ConfigureSlot(ctx context.Context, slot int, basePrice float64, active bool) (ad.SlotConfig, error) {
	if slot <= 0 {
		return ad.SlotConfig{}, fmt.Errorf("slot must be positive")
	}
	if basePrice <= 0 {
		return ad.SlotConfig{}, fmt.Errorf("base_price must be positive")
	}

	saved, err := s.store.UpsertSlotConfig(ctx, ad.SlotConfig{Slot: slot, BasePrice: basePrice, Active: active})
	if err != nil {
		return ad.SlotConfig{}, err
	}
	s.log.WithField("slot", slot).WithField("base_price", basePrice).Info("ad slot configured")
	return saved, nil
}

// ListSlots returns every configured slot.
func (s *Service) ListSlots(ctx context.Context) ([]ad.SlotConfig, error) {
	return s.store.ListSlotConfigs(ctx)
}

// Quote prices a set of selections without persisting anything, so the buyer
// sees the bill before committing.
func (s *Service) Quote(ctx context.Context, selections []ad.Selection) (ad.Bill, error) {
	if err := s.validateSelections(selections); err != nil {
		return ad.Bill{}, err
	}

	now := s.now().UTC()
	bill := ad.Bill{Quotes: make([]ad.Quote, 0, len(selections))}
	for _, sel := range selections {
		cfg, err := s.activeSlot(ctx, sel.Slot)
		if err != nil {
			return ad.Bill{}, err
		}
		quote := PriceSelection(cfg.BasePrice, sel.Days, s.window, now)
		quote.Slot = sel.Slot
		bill.Quotes = append(bill.Quotes, quote)
		bill.Total = round2(bill.Total + quote.FinalAmount)
	}
	return bill, nil
}

// Purchase books every selection for the buyer in one atomic write: either
// all slots are bought or none are.
func (s *Service) Purchase(ctx context.Context, buyerID string, selections []ad.Selection) ([]ad.Purchase, ad.Bill, error) {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return nil, ad.Bill{}, fmt.Errorf("buyer_id is required")
	}
	if err := s.validateSelections(selections); err != nil {
		return nil, ad.Bill{}, err
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, buyerID); err != nil {
			return nil, ad.Bill{}, fmt.Errorf("buyer validation failed: %w", err)
		}
	}

	now := s.now().UTC()
	taken, err := s.takenSlots(ctx)
	if err != nil {
		return nil, ad.Bill{}, err
	}

	bill := ad.Bill{Quotes: make([]ad.Quote, 0, len(selections))}
	purchases := make([]ad.Purchase, 0, len(selections))
	for _, sel := range selections {
		if err := s.validateTarget(ctx, sel); err != nil {
			return nil, ad.Bill{}, err
		}
		if _, occupied := taken[sel.Slot]; occupied {
			return nil, ad.Bill{}, fmt.Errorf("slot %d is already booked", sel.Slot)
		}

		cfg, err := s.activeSlot(ctx, sel.Slot)
		if err != nil {
			return nil, ad.Bill{}, err
		}
		quote := PriceSelection(cfg.BasePrice, sel.Days, s.window, now)
		quote.Slot = sel.Slot
		bill.Quotes = append(bill.Quotes, quote)
		bill.Total = round2(bill.Total + quote.FinalAmount)

		purchases = append(purchases, ad.Purchase{
			BuyerID:         buyerID,
			Slot:            sel.Slot,
			PropertyID:      sel.PropertyID,
			ProjectID:       sel.ProjectID,
			Days:            quote.Days,
			BaseAmount:      quote.BaseAmount,
			DiscountPercent: quote.DiscountPercent,
			FinalAmount:     quote.FinalAmount,
			StartsAt:        now,
			EndsAt:          now.AddDate(0, 0, quote.Days),
		})
	}

	created, err := s.store.CreatePurchases(ctx, purchases)
	if err != nil {
		return nil, ad.Bill{}, err
	}
	s.log.WithField("buyer_id", buyerID).
		WithField("slots", len(created)).
		WithField("total", bill.Total).
		Info("ad slots purchased")
	return created, bill, nil
}

// ListPurchases returns a buyer's booking history.
func (s *Service) ListPurchases(ctx context.Context, buyerID string) ([]ad.Purchase, error) {
	return s.store.ListPurchases(ctx, strings.TrimSpace(buyerID))
}

// ActivePlacements returns the purchases currently on the home page.
func (s *Service) ActivePlacements(ctx context.Context) ([]ad.Purchase, error) {
	return s.store.ListActivePurchases(ctx)
}

func (s *Service) validateSelections(selections []ad.Selection) error {
	if len(selections) == 0 {
		return fmt.Errorf("at least one slot selection is required")
	}
	seen := map[int]struct{}{}
	for _, sel := range selections {
		if sel.Slot <= 0 {
			return fmt.Errorf("slot must be positive")
		}
		if _, dup := seen[sel.Slot]; dup {
			return fmt.Errorf("slot %d selected twice", sel.Slot)
		}
		seen[sel.Slot] = struct{}{}
		if sel.Days < MinDays || sel.Days > MaxDays {
			return fmt.Errorf("days must be between %d and %d", MinDays, MaxDays)
		}
		if (sel.PropertyID == "") == (sel.ProjectID == "") {
			return fmt.Errorf("slot %d must target exactly one property or project", sel.Slot)
		}
	}
	return nil
}

func (s *Service) validateTarget(ctx context.Context, sel ad.Selection) error {
	if sel.PropertyID != "" && s.properties != nil {
		if _, err := s.properties.GetProperty(ctx, sel.PropertyID); err != nil {
			return fmt.Errorf("property validation failed: %w", err)
		}
	}
	if sel.ProjectID != "" && s.projects != nil {
		if _, err := s.projects.GetProject(ctx, sel.ProjectID); err != nil {
			return fmt.Errorf("project validation failed: %w", err)
		}
	}
	return nil
}

func (s *Service) activeSlot(ctx context.Context, slot int) (ad.SlotConfig, error) {
	cfg, err := s.store.GetSlotConfig(ctx, slot)
	if err != nil {
		return ad.SlotConfig{}, fmt.Errorf("slot %d is not configured", slot)
	}
	if !cfg.Active {
		return ad.SlotConfig{}, fmt.Errorf("slot %d is not open for sale", slot)
	}
	return cfg, nil
}

func (s *Service) takenSlots(ctx context.Context) (map[int]struct{}, error) {
	active, err := s.store.ListActivePurchases(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[int]struct{}, len(active))
	for _, p := range active {
		taken[p.Slot] = struct{}{}
	}
	return taken, nil
}
