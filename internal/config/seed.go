package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SeedConfig describes the data loaded by cmd/seed: the forum category tree
// and the ad slot price table.
type SeedConfig struct {
	ForumCategories []SeedCategory `yaml:"forum_categories"`
	AdSlots         []SeedAdSlot   `yaml:"ad_slots"`
}

// SeedCategory is a forum category node; children inherit the city/state
// scope of their parent unless they override it.
type SeedCategory struct {
	Name         string         `yaml:"name"`
	Slug         string         `yaml:"slug"`
	City         string         `yaml:"city,omitempty"`
	State        string         `yaml:"state,omitempty"`
	PropertyType string         `yaml:"property_type,omitempty"`
	Children     []SeedCategory `yaml:"children,omitempty"`
}

// SeedAdSlot is one home-page placement row.
type SeedAdSlot struct {
	Slot      int     `yaml:"slot"`
	BasePrice float64 `yaml:"base_price"`
	Active    bool    `yaml:"active"`
}

// LoadSeedConfig reads the seed configuration from config/seed.yaml.
func LoadSeedConfig() (*SeedConfig, error) {
	return LoadSeedConfigFromPath(filepath.Join("config", "seed.yaml"))
}

// LoadSeedConfigFromPath reads the seed configuration from a specific path.
func LoadSeedConfigFromPath(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed config: %w", err)
	}

	var cfg SeedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse seed config: %w", err)
	}

	for _, slot := range cfg.AdSlots {
		if slot.Slot <= 0 {
			return nil, fmt.Errorf("ad slot %d: slot number must be positive", slot.Slot)
		}
		if slot.BasePrice < 0 {
			return nil, fmt.Errorf("ad slot %d: base price must not be negative", slot.Slot)
		}
	}

	return &cfg, nil
}

// LoadSeedConfigOrDefault loads seed config or returns the built-in default.
func LoadSeedConfigOrDefault() *SeedConfig {
	cfg, err := LoadSeedConfig()
	if err != nil {
		return DefaultSeedConfig()
	}
	return cfg
}

// DefaultSeedConfig returns the default category tree and slot table.
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		ForumCategories: []SeedCategory{
			{
				Name: "Hyderabad", Slug: "hyderabad", City: "Hyderabad", State: "Telangana",
				Children: []SeedCategory{
					{Name: "Apartments", Slug: "hyderabad-apartments", PropertyType: "APARTMENT"},
					{Name: "Villas", Slug: "hyderabad-villas", PropertyType: "VILLA"},
					{Name: "Plots", Slug: "hyderabad-plots", PropertyType: "PLOT"},
				},
			},
			{
				Name: "Bengaluru", Slug: "bengaluru", City: "Bengaluru", State: "Karnataka",
				Children: []SeedCategory{
					{Name: "Apartments", Slug: "bengaluru-apartments", PropertyType: "APARTMENT"},
					{Name: "Commercial", Slug: "bengaluru-commercial", PropertyType: "COMMERCIAL"},
				},
			},
			{Name: "General Discussion", Slug: "general"},
		},
		AdSlots: []SeedAdSlot{
			{Slot: 1, BasePrice: 500, Active: true},
			{Slot: 2, BasePrice: 400, Active: true},
			{Slot: 3, BasePrice: 300, Active: true},
			{Slot: 4, BasePrice: 200, Active: true},
			{Slot: 5, BasePrice: 150, Active: true},
			{Slot: 6, BasePrice: 100, Active: true},
		},
	}
}
