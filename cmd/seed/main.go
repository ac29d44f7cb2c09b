// Package main loads the seed data set: the forum category tree and the ad
// slot price table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	app "github.com/grihome/grihome/internal/app"
	"github.com/grihome/grihome/internal/app/storage/postgres"
	"github.com/grihome/grihome/internal/config"
	"github.com/grihome/grihome/internal/database"
	"github.com/grihome/grihome/pkg/logger"
)

func main() {
	seedPath := flag.String("seed", "", "Path to seed YAML (defaults to config/seed.yaml)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault("seed")

	if cfg.Database.DSN == "" {
		log.Error("DATABASE_URL must be set for seeding")
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		log.WithError(err).Error("open database")
		os.Exit(1)
	}
	defer db.Close()

	pg := postgres.New(db)
	application, err := app.New(app.Stores{
		Users:      pg,
		Projects:   pg,
		Properties: pg,
		Agents:     pg,
		Forum:      pg,
		Ads:        pg,
		Sessions:   pg,
	}, app.Options{JWTSecret: cfg.Auth.JWTSecret}, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	var seed *config.SeedConfig
	if *seedPath != "" {
		seed, err = config.LoadSeedConfigFromPath(*seedPath)
		if err != nil {
			log.WithError(err).Error("load seed config")
			os.Exit(1)
		}
	} else {
		seed = config.LoadSeedConfigOrDefault()
	}

	ctx := context.Background()

	created := 0
	for _, root := range seed.ForumCategories {
		n, err := seedCategory(ctx, application, "", root)
		if err != nil {
			log.WithError(err).WithField("category", root.Name).Error("seed category")
			os.Exit(1)
		}
		created += n
	}
	log.WithField("created", created).Info("forum categories seeded")

	for _, slot := range seed.AdSlots {
		if _, err := application.Ads.ConfigureSlot(ctx, slot.Slot, slot.BasePrice, slot.Active); err != nil {
			log.WithError(err).WithField("slot", slot.Slot).Error("seed ad slot")
			os.Exit(1)
		}
	}
	log.WithField("slots", len(seed.AdSlots)).Info("ad slots seeded")
}

// seedCategory creates a category and its children, skipping slugs that
// already exist so the command stays idempotent.
func seedCategory(ctx context.Context, application *app.Application, parentID string, cat config.SeedCategory) (int, error) {
	created := 0

	existing, err := application.Forum.GetCategoryBySlug(ctx, cat.Slug)
	if err == nil {
		parentID = existing.ID
	} else {
		made, err := application.Forum.CreateCategory(ctx, parentID, cat.Name, cat.Slug, cat.City, cat.State, cat.PropertyType)
		if err != nil {
			return created, err
		}
		parentID = made.ID
		created++
	}

	for _, child := range cat.Children {
		n, err := seedCategory(ctx, application, parentID, child)
		if err != nil {
			return created, err
		}
		created += n
	}
	return created, nil
}
