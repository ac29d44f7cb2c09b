package app

import (
	"context"
	"fmt"
	"time"

	"github.com/grihome/grihome/internal/app/services/ads"
	"github.com/grihome/grihome/internal/app/services/agents"
	authsvc "github.com/grihome/grihome/internal/app/services/auth"
	"github.com/grihome/grihome/internal/app/services/forum"
	"github.com/grihome/grihome/internal/app/services/projects"
	"github.com/grihome/grihome/internal/app/services/properties"
	"github.com/grihome/grihome/internal/app/services/users"
	"github.com/grihome/grihome/internal/app/storage"
	"github.com/grihome/grihome/internal/app/storage/memory"
	"github.com/grihome/grihome/internal/app/system"
	"github.com/grihome/grihome/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users      storage.UserStore
	Projects   storage.ProjectStore
	Properties storage.PropertyStore
	Agents     storage.AgentStore
	Forum      storage.ForumStore
	Ads        storage.AdStore
	Sessions   storage.SessionStore
}

// Options carries the non-store wiring for the application.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
	OTPMax    int

	// OTPStore and OTPSender default to the in-memory store and the
	// log-only sender when nil.
	OTPStore  authsvc.OTPStore
	OTPSender authsvc.Sender
	OAuth     map[string]authsvc.OAuthProvider

	Geocoder projects.Geocoder

	PreLaunchWindow ads.PreLaunchWindow

	// SweepSchedule is a cron expression for the promotion sweeper.
	// Defaults to every ten minutes.
	SweepSchedule string
	// JanitorInterval controls expired-session cleanup. Defaults to hourly.
	JanitorInterval time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Users      *users.Service
	Projects   *projects.Service
	Properties *properties.Service
	Agents     *agents.Service
	Ads        *ads.Service
	Forum      *forum.Service
	Hub        *forum.Hub
	Auth       *authsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Projects == nil {
		stores.Projects = mem
	}
	if stores.Properties == nil {
		stores.Properties = mem
	}
	if stores.Agents == nil {
		stores.Agents = mem
	}
	if stores.Forum == nil {
		stores.Forum = mem
	}
	if stores.Ads == nil {
		stores.Ads = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}
	if opts.OTPStore == nil {
		opts.OTPStore = authsvc.NewMemoryOTPStore()
	}
	if opts.OTPSender == nil {
		opts.OTPSender = authsvc.LogSender{Log: log}
	}

	manager := system.NewManager()

	userService := users.New(stores.Users, log)
	projectService := projects.New(stores.Projects, opts.Geocoder, log)
	propertyService := properties.New(stores.Properties, stores.Users, stores.Projects, log)
	agentService := agents.New(stores.Agents, stores.Users, stores.Projects, stores.Properties, log)
	adService := ads.New(stores.Ads, stores.Users, stores.Properties, stores.Projects, opts.PreLaunchWindow, log)

	hub := forum.NewHub(log)
	forumService := forum.New(stores.Forum, stores.Users, hub, log)

	authService, err := authsvc.New(authsvc.Config{
		Users:     stores.Users,
		Sessions:  stores.Sessions,
		OTPs:      opts.OTPStore,
		Sender:    opts.OTPSender,
		OAuth:     opts.OAuth,
		JWTSecret: opts.JWTSecret,
		TokenTTL:  opts.TokenTTL,
		OTPTTL:    opts.OTPTTL,
		OTPMax:    opts.OTPMax,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	background := []system.Service{
		hub,
		agents.NewSweeper(agentService, opts.SweepSchedule, log),
		authsvc.NewJanitor(authService, opts.JanitorInterval, log),
	}
	for _, svc := range background {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		Users:      userService,
		Projects:   projectService,
		Properties: propertyService,
		Agents:     agentService,
		Ads:        adService,
		Forum:      forumService,
		Hub:        hub,
		Auth:       authService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
