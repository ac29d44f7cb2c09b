// Package app composes the marketplace services into a running application.
//
// The package wires domain services with their storage backends and manages
// their lifecycle. It holds no business logic of its own; business rules live
// in internal/app/services/.
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Accounts: buyers, sellers, agents
//	│   ├── project/        # Builders and their developments
//	│   ├── property/       # Individual listings and search filters
//	│   ├── agent/          # Project/property agent rows with promotions
//	│   ├── forum/          # Category tree, posts, replies
//	│   ├── ad/             # Slot configs, purchases, quotes
//	│   └── auth/           # Sessions and OTP challenges
//	├── storage/            # Store interfaces, memory and postgres backends
//	├── services/           # Business logic, one package per domain
//	├── httpapi/            # REST handlers and audit trail
//	├── system/             # Lifecycle manager for background services
//	└── metrics/            # Prometheus instrumentation
//
// Dependencies flow downward only: cmd/ builds an Application, the
// Application builds services, and services depend on storage interfaces.
package app
