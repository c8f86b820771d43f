package main

import (
	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/config"
	"github.com/ramonsune/custodia360/internal/migration"
	"github.com/ramonsune/custodia360/internal/observability"
	"github.com/ramonsune/custodia360/internal/server"
	"github.com/ramonsune/custodia360/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,

		// Onboarding pipeline and HTTP surface
		server.Module,
	)
	app.Run()
}
