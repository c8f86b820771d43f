package onboarding

import (
	"github.com/ramonsune/custodia360/internal/checkout"
	"github.com/ramonsune/custodia360/internal/draft"
	"github.com/ramonsune/custodia360/internal/onboarding/service"
	"github.com/ramonsune/custodia360/internal/pricing"
	"go.uber.org/fx"
)

var Module = fx.Module("onboarding",
	fx.Provide(
		func(a *draft.Autosaver) service.Autosaver { return a },
		func(e *pricing.Engine) service.Quoter { return e },
		func(c *checkout.Service) service.Handoff { return c },
		service.NewService,
	),
)
