package server

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ramonsune/custodia360/internal/checkout"
	"github.com/ramonsune/custodia360/internal/config"
	"github.com/ramonsune/custodia360/internal/draft"
	"github.com/ramonsune/custodia360/internal/observability"
	obsmiddleware "github.com/ramonsune/custodia360/internal/observability/logger"
	obsmetrics "github.com/ramonsune/custodia360/internal/observability/metrics"
	obstracing "github.com/ramonsune/custodia360/internal/observability/tracing"
	"github.com/ramonsune/custodia360/internal/onboarding"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/ramonsune/custodia360/internal/pricing"
	"github.com/ramonsune/custodia360/internal/ratelimit"
	"github.com/ramonsune/custodia360/internal/redisclient"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	redisclient.Module,
	ratelimit.Module,
	draft.Module,
	pricing.Module,
	checkout.Module,
	onboarding.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(func(err error) string {
		errType, _ := classifyErrorForLog(err)
		return errType
	}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	onboarding     domain.Service
	trustedProxies []netip.Prefix
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Onboarding domain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		onboarding: p.Onboarding,
	}
	svc.configureProxies()

	svc.registerOnboardingRoutes()
	svc.registerFallback()

	return svc
}

// configureProxies limits forwarded-header trust to the configured proxies,
// both for gin's client IP and for the checkout return URL.
func (s *Server) configureProxies() {
	for _, raw := range s.cfg.TrustedProxies {
		prefix, err := parseProxy(raw)
		if err != nil {
			s.log.Warn("ignoring invalid trusted proxy", zap.String("proxy", raw), zap.Error(err))
			continue
		}
		s.trustedProxies = append(s.trustedProxies, prefix)
	}

	proxies := make([]string, 0, len(s.trustedProxies))
	for _, prefix := range s.trustedProxies {
		proxies = append(proxies, prefix.String())
	}
	if len(proxies) == 0 {
		proxies = nil
	}
	if err := s.engine.SetTrustedProxies(proxies); err != nil {
		s.log.Warn("trusted proxies not applied", zap.Error(err))
	}

	if s.cfg.IsProduction() && s.cfg.PublicBaseURL == "" {
		s.log.Warn("PUBLIC_BASE_URL not set; checkout return URLs are derived from the request host")
	}
}

func parseProxy(raw string) (netip.Prefix, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		return prefix.Masked(), err
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (s *Server) fromTrustedProxy(c *gin.Context) bool {
	if len(s.trustedProxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(c.RemoteIP())
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range s.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerOnboardingRoutes() {
	v1 := s.engine.Group("/v1/onboarding", s.DraftSession())

	v1.POST("/session", s.BeginOnboarding)

	// -------- Draft --------
	v1.PATCH("/draft", s.UpdateDraft)
	v1.POST("/draft/flush", s.FlushDraft)

	// -------- Steps --------
	v1.GET("/steps/:step", s.EnterStep)
	v1.POST("/steps/entity", s.SubmitEntity)
	v1.POST("/steps/delegate", s.SubmitDelegate)

	// -------- Payment --------
	v1.GET("/quote", s.GetQuote)
	v1.POST("/checkout", s.StartCheckout)
	v1.GET("/checkout/return", s.CheckoutReturn)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
