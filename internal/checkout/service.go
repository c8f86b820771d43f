package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/observability/metrics"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	dbpkg "github.com/ramonsune/custodia360/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const DefaultRedirectDelay = 1500 * time.Millisecond

// AttemptLimiter bounds how often a session may start a handoff.
type AttemptLimiter interface {
	Allow(ctx context.Context, sessionID string) (bool, time.Duration, error)
}

type ServiceParams struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	GenID         *snowflake.Node
	Client        SessionClient
	Guard         Guard
	Repo          Repository
	Sealer        *Sealer
	Limiter       AttemptLimiter      `optional:"true"`
	Metrics       *metrics.Onboarding `optional:"true"`
	RedirectDelay time.Duration       `name:"checkout_redirect_delay" optional:"true"`
}

type Service struct {
	log           *zap.Logger
	clock         clock.Clock
	genID         *snowflake.Node
	client        SessionClient
	guard         Guard
	repo          Repository
	sealer        *Sealer
	limiter       AttemptLimiter
	metrics       *metrics.Onboarding
	redirectDelay time.Duration
}

func NewService(p ServiceParams) *Service {
	delay := p.RedirectDelay
	if delay <= 0 {
		delay = DefaultRedirectDelay
	}
	return &Service{
		log:           p.Log.Named("checkout.service"),
		clock:         p.Clock,
		genID:         p.GenID,
		client:        p.Client,
		guard:         p.Guard,
		repo:          p.Repo,
		sealer:        p.Sealer,
		limiter:       p.Limiter,
		metrics:       p.Metrics,
		redirectDelay: delay,
	}
}

// Handoff opens a payment session for draft. On any failure nothing is
// cleared and the caller stays on the payment step.
func (s *Service) Handoff(
	ctx context.Context,
	sessionID string,
	draft *domain.FormDraft,
	quote domain.PricingBreakdown,
	returnBaseURL string,
) (*domain.CheckoutResult, error) {
	if s.limiter != nil {
		allowed, retryAfter, err := s.limiter.Allow(ctx, sessionID)
		if err != nil {
			s.log.Warn("checkout limiter unavailable", zap.Error(err))
		}
		if !allowed {
			s.metrics.CheckoutHandoff(metrics.OutcomeRejected, 0)
			s.log.Info("checkout attempt throttled", zap.Duration("retry_after", retryAfter))
			return nil, ErrTooManyAttempts
		}
	}

	release, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSubmissionInFlight) {
			s.metrics.CheckoutHandoff(metrics.OutcomeInFlight, 0)
		}
		return nil, err
	}
	defer release()

	payload, err := BuildPayload(draft, returnBaseURL)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	redirectURL, err := s.client.CreateSession(ctx, payload)
	elapsed := s.clock.Now().Sub(start).Seconds()
	if err != nil {
		s.metrics.CheckoutHandoff(metrics.OutcomeError, elapsed)
		s.log.Warn("payment session failed", zap.Error(err))
		return nil, err
	}
	s.metrics.CheckoutHandoff(metrics.OutcomeOK, elapsed)

	result := &domain.CheckoutResult{
		RedirectURL:     redirectURL,
		RedirectDelay:   s.redirectDelay,
		RedirectDelayMS: s.redirectDelay.Milliseconds(),
	}
	if contract, err := s.recordPending(ctx, sessionID, draft, quote, redirectURL); err != nil {
		s.log.Warn("pending contract not recorded", zap.Error(err))
	} else {
		result.ContractReference = contract.Reference
	}
	return result, nil
}

func (s *Service) recordPending(
	ctx context.Context,
	sessionID string,
	draft *domain.FormDraft,
	quote domain.PricingBreakdown,
	redirectURL string,
) (*PendingContract, error) {
	now := s.clock.Now()
	reference := newReference(draft.Entity.LegalName)
	sealed, err := s.sealer.Seal(draft, reference)
	if err != nil {
		return nil, err
	}

	contract := &PendingContract{
		ID:                s.genID.Generate(),
		Reference:         reference,
		SessionID:         sessionID,
		PlanTier:          quote.PlanTier,
		IncludeKit:        draft.AddOns.IncludeCommunicationKit,
		IncludeSubstitute: draft.AddOns.IncludeSubstituteDelegate,
		TotalDueToday:     quote.TotalDueToday,
		TotalDueLater:     quote.TotalDueLater,
		CheckoutURL:       redirectURL,
		Snapshot:          sealed,
		Status:            StatusPendingPayment,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, contract); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			// ULID collision; one retry with a fresh reference
			contract.Reference = newReference(draft.Entity.LegalName)
			if contract.Snapshot, err = s.sealer.Seal(draft, contract.Reference); err != nil {
				return nil, err
			}
			err = s.repo.Insert(ctx, contract)
		}
		if err != nil {
			return nil, err
		}
	}

	s.log.Info("pending contract recorded",
		zap.String("reference", contract.Reference),
		zap.String("plan_tier", contract.PlanTier),
	)
	return contract, nil
}

// Resume settles the latest pending contract of sessionID after the provider
// redirect. Cancelled and failed payments return the draft snapshot.
func (s *Service) Resume(ctx context.Context, sessionID string, status domain.ReturnStatus) (*PendingContract, *domain.FormDraft, error) {
	if !status.Valid() {
		return nil, nil, domain.ErrInvalidReturnStatus
	}

	contract, err := s.repo.LatestPending(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if contract == nil {
		return nil, nil, ErrNoPendingContract
	}

	now := s.clock.Now()
	if status == domain.ReturnSuccess {
		if err := s.repo.Close(ctx, contract.ID, StatusPaid, now); err != nil {
			return nil, nil, err
		}
		contract.Status = StatusPaid
		s.log.Info("contract paid", zap.String("reference", contract.Reference))
		return contract, nil, nil
	}

	draft, err := s.sealer.Open(contract.Snapshot, contract.Reference)
	if err != nil {
		s.log.Warn("pending contract snapshot unreadable", zap.String("reference", contract.Reference), zap.Error(err))
		draft = nil
	}
	if err := s.repo.Close(ctx, contract.ID, StatusAbandoned, now); err != nil {
		return nil, nil, err
	}
	contract.Status = StatusAbandoned
	s.log.Info("contract abandoned",
		zap.String("reference", contract.Reference),
		zap.String("return_status", string(status)),
	)
	return contract, draft, nil
}

func newReference(legalName string) string {
	prefix := slug.Make(legalName)
	if len(prefix) > 40 {
		prefix = strings.Trim(prefix[:40], "-")
	}
	if prefix == "" {
		prefix = "contrato"
	}
	return prefix + "-" + strings.ToLower(ulid.Make().String())
}
