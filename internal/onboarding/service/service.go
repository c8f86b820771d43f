package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ramonsune/custodia360/internal/cache"
	"github.com/ramonsune/custodia360/internal/checkout"
	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/config"
	"github.com/ramonsune/custodia360/internal/observability/metrics"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/ramonsune/custodia360/internal/onboarding/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Autosaver interface {
	Track(sessionID string, draft *domain.FormDraft)
	Flush(ctx context.Context, sessionID string) bool
	Discard(ctx context.Context, sessionID string) error
}

type Quoter interface {
	Quote(ctx context.Context, tier string, addOns domain.AddOns) domain.PricingBreakdown
}

type Handoff interface {
	Handoff(ctx context.Context, sessionID string, draft *domain.FormDraft, quote domain.PricingBreakdown, returnBaseURL string) (*domain.CheckoutResult, error)
	Resume(ctx context.Context, sessionID string, status domain.ReturnStatus) (*checkout.PendingContract, *domain.FormDraft, error)
}

type Params struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	Clock     clock.Clock
	Store     domain.DraftStore
	Autosaver Autosaver
	Quoter    Quoter
	Handoff   Handoff
	Metrics   *metrics.Onboarding `optional:"true"`
}

type session struct {
	mu       sync.Mutex
	loaded   bool
	state    domain.State
	draft    *domain.FormDraft
	resumed  bool
	inFlight bool
	// savedAt is when the draft content was last entered or loaded.
	savedAt time.Time
}

const (
	// newSessionTTL bounds sessions that were created but never used again.
	newSessionTTL = 15 * time.Minute
	sweepEvery    = time.Minute
)

// Service coordinates the three onboarding steps of each draft session.
type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	store     domain.DraftStore
	autosaver Autosaver
	quoter    Quoter
	handoff   Handoff
	metrics   *metrics.Onboarding
	idleTTL   time.Duration

	mu        sync.Mutex
	sessions  *cache.TTLCache[string, *session]
	lastSweep time.Time
}

func NewService(p Params) domain.Service {
	idle := p.Config.Draft.Retention
	if idle <= 0 {
		idle = 24 * time.Hour
	}
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		log:       p.Log.Named("onboarding.service"),
		clock:     c,
		store:     p.Store,
		autosaver: p.Autosaver,
		quoter:    p.Quoter,
		handoff:   p.Handoff,
		metrics:   p.Metrics,
		idleTTL:   idle,
		sessions:  cache.NewTTLCacheWithClock[string, *session](c),
		lastSweep: c.Now(),
	}
}

// acquire returns the locked session for id, loading its stored draft on first use.
func (s *Service) acquire(ctx context.Context, sessionID string) (*session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrSessionRequired
	}

	s.mu.Lock()
	now := s.clock.Now()
	if now.Sub(s.lastSweep) >= sweepEvery {
		s.lastSweep = now
		s.sessions.Sweep()
	}
	sess, ok := s.sessions.Get(sessionID)
	ttl := s.idleTTL
	if !ok {
		sess = &session{state: domain.StateStep1Entity, draft: &domain.FormDraft{}}
		ttl = newSessionTTL
	}
	s.sessions.Set(sessionID, sess, ttl)
	s.mu.Unlock()

	sess.mu.Lock()
	if !sess.loaded {
		sess.loaded = true
		s.loadInto(ctx, sessionID, sess)
	}
	s.expireStale(ctx, sessionID, sess)
	return sess, nil
}

func (s *Service) loadInto(ctx context.Context, sessionID string, sess *session) {
	stored, ok := s.store.Load(ctx, domain.DraftKey(sessionID))
	if !ok {
		return
	}
	sess.draft = stored
	sess.savedAt = stored.SavedAt
	sess.resumed = true
}

// expireStale drops an in-memory draft that has outlived the retention window.
// Reads do not extend the window; only entered or loaded content does.
func (s *Service) expireStale(ctx context.Context, sessionID string, sess *session) {
	if sess.inFlight || sess.state == domain.StateSubmitted || sess.draft.IsEmpty() || sess.savedAt.IsZero() {
		return
	}
	if s.clock.Now().Sub(sess.savedAt) < s.idleTTL {
		return
	}
	if err := s.autosaver.Discard(ctx, sessionID); err != nil {
		s.log.Warn("expired draft not cleared", zap.Error(err))
	}
	sess.draft = &domain.FormDraft{}
	sess.savedAt = time.Time{}
	sess.resumed = false
	sess.state = domain.StateStep1Entity
	s.log.Debug("in-memory draft expired")
}

// touch records an edit of the in-memory draft and hands it to the autosaver.
func (s *Service) touch(sessionID string, sess *session) {
	sess.savedAt = s.clock.Now()
	s.autosaver.Track(sessionID, sess.draft)
}

func (s *Service) Begin(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.state == domain.StateSubmitted {
		sess.draft = &domain.FormDraft{}
		sess.savedAt = time.Time{}
		sess.resumed = false
	}
	if sess.draft.IsEmpty() {
		s.loadInto(ctx, sessionID, sess)
	}
	sess.state = domain.StateStep1Entity

	log := s.log.With(zap.Bool("resumed", sess.resumed))
	log.Debug("onboarding begun")
	return s.view(sessionID, sess, true), nil
}

func (s *Service) Update(ctx context.Context, sessionID string, patch domain.DraftPatch) (*domain.Session, error) {
	sess, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.state == domain.StateSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}
	patch.Apply(sess.draft)
	s.touch(sessionID, sess)
	return s.view(sessionID, sess, true), nil
}

// Flush persists the latest form state synchronously. Storage failures are
// logged by the autosaver and not reported.
func (s *Service) Flush(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ErrSessionRequired
	}
	s.autosaver.Flush(ctx, sessionID)
	return nil
}

func (s *Service) Navigate(ctx context.Context, sessionID string, state domain.State) (*domain.Session, error) {
	if !state.Navigable() {
		return nil, domain.ErrInvalidStep
	}
	sess, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.state == domain.StateSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}
	if sess.draft.IsEmpty() {
		s.loadInto(ctx, sessionID, sess)
	}
	sess.state = state
	return s.view(sessionID, sess, true), nil
}

func (s *Service) SubmitEntity(ctx context.Context, sessionID string, patch domain.DraftPatch) (*domain.Session, error) {
	return s.submit(ctx, sessionID, domain.StateStep1Entity, patch)
}

func (s *Service) SubmitDelegate(ctx context.Context, sessionID string, patch domain.DraftPatch) (*domain.Session, error) {
	return s.submit(ctx, sessionID, domain.StateStep2Delegate, patch)
}

func (s *Service) submit(ctx context.Context, sessionID string, step domain.State, patch domain.DraftPatch) (*domain.Session, error) {
	sess, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.state == domain.StateSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}

	patch.Apply(sess.draft)
	s.touch(sessionID, sess)

	if err := validator.Validate(step, sess.draft, nil).Err(); err != nil {
		s.metrics.StepTransition(string(step), metrics.OutcomeRejected)
		return nil, err
	}

	if !s.autosaver.Flush(ctx, sessionID) {
		s.log.Warn("draft not persisted before transition", zap.String("step", string(step)))
	}

	next, _ := step.Next()
	sess.state = next
	s.metrics.StepTransition(string(next), metrics.OutcomeOK)
	return s.view(sessionID, sess, true), nil
}

func (s *Service) Quote(ctx context.Context, sessionID string) (domain.PricingBreakdown, error) {
	sess, err := s.acquire(ctx, sessionID)
	if err != nil {
		return domain.PricingBreakdown{}, err
	}
	tier, addOns := sess.draft.PlanTier, sess.draft.AddOns
	sess.mu.Unlock()

	return s.quoter.Quote(ctx, tier, addOns), nil
}

// Checkout validates the payment step, re-checks that the stored draft holds
// complete entity and delegate data, and hands off to the payment provider.
// The session lock is released during the provider call so a concurrent
// attempt meets the in-flight guard instead of queuing.
func (s *Service) Checkout(ctx context.Context, sessionID string, payment domain.PaymentDetails, returnBaseURL string) (*domain.CheckoutResult, error) {
	stored, err := s.prepareCheckout(ctx, sessionID, payment)
	if err != nil {
		return nil, err
	}

	quote := s.quoter.Quote(ctx, stored.PlanTier, stored.AddOns)
	result, handoffErr := s.handoff.Handoff(ctx, sessionID, stored, quote, returnBaseURL)

	sess, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	sess.inFlight = false

	if handoffErr != nil {
		s.metrics.StepTransition(string(domain.StateSubmitted), metrics.OutcomeError)
		return nil, handoffErr
	}

	if err := s.autosaver.Discard(ctx, sessionID); err != nil {
		s.log.Warn("draft not cleared after handoff", zap.Error(err))
	}
	sess.draft.WipeSecrets()
	sess.draft = &domain.FormDraft{}
	sess.savedAt = time.Time{}
	sess.resumed = false
	sess.state = domain.StateSubmitted
	s.metrics.StepTransition(string(domain.StateSubmitted), metrics.OutcomeOK)
	return result, nil
}

func (s *Service) prepareCheckout(ctx context.Context, sessionID string, payment domain.PaymentDetails) (*domain.FormDraft, error) {
	sess, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if sess.state == domain.StateSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}
	if sess.inFlight {
		return nil, domain.ErrSubmissionInFlight
	}
	sess.state = domain.StateStep3Payment

	if err := validator.Validate(domain.StateStep3Payment, sess.draft, &payment).Err(); err != nil {
		s.metrics.StepTransition(string(domain.StateSubmitted), metrics.OutcomeRejected)
		return nil, err
	}

	s.autosaver.Flush(ctx, sessionID)
	stored, ok := s.store.Load(ctx, domain.DraftKey(sessionID))
	if missing := firstIncompleteStep(stored, ok); missing != "" {
		sess.state = missing
		s.metrics.StepTransition(string(domain.StateSubmitted), metrics.OutcomeRejected)
		s.log.Info("checkout refused, earlier step incomplete", zap.String("missing_step", string(missing)))
		return nil, &domain.IncompleteStepError{Step: missing}
	}
	// Held until Checkout commits or fails, past the release of the handoff guard.
	sess.inFlight = true
	return stored, nil
}

func firstIncompleteStep(stored *domain.FormDraft, ok bool) domain.State {
	if !ok || !stored.HasEntity() || !validator.Validate(domain.StateStep1Entity, stored, nil).Valid() {
		return domain.StateStep1Entity
	}
	if !stored.HasDelegate() || !validator.Validate(domain.StateStep2Delegate, stored, nil).Valid() {
		return domain.StateStep2Delegate
	}
	return ""
}

// Return settles the provider redirect. A cancelled or failed payment puts the
// draft snapshot back so the payment step can be retried without re-entry.
func (s *Service) Return(ctx context.Context, sessionID string, status domain.ReturnStatus) (*domain.Session, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidReturnStatus
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrSessionRequired
	}

	contract, restored, err := s.handoff.Resume(ctx, sessionID, status)
	if err != nil && !errors.Is(err, checkout.ErrNoPendingContract) {
		return nil, err
	}

	sess, aerr := s.acquire(ctx, sessionID)
	if aerr != nil {
		return nil, aerr
	}
	defer sess.mu.Unlock()

	if contract == nil {
		s.log.Info("provider return without pending contract", zap.String("return_status", string(status)))
		return s.view(sessionID, sess, false), nil
	}

	switch {
	case status == domain.ReturnSuccess:
		sess.state = domain.StateSubmitted
	case restored != nil:
		restored.SavedAt = time.Time{}
		sess.draft = restored
		sess.resumed = true
		sess.state = domain.StateStep3Payment
		s.touch(sessionID, sess)
		s.autosaver.Flush(ctx, sessionID)
	default:
		sess.draft = &domain.FormDraft{}
		sess.savedAt = time.Time{}
		sess.state = domain.StateStep1Entity
	}
	return s.view(sessionID, sess, false), nil
}

func (s *Service) view(sessionID string, sess *session, withMissing bool) *domain.Session {
	out := &domain.Session{
		ID:      sessionID,
		State:   sess.state,
		Step:    sess.state.Number(),
		Draft:   sess.draft.Clone(),
		Resumed: sess.resumed,
	}
	if withMissing && sess.state != domain.StateStep3Payment {
		out.Missing = validator.Validate(sess.state, sess.draft, nil).Missing
	}
	return out
}

var _ domain.Service = (*Service)(nil)
