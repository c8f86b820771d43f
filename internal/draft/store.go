// Package draft persists in-progress onboarding drafts with a retention window.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ramonsune/custodia360/internal/clock"
	"github.com/ramonsune/custodia360/internal/observability/metrics"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"go.uber.org/zap"
)

// DefaultRetention is how long a saved draft stays usable.
const DefaultRetention = 24 * time.Hour

var (
	ErrNilDraft = errors.New("nil_draft")
	ErrEmptyKey = errors.New("empty_draft_key")
)

// backend is the raw key/value medium behind a Store.
type backend interface {
	Name() string
	Put(ctx context.Context, key string, payload []byte, savedAt time.Time, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

// Store implements domain.DraftStore over a backend. Expired and corrupt
// records are deleted when read.
type Store struct {
	backend   backend
	clock     clock.Clock
	retention time.Duration
	log       *zap.Logger
	metrics   *metrics.Onboarding
}

type Options struct {
	Clock     clock.Clock
	Retention time.Duration
	Log       *zap.Logger
	Metrics   *metrics.Onboarding
}

func newStore(b backend, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Store{
		backend:   b,
		clock:     opts.Clock,
		retention: opts.Retention,
		log:       opts.Log.Named("draft.store").With(zap.String("backend", b.Name())),
		metrics:   opts.Metrics,
	}
}

// Save stamps draft.SavedAt and overwrites the record under key.
func (s *Store) Save(ctx context.Context, key string, draft *domain.FormDraft) error {
	if key == "" {
		return ErrEmptyKey
	}
	if draft == nil {
		return ErrNilDraft
	}

	draft.SavedAt = s.clock.Now()
	payload, err := json.Marshal(draft)
	if err != nil {
		s.metrics.DraftSaved(s.backend.Name(), metrics.OutcomeError)
		return err
	}
	if err := s.backend.Put(ctx, key, payload, draft.SavedAt, s.retention); err != nil {
		s.metrics.DraftSaved(s.backend.Name(), metrics.OutcomeError)
		return err
	}
	s.metrics.DraftSaved(s.backend.Name(), metrics.OutcomeOK)
	return nil
}

// Load returns the draft under key when it is readable and younger than the
// retention window. Read failures are logged and reported as absent.
func (s *Store) Load(ctx context.Context, key string) (*domain.FormDraft, bool) {
	if key == "" {
		return nil, false
	}

	payload, found, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn("draft read failed", zap.Error(err))
		s.metrics.DraftLoaded(s.backend.Name(), metrics.OutcomeError)
		return nil, false
	}
	if !found {
		s.metrics.DraftLoaded(s.backend.Name(), metrics.OutcomeMiss)
		return nil, false
	}

	var draft domain.FormDraft
	if err := json.Unmarshal(payload, &draft); err != nil || draft.SavedAt.IsZero() {
		s.log.Warn("corrupt draft purged", zap.Error(err))
		s.purge(ctx, key)
		s.metrics.DraftLoaded(s.backend.Name(), metrics.OutcomeCorrupt)
		return nil, false
	}
	if s.expired(draft.SavedAt) {
		s.log.Debug("expired draft purged", zap.Time("saved_at", draft.SavedAt))
		s.purge(ctx, key)
		s.metrics.DraftLoaded(s.backend.Name(), metrics.OutcomeExpired)
		return nil, false
	}

	s.metrics.DraftLoaded(s.backend.Name(), metrics.OutcomeOK)
	return &draft, true
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.backend.Delete(ctx, key)
}

type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeExpired sweeps expired records on backends without native expiry.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	purger, ok := s.backend.(expiredPurger)
	if !ok {
		return 0, nil
	}
	return purger.PurgeExpired(ctx)
}

// Backend names the storage medium.
func (s *Store) Backend() string {
	return s.backend.Name()
}

func (s *Store) expired(savedAt time.Time) bool {
	return s.clock.Now().Sub(savedAt) >= s.retention
}

func (s *Store) purge(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.log.Warn("draft purge failed", zap.Error(err))
	}
}

var _ domain.DraftStore = (*Store)(nil)
