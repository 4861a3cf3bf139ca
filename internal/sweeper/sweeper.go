package sweeper

import (
	"context"
	"time"

	"github.com/buildsite-dev/buildsite/internal/triggers"
	"github.com/buildsite-dev/buildsite/internal/types"
	"go.uber.org/zap"
)

// ClaimsStore is the identity-provider surface the sweep needs: read the
// currently stored claims and overwrite drifted ones.
type ClaimsStore interface {
	CustomClaims(ctx context.Context, uid string) (types.Claims, error)
	SetCustomClaims(ctx context.Context, uid string, claims types.Claims) error
}

// Sweeper periodically reconciles stored claims against profiles. It is the
// healing path for a signup whose claims write failed after the profile
// landed, and for role-change claim writes that failed silently.
type Sweeper struct {
	store    triggers.ProfileStore
	claims   ClaimsStore
	logger   *zap.Logger
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(store triggers.ProfileStore, claims ClaimsStore, interval time.Duration, logger *zap.Logger) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		store:    store,
		claims:   claims,
		logger:   logger,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins sweeping in the background. An interval of zero disables the
// sweeper entirely.
func (s *Sweeper) Start() {
	if s.interval <= 0 {
		s.logger.Info("claims sweeper disabled")
		close(s.done)
		return
	}

	s.logger.Info("claims sweeper started", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(s.ctx)
			}
		}
	}()
}

// Stop cancels the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.cancel()
	<-s.done
}

// SweepOnce re-derives claims for every profile and overwrites any stored
// claim set that no longer matches.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	profiles, err := s.store.Profiles(ctx)
	if err != nil {
		s.logger.Error("sweep: listing profiles failed", zap.Error(err))
		return
	}

	reconciled := 0

	for _, profile := range profiles {
		want := triggers.DeriveClaims(profile)

		have, err := s.claims.CustomClaims(ctx, profile.UID)
		if err != nil {
			s.logger.Error("sweep: reading claims failed",
				zap.String("uid", profile.UID),
				zap.Error(err))
			continue
		}

		if triggers.SameClaims(have, want) {
			continue
		}

		if err := s.claims.SetCustomClaims(ctx, profile.UID, want); err != nil {
			s.logger.Error("sweep: claims write failed",
				zap.String("uid", profile.UID),
				zap.String("operation", "setCustomClaims"),
				zap.Error(err))
			continue
		}

		reconciled++
		s.logger.Info("sweep: claims reconciled",
			zap.String("uid", profile.UID),
			zap.String("role", want.Role))
	}

	if reconciled > 0 {
		s.logger.Info("sweep finished", zap.Int("reconciled", reconciled))
	}
}
