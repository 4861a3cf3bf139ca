package triggers

import (
	"context"

	"github.com/buildsite-dev/buildsite/internal/events"
	"go.uber.org/zap"
)

// Notifier is told after a user's profile or claims changed, so live
// subscribers can be hinted to re-fetch and force a token refresh.
type Notifier func(uid string, kind string)

// Notification kinds passed to the Notifier.
const (
	NotifyProfileUpdated = "profile_updated"
	NotifyClaimsUpdated  = "claims_updated"
)

// Pipeline owns the three server-side triggers that keep profiles, the user
// counter and token claims in sync with identity and profile events.
type Pipeline struct {
	store  ProfileStore
	claims ClaimsSetter
	logger *zap.Logger
	notify Notifier
}

func NewPipeline(store ProfileStore, claims ClaimsSetter, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		claims: claims,
		logger: logger,
		notify: func(string, string) {},
	}
}

// WithNotifier installs the live-subscription hint hook.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	if n != nil {
		p.notify = n
	}
	return p
}

// Register subscribes the triggers to the event bus.
func (p *Pipeline) Register(bus *events.Bus) {
	bus.Subscribe(func(ctx context.Context, event interface{}) {
		switch ev := event.(type) {
		case events.IdentityCreated:
			p.HandleIdentityCreated(ctx, ev)
		case events.IdentityDeleted:
			p.HandleIdentityDeleted(ctx, ev)
		case events.ProfileUpdated:
			p.HandleProfileUpdated(ctx, ev)
		}
	})
}
