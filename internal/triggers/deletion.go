package triggers

import (
	"context"

	"github.com/buildsite-dev/buildsite/internal/events"
	"go.uber.org/zap"
)

// HandleIdentityDeleted removes the profile and decrements the user counter
// in one atomic batch. A failed batch leaves both untouched; the orphaned
// profile is reconciled by administrative cleanup.
func (p *Pipeline) HandleIdentityDeleted(ctx context.Context, ev events.IdentityDeleted) {
	log := p.logger.With(
		zap.String("trigger", "deletion"),
		zap.String("uid", ev.UID))

	if err := p.store.RemoveProfile(ctx, ev.UID); err != nil {
		log.Error("profile removal batch failed",
			zap.String("operation", "removeProfile"),
			zap.Error(err))
		return
	}

	log.Info("profile removed")
	p.notify(ev.UID, NotifyProfileUpdated)
}
