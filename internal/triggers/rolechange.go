package triggers

import (
	"context"

	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/buildsite-dev/buildsite/internal/models"
	"go.uber.org/zap"
)

// HandleProfileUpdated re-syncs token claims after a profile update touched
// an authorization-relevant field. Updates that change nothing relevant are
// a no-op so client tokens are not invalidated needlessly.
//
// Failures are logged and not retried here: the reconciliation sweep, and the
// next relevant profile update, both re-derive claims from the latest state.
func (p *Pipeline) HandleProfileUpdated(ctx context.Context, ev events.ProfileUpdated) {
	if !claimsFieldsChanged(ev.Before, ev.After) {
		return
	}

	uid := ev.After.UID
	claims := DeriveClaims(ev.After)

	if err := p.claims.SetCustomClaims(ctx, uid, claims); err != nil {
		p.logger.Error("claims write failed",
			zap.String("trigger", "role_change"),
			zap.String("uid", uid),
			zap.String("operation", "setCustomClaims"),
			zap.Error(err))
		return
	}

	p.logger.Info("claims re-synced",
		zap.String("trigger", "role_change"),
		zap.String("uid", uid),
		zap.String("role", claims.Role))

	p.notify(uid, NotifyClaimsUpdated)
}

func claimsFieldsChanged(before, after models.UserProfile) bool {
	if before.Role != after.Role {
		return true
	}
	if !sameStringSet(before.AssignedModules, after.AssignedModules) {
		return true
	}
	return !sameStringSet(before.AssignedProjects, after.AssignedProjects)
}
