package triggers

import (
	"context"
	"strings"
	"time"

	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// claimsRetryWindow bounds the backoff retry on the signup claims write.
// After it elapses the reconciliation sweep is the remaining healing path.
const claimsRetryWindow = 30 * time.Second

// HandleIdentityCreated initializes the profile and claims for a new account.
//
// The counter transaction runs first: if it cannot commit, the trigger aborts
// with no side effects and an operator reconciles manually. Everything after
// it is idempotent, so duplicate delivery of the same event converges on the
// same end state.
func (p *Pipeline) HandleIdentityCreated(ctx context.Context, ev events.IdentityCreated) {
	log := p.logger.With(
		zap.String("trigger", "signup"),
		zap.String("uid", ev.UID))

	isFirstUser, err := p.store.RegisterSignup(ctx)
	if err != nil {
		log.Error("counter transaction failed, aborting signup", zap.Error(err))
		return
	}

	firstName, lastName := DeriveName(ev.DisplayName, ev.Email)

	role := types.RoleViewer
	assignedModules := []string{}
	if isFirstUser {
		role = types.RoleAdmin
		assignedModules = types.DefaultAdminModules()
	}

	profile := models.UserProfile{
		UID:              ev.UID,
		FirstName:        firstName,
		LastName:         lastName,
		Email:            ev.Email,
		Role:             role,
		Status:           types.StatusActive,
		AssignedModules:  assignedModules,
		AssignedProjects: []string{},
	}

	if err := p.store.SaveProfile(ctx, &profile); err != nil {
		log.Error("profile write failed", zap.Error(err))
		return
	}

	claims := DeriveClaims(profile)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = claimsRetryWindow

	err = backoff.Retry(func() error {
		return p.claims.SetCustomClaims(ctx, ev.UID, claims)
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		log.Error("claims write failed after retries, sweep will reconcile",
			zap.String("operation", "setCustomClaims"),
			zap.Error(err))
		return
	}

	log.Info("signup processed",
		zap.Bool("first_user", isFirstUser),
		zap.String("role", role))

	p.notify(ev.UID, NotifyClaimsUpdated)
}

// DeriveName splits a display name into first and last name, falling back to
// the email local-part and then to literal placeholders.
func DeriveName(displayName, email string) (firstName, lastName string) {
	tokens := strings.Fields(displayName)

	switch {
	case len(tokens) >= 2:
		return tokens[0], strings.Join(tokens[1:], " ")
	case len(tokens) == 1:
		return tokens[0], "User"
	}

	if email != "" {
		local := email
		if at := strings.Index(email, "@"); at >= 0 {
			local = email[:at]
		}
		return local, "User"
	}

	return "New", "User"
}
