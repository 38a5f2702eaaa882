package services

import (
	"context"

	"github.com/metagameshop/shop-backend/internal/models"
	"golang.org/x/exp/slog"
)

// Action names a ledger operation that needs authorization.
type Action string

const (
	ActionApprovePayment Action = "payment.approve"
	ActionRejectPayment  Action = "payment.reject"
)

// Authorizer decides whether actor may perform action.
type Authorizer interface {
	Authorize(ctx context.Context, actor *models.Actor, action Action) error
}

// RoleAuthorizer admits only actors with the admin role.
type RoleAuthorizer struct{}

// Authorize implements Authorizer.
func (RoleAuthorizer) Authorize(_ context.Context, actor *models.Actor, action Action) error {
	if actor == nil || actor.ID == "" {
		return ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		slog.Warn("Rejected admin action", "action", action, "actorId", actor.ID, "role", actor.Role)
		return ErrForbidden
	}
	return nil
}

// AllowAllAuthorizer admits everyone. Used when no admin credentials are configured.
type AllowAllAuthorizer struct{}

// Authorize implements Authorizer.
func (AllowAllAuthorizer) Authorize(context.Context, *models.Actor, Action) error {
	return nil
}
