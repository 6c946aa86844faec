package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
)

// UserSource loads the current user row.
type UserSource interface {
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CenterSource loads the current center row.
type CenterSource interface {
	FindCenter(ctx context.Context, id uuid.UUID) (*models.Center, error)
}

// Resolver answers permission questions against freshly loaded rows. It
// never trusts a role or scope snapshot carried in a session token: roles
// and the center's coordinator back-references can change between login and
// the request being authorized.
type Resolver struct {
	users   UserSource
	centers CenterSource
}

// NewResolver wires the resolver's row sources. Centers may be nil for
// callers that only resolve actor identity or admin rank.
func NewResolver(users UserSource, centers CenterSource) (*Resolver, error) {
	if users == nil {
		return nil, fmt.Errorf("user source required")
	}
	return &Resolver{users: users, centers: centers}, nil
}

// Actor loads the current user row for the authenticated id. A missing or
// deactivated user resolves to unauthorized, not not-found: the token was
// valid once but no longer maps to a usable identity.
func (r *Resolver) Actor(ctx context.Context, actorID uuid.UUID) (*models.User, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	actor, err := r.users.FindUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load actor")
	}
	if !actor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is deactivated")
	}
	return actor, nil
}

// RequireStaff loads the actor and the center and verifies coordinator-or-
// above rank on that center. The center being out of the actor's scope is
// forbidden, never not-found: existence must not leak through the error.
func (r *Resolver) RequireStaff(ctx context.Context, actorID, centerID uuid.UUID) (*models.User, *models.Center, error) {
	if r.centers == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "resolver has no center source")
	}
	actor, err := r.Actor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	center, err := r.centers.FindCenter(ctx, centerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "center not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load center")
	}
	if !IsStaff(actor, center) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required for this center")
	}
	return actor, center, nil
}

// RequireAdmin loads the actor and verifies the admin role.
func (r *Resolver) RequireAdmin(ctx context.Context, actorID uuid.UUID) (*models.User, error) {
	actor, err := r.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !IsAdmin(actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	return actor, nil
}
