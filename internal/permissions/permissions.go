package permissions

import (
	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/pkg/db/models"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
)

// Tier orders the capability levels an actor can resolve to for a given
// center. Permission checks compare against the maximum tier the actor's
// role set yields, never against a single "primary" role.
type Tier int

const (
	TierNone Tier = iota
	TierUser
	TierCoordinator
	TierSuperCoordinator
	TierAdmin
)

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierUser:
		return "user"
	case TierCoordinator:
		return "coordinator"
	case TierSuperCoordinator:
		return "super_coordinator"
	case TierAdmin:
		return "admin"
	default:
		return "none"
	}
}

// TierFor resolves the highest tier the actor holds for the given center.
// Scope is a resource relationship: coordinator and super-coordinator rank
// only apply when the center's current back-reference points at the actor.
// A nil center limits the actor to admin-or-user resolution.
func TierFor(actor *models.User, center *models.Center) Tier {
	if actor == nil || !actor.IsActive {
		return TierNone
	}

	tier := TierNone
	for _, role := range actor.RoleSet() {
		switch role {
		case enums.RoleAdmin:
			return TierAdmin
		case enums.RoleSuperCoordinator:
			if center != nil && center.SuperCoordinatorID != nil && *center.SuperCoordinatorID == actor.ID {
				tier = maxTier(tier, TierSuperCoordinator)
			}
		case enums.RoleCenterCoordinator:
			if center != nil && center.CoordinatorID != nil && *center.CoordinatorID == actor.ID {
				tier = maxTier(tier, TierCoordinator)
			}
		case enums.RoleUser:
			tier = maxTier(tier, TierUser)
		}
	}
	return tier
}

// IsStaff reports whether the actor holds coordinator-or-above rank for the
// center. Super-coordinators inherit coordinator-level access on the centers
// they supervise.
func IsStaff(actor *models.User, center *models.Center) bool {
	return TierFor(actor, center) >= TierCoordinator
}

// IsAdmin reports whether the actor holds the admin role.
func IsAdmin(actor *models.User) bool {
	return actor != nil && actor.IsActive && actor.HasRole(enums.RoleAdmin)
}

// CanReadRental reports whether the actor may see the rental at all. Owners
// always see their own rentals; staff see rentals scoped to their centers.
func CanReadRental(actor *models.User, rental *models.Rental, center *models.Center) bool {
	if actor == nil || rental == nil {
		return false
	}
	if rental.UserID == actor.ID && actor.IsActive {
		return true
	}
	return IsStaff(actor, center)
}

// CanCancelRental reports whether the actor may cancel the rental. Cancel is
// requester-only while the rental is still pending; staff end pending
// rentals through reject so the audit trail records who refused and why.
// Admins may cancel on a requester's behalf.
func CanCancelRental(actor *models.User, rental *models.Rental) bool {
	if actor == nil || rental == nil || !actor.IsActive {
		return false
	}
	if rental.Status != enums.RentalStatusPending {
		return false
	}
	if IsAdmin(actor) {
		return true
	}
	return rental.UserID == actor.ID
}

// StaffCenterIDs returns the distinct centers the actor has staff rank on,
// resolved from the provided center rows.
func StaffCenterIDs(actor *models.User, centers []models.Center) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(centers))
	for i := range centers {
		if IsStaff(actor, &centers[i]) {
			ids = append(ids, centers[i].ID)
		}
	}
	return ids
}

func maxTier(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}
