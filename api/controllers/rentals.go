package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/api/responses"
	"github.com/tamarLevanoni/couple-time-backend/api/validators"
	"github.com/tamarLevanoni/couple-time-backend/internal/rentals"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
)

type createRentalBody struct {
	InstanceIDs []uuid.UUID `json:"instance_ids" validate:"required,min=1"`
	Notes       *string     `json:"notes,omitempty"`
}

type guestRentalBody struct {
	Email       string      `json:"email" validate:"required,email"`
	FirstName   string      `json:"first_name" validate:"required"`
	LastName    string      `json:"last_name" validate:"required"`
	Phone       *string     `json:"phone,omitempty"`
	InstanceIDs []uuid.UUID `json:"instance_ids" validate:"required,min=1"`
	Notes       *string     `json:"notes,omitempty"`
}

type decisionBody struct {
	Reason   *string `json:"reason,omitempty"`
	LoanDays *int    `json:"loan_days,omitempty"`
}

type transitionBody struct {
	Comment *string `json:"comment,omitempty"`
}

type bulkRentalBody struct {
	RentalIDs []uuid.UUID `json:"rental_ids" validate:"required,min=1"`
	Action    string      `json:"action" validate:"required,oneof=approve reject return"`
	Reason    *string     `json:"reason,omitempty"`
	LoanDays  *int        `json:"loan_days,omitempty"`
}

// RentalCreate submits a rental request for the authenticated member.
func RentalCreate(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRentalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Create(r.Context(), rentals.CreateInput{
			UserID:      actor,
			InstanceIDs: body.InstanceIDs,
			Notes:       body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

// RentalGuestCreate submits a rental request for an unauthenticated guest,
// provisioning an account in the same transaction.
func RentalGuestCreate(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body guestRentalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.CreateGuest(r.Context(), rentals.GuestCreateInput{
			Email:       body.Email,
			FirstName:   body.FirstName,
			LastName:    body.LastName,
			Phone:       body.Phone,
			InstanceIDs: body.InstanceIDs,
			Notes:       body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

func RentalGet(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Get(r.Context(), actor, rentalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// RentalHistory returns the rental's audit trail in chronological order.
func RentalHistory(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actions, err := svc.History(r.Context(), actor, rentalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"actions": actions})
	}
}

func RentalListMine(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RentalListForCenter returns the staff queue for one center, optionally
// filtered by status.
func RentalListForCenter(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		centerID, err := pathUUID(r, "centerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.RentalStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed := enums.RentalStatus(strings.ToUpper(raw))
			if !parsed.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			status = &parsed
		}

		list, err := svc.ListForCenter(r.Context(), actor, centerID, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func RentalApprove(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return decision(svc, logg, func(r *http.Request, svc rentals.Service, input rentals.DecisionInput) error {
		return svc.Approve(r.Context(), input)
	})
}

func RentalReject(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return decision(svc, logg, func(r *http.Request, svc rentals.Service, input rentals.DecisionInput) error {
		return svc.Reject(r.Context(), input)
	})
}

func decision(svc rentals.Service, logg *logger.Logger, apply func(*http.Request, rentals.Service, rentals.DecisionInput) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decisionBody
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rentals.DecisionInput{
			RentalID:    rentalID,
			ActorUserID: actor,
			Reason:      body.Reason,
			LoanDays:    body.LoanDays,
		}
		if err := apply(r, svc, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// RentalCancel lets the requesting member withdraw a pending request.
func RentalCancel(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, func(r *http.Request, svc rentals.Service, input rentals.TransitionInput) error {
		return svc.Cancel(r.Context(), input)
	})
}

// RentalReturn records the physical return of an active rental.
func RentalReturn(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, func(r *http.Request, svc rentals.Service, input rentals.TransitionInput) error {
		return svc.Return(r.Context(), input)
	})
}

func transition(svc rentals.Service, logg *logger.Logger, apply func(*http.Request, rentals.Service, rentals.TransitionInput) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionBody
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rentals.TransitionInput{
			RentalID:    rentalID,
			ActorUserID: actor,
			Comment:     body.Comment,
		}
		if err := apply(r, svc, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// RentalBulkApply applies one action to a batch of rentals atomically. Any
// failure rolls back the whole batch.
func RentalBulkApply(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body bulkRentalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkApply(r.Context(), rentals.BulkInput{
			RentalIDs:   body.RentalIDs,
			Action:      rentals.BulkAction(body.Action),
			ActorUserID: actor,
			Reason:      body.Reason,
			LoanDays:    body.LoanDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
