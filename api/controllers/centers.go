package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/api/responses"
	"github.com/tamarLevanoni/couple-time-backend/api/validators"
	"github.com/tamarLevanoni/couple-time-backend/internal/centers"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
)

type createCenterBody struct {
	Name    string  `json:"name" validate:"required,min=2,max=128"`
	Area    string  `json:"area" validate:"required"`
	City    string  `json:"city" validate:"required"`
	Address *string `json:"address,omitempty"`
}

type updateCenterBody struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=128"`
	Area     *string `json:"area,omitempty"`
	City     *string `json:"city,omitempty"`
	Address  *string `json:"address,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type assignStaffBody struct {
	Role   string     `json:"role" validate:"required,oneof=coordinator super_coordinator"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// CenterList is public; members pick a center when browsing games.
func CenterList(svc centers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := centers.CenterFilters{
			Query:      strings.TrimSpace(r.URL.Query().Get("q")),
			ActiveOnly: true,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("area")); raw != "" {
			area := enums.Area(strings.ToUpper(raw))
			if !area.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid area filter"))
				return
			}
			filters.Area = &area
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("includeInactive")); raw == "true" {
			filters.ActiveOnly = false
		}

		list, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CenterGet(svc centers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		centerID, err := pathUUID(r, "centerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Get(r.Context(), centerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CenterCreate(svc centers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createCenterBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		area := enums.Area(strings.ToUpper(strings.TrimSpace(body.Area)))
		if !area.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid area"))
			return
		}

		summary, err := svc.Create(r.Context(), centers.CreateCenterInput{
			ActorUserID: actor,
			Name:        body.Name,
			Area:        area,
			City:        body.City,
			Address:     body.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

func CenterUpdate(svc centers.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body updateCenterBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := centers.UpdateCenterInput{
			ActorUserID: actor,
			CenterID:    centerID,
			Name:        body.Name,
			City:        body.City,
			Address:     body.Address,
			IsActive:    body.IsActive,
		}
		if body.Area != nil {
			area := enums.Area(strings.ToUpper(strings.TrimSpace(*body.Area)))
			if !area.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid area"))
				return
			}
			input.Area = &area
		}

		if err := svc.Update(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// CenterAssignStaff assigns or clears one staffing slot. A null user_id
// clears the slot.
func CenterAssignStaff(svc centers.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body assignStaffBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.AssignStaff(r.Context(), centers.AssignStaffInput{
			ActorUserID: actor,
			CenterID:    centerID,
			Role:        centers.StaffRole(body.Role),
			UserID:      body.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
