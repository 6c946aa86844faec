package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/api/responses"
	"github.com/tamarLevanoni/couple-time-backend/api/validators"
	"github.com/tamarLevanoni/couple-time-backend/internal/games"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	pkgerrors "github.com/tamarLevanoni/couple-time-backend/pkg/errors"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
)

type createGameBody struct {
	Name            string   `json:"name" validate:"required,min=2,max=128"`
	Description     string   `json:"description" validate:"required"`
	Categories      []string `json:"categories,omitempty"`
	TargetAudiences []string `json:"target_audiences,omitempty"`
	ImageURL        *string  `json:"image_url,omitempty"`
}

type updateGameBody struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,min=2,max=128"`
	Description     *string  `json:"description,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	TargetAudiences []string `json:"target_audiences,omitempty"`
	ImageURL        *string  `json:"image_url,omitempty"`
}

type createInstanceBody struct {
	GameID   uuid.UUID `json:"game_id" validate:"required"`
	CenterID uuid.UUID `json:"center_id" validate:"required"`
	Notes    *string   `json:"notes,omitempty"`
}

type setInstanceStatusBody struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

// GameList is the public catalog; no authentication required.
func GameList(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := games.GameFilters{
			Query:    strings.TrimSpace(r.URL.Query().Get("q")),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Audience: strings.TrimSpace(r.URL.Query().Get("audience")),
		}

		list, err := svc.ListGames(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GameGet(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathUUID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetGame(r.Context(), gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func GameCreate(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createGameBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.CreateGame(r.Context(), games.CreateGameInput{
			ActorUserID:     actor,
			Name:            body.Name,
			Description:     body.Description,
			Categories:      body.Categories,
			TargetAudiences: body.TargetAudiences,
			ImageURL:        body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

func GameUpdate(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gameID, err := pathUUID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateGameBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.UpdateGame(r.Context(), games.UpdateGameInput{
			ActorUserID:     actor,
			GameID:          gameID,
			Name:            body.Name,
			Description:     body.Description,
			Categories:      body.Categories,
			TargetAudiences: body.TargetAudiences,
			ImageURL:        body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func InstanceCreate(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createInstanceBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.CreateInstance(r.Context(), games.CreateInstanceInput{
			ActorUserID: actor,
			GameID:      body.GameID,
			CenterID:    body.CenterID,
			Notes:       body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

// InstanceListForCenter is public so members can browse a center's shelf
// before requesting.
func InstanceListForCenter(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		list, err := svc.ListInstancesForCenter(r.Context(), centerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// InstanceSetStatus is the staff availability toggle between AVAILABLE and
// UNAVAILABLE. BORROWED is owned by the rental state machine and rejected
// here.
func InstanceSetStatus(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		instanceID, err := pathUUID(r, "instanceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setInstanceStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.GameInstanceStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
		if !status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status"))
			return
		}

		err = svc.SetInstanceStatus(r.Context(), games.SetInstanceStatusInput{
			InstanceID:  instanceID,
			ActorUserID: actor,
			Status:      status,
			Notes:       body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
