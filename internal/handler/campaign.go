package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ddreams/internal/model"
	"ddreams/internal/service"
)

func ActiveCampaignHandler(campaignSvc *service.CampaignService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaign, err := campaignSvc.Active(r.Context(), time.Now())
		if err != nil {
			if errors.Is(err, service.ErrNoActiveCampaign) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, campaign)
	}
}

type createCampaignRequest struct {
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Theme    json.RawMessage `json:"theme,omitempty"`
	StartsOn string          `json:"starts_on"` // 2006-01-02
	EndsOn   string          `json:"ends_on"`
	Enabled  bool            `json:"enabled"`
}

func CreateCampaignHandler(campaignSvc *service.CampaignService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Slug == "" {
			http.Error(w, "name and slug required", http.StatusBadRequest)
			return
		}

		starts, err := parseDate(req.StartsOn)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ends, err := parseDate(req.EndsOn)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		campaign := model.Campaign{
			Name:     req.Name,
			Slug:     req.Slug,
			Theme:    req.Theme,
			StartsOn: starts,
			EndsOn:   ends,
			Enabled:  req.Enabled,
		}
		if err := campaignSvc.Create(r.Context(), &campaign); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusCreated, campaign)
	}
}

func ListCampaignsHandler(campaignSvc *service.CampaignService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaigns, err := campaignSvc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if len(campaigns) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, campaigns)
	}
}

// campaignStore is what the admin mutation handlers need.
type campaignStore interface {
	Update(ctx context.Context, c *model.Campaign) error
	Delete(ctx context.Context, id string) error
}

func UpdateCampaignHandler(campaignSvc campaignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req createCampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Slug == "" {
			http.Error(w, "name and slug required", http.StatusBadRequest)
			return
		}

		starts, err := parseDate(req.StartsOn)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ends, err := parseDate(req.EndsOn)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		campaign := model.Campaign{
			ID:       id,
			Name:     req.Name,
			Slug:     req.Slug,
			Theme:    req.Theme,
			StartsOn: starts,
			EndsOn:   ends,
			Enabled:  req.Enabled,
		}
		if err := campaignSvc.Update(r.Context(), &campaign); err != nil {
			if errors.Is(err, service.ErrCampaignNotFound) {
				http.Error(w, "campaign not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusOK, campaign)
	}
}

func DeleteCampaignHandler(campaignSvc campaignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := campaignSvc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, service.ErrCampaignNotFound) {
				http.Error(w, "campaign not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type enableCampaignRequest struct {
	Enabled bool `json:"enabled"`
}

func EnableCampaignHandler(campaignSvc *service.CampaignService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req enableCampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := campaignSvc.SetEnabled(r.Context(), id, req.Enabled); err != nil {
			if errors.Is(err, service.ErrCampaignNotFound) {
				http.Error(w, "campaign not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
