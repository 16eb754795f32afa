package handler

import (
	"encoding/json"
	"net/http"

	"ddreams/internal/service"
)

func GetSettingsHandler(settingsSvc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := settingsSvc.Load(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func UpdateSettingsHandler(settingsSvc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var changes map[string]any
		if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if len(changes) == 0 {
			http.Error(w, "empty update", http.StatusBadRequest)
			return
		}

		doc, err := settingsSvc.Update(r.Context(), changes)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}
