package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ddreams/internal/service"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
	ContactName string `json:"contact_name,omitempty"`
}

func RegisterHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if req.Email == "" || req.Password == "" || req.CompanyName == "" {
			http.Error(w, "email, password and company name required", http.StatusBadRequest)
			return
		}
		if !strings.Contains(req.Email, "@") {
			http.Error(w, "invalid email", http.StatusBadRequest)
			return
		}
		if len(req.Password) < 8 {
			http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
			return
		}

		user, err := authSvc.Register(r.Context(), req.Email, req.Password, req.CompanyName, req.ContactName)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmailTaken):
				http.Error(w, "email already registered", http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		if err := issueToken(w, user, secret); err != nil {
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}
