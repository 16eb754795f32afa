package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ddreams/internal/mw"
	"ddreams/internal/service"
)

func ListNotificationsHandler(notifySvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		notifications, err := notifySvc.ListByUser(r.Context(), userID, 50)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if len(notifications) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, notifications)
	}
}

func UnreadCountHandler(notifySvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		count, err := notifySvc.UnreadCount(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"unread": count})
	}
}

func MarkNotificationReadHandler(notifySvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)
		id := chi.URLParam(r, "id")

		if err := notifySvc.MarkRead(r.Context(), userID, id); err != nil {
			if errors.Is(err, service.ErrNotificationNotFound) {
				http.Error(w, "notification not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func MarkAllReadHandler(notifySvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r)

		if err := notifySvc.MarkAllRead(r.Context(), userID); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
