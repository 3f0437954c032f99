package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/vireon/internal/domain/auth"
)

// ListNotifications returns the caller's notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if !p.Authenticated() {
		writeError(w, r, scopeDefault, auth.ErrAuthenticationRequired)
		return
	}

	limit := queryInt(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	list, err := h.notifications.ListByUser(r.Context(), p.UserID, limit)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("notifications", func(e *jx.Encoder) {
				e.ArrStart()
				for i := range list {
					encodeNotification(e, &list[i])
				}
				e.ArrEnd()
			})
		})
	})
}

// DashboardStats returns store-wide totals for administrators.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.dashboard.Stats(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStats(e, st) })
}
