package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"ecoh-backend/internal/ctxkeys"
	"ecoh-backend/internal/database"
	"ecoh-backend/internal/models"
)

// NotificacionHandler serves each user's in-app notifications. Entries are
// written by the overdue-activity notifier, not by this handler.
type NotificacionHandler struct {
	db database.Service
}

// NewNotificacionHandler creates a new NotificacionHandler.
func NewNotificacionHandler(db database.Service) *NotificacionHandler {
	return &NotificacionHandler{db: db}
}

// List handles GET /api/notificaciones — the caller's notifications,
// newest first, capped at 100.
func (h *NotificacionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT id, usuario_id, titulo, mensaje, tipo, entity_type, entity_id, leida, created_at::text
		FROM notificaciones
		WHERE usuario_id = $1::bigint
		ORDER BY created_at DESC
		LIMIT 100
	`, userID)
	if err != nil {
		log.Printf("Error querying notificaciones: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch notificaciones")
		return
	}
	defer rows.Close()

	notificaciones := []models.Notificacion{}
	noLeidas := 0
	for rows.Next() {
		var n models.Notificacion
		if err := rows.Scan(&n.ID, &n.UsuarioID, &n.Titulo, &n.Mensaje, &n.Tipo, &n.EntityType, &n.EntityID, &n.Leida, &n.CreatedAt); err != nil {
			continue
		}
		if !n.Leida {
			noLeidas++
		}
		notificaciones = append(notificaciones, n)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":     notificaciones,
		"noLeidas": noLeidas,
	})
}

// UnreadCount handles GET /api/notificaciones/count — badge counter.
func (h *NotificacionHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var count int
	err := h.db.GetPool().QueryRow(ctx, `
		SELECT COUNT(*) FROM notificaciones
		WHERE usuario_id = $1::bigint AND NOT leida
	`, userID).Scan(&count)
	if err != nil {
		log.Printf("Error counting notificaciones: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to count notificaciones")
		return
	}

	JSON(w, http.StatusOK, map[string]int{"noLeidas": count})
}

// MarkRead handles PATCH /api/notificaciones/{id}/leida
func (h *NotificacionHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Notificacion ID is required")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Ownership is enforced in the WHERE clause, not checked separately
	result, err := h.db.GetPool().Exec(ctx, `
		UPDATE notificaciones SET leida = TRUE
		WHERE id = $1 AND usuario_id = $2::bigint
	`, id, userID)
	if err != nil {
		log.Printf("Error marking notificacion read: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update notificacion")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Notificacion not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Notificacion marked as read",
	})
}

// MarkAllRead handles POST /api/notificaciones/leidas
func (h *NotificacionHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := h.db.GetPool().Exec(ctx, `
		UPDATE notificaciones SET leida = TRUE
		WHERE usuario_id = $1::bigint AND NOT leida
	`, userID)
	if err != nil {
		log.Printf("Error marking notificaciones read: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update notificaciones")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "All notificaciones marked as read",
	})
}
