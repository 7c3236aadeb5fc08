package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecoh-backend/internal/ctxkeys"
	"ecoh-backend/internal/database"
	"ecoh-backend/internal/models"
)

// AdminHandler manages the tipos_actividad catalog. Admin-only routes.
type AdminHandler struct {
	db database.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db database.Service) *AdminHandler {
	return &AdminHandler{db: db}
}

const tipoCols = `id, nombre, area, activo, sort_order, created_at::text, updated_at::text`

func scanTipo(scanner interface {
	Scan(dest ...interface{}) error
}, t *models.TipoActividad) error {
	return scanner.Scan(&t.ID, &t.Nombre, &t.Area, &t.Activo, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt)
}

// ListTipos handles GET /api/tipos-actividad
// Available to all authenticated users; "all=true" includes inactive entries
// (admin screens need them, the activity form does not).
func (h *AdminHandler) ListTipos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	where := "WHERE activo"
	if r.URL.Query().Get("all") == "true" {
		where = ""
	}

	rows, err := h.db.GetPool().Query(ctx, fmt.Sprintf(`
		SELECT %s FROM tipos_actividad %s ORDER BY sort_order, nombre
	`, tipoCols, where))
	if err != nil {
		log.Printf("Error querying tipos: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch tipos de actividad")
		return
	}
	defer rows.Close()

	tipos := []models.TipoActividad{}
	for rows.Next() {
		var t models.TipoActividad
		if err := scanTipo(rows, &t); err != nil {
			continue
		}
		tipos = append(tipos, t)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": tipos,
	})
}

// CreateTipo handles POST /api/admin/tipos-actividad
func (h *AdminHandler) CreateTipo(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTipoActividadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Validation failed",
			"details": errs,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	row := pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO tipos_actividad (nombre, area, activo, sort_order)
		VALUES ($1, $2, TRUE, $3)
		RETURNING %s
	`, tipoCols), req.Nombre, req.Area, req.SortOrder)

	var t models.TipoActividad
	if err := scanTipo(row, &t); err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A tipo with this name already exists in the area")
			return
		}
		log.Printf("Error creating tipo: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create tipo de actividad")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "tipo_actividad", strconv.FormatInt(t.ID, 10), map[string]interface{}{
		"nombre": t.Nombre, "area": t.Area,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    t,
		"message": "Tipo de actividad created successfully",
	})
}

// UpdateTipo handles PUT /api/admin/tipos-actividad/{id}
// Deactivation (activo=false) is the supported way to retire a tipo:
// existing actividades keep referencing it, new ones cannot.
func (h *AdminHandler) UpdateTipo(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Tipo ID is required")
		return
	}

	var req models.UpdateTipoActividadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Area != nil && *req.Area != "ECOH" && *req.Area != "SACFI" {
		JSONError(w, http.StatusUnprocessableEntity, "Area must be 'ECOH' or 'SACFI'")
		return
	}

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argIdx := 1

	addSet := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if req.Nombre != nil {
		addSet("nombre", *req.Nombre)
	}
	if req.Area != nil {
		addSet("area", *req.Area)
	}
	if req.Activo != nil {
		addSet("activo", *req.Activo)
	}
	if req.SortOrder != nil {
		addSet("sort_order", *req.SortOrder)
	}

	if len(sets) == 1 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := fmt.Sprintf(`
		UPDATE tipos_actividad SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argIdx, tipoCols)
	args = append(args, id)

	var t models.TipoActividad
	if err := scanTipo(pool.QueryRow(ctx, query, args...), &t); err != nil {
		log.Printf("Error updating tipo %d: %v", id, err)
		JSONError(w, http.StatusNotFound, "Tipo de actividad not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "tipo_actividad", strconv.FormatInt(t.ID, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    t,
		"message": "Tipo de actividad updated successfully",
	})
}

// DeleteTipo handles DELETE /api/admin/tipos-actividad/{id}
// Refused while actividades still reference the tipo; deactivate instead.
func (h *AdminHandler) DeleteTipo(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Tipo ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var enUso int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM actividades WHERE tipo_actividad_id = $1", id,
	).Scan(&enUso); err != nil {
		log.Printf("Error checking tipo usage: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete tipo de actividad")
		return
	}
	if enUso > 0 {
		JSONError(w, http.StatusConflict, fmt.Sprintf(
			"Cannot delete: %d actividades reference this tipo. Deactivate it instead.", enUso,
		))
		return
	}

	result, err := pool.Exec(ctx, "DELETE FROM tipos_actividad WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting tipo: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete tipo de actividad")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Tipo de actividad not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "tipo_actividad", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tipo de actividad deleted successfully",
	})
}
