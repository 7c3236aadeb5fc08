package handlers

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"ecoh-backend/internal/database"
	"ecoh-backend/internal/models"
)

// RegistroHandler serves the audit trail. Entries are written by
// logActivity throughout the other handlers.
type RegistroHandler struct {
	db database.Service
}

// NewRegistroHandler creates a new RegistroHandler.
func NewRegistroHandler(db database.Service) *RegistroHandler {
	return &RegistroHandler{db: db}
}

// List handles GET /api/registro — paginated audit entries with optional
// filters by user, entity type and action.
func (h *RegistroHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if id, err := strconv.ParseInt(q.Get("usuarioId"), 10, 64); err == nil {
		where += fmt.Sprintf(" AND ra.usuario_id = $%d", argIdx)
		args = append(args, id)
		argIdx++
	}
	if et := q.Get("entityType"); et != "" {
		where += fmt.Sprintf(" AND ra.entity_type = $%d", argIdx)
		args = append(args, et)
		argIdx++
	}
	if accion := q.Get("accion"); accion != "" {
		where += fmt.Sprintf(" AND ra.accion = $%d", argIdx)
		args = append(args, accion)
		argIdx++
	}

	var total int
	if err := pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM registro_actividad ra %s", where), args...,
	).Scan(&total); err != nil {
		log.Printf("Error counting registro: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch registro")
		return
	}

	query := fmt.Sprintf(`
		SELECT ra.id, ra.usuario_id, u.name, ra.accion, ra.entity_type, ra.entity_id,
			ra.detalle, ra.created_at::text
		FROM registro_actividad ra
		LEFT JOIN users u ON u.id = ra.usuario_id
		%s
		ORDER BY ra.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying registro: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch registro")
		return
	}
	defer rows.Close()

	entradas := []models.RegistroActividad{}
	for rows.Next() {
		var e models.RegistroActividad
		if err := rows.Scan(&e.ID, &e.UsuarioID, &e.Usuario, &e.Accion, &e.EntityType, &e.EntityID, &e.Detalle, &e.CreatedAt); err != nil {
			continue
		}
		entradas = append(entradas, e)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: entradas,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}
