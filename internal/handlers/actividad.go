package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecoh-backend/internal/ctxkeys"
	"ecoh-backend/internal/database"
	"ecoh-backend/internal/metrics"
	"ecoh-backend/internal/models"
)

// ActividadHandler handles actividad HTTP requests.
type ActividadHandler struct {
	db database.Service
}

// NewActividadHandler creates a new ActividadHandler.
func NewActividadHandler(db database.Service) *ActividadHandler {
	return &ActividadHandler{db: db}
}

const actividadCols = `a.id, a.causa_id, a.tipo_actividad_id, a.usuario_id,
	a.estado, a.fecha_inicio::text, a.fecha_termino::text, a.observacion,
	a.created_at::text, a.updated_at::text`

const actividadRetCols = `id, causa_id, tipo_actividad_id, usuario_id,
	estado, fecha_inicio::text, fecha_termino::text, observacion,
	created_at::text, updated_at::text`

func scanActividad(scanner interface {
	Scan(dest ...interface{}) error
}, a *models.Actividad) error {
	return scanner.Scan(
		&a.ID, &a.CausaID, &a.TipoID, &a.UsuarioID,
		&a.Estado, &a.FechaInicio, &a.FechaTermino, &a.Observacion,
		&a.CreatedAt, &a.UpdatedAt,
	)
}

// ── Create ─────────────────────────────────────────────────────

// Create handles POST /api/causas/{id}/actividades
func (h *ActividadHandler) Create(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	var req models.CreateActividadRequest
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

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Tipo must exist and be active
	var tipoActivo bool
	err := pool.QueryRow(ctx,
		"SELECT activo FROM tipos_actividad WHERE id = $1", req.TipoID,
	).Scan(&tipoActivo)
	if err != nil || !tipoActivo {
		JSONError(w, http.StatusUnprocessableEntity, "Tipo de actividad not found or inactive")
		return
	}

	row := pool.QueryRow(ctx, `
		INSERT INTO actividades (causa_id, tipo_actividad_id, usuario_id, estado, fecha_inicio, fecha_termino, observacion)
		VALUES ($1, $2, $3, 'inicio', $4, $5, $6)
		RETURNING `+actividadRetCols,
		causaID, req.TipoID, req.UsuarioID, req.FechaInicio, req.FechaTermino, req.Observacion,
	)

	var a models.Actividad
	if err := scanActividad(row, &a); err != nil {
		log.Printf("Error creating actividad: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create actividad")
		return
	}

	metrics.ActividadCreada()

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "actividad", strconv.FormatInt(a.ID, 10), map[string]interface{}{
		"causaId": causaID, "tipoActividadId": a.TipoID,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    a,
		"message": "Actividad created successfully",
	})
}

// ── List ───────────────────────────────────────────────────────

// List handles GET /api/actividades — cross-causa listing with filters.
func (h *ActividadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	where, args, argIdx = appendAreaScope(ctx, where, args, argIdx, "c.area")

	if estado := q.Get("estado"); estado != "" {
		where += fmt.Sprintf(" AND a.estado = $%d", argIdx)
		args = append(args, estado)
		argIdx++
	}
	if id, err := strconv.ParseInt(q.Get("usuarioId"), 10, 64); err == nil {
		where += fmt.Sprintf(" AND a.usuario_id = $%d", argIdx)
		args = append(args, id)
		argIdx++
	}
	if id, err := strconv.ParseInt(q.Get("tipoActividadId"), 10, 64); err == nil {
		where += fmt.Sprintf(" AND a.tipo_actividad_id = $%d", argIdx)
		args = append(args, id)
		argIdx++
	}
	if id, err := strconv.ParseInt(q.Get("causaId"), 10, 64); err == nil {
		where += fmt.Sprintf(" AND a.causa_id = $%d", argIdx)
		args = append(args, id)
		argIdx++
	}
	if q.Get("vencidas") == "true" {
		where += " AND a.fecha_termino < CURRENT_DATE AND a.estado != 'terminado'"
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM actividades a
		JOIN causas c ON c.id = a.causa_id
		%s
	`, where)
	if err := pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Printf("Error counting actividades: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch actividades")
		return
	}

	query := fmt.Sprintf(`
		SELECT
			%s,
			c.ruc, c.denominacion, t.nombre, c.area, u.name,
			(a.fecha_termino < CURRENT_DATE AND a.estado != 'terminado') AS vencida
		FROM actividades a
		JOIN causas c ON c.id = a.causa_id
		JOIN tipos_actividad t ON t.id = a.tipo_actividad_id
		JOIN users u ON u.id = a.usuario_id
		%s
		ORDER BY a.fecha_termino ASC
		LIMIT $%d OFFSET $%d
	`, actividadCols, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying actividades: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch actividades")
		return
	}
	defer rows.Close()

	actividades := []models.ActividadConDetalle{}
	for rows.Next() {
		var a models.ActividadConDetalle
		err := rows.Scan(
			&a.ID, &a.CausaID, &a.TipoID, &a.UsuarioID,
			&a.Estado, &a.FechaInicio, &a.FechaTermino, &a.Observacion,
			&a.CreatedAt, &a.UpdatedAt,
			&a.RUC, &a.Denominacion, &a.TipoNombre, &a.AreaNombre, &a.UsuarioNombre,
			&a.Vencida,
		)
		if err != nil {
			log.Printf("Error scanning actividad: %v", err)
			continue
		}
		actividades = append(actividades, a)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: actividades,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ListByCausa handles GET /api/causas/{id}/actividades
func (h *ActividadHandler) ListByCausa(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.db.GetPool().Query(ctx, fmt.Sprintf(`
		SELECT
			%s,
			c.ruc, c.denominacion, t.nombre, c.area, u.name,
			(a.fecha_termino < CURRENT_DATE AND a.estado != 'terminado') AS vencida
		FROM actividades a
		JOIN causas c ON c.id = a.causa_id
		JOIN tipos_actividad t ON t.id = a.tipo_actividad_id
		JOIN users u ON u.id = a.usuario_id
		WHERE a.causa_id = $1
		ORDER BY a.fecha_inicio ASC
	`, actividadCols), causaID)
	if err != nil {
		log.Printf("Error querying actividades: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch actividades")
		return
	}
	defer rows.Close()

	actividades := []models.ActividadConDetalle{}
	for rows.Next() {
		var a models.ActividadConDetalle
		err := rows.Scan(
			&a.ID, &a.CausaID, &a.TipoID, &a.UsuarioID,
			&a.Estado, &a.FechaInicio, &a.FechaTermino, &a.Observacion,
			&a.CreatedAt, &a.UpdatedAt,
			&a.RUC, &a.Denominacion, &a.TipoNombre, &a.AreaNombre, &a.UsuarioNombre,
			&a.Vencida,
		)
		if err != nil {
			continue
		}
		actividades = append(actividades, a)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": actividades,
	})
}

// ── Update ─────────────────────────────────────────────────────

// Update handles PUT /api/actividades/{id}
func (h *ActividadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Actividad ID is required")
		return
	}

	if !checkActividadAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this actividad")
		return
	}

	var req models.UpdateActividadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
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

	if req.TipoID != nil {
		addSet("tipo_actividad_id", *req.TipoID)
	}
	if req.UsuarioID != nil {
		addSet("usuario_id", *req.UsuarioID)
	}
	if req.FechaInicio != nil {
		addSet("fecha_inicio", *req.FechaInicio)
	}
	if req.FechaTermino != nil {
		addSet("fecha_termino", *req.FechaTermino)
	}
	if req.Observacion != nil {
		addSet("observacion", *req.Observacion)
	}

	if len(sets) == 1 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := fmt.Sprintf(`
		UPDATE actividades SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argIdx, actividadRetCols)
	args = append(args, id)

	var a models.Actividad
	if err := scanActividad(pool.QueryRow(ctx, query, args...), &a); err != nil {
		log.Printf("Error updating actividad %d: %v", id, err)
		JSONError(w, http.StatusNotFound, "Actividad not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "actividad", strconv.FormatInt(a.ID, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    a,
		"message": "Actividad updated successfully",
	})
}

// UpdateEstado handles PATCH /api/actividades/{id}/estado
// Any of the three states may be set; there is no transition graph.
func (h *ActividadHandler) UpdateEstado(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Actividad ID is required")
		return
	}

	if !checkActividadAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this actividad")
		return
	}

	var req models.UpdateEstadoRequest
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

	row := pool.QueryRow(ctx, `
		UPDATE actividades SET estado = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+actividadRetCols, string(req.Estado), id)

	var a models.Actividad
	if err := scanActividad(row, &a); err != nil {
		log.Printf("Error updating actividad estado %d: %v", id, err)
		JSONError(w, http.StatusNotFound, "Actividad not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "estado_changed", "actividad", strconv.FormatInt(a.ID, 10), map[string]interface{}{
		"estado": string(req.Estado),
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    a,
		"message": "Estado updated successfully",
	})
}

// ── Delete ─────────────────────────────────────────────────────

// Delete handles DELETE /api/actividades/{id}
func (h *ActividadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Actividad ID is required")
		return
	}

	if !checkActividadAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this actividad")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	result, err := pool.Exec(ctx, "DELETE FROM actividades WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting actividad: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete actividad")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Actividad not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "actividad", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Actividad deleted successfully",
	})
}
