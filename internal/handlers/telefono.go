package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"ecoh-backend/internal/ctxkeys"
	"ecoh-backend/internal/database"
	"ecoh-backend/internal/models"
)

// TelefonoHandler handles phone records and causa relations. Both belong to
// the organized-crime analysis surface of a causa.
type TelefonoHandler struct {
	db database.Service
}

// NewTelefonoHandler creates a new TelefonoHandler.
func NewTelefonoHandler(db database.Service) *TelefonoHandler {
	return &TelefonoHandler{db: db}
}

// ── Telefonos ──────────────────────────────────────────────────

// ListByCausa handles GET /api/causas/{id}/telefonos
func (h *TelefonoHandler) ListByCausa(w http.ResponseWriter, r *http.Request) {
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

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT id, causa_id, imputado_id, numero, imei, proveedor, observacion, created_at::text
		FROM telefonos WHERE causa_id = $1 ORDER BY created_at DESC
	`, causaID)
	if err != nil {
		log.Printf("Error querying telefonos: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch telefonos")
		return
	}
	defer rows.Close()

	telefonos := []models.Telefono{}
	for rows.Next() {
		var t models.Telefono
		if err := rows.Scan(&t.ID, &t.CausaID, &t.ImputadoID, &t.Numero, &t.IMEI, &t.Proveedor, &t.Observacion, &t.CreatedAt); err != nil {
			continue
		}
		telefonos = append(telefonos, t)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": telefonos,
	})
}

// Create handles POST /api/causas/{id}/telefonos
func (h *TelefonoHandler) Create(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	var req models.CreateTelefonoRequest
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

	// When the record is tied to an imputado, it must belong to this causa
	if req.ImputadoID != nil {
		var owner int64
		err := pool.QueryRow(ctx,
			"SELECT causa_id FROM imputados WHERE id = $1", *req.ImputadoID,
		).Scan(&owner)
		if err != nil || owner != causaID {
			JSONError(w, http.StatusUnprocessableEntity, "Imputado does not belong to this causa")
			return
		}
	}

	var t models.Telefono
	err := pool.QueryRow(ctx, `
		INSERT INTO telefonos (causa_id, imputado_id, numero, imei, proveedor, observacion)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, causa_id, imputado_id, numero, imei, proveedor, observacion, created_at::text
	`, causaID, req.ImputadoID, req.Numero, req.IMEI, req.Proveedor, req.Observacion,
	).Scan(&t.ID, &t.CausaID, &t.ImputadoID, &t.Numero, &t.IMEI, &t.Proveedor, &t.Observacion, &t.CreatedAt)
	if err != nil {
		log.Printf("Error creating telefono: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create telefono")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "telefono", strconv.FormatInt(t.ID, 10), map[string]interface{}{
		"causaId": causaID,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    t,
		"message": "Telefono created successfully",
	})
}

// Delete handles DELETE /api/telefonos/{id}
func (h *TelefonoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Telefono ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	if !ctxkeys.IsGlobalScope(r.Context()) {
		var area string
		err := pool.QueryRow(ctx,
			"SELECT c.area FROM telefonos t JOIN causas c ON c.id = t.causa_id WHERE t.id = $1",
			id,
		).Scan(&area)
		if err != nil || !checkAreaAccess(r.Context(), area) {
			JSONError(w, http.StatusForbidden, "Access denied to this telefono")
			return
		}
	}

	result, err := pool.Exec(ctx, "DELETE FROM telefonos WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting telefono: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete telefono")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Telefono not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "telefono", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Telefono deleted successfully",
	})
}

// ── Relaciones ─────────────────────────────────────────────────

// ListRelaciones handles GET /api/causas/{id}/relaciones
// Returns relations in both directions: where this causa is the source and
// where it is the target.
func (h *TelefonoHandler) ListRelaciones(w http.ResponseWriter, r *http.Request) {
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

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT r.id, r.causa_id, r.causa_relacionada_id, r.tipo_relacion, r.observacion, r.created_at::text,
			c2.ruc, c2.denominacion
		FROM causa_relaciones r
		JOIN causas c2 ON c2.id = CASE WHEN r.causa_id = $1 THEN r.causa_relacionada_id ELSE r.causa_id END
		WHERE r.causa_id = $1 OR r.causa_relacionada_id = $1
		ORDER BY r.created_at DESC
	`, causaID)
	if err != nil {
		log.Printf("Error querying relaciones: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch relaciones")
		return
	}
	defer rows.Close()

	relaciones := []models.CausaRelacion{}
	for rows.Next() {
		var rel models.CausaRelacion
		if err := rows.Scan(&rel.ID, &rel.CausaID, &rel.CausaRelacionadaID, &rel.TipoRelacion, &rel.Observacion, &rel.CreatedAt,
			&rel.RUCRelacionada, &rel.DenominacionRelacionada); err != nil {
			continue
		}
		relaciones = append(relaciones, rel)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": relaciones,
	})
}

// CreateRelacion handles POST /api/causas/{id}/relaciones
func (h *TelefonoHandler) CreateRelacion(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	var req models.CreateRelacionRequest
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

	if req.CausaRelacionadaID == causaID {
		JSONError(w, http.StatusUnprocessableEntity, "A causa cannot be related to itself")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// The target causa must exist and be visible to the caller
	if !checkCausaAccess(ctx, pool, req.CausaRelacionadaID) {
		JSONError(w, http.StatusForbidden, "Access denied to the related causa")
		return
	}

	var rel models.CausaRelacion
	err := pool.QueryRow(ctx, `
		INSERT INTO causa_relaciones (causa_id, causa_relacionada_id, tipo_relacion, observacion)
		VALUES ($1, $2, $3, $4)
		RETURNING id, causa_id, causa_relacionada_id, tipo_relacion, observacion, created_at::text
	`, causaID, req.CausaRelacionadaID, req.TipoRelacion, req.Observacion,
	).Scan(&rel.ID, &rel.CausaID, &rel.CausaRelacionadaID, &rel.TipoRelacion, &rel.Observacion, &rel.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "These causas are already related")
			return
		}
		log.Printf("Error creating relacion: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create relacion")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "relacion", strconv.FormatInt(rel.ID, 10), map[string]interface{}{
		"causaId": causaID, "causaRelacionadaId": req.CausaRelacionadaID,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    rel,
		"message": "Relacion created successfully",
	})
}

// DeleteRelacion handles DELETE /api/relaciones/{id}
func (h *TelefonoHandler) DeleteRelacion(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Relacion ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	if !ctxkeys.IsGlobalScope(r.Context()) {
		var area string
		err := pool.QueryRow(ctx,
			"SELECT c.area FROM causa_relaciones r JOIN causas c ON c.id = r.causa_id WHERE r.id = $1",
			id,
		).Scan(&area)
		if err != nil || !checkAreaAccess(r.Context(), area) {
			JSONError(w, http.StatusForbidden, "Access denied to this relacion")
			return
		}
	}

	result, err := pool.Exec(ctx, "DELETE FROM causa_relaciones WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting relacion: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete relacion")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Relacion not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "relacion", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Relacion deleted successfully",
	})
}
