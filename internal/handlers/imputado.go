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

// ImputadoHandler handles imputado and victima HTTP requests. Both entities
// hang off a causa and share the same access rules.
type ImputadoHandler struct {
	db database.Service
}

// NewImputadoHandler creates a new ImputadoHandler.
func NewImputadoHandler(db database.Service) *ImputadoHandler {
	return &ImputadoHandler{db: db}
}

const imputadoCols = `id, causa_id, nombre, documento, alias, nacionalidad,
	formalizado, fecha_formalizacion::text, medida_cautelar,
	created_at::text, updated_at::text`

func scanImputado(scanner interface {
	Scan(dest ...interface{}) error
}, i *models.Imputado) error {
	return scanner.Scan(
		&i.ID, &i.CausaID, &i.Nombre, &i.Documento, &i.Alias, &i.Nacionalidad,
		&i.Formalizado, &i.FechaFormalizacion, &i.MedidaCautelar,
		&i.CreatedAt, &i.UpdatedAt,
	)
}

// ── Imputados ──────────────────────────────────────────────────

// ListByCausa handles GET /api/causas/{id}/imputados
func (h *ImputadoHandler) ListByCausa(w http.ResponseWriter, r *http.Request) {
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
		SELECT %s FROM imputados WHERE causa_id = $1 ORDER BY nombre
	`, imputadoCols), causaID)
	if err != nil {
		log.Printf("Error querying imputados: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch imputados")
		return
	}
	defer rows.Close()

	imputados := []models.Imputado{}
	for rows.Next() {
		var i models.Imputado
		if err := scanImputado(rows, &i); err != nil {
			log.Printf("Error scanning imputado: %v", err)
			continue
		}
		imputados = append(imputados, i)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": imputados,
	})
}

// Create handles POST /api/causas/{id}/imputados
func (h *ImputadoHandler) Create(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	var req models.CreateImputadoRequest
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
		INSERT INTO imputados (causa_id, nombre, documento, alias, nacionalidad, medida_cautelar)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, imputadoCols), causaID, req.Nombre, req.Documento, req.Alias, req.Nacionalidad, req.MedidaCautelar)

	var i models.Imputado
	if err := scanImputado(row, &i); err != nil {
		log.Printf("Error creating imputado: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create imputado")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "imputado", strconv.FormatInt(i.ID, 10), map[string]interface{}{
		"causaId": causaID, "nombre": i.Nombre,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    i,
		"message": "Imputado created successfully",
	})
}

// Update handles PUT /api/imputados/{id}
func (h *ImputadoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Imputado ID is required")
		return
	}

	if !checkImputadoAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this imputado")
		return
	}

	var req models.UpdateImputadoRequest
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

	if req.Nombre != nil {
		addSet("nombre", *req.Nombre)
	}
	if req.Documento != nil {
		addSet("documento", *req.Documento)
	}
	if req.Alias != nil {
		addSet("alias", *req.Alias)
	}
	if req.Nacionalidad != nil {
		addSet("nacionalidad", *req.Nacionalidad)
	}
	if req.MedidaCautelar != nil {
		addSet("medida_cautelar", *req.MedidaCautelar)
	}

	if len(sets) == 1 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := fmt.Sprintf(`
		UPDATE imputados SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argIdx, imputadoCols)
	args = append(args, id)

	var i models.Imputado
	if err := scanImputado(pool.QueryRow(ctx, query, args...), &i); err != nil {
		log.Printf("Error updating imputado %d: %v", id, err)
		JSONError(w, http.StatusNotFound, "Imputado not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "imputado", strconv.FormatInt(i.ID, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    i,
		"message": "Imputado updated successfully",
	})
}

// Formalizar handles PATCH /api/imputados/{id}/formalizar
// Marks the imputado as formalized with the hearing date and optional
// precautionary measure.
func (h *ImputadoHandler) Formalizar(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Imputado ID is required")
		return
	}

	if !checkImputadoAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this imputado")
		return
	}

	var req models.FormalizarRequest
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
		UPDATE imputados
		SET formalizado = TRUE,
			fecha_formalizacion = $1,
			medida_cautelar = COALESCE($2, medida_cautelar),
			updated_at = NOW()
		WHERE id = $3
		RETURNING %s
	`, imputadoCols), req.FechaFormalizacion, req.MedidaCautelar, id)

	var i models.Imputado
	if err := scanImputado(row, &i); err != nil {
		log.Printf("Error formalizing imputado %d: %v", id, err)
		JSONError(w, http.StatusNotFound, "Imputado not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "formalized", "imputado", strconv.FormatInt(i.ID, 10), map[string]interface{}{
		"fechaFormalizacion": req.FechaFormalizacion,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    i,
		"message": "Imputado formalized successfully",
	})
}

// Delete handles DELETE /api/imputados/{id}
func (h *ImputadoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Imputado ID is required")
		return
	}

	if !checkImputadoAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this imputado")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	result, err := pool.Exec(ctx, "DELETE FROM imputados WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting imputado: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete imputado")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Imputado not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "imputado", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Imputado deleted successfully",
	})
}

// ── Victimas ───────────────────────────────────────────────────

// ListVictimas handles GET /api/causas/{id}/victimas
func (h *ImputadoHandler) ListVictimas(w http.ResponseWriter, r *http.Request) {
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
		SELECT id, causa_id, nombre, documento, created_at::text, updated_at::text
		FROM victimas WHERE causa_id = $1 ORDER BY nombre
	`, causaID)
	if err != nil {
		log.Printf("Error querying victimas: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch victimas")
		return
	}
	defer rows.Close()

	victimas := []models.Victima{}
	for rows.Next() {
		var v models.Victima
		if err := rows.Scan(&v.ID, &v.CausaID, &v.Nombre, &v.Documento, &v.CreatedAt, &v.UpdatedAt); err != nil {
			continue
		}
		victimas = append(victimas, v)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": victimas,
	})
}

// CreateVictima handles POST /api/causas/{id}/victimas
func (h *ImputadoHandler) CreateVictima(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	var req models.CreateVictimaRequest
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

	var v models.Victima
	err := pool.QueryRow(ctx, `
		INSERT INTO victimas (causa_id, nombre, documento)
		VALUES ($1, $2, $3)
		RETURNING id, causa_id, nombre, documento, created_at::text, updated_at::text
	`, causaID, req.Nombre, req.Documento,
	).Scan(&v.ID, &v.CausaID, &v.Nombre, &v.Documento, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		log.Printf("Error creating victima: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create victima")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "victima", strconv.FormatInt(v.ID, 10), map[string]interface{}{
		"causaId": causaID,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    v,
		"message": "Victima created successfully",
	})
}

// DeleteVictima handles DELETE /api/victimas/{id}
func (h *ImputadoHandler) DeleteVictima(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Victima ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Scope check via the owning causa
	if !ctxkeys.IsGlobalScope(r.Context()) {
		var area string
		err := pool.QueryRow(ctx,
			"SELECT c.area FROM victimas v JOIN causas c ON c.id = v.causa_id WHERE v.id = $1",
			id,
		).Scan(&area)
		if err != nil || !checkAreaAccess(r.Context(), area) {
			JSONError(w, http.StatusForbidden, "Access denied to this victima")
			return
		}
	}

	result, err := pool.Exec(ctx, "DELETE FROM victimas WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting victima: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete victima")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Victima not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "victima", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Victima deleted successfully",
	})
}
