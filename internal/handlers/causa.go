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

// CausaHandler handles causa-related HTTP requests.
type CausaHandler struct {
	db database.Service
}

// NewCausaHandler creates a new CausaHandler.
func NewCausaHandler(db database.Service) *CausaHandler {
	return &CausaHandler{db: db}
}

// ── Columns ────────────────────────────────────────────────────
// Central column lists keep Create/GetByID/List all in sync.
// Aliased version (for SELECT with FROM clause):
const causaCols = `c.id, c.ruc, c.denominacion, c.delito, c.area,
	c.comuna, c.region, c.fiscal_id, c.tribunal, c.estado,
	c.fecha_ingreso::text, c.observacion,
	c.created_at, c.updated_at`

// Unaliased version (for INSERT/UPDATE RETURNING):
const causaRetCols = `id, ruc, denominacion, delito, area,
	comuna, region, fiscal_id, tribunal, estado,
	fecha_ingreso::text, observacion,
	created_at, updated_at`

// ── Scan Helpers ───────────────────────────────────────────────

func scanCausa(scanner interface {
	Scan(dest ...interface{}) error
}, c *models.Causa) error {
	return scanner.Scan(
		&c.ID, &c.RUC, &c.Denominacion, &c.Delito, &c.Area,
		&c.Comuna, &c.Region, &c.FiscalID, &c.Tribunal, &c.Estado,
		&c.FechaIngreso, &c.Observacion,
		&c.CreatedAt, &c.UpdatedAt,
	)
}

func scanCausaConFiscal(scanner interface {
	Scan(dest ...interface{}) error
}, c *models.CausaConFiscal) error {
	return scanner.Scan(
		&c.ID, &c.RUC, &c.Denominacion, &c.Delito, &c.Area,
		&c.Comuna, &c.Region, &c.FiscalID, &c.Tribunal, &c.Estado,
		&c.FechaIngreso, &c.Observacion,
		&c.CreatedAt, &c.UpdatedAt,
		&c.FiscalNombre,
		&c.ImputadosCount, &c.ActividadesCount, &c.ActividadesAbiertas,
	)
}

// ── Create ─────────────────────────────────────────────────────

// Create handles POST /api/causas
func (h *CausaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCausaRequest
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

	if !checkAreaAccess(r.Context(), req.Area) {
		JSONError(w, http.StatusForbidden, "Access denied to this area")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	row := pool.QueryRow(ctx, `
		INSERT INTO causas (
			ruc, denominacion, delito, area, comuna, region,
			fiscal_id, tribunal, estado, fecha_ingreso, observacion
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'vigente',$9,$10)
		RETURNING `+causaRetCols,
		req.RUC, req.Denominacion, req.Delito, req.Area, req.Comuna, req.Region,
		req.FiscalID, req.Tribunal, req.FechaIngreso, req.Observacion,
	)

	var c models.Causa
	if err := scanCausa(row, &c); err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A causa with this RUC already exists")
			return
		}
		log.Printf("Error creating causa: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create causa")
		return
	}

	metrics.CausaCreada(c.Area)

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "causa", strconv.FormatInt(c.ID, 10), map[string]interface{}{
		"ruc": c.RUC, "delito": c.Delito,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    c,
		"message": "Causa created successfully",
	})
}

// ── List ───────────────────────────────────────────────────────

// List handles GET /api/causas
func (h *CausaHandler) List(w http.ResponseWriter, r *http.Request) {
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

	search := q.Get("search")
	delito := q.Get("delito")
	area := q.Get("area")
	estado := q.Get("estado")
	comuna := q.Get("comuna")
	fiscalID := q.Get("fiscal_id")
	sortBy := q.Get("sort_by")
	sortOrder := q.Get("sort_order")

	// Whitelist allowed sort columns
	allowedSorts := map[string]string{
		"ruc":           "c.ruc",
		"denominacion":  "c.denominacion",
		"fecha_ingreso": "c.fecha_ingreso",
		"created_at":    "c.created_at",
	}
	sortCol, ok := allowedSorts[sortBy]
	if !ok {
		sortCol = "c.fecha_ingreso"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Build dynamic WHERE clause
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	// Area scope (role-based)
	where, args, argIdx = appendAreaScope(ctx, where, args, argIdx, "c.area")

	if search != "" {
		where += fmt.Sprintf(" AND (c.ruc ILIKE $%d OR c.denominacion ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if delito != "" {
		where += fmt.Sprintf(" AND c.delito = $%d", argIdx)
		args = append(args, delito)
		argIdx++
	}
	if area != "" {
		where += fmt.Sprintf(" AND c.area = $%d", argIdx)
		args = append(args, area)
		argIdx++
	}
	if estado != "" {
		where += fmt.Sprintf(" AND c.estado = $%d", argIdx)
		args = append(args, estado)
		argIdx++
	}
	if comuna != "" {
		where += fmt.Sprintf(" AND c.comuna ILIKE $%d", argIdx)
		args = append(args, "%"+comuna+"%")
		argIdx++
	}
	if id, err := strconv.ParseInt(fiscalID, 10, 64); err == nil {
		where += fmt.Sprintf(" AND c.fiscal_id = $%d", argIdx)
		args = append(args, id)
		argIdx++
	}

	// Count total for pagination
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM causas c %s", where)
	if err := pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Printf("Error counting causas: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch causas")
		return
	}

	query := fmt.Sprintf(`
		SELECT
			%s,
			u.name AS fiscal_nombre,
			cnt.imputados_count, cnt.actividades_count, cnt.actividades_abiertas
		FROM causas c
		LEFT JOIN users u ON u.id = c.fiscal_id
		LEFT JOIN LATERAL (
			SELECT
				(SELECT COUNT(*) FROM imputados i WHERE i.causa_id = c.id)::int AS imputados_count,
				(SELECT COUNT(*) FROM actividades a WHERE a.causa_id = c.id)::int AS actividades_count,
				(SELECT COUNT(*) FROM actividades a WHERE a.causa_id = c.id AND a.estado != 'terminado')::int AS actividades_abiertas
		) cnt ON TRUE
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, causaCols, where, sortCol, sortOrder, argIdx, argIdx+1)

	args = append(args, limit, offset)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying causas: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch causas")
		return
	}
	defer rows.Close()

	causas := []models.CausaConFiscal{}
	for rows.Next() {
		var c models.CausaConFiscal
		if err := scanCausaConFiscal(rows, &c); err != nil {
			log.Printf("Error scanning causa: %v", err)
			continue
		}
		causas = append(causas, c)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: causas,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ── GetByID ────────────────────────────────────────────────────

// GetByID handles GET /api/causas/{id}
func (h *CausaHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	row := pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT
			%s,
			u.name AS fiscal_nombre,
			(SELECT COUNT(*) FROM imputados i WHERE i.causa_id = c.id)::int,
			(SELECT COUNT(*) FROM actividades a WHERE a.causa_id = c.id)::int,
			(SELECT COUNT(*) FROM actividades a WHERE a.causa_id = c.id AND a.estado != 'terminado')::int
		FROM causas c
		LEFT JOIN users u ON u.id = c.fiscal_id
		WHERE c.id = $1
	`, causaCols), id)

	var c models.CausaConFiscal
	if err := scanCausaConFiscal(row, &c); err != nil {
		log.Printf("Error fetching causa %d: %v", id, err)
		JSONError(w, http.StatusNotFound, "Causa not found")
		return
	}

	if !checkAreaAccess(r.Context(), c.Area) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": c,
	})
}

// ── Update ─────────────────────────────────────────────────────

// Update handles PUT /api/causas/{id}
// Builds a partial SET clause from the provided fields only.
func (h *CausaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	var req models.UpdateCausaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Area != nil && *req.Area != "ECOH" && *req.Area != "SACFI" {
		JSONError(w, http.StatusUnprocessableEntity, "Area must be 'ECOH' or 'SACFI'")
		return
	}
	if req.Estado != nil && *req.Estado != "vigente" && *req.Estado != "cerrada" {
		JSONError(w, http.StatusUnprocessableEntity, "Estado must be 'vigente' or 'cerrada'")
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

	if req.Denominacion != nil {
		addSet("denominacion", *req.Denominacion)
	}
	if req.Delito != nil {
		addSet("delito", *req.Delito)
	}
	if req.Area != nil {
		addSet("area", *req.Area)
	}
	if req.Comuna != nil {
		addSet("comuna", *req.Comuna)
	}
	if req.Region != nil {
		addSet("region", *req.Region)
	}
	if req.FiscalID != nil {
		addSet("fiscal_id", *req.FiscalID)
	}
	if req.Tribunal != nil {
		addSet("tribunal", *req.Tribunal)
	}
	if req.Estado != nil {
		addSet("estado", *req.Estado)
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
		UPDATE causas SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argIdx, causaRetCols)
	args = append(args, id)

	var c models.Causa
	row := pool.QueryRow(ctx, query, args...)
	if err := scanCausa(row, &c); err != nil {
		log.Printf("Error updating causa %d: %v", id, err)
		JSONError(w, http.StatusNotFound, "Causa not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "causa", strconv.FormatInt(c.ID, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    c,
		"message": "Causa updated successfully",
	})
}

// ── Delete ─────────────────────────────────────────────────────

// Delete handles DELETE /api/causas/{id}
// Cascades to imputados, victimas, actividades, telefonos and relaciones.
func (h *CausaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	result, err := pool.Exec(ctx, "DELETE FROM causas WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting causa: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete causa")
		return
	}

	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Causa not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "causa", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Causa deleted successfully",
	})
}

// ── Export ─────────────────────────────────────────────────────

// Export handles GET /api/causas/export — CSV download of all visible causas.
func (h *CausaHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1
	where, args, argIdx = appendAreaScope(ctx, where, args, argIdx, "c.area")
	_ = argIdx

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT c.ruc, c.denominacion, c.delito, c.area,
			COALESCE(c.comuna,''), COALESCE(c.region,''),
			COALESCE(u.name,''), COALESCE(c.tribunal,''),
			c.estado, c.fecha_ingreso::text
		FROM causas c
		LEFT JOIN users u ON u.id = c.fiscal_id
		%s
		ORDER BY c.fecha_ingreso DESC
	`, where), args...)
	if err != nil {
		log.Printf("Error exporting causas: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export")
		return
	}
	defer rows.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=causas.csv")

	fmt.Fprintln(w, "RUC,Denominacion,Delito,Area,Comuna,Region,Fiscal,Tribunal,Estado,Fecha Ingreso")

	for rows.Next() {
		var ruc, denominacion, delito, area, comuna, region, fiscal, tribunal, estado, fechaIngreso string
		if err := rows.Scan(&ruc, &denominacion, &delito, &area, &comuna, &region, &fiscal, &tribunal, &estado, &fechaIngreso); err != nil {
			continue
		}
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			csvEscape(ruc), csvEscape(denominacion), csvEscape(delito), area,
			csvEscape(comuna), csvEscape(region), csvEscape(fiscal), csvEscape(tribunal),
			estado, fechaIngreso)
	}
}
