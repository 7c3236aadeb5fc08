package handlers

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"ecoh-backend/internal/database"
	"ecoh-backend/internal/metrics"
	"ecoh-backend/internal/models"
	"ecoh-backend/internal/seguimiento"
)

// ReportesHandler serves the reporting endpoints. The heavy lifting for the
// seguimiento-actividades report lives in the seguimiento package; this
// handler only fetches rows and assembles the response.
type ReportesHandler struct {
	db database.Service
}

// NewReportesHandler creates a new ReportesHandler.
func NewReportesHandler(db database.Service) *ReportesHandler {
	return &ReportesHandler{db: db}
}

// ── Seguimiento de actividades ─────────────────────────────────

// fetchRegistros runs the filtered join across actividades, causas, tipos
// and usuarios, ordered ascending by fecha_termino.
func (h *ReportesHandler) fetchRegistros(ctx context.Context, f seguimiento.Filtro) ([]seguimiento.Registro, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	where, args, argIdx = appendAreaScope(ctx, where, args, argIdx, "c.area")

	if f.FechaInicio != nil && f.FechaFin != nil {
		where += fmt.Sprintf(" AND a.fecha_inicio >= $%d AND a.fecha_termino <= $%d", argIdx, argIdx+1)
		args = append(args, *f.FechaInicio, *f.FechaFin)
		argIdx += 2
	}
	if f.UsuarioID != nil {
		where += fmt.Sprintf(" AND a.usuario_id = $%d", argIdx)
		args = append(args, *f.UsuarioID)
		argIdx++
	}
	if f.TipoID != nil {
		where += fmt.Sprintf(" AND a.tipo_actividad_id = $%d", argIdx)
		args = append(args, *f.TipoID)
		argIdx++
	}
	if f.RUC != "" {
		where += fmt.Sprintf(" AND c.ruc ILIKE $%d", argIdx)
		args = append(args, "%"+f.RUC+"%")
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT
			a.id, a.causa_id, c.ruc, c.denominacion, c.delito,
			a.tipo_actividad_id, t.nombre, c.area,
			a.usuario_id, u.name, u.email, COALESCE(u.cargo, ''),
			a.estado, a.fecha_inicio, a.fecha_termino, COALESCE(a.observacion, '')
		FROM actividades a
		JOIN causas c ON c.id = a.causa_id
		JOIN tipos_actividad t ON t.id = a.tipo_actividad_id
		JOIN users u ON u.id = a.usuario_id
		%s
		ORDER BY a.fecha_termino ASC
	`, where)

	rows, err := h.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registros := []seguimiento.Registro{}
	for rows.Next() {
		var r seguimiento.Registro
		err := rows.Scan(
			&r.ID, &r.CausaID, &r.RUC, &r.Denominacion, &r.Delito,
			&r.TipoID, &r.TipoNombre, &r.AreaNombre,
			&r.UsuarioID, &r.UsuarioNombre, &r.UsuarioEmail, &r.UsuarioCargo,
			&r.Estado, &r.FechaInicio, &r.FechaTermino, &r.Observacion,
		)
		if err != nil {
			return nil, err
		}
		registros = append(registros, r)
	}
	return registros, rows.Err()
}

// fetchOpciones loads the filter selector lists: all active tipos and all
// users, independent of the current filter.
func (h *ReportesHandler) fetchOpciones(ctx context.Context) ([]seguimiento.TipoOpcion, []seguimiento.UsuarioOpcion, error) {
	pool := h.db.GetPool()

	tipoRows, err := pool.Query(ctx, `
		SELECT id, nombre, area FROM tipos_actividad
		WHERE activo ORDER BY sort_order, nombre
	`)
	if err != nil {
		return nil, nil, err
	}
	defer tipoRows.Close()

	tipos := []seguimiento.TipoOpcion{}
	for tipoRows.Next() {
		var t seguimiento.TipoOpcion
		if err := tipoRows.Scan(&t.ID, &t.Nombre, &t.Area); err != nil {
			return nil, nil, err
		}
		tipos = append(tipos, t)
	}

	userRows, err := pool.Query(ctx, `
		SELECT id, name, email, COALESCE(cargo, '') FROM users ORDER BY name
	`)
	if err != nil {
		return nil, nil, err
	}
	defer userRows.Close()

	usuarios := []seguimiento.UsuarioOpcion{}
	for userRows.Next() {
		var u seguimiento.UsuarioOpcion
		if err := userRows.Scan(&u.ID, &u.Nombre, &u.Email, &u.Cargo); err != nil {
			return nil, nil, err
		}
		usuarios = append(usuarios, u)
	}

	return tipos, usuarios, nil
}

// SeguimientoActividades handles GET /api/reportes/seguimiento-actividades
// Any fetch failure yields a generic 500: no retries, no partial payloads.
func (h *ReportesHandler) SeguimientoActividades(w http.ResponseWriter, r *http.Request) {
	filtro := seguimiento.ParseFiltro(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	registros, err := h.fetchRegistros(ctx, filtro)
	if err != nil {
		log.Printf("Error fetching seguimiento registros: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	tipos, usuarios, err := h.fetchOpciones(ctx)
	if err != nil {
		log.Printf("Error fetching filter options: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	reporte := seguimiento.ArmarReporte(registros, tipos, usuarios, time.Now())

	metrics.ReporteGenerado("seguimiento_actividades")

	JSON(w, http.StatusOK, reporte)
}

// SeguimientoExport handles GET /api/reportes/seguimiento-actividades/export
// CSV download of the raw filtered rows.
func (h *ReportesHandler) SeguimientoExport(w http.ResponseWriter, r *http.Request) {
	filtro := seguimiento.ParseFiltro(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	registros, err := h.fetchRegistros(ctx, filtro)
	if err != nil {
		log.Printf("Error exporting seguimiento: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export")
		return
	}

	now := time.Now()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=seguimiento_actividades.csv")

	fmt.Fprintln(w, "RUC,Denominacion,Delito,Tipo Actividad,Area,Usuario,Estado,Fecha Inicio,Fecha Termino,Duracion Dias,Vencida")

	for _, reg := range registros {
		vencida := "no"
		if reg.Vencida(now) {
			vencida = "si"
		}
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%d,%s\n",
			csvEscape(reg.RUC), csvEscape(reg.Denominacion), csvEscape(reg.Delito),
			csvEscape(reg.TipoNombre), reg.AreaNombre, csvEscape(reg.UsuarioNombre),
			string(reg.Estado),
			reg.FechaInicio.Format("2006-01-02"), reg.FechaTermino.Format("2006-01-02"),
			reg.DuracionDias(), vencida)
	}

	metrics.ReporteGenerado("seguimiento_actividades_csv")
}

// ── Incidencia geográfica ──────────────────────────────────────

// IncidenciaGeografica handles GET /api/reportes/incidencia-geografica
// Causa counts grouped by region and comuna. Optional delito and
// fecha_ingreso window filters; the window needs both bounds, like the
// seguimiento report.
func (h *ReportesHandler) IncidenciaGeografica(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	q := r.URL.Query()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1
	where, args, argIdx = appendAreaScope(ctx, where, args, argIdx, "c.area")

	if delito := q.Get("delito"); delito != "" {
		where += fmt.Sprintf(" AND c.delito = $%d", argIdx)
		args = append(args, delito)
		argIdx++
	}
	desde, errD := time.Parse("2006-01-02", q.Get("fechaInicio"))
	hasta, errH := time.Parse("2006-01-02", q.Get("fechaFin"))
	if errD == nil && errH == nil {
		where += fmt.Sprintf(" AND c.fecha_ingreso BETWEEN $%d AND $%d", argIdx, argIdx+1)
		args = append(args, desde, hasta)
		argIdx += 2
	}
	_ = argIdx

	rows, err := h.db.GetPool().Query(ctx, fmt.Sprintf(`
		SELECT
			COALESCE(c.region, 'Sin región'),
			COALESCE(c.comuna, 'Sin comuna'),
			COUNT(*)::int,
			COUNT(*) FILTER (WHERE c.estado = 'vigente')::int
		FROM causas c
		%s
		GROUP BY 1, 2
		ORDER BY 3 DESC
	`, where), args...)
	if err != nil {
		log.Printf("Error querying incidencia geografica: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}
	defer rows.Close()

	buckets := []models.IncidenciaGeografica{}
	total := 0
	for rows.Next() {
		var b models.IncidenciaGeografica
		if err := rows.Scan(&b.Region, &b.Comuna, &b.TotalCausas, &b.Vigentes); err != nil {
			continue
		}
		total += b.TotalCausas
		buckets = append(buckets, b)
	}

	for i := range buckets {
		if total > 0 {
			buckets[i].Porcentaje = redondear2(float64(buckets[i].TotalCausas) / float64(total) * 100)
		}
	}

	metrics.ReporteGenerado("incidencia_geografica")

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":  buckets,
		"total": total,
	})
}

// ── Formalizaciones ────────────────────────────────────────────

// Formalizaciones handles GET /api/reportes/formalizaciones
// Formalization progress per causa plus global totals.
func (h *ReportesHandler) Formalizaciones(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1
	where, args, argIdx = appendAreaScope(ctx, where, args, argIdx, "c.area")
	_ = argIdx

	rows, err := h.db.GetPool().Query(ctx, fmt.Sprintf(`
		SELECT
			c.id, c.ruc, c.denominacion, c.delito,
			COUNT(i.id)::int,
			COUNT(i.id) FILTER (WHERE i.formalizado)::int
		FROM causas c
		JOIN imputados i ON i.causa_id = c.id
		%s
		GROUP BY c.id, c.ruc, c.denominacion, c.delito
		ORDER BY c.fecha_ingreso DESC
	`, where), args...)
	if err != nil {
		log.Printf("Error querying formalizaciones: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}
	defer rows.Close()

	panel := models.FormalizacionesPanel{Data: []models.FormalizacionCausa{}}
	for rows.Next() {
		var f models.FormalizacionCausa
		if err := rows.Scan(&f.CausaID, &f.RUC, &f.Denominacion, &f.Delito, &f.TotalImputados, &f.Formalizados); err != nil {
			continue
		}
		if f.TotalImputados > 0 {
			f.PorcentajeFormalizados = redondear2(float64(f.Formalizados) / float64(f.TotalImputados) * 100)
		}
		panel.TotalImputados += f.TotalImputados
		panel.TotalFormalizados += f.Formalizados
		panel.Data = append(panel.Data, f)
	}

	if panel.TotalImputados > 0 {
		panel.PorcentajeGlobal = redondear2(float64(panel.TotalFormalizados) / float64(panel.TotalImputados) * 100)
	}

	metrics.ReporteGenerado("formalizaciones")

	JSON(w, http.StatusOK, panel)
}

// ── Carga de fiscales ──────────────────────────────────────────

// CargaFiscales handles GET /api/reportes/carga-fiscales
// Workload per prosecutor: assigned causas and open actividades.
func (h *ReportesHandler) CargaFiscales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	where := "WHERE c.fiscal_id IS NOT NULL"
	args := []interface{}{}
	argIdx := 1
	where, args, argIdx = appendAreaScope(ctx, where, args, argIdx, "c.area")
	_ = argIdx

	rows, err := h.db.GetPool().Query(ctx, fmt.Sprintf(`
		SELECT
			u.id, u.name, COALESCE(u.cargo, ''),
			COUNT(DISTINCT c.id)::int,
			COUNT(DISTINCT c.id) FILTER (WHERE c.estado = 'vigente')::int,
			COUNT(a.id) FILTER (WHERE a.estado != 'terminado')::int
		FROM causas c
		JOIN users u ON u.id = c.fiscal_id
		LEFT JOIN actividades a ON a.causa_id = c.id
		%s
		GROUP BY u.id, u.name, u.cargo
		ORDER BY 4 DESC
	`, where), args...)
	if err != nil {
		log.Printf("Error querying carga fiscales: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}
	defer rows.Close()

	cargas := []models.CargaFiscal{}
	for rows.Next() {
		var cf models.CargaFiscal
		if err := rows.Scan(&cf.FiscalID, &cf.Nombre, &cf.Cargo, &cf.TotalCausas, &cf.CausasVigentes, &cf.ActividadesAbiertas); err != nil {
			continue
		}
		cargas = append(cargas, cf)
	}

	metrics.ReporteGenerado("carga_fiscales")

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": cargas,
	})
}

// redondear2 rounds to 2 decimal places.
func redondear2(x float64) float64 {
	return math.Round(x*100) / 100
}
