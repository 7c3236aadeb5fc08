// Package seguimiento implements the activity-tracking aggregation pipeline
// behind the seguimiento-actividades report. The functions here are pure:
// they have ZERO dependencies on HTTP or the database, take the current time
// as a parameter, and operate over already-fetched rows. The handler fetches,
// this package computes.
package seguimiento

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ── Estado ───────────────────────────────────────────────────────
// Estado is the closed set of activity states. Transitions are user-driven
// on the write path; no transition graph is enforced here.

type Estado string

const (
	EstadoInicio    Estado = "inicio"
	EstadoEnProceso Estado = "en_proceso"
	EstadoTerminado Estado = "terminado"
)

// Valido reports whether e is one of the three known states.
func (e Estado) Valido() bool {
	return e == EstadoInicio || e == EstadoEnProceso || e == EstadoTerminado
}

// ── Filtro ───────────────────────────────────────────────────────

// Filtro is the structured predicate built from query-string parameters.
// Nil fields mean "no filter on that dimension".
type Filtro struct {
	FechaInicio *time.Time // lower bound on actividad fecha_inicio
	FechaFin    *time.Time // upper bound on actividad fecha_termino
	UsuarioID   *int64
	TipoID      *int64
	RUC         string // substring match on causa RUC
}

// ParseFiltro translates query parameters into a Filtro.
// The date window applies only when both fechaInicio and fechaFin parse;
// identifiers that fail to parse as numbers are silently dropped (treated
// as "no filter") rather than rejected — callers rely on this permissive
// behavior.
func ParseFiltro(q url.Values) Filtro {
	var f Filtro

	inicio, errI := time.Parse("2006-01-02", q.Get("fechaInicio"))
	fin, errF := time.Parse("2006-01-02", q.Get("fechaFin"))
	if errI == nil && errF == nil {
		f.FechaInicio = &inicio
		f.FechaFin = &fin
	}

	if id, err := strconv.ParseInt(q.Get("usuarioId"), 10, 64); err == nil {
		f.UsuarioID = &id
	}
	if id, err := strconv.ParseInt(q.Get("tipoActividadId"), 10, 64); err == nil {
		f.TipoID = &id
	}

	f.RUC = strings.TrimSpace(q.Get("ruc"))
	return f
}

// ── Registro ─────────────────────────────────────────────────────

// Registro is one fetched activity row with its joined causa, tipo and
// usuario metadata, as returned by the record fetcher (ordered ascending
// by fecha_termino).
type Registro struct {
	ID           int64
	CausaID      int64
	RUC          string
	Denominacion string
	Delito       string

	TipoID     int64
	TipoNombre string
	AreaNombre string

	UsuarioID     int64
	UsuarioNombre string
	UsuarioEmail  string
	UsuarioCargo  string

	Estado       Estado
	FechaInicio  time.Time
	FechaTermino time.Time
	Observacion  string
}

const msPorDia = 86400000

// DuracionDias returns ceil((fecha_termino − fecha_inicio) in days).
// Inconsistent timestamps (termino before inicio) are not guarded and
// yield negative day counts that flow into averages unchanged.
func (r Registro) DuracionDias() int {
	ms := r.FechaTermino.Sub(r.FechaInicio).Milliseconds()
	return int(math.Ceil(float64(ms) / msPorDia))
}

// Vencida reports whether the activity is overdue: its fecha_termino has
// passed and it is not terminado.
func (r Registro) Vencida(now time.Time) bool {
	return r.FechaTermino.Before(now) && r.Estado != EstadoTerminado
}

// ── Agrupación ───────────────────────────────────────────────────

// AgruparPorCausa partitions registros by causa ID, preserving fetch order
// within each group. The second return value lists the causa IDs in order
// of first appearance, so callers can iterate deterministically.
func AgruparPorCausa(registros []Registro) (map[int64][]Registro, []int64) {
	grupos := make(map[int64][]Registro)
	var orden []int64
	for _, r := range registros {
		if _, visto := grupos[r.CausaID]; !visto {
			orden = append(orden, r.CausaID)
		}
		grupos[r.CausaID] = append(grupos[r.CausaID], r)
	}
	return grupos, orden
}

// ── Resumen por causa ────────────────────────────────────────────

// DetalleActividad is one activity row inside a causa summary.
type DetalleActividad struct {
	ID           int64     `json:"id"`
	TipoNombre   string    `json:"tipoActividad"`
	AreaNombre   string    `json:"area"`
	Usuario      string    `json:"usuario"`
	Estado       Estado    `json:"estado"`
	FechaInicio  time.Time `json:"fechaInicio"`
	FechaTermino time.Time `json:"fechaTermino"`
	Vencida      bool      `json:"vencida"`
	Observacion  string    `json:"observacion,omitempty"`
}

// ResumenCausa aggregates the activities of a single causa.
type ResumenCausa struct {
	CausaID              int64              `json:"causaId"`
	RUC                  string             `json:"ruc"`
	Denominacion         string             `json:"denominacion"`
	Delito               string             `json:"delito"`
	TotalActividades     int                `json:"totalActividades"`
	Iniciadas            int                `json:"iniciadas"`
	EnProceso            int                `json:"enProceso"`
	Terminadas           int                `json:"terminadas"`
	PorcentajeCompletado float64            `json:"porcentajeCompletado"`
	DuracionPromedioDias float64            `json:"duracionPromedioDias"`
	Actividades          []DetalleActividad `json:"actividades"`
}

// ResumirCausa computes the per-causa summary for one group. The causa's
// identifying fields are taken from the first registro — every member of a
// group belongs to the same causa, so any row's fields suffice.
func ResumirCausa(grupo []Registro, now time.Time) ResumenCausa {
	if len(grupo) == 0 {
		return ResumenCausa{Actividades: []DetalleActividad{}}
	}

	primera := grupo[0]
	resumen := ResumenCausa{
		CausaID:      primera.CausaID,
		RUC:          primera.RUC,
		Denominacion: primera.Denominacion,
		Delito:       primera.Delito,
		Actividades:  make([]DetalleActividad, 0, len(grupo)),
	}

	sumaDias := 0
	for _, r := range grupo {
		resumen.TotalActividades++
		switch r.Estado {
		case EstadoInicio:
			resumen.Iniciadas++
		case EstadoEnProceso:
			resumen.EnProceso++
		case EstadoTerminado:
			resumen.Terminadas++
			sumaDias += r.DuracionDias()
		}

		resumen.Actividades = append(resumen.Actividades, DetalleActividad{
			ID:           r.ID,
			TipoNombre:   r.TipoNombre,
			AreaNombre:   r.AreaNombre,
			Usuario:      r.UsuarioNombre,
			Estado:       r.Estado,
			FechaInicio:  r.FechaInicio,
			FechaTermino: r.FechaTermino,
			Vencida:      r.Vencida(now),
			Observacion:  r.Observacion,
		})
	}

	resumen.PorcentajeCompletado = porcentaje(resumen.Terminadas, resumen.TotalActividades)
	if resumen.Terminadas > 0 {
		resumen.DuracionPromedioDias = redondear(float64(sumaDias) / float64(resumen.Terminadas))
	}
	return resumen
}

// ── Métricas globales ────────────────────────────────────────────

// ConteoUsuario is one entry of the per-user activity distribution.
type ConteoUsuario struct {
	UsuarioID int64  `json:"usuarioId"`
	Nombre    string `json:"nombre"`
	Cantidad  int    `json:"cantidad"`
}

// DuracionTipo is the average completed-activity duration for one tipo.
// Tipos with zero completed activities are omitted from the list entirely.
type DuracionTipo struct {
	TipoID       int64   `json:"tipoActividadId"`
	Nombre       string  `json:"nombre"`
	DiasPromedio float64 `json:"diasPromedio"`
}

// Metricas aggregates across the entire fetched set, not per causa.
type Metricas struct {
	TotalActividades           int             `json:"totalActividades"`
	Iniciadas                  int             `json:"iniciadas"`
	EnProceso                  int             `json:"enProceso"`
	Terminadas                 int             `json:"terminadas"`
	Vencidas                   int             `json:"vencidas"`
	PorcentajeGlobalCompletado float64         `json:"porcentajeGlobalCompletado"`
	ActividadesPorUsuario      []ConteoUsuario `json:"actividadesPorUsuario"`
	TiempoPromedioPorTipo      []DuracionTipo  `json:"tiempoPromedioPorTipo"`
}

// CalcularMetricas computes the global metrics over the whole fetched set.
func CalcularMetricas(registros []Registro, now time.Time) Metricas {
	m := Metricas{
		ActividadesPorUsuario: []ConteoUsuario{},
		TiempoPromedioPorTipo: []DuracionTipo{},
	}

	porUsuario := make(map[int64]*ConteoUsuario)
	var ordenUsuarios []int64

	type acumTipo struct {
		nombre string
		suma   int
		n      int
	}
	porTipo := make(map[int64]*acumTipo)
	var ordenTipos []int64

	for _, r := range registros {
		m.TotalActividades++
		switch r.Estado {
		case EstadoInicio:
			m.Iniciadas++
		case EstadoEnProceso:
			m.EnProceso++
		case EstadoTerminado:
			m.Terminadas++
		}
		if r.Vencida(now) {
			m.Vencidas++
		}

		if c, ok := porUsuario[r.UsuarioID]; ok {
			c.Cantidad++
		} else {
			porUsuario[r.UsuarioID] = &ConteoUsuario{
				UsuarioID: r.UsuarioID,
				Nombre:    r.UsuarioNombre,
				Cantidad:  1,
			}
			ordenUsuarios = append(ordenUsuarios, r.UsuarioID)
		}

		// Duration only accumulates for terminado activities; a tipo with
		// no completed work never gets an entry.
		if r.Estado == EstadoTerminado {
			if a, ok := porTipo[r.TipoID]; ok {
				a.suma += r.DuracionDias()
				a.n++
			} else {
				porTipo[r.TipoID] = &acumTipo{nombre: r.TipoNombre, suma: r.DuracionDias(), n: 1}
				ordenTipos = append(ordenTipos, r.TipoID)
			}
		}
	}

	m.PorcentajeGlobalCompletado = porcentaje(m.Terminadas, m.TotalActividades)

	for _, id := range ordenUsuarios {
		m.ActividadesPorUsuario = append(m.ActividadesPorUsuario, *porUsuario[id])
	}
	sort.SliceStable(m.ActividadesPorUsuario, func(i, j int) bool {
		return m.ActividadesPorUsuario[i].Cantidad > m.ActividadesPorUsuario[j].Cantidad
	})

	for _, id := range ordenTipos {
		a := porTipo[id]
		m.TiempoPromedioPorTipo = append(m.TiempoPromedioPorTipo, DuracionTipo{
			TipoID:       id,
			Nombre:       a.nombre,
			DiasPromedio: redondear(float64(a.suma) / float64(a.n)),
		})
	}
	sort.SliceStable(m.TiempoPromedioPorTipo, func(i, j int) bool {
		return m.TiempoPromedioPorTipo[i].Nombre < m.TiempoPromedioPorTipo[j].Nombre
	})

	return m
}

// ── Reporte ──────────────────────────────────────────────────────

// TipoOpcion and UsuarioOpcion populate the filter selectors in the UI.
// They list ALL tipos/usuarios, independent of what matched the filter.
type TipoOpcion struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Area   string `json:"area"`
}

type UsuarioOpcion struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Cargo  string `json:"cargo"`
}

// OpcionesFiltro bundles the selector lists.
type OpcionesFiltro struct {
	TiposActividad []TipoOpcion    `json:"tiposActividad"`
	Usuarios       []UsuarioOpcion `json:"usuarios"`
}

// Reporte is the full seguimiento-actividades response payload.
type Reporte struct {
	Data     []ResumenCausa `json:"data"`
	Metricas Metricas       `json:"metricas"`
	Filtros  OpcionesFiltro `json:"filtros"`
	Total    int            `json:"total"`
}

// ArmarReporte runs grouping, per-causa summaries and global metrics over
// the fetched set and assembles the response. Summaries are sorted
// ascending by completion percentage, least-complete causas first.
func ArmarReporte(registros []Registro, tipos []TipoOpcion, usuarios []UsuarioOpcion, now time.Time) Reporte {
	grupos, orden := AgruparPorCausa(registros)

	data := make([]ResumenCausa, 0, len(orden))
	for _, causaID := range orden {
		data = append(data, ResumirCausa(grupos[causaID], now))
	}
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].PorcentajeCompletado < data[j].PorcentajeCompletado
	})

	if tipos == nil {
		tipos = []TipoOpcion{}
	}
	if usuarios == nil {
		usuarios = []UsuarioOpcion{}
	}

	return Reporte{
		Data:     data,
		Metricas: CalcularMetricas(registros, now),
		Filtros:  OpcionesFiltro{TiposActividad: tipos, Usuarios: usuarios},
		Total:    len(registros),
	}
}

// ── Helpers ──────────────────────────────────────────────────────

// porcentaje returns parte/total*100 rounded to 2 decimals, 0 when total is 0.
func porcentaje(parte, total int) float64 {
	if total == 0 {
		return 0
	}
	return redondear(float64(parte) / float64(total) * 100)
}

func redondear(x float64) float64 {
	return math.Round(x*100) / 100
}
