package seguimiento

import (
	"net/url"
	"testing"
	"time"
)

var ahora = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func dia(offset int) time.Time {
	return ahora.AddDate(0, 0, offset)
}

func registro(id, causaID int64, ruc string, estado Estado, inicio, termino time.Time) Registro {
	return Registro{
		ID:            id,
		CausaID:       causaID,
		RUC:           ruc,
		Denominacion:  "Causa " + ruc,
		Delito:        "Homicidio",
		TipoID:        1,
		TipoNombre:    "Diligencia",
		AreaNombre:    "ECOH",
		UsuarioID:     10,
		UsuarioNombre: "Ana Rojas",
		Estado:        estado,
		FechaInicio:   inicio,
		FechaTermino:  termino,
	}
}

// ── ParseFiltro ──────────────────────────────────────────────────

func TestParseFiltro(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantFechas  bool
		wantUsuario *int64
		wantTipo    *int64
		wantRUC     string
	}{
		{"empty query", "", false, nil, nil, ""},
		{"full filter", "fechaInicio=2026-01-01&fechaFin=2026-06-30&usuarioId=3&tipoActividadId=7&ruc=2400", true, ptr(3), ptr(7), "2400"},
		{"date window needs both bounds", "fechaInicio=2026-01-01", false, nil, nil, ""},
		{"unparseable dates dropped", "fechaInicio=hoy&fechaFin=2026-06-30", false, nil, nil, ""},
		{"non-numeric ids silently dropped", "usuarioId=abc&tipoActividadId=1.5", false, nil, nil, ""},
		{"ruc is trimmed", "ruc=%202400123%20", false, nil, nil, "2400123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("bad test query: %v", err)
			}
			f := ParseFiltro(q)

			if got := f.FechaInicio != nil && f.FechaFin != nil; got != tt.wantFechas {
				t.Errorf("date window applied = %v, want %v", got, tt.wantFechas)
			}
			if !eqPtr(f.UsuarioID, tt.wantUsuario) {
				t.Errorf("UsuarioID = %v, want %v", f.UsuarioID, tt.wantUsuario)
			}
			if !eqPtr(f.TipoID, tt.wantTipo) {
				t.Errorf("TipoID = %v, want %v", f.TipoID, tt.wantTipo)
			}
			if f.RUC != tt.wantRUC {
				t.Errorf("RUC = %q, want %q", f.RUC, tt.wantRUC)
			}
		})
	}
}

// ── Duración y vencimiento ───────────────────────────────────────

func TestDuracionDias(t *testing.T) {
	tests := []struct {
		name    string
		inicio  time.Time
		termino time.Time
		want    int
	}{
		{"exact days", dia(0), dia(3), 3},
		{"partial day rounds up", dia(0), dia(0).Add(25 * time.Hour), 2},
		{"one hour rounds up to a day", dia(0), dia(0).Add(time.Hour), 1},
		{"zero duration", dia(0), dia(0), 0},
		// Inconsistent timestamps are not guarded; negative flows through.
		{"termino before inicio", dia(3), dia(0), -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Registro{FechaInicio: tt.inicio, FechaTermino: tt.termino}
			if got := r.DuracionDias(); got != tt.want {
				t.Errorf("DuracionDias() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVencida(t *testing.T) {
	tests := []struct {
		name    string
		estado  Estado
		termino time.Time
		want    bool
	}{
		{"overdue in_proceso", EstadoEnProceso, dia(-1), true},
		{"overdue inicio", EstadoInicio, dia(-1), true},
		{"terminado is never overdue", EstadoTerminado, dia(-1), false},
		{"future termino", EstadoEnProceso, dia(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Registro{Estado: tt.estado, FechaInicio: dia(-10), FechaTermino: tt.termino}
			if got := r.Vencida(ahora); got != tt.want {
				t.Errorf("Vencida() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ── Agrupación ───────────────────────────────────────────────────

// Grouping by causa and flattening back must reproduce the fetched set:
// same cardinality, same identifiers, order preserved within each group.
func TestAgruparPorCausaRoundTrip(t *testing.T) {
	registros := []Registro{
		registro(1, 100, "2400-1", EstadoInicio, dia(-5), dia(1)),
		registro(2, 200, "2400-2", EstadoTerminado, dia(-5), dia(-1)),
		registro(3, 100, "2400-1", EstadoEnProceso, dia(-4), dia(2)),
		registro(4, 300, "2400-3", EstadoInicio, dia(-3), dia(3)),
		registro(5, 100, "2400-1", EstadoTerminado, dia(-3), dia(-2)),
	}

	grupos, orden := AgruparPorCausa(registros)

	if len(orden) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(orden))
	}
	if orden[0] != 100 || orden[1] != 200 || orden[2] != 300 {
		t.Errorf("group order should follow first appearance, got %v", orden)
	}

	vistos := map[int64]bool{}
	total := 0
	for _, causaID := range orden {
		anterior := int64(-1)
		for _, r := range grupos[causaID] {
			if r.CausaID != causaID {
				t.Errorf("registro %d filed under causa %d, belongs to %d", r.ID, causaID, r.CausaID)
			}
			if vistos[r.ID] {
				t.Errorf("registro %d appears twice after flattening", r.ID)
			}
			if r.ID < anterior {
				t.Errorf("fetch order not preserved within group %d", causaID)
			}
			vistos[r.ID] = true
			anterior = r.ID
			total++
		}
	}
	if total != len(registros) {
		t.Errorf("flattened cardinality = %d, want %d", total, len(registros))
	}
}

// ── Resumen por causa ────────────────────────────────────────────

// Scenario from the report contract: causa A with (terminado, terminado,
// inicio) and causa B with (en_proceso).
func TestResumirCausaEscenario(t *testing.T) {
	grupoA := []Registro{
		registro(1, 100, "2400-1", EstadoTerminado, dia(-10), dia(-8)),
		registro(2, 100, "2400-1", EstadoTerminado, dia(-10), dia(-6)),
		registro(3, 100, "2400-1", EstadoInicio, dia(-5), dia(5)),
	}
	grupoB := []Registro{
		registro(4, 200, "2400-2", EstadoEnProceso, dia(-5), dia(5)),
	}

	a := ResumirCausa(grupoA, ahora)
	if a.TotalActividades != 3 || a.Terminadas != 2 || a.Iniciadas != 1 {
		t.Errorf("causa A counts = total %d, terminadas %d, iniciadas %d", a.TotalActividades, a.Terminadas, a.Iniciadas)
	}
	if a.PorcentajeCompletado != 66.67 {
		t.Errorf("causa A PorcentajeCompletado = %v, want 66.67", a.PorcentajeCompletado)
	}
	// Durations: 2 and 4 days → average 3.
	if a.DuracionPromedioDias != 3 {
		t.Errorf("causa A DuracionPromedioDias = %v, want 3", a.DuracionPromedioDias)
	}
	if a.RUC != "2400-1" || a.Denominacion == "" || a.Delito == "" {
		t.Errorf("causa fields not denormalized from first registro: %+v", a)
	}

	b := ResumirCausa(grupoB, ahora)
	if b.TotalActividades != 1 || b.Terminadas != 0 {
		t.Errorf("causa B counts = total %d, terminadas %d", b.TotalActividades, b.Terminadas)
	}
	if b.PorcentajeCompletado != 0 {
		t.Errorf("causa B PorcentajeCompletado = %v, want 0", b.PorcentajeCompletado)
	}
	if b.DuracionPromedioDias != 0 {
		t.Errorf("causa B DuracionPromedioDias = %v, want 0 with no terminadas", b.DuracionPromedioDias)
	}
}

func TestResumirCausaVacia(t *testing.T) {
	r := ResumirCausa(nil, ahora)
	if r.TotalActividades != 0 || r.PorcentajeCompletado != 0 {
		t.Errorf("empty group should produce zero-valued summary, got %+v", r)
	}
}

// ── Métricas globales ────────────────────────────────────────────

func TestCalcularMetricasEscenario(t *testing.T) {
	registros := []Registro{
		registro(1, 100, "2400-1", EstadoTerminado, dia(-10), dia(-8)),
		registro(2, 100, "2400-1", EstadoTerminado, dia(-10), dia(-6)),
		registro(3, 100, "2400-1", EstadoInicio, dia(-5), dia(5)),
		registro(4, 200, "2400-2", EstadoEnProceso, dia(-5), dia(5)),
	}

	m := CalcularMetricas(registros, ahora)

	if m.TotalActividades != 4 || m.Terminadas != 2 {
		t.Errorf("totals = %d/%d terminadas, want 4/2", m.TotalActividades, m.Terminadas)
	}
	if m.PorcentajeGlobalCompletado != 50 {
		t.Errorf("PorcentajeGlobalCompletado = %v, want 50", m.PorcentajeGlobalCompletado)
	}
}

func TestMetricasVencidas(t *testing.T) {
	vencida := registro(1, 100, "2400-1", EstadoEnProceso, dia(-10), dia(-1))
	terminadaAyer := registro(2, 100, "2400-1", EstadoTerminado, dia(-10), dia(-1))

	m := CalcularMetricas([]Registro{vencida, terminadaAyer}, ahora)
	if m.Vencidas != 1 {
		t.Errorf("Vencidas = %d, want 1 (terminado never counts as overdue)", m.Vencidas)
	}
}

func TestMetricasDistribucionPorUsuario(t *testing.T) {
	registros := []Registro{
		registro(1, 100, "2400-1", EstadoInicio, dia(-5), dia(5)),
		registro(2, 100, "2400-1", EstadoInicio, dia(-5), dia(5)),
		registro(3, 100, "2400-1", EstadoInicio, dia(-5), dia(5)),
	}
	registros[0].UsuarioID, registros[0].UsuarioNombre = 20, "Luis Soto"
	// registros[1] and [2] stay with usuario 10.
	registros[1].UsuarioID, registros[1].UsuarioNombre = 10, "Ana Rojas"
	registros[2].UsuarioID, registros[2].UsuarioNombre = 10, "Ana Rojas"

	m := CalcularMetricas(registros, ahora)

	if len(m.ActividadesPorUsuario) != 2 {
		t.Fatalf("expected 2 users in distribution, got %d", len(m.ActividadesPorUsuario))
	}
	for i := 1; i < len(m.ActividadesPorUsuario); i++ {
		if m.ActividadesPorUsuario[i-1].Cantidad < m.ActividadesPorUsuario[i].Cantidad {
			t.Errorf("distribution not sorted descending: %+v", m.ActividadesPorUsuario)
		}
	}
	if m.ActividadesPorUsuario[0].UsuarioID != 10 || m.ActividadesPorUsuario[0].Cantidad != 2 {
		t.Errorf("top user = %+v, want usuario 10 with 2", m.ActividadesPorUsuario[0])
	}
}

// A tipo whose activities are all unfinished must not appear in the
// average-duration list at all — not shown as zero.
func TestMetricasTipoSinTerminadasOmitido(t *testing.T) {
	peritaje1 := registro(1, 100, "2400-1", EstadoInicio, dia(-5), dia(5))
	peritaje1.TipoID, peritaje1.TipoNombre = 7, "Peritaje"
	peritaje2 := registro(2, 100, "2400-1", EstadoInicio, dia(-5), dia(5))
	peritaje2.TipoID, peritaje2.TipoNombre = 7, "Peritaje"
	diligencia := registro(3, 100, "2400-1", EstadoTerminado, dia(-5), dia(-2))

	m := CalcularMetricas([]Registro{peritaje1, peritaje2, diligencia}, ahora)

	if len(m.TiempoPromedioPorTipo) != 1 {
		t.Fatalf("expected 1 tipo with completed work, got %d", len(m.TiempoPromedioPorTipo))
	}
	for _, d := range m.TiempoPromedioPorTipo {
		if d.Nombre == "Peritaje" {
			t.Errorf("Peritaje has no terminadas and must be omitted, got %+v", d)
		}
	}
	if m.TiempoPromedioPorTipo[0].DiasPromedio != 3 {
		t.Errorf("Diligencia DiasPromedio = %v, want 3", m.TiempoPromedioPorTipo[0].DiasPromedio)
	}
}

func TestMetricasConjuntoVacio(t *testing.T) {
	m := CalcularMetricas(nil, ahora)
	if m.TotalActividades != 0 || m.PorcentajeGlobalCompletado != 0 {
		t.Errorf("empty set should yield zero metrics, got %+v", m)
	}
	if m.ActividadesPorUsuario == nil || m.TiempoPromedioPorTipo == nil {
		t.Error("empty set should yield empty slices, not nil (JSON renders [])")
	}
}

// ── Reporte ──────────────────────────────────────────────────────

func TestArmarReporte(t *testing.T) {
	registros := []Registro{
		registro(1, 100, "2400-1", EstadoTerminado, dia(-10), dia(-8)),
		registro(2, 100, "2400-1", EstadoTerminado, dia(-10), dia(-6)),
		registro(3, 100, "2400-1", EstadoInicio, dia(-5), dia(5)),
		registro(4, 200, "2400-2", EstadoEnProceso, dia(-5), dia(5)),
	}
	tipos := []TipoOpcion{{ID: 1, Nombre: "Diligencia", Area: "ECOH"}}
	usuarios := []UsuarioOpcion{{ID: 10, Nombre: "Ana Rojas", Email: "arojas@ecoh.cl", Cargo: "Analista"}}

	rep := ArmarReporte(registros, tipos, usuarios, ahora)

	if rep.Total != 4 {
		t.Errorf("Total = %d, want 4", rep.Total)
	}
	if len(rep.Data) != 2 {
		t.Fatalf("expected 2 causa summaries, got %d", len(rep.Data))
	}
	// Ascending by completion: causa 200 (0%) before causa 100 (66.67%).
	if rep.Data[0].CausaID != 200 || rep.Data[1].CausaID != 100 {
		t.Errorf("summaries not sorted ascending by completion: %v, %v",
			rep.Data[0].CausaID, rep.Data[1].CausaID)
	}
	for i := 1; i < len(rep.Data); i++ {
		if rep.Data[i-1].PorcentajeCompletado > rep.Data[i].PorcentajeCompletado {
			t.Errorf("data not sorted ascending by PorcentajeCompletado")
		}
	}
	if len(rep.Filtros.TiposActividad) != 1 || len(rep.Filtros.Usuarios) != 1 {
		t.Errorf("filter option lists not passed through: %+v", rep.Filtros)
	}
}

func TestArmarReporteVacio(t *testing.T) {
	rep := ArmarReporte(nil, nil, nil, ahora)

	if len(rep.Data) != 0 || rep.Total != 0 {
		t.Errorf("empty fetch should yield empty data, got %+v", rep)
	}
	if rep.Metricas.TotalActividades != 0 || rep.Metricas.PorcentajeGlobalCompletado != 0 {
		t.Errorf("empty fetch should yield zero metrics, got %+v", rep.Metricas)
	}
	if rep.Data == nil || rep.Filtros.TiposActividad == nil || rep.Filtros.Usuarios == nil {
		t.Error("response slices must be non-nil so JSON renders [] instead of null")
	}
}

// Completion percentage stays within [0, 100] for arbitrary mixes.
func TestPorcentajeRango(t *testing.T) {
	estados := []Estado{EstadoInicio, EstadoEnProceso, EstadoTerminado}
	var registros []Registro
	id := int64(1)
	for _, e1 := range estados {
		for _, e2 := range estados {
			registros = append(registros,
				registro(id, id, "ruc", e1, dia(-3), dia(-1)),
				registro(id+1, id, "ruc", e2, dia(-3), dia(1)),
			)
			id += 2
		}
	}

	grupos, orden := AgruparPorCausa(registros)
	for _, causaID := range orden {
		r := ResumirCausa(grupos[causaID], ahora)
		if r.PorcentajeCompletado < 0 || r.PorcentajeCompletado > 100 {
			t.Errorf("causa %d PorcentajeCompletado = %v out of [0,100]", causaID, r.PorcentajeCompletado)
		}
	}
	m := CalcularMetricas(registros, ahora)
	if m.PorcentajeGlobalCompletado < 0 || m.PorcentajeGlobalCompletado > 100 {
		t.Errorf("global percentage %v out of [0,100]", m.PorcentajeGlobalCompletado)
	}
}

func TestEstadoValido(t *testing.T) {
	for _, e := range []Estado{EstadoInicio, EstadoEnProceso, EstadoTerminado} {
		if !e.Valido() {
			t.Errorf("%s should be valid", e)
		}
	}
	if Estado("completado").Valido() {
		t.Error("unknown estado accepted")
	}
}

// ── helpers ──────────────────────────────────────────────────────

func ptr(n int64) *int64 { return &n }

func eqPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
