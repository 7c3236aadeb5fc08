package models

// ── Incidencia geográfica ────────────────────────────────────────

// IncidenciaGeografica is one bucket of the geographic incidence report:
// causa counts grouped by region and comuna.
type IncidenciaGeografica struct {
	Region       string  `json:"region"`
	Comuna       string  `json:"comuna"`
	TotalCausas  int     `json:"totalCausas"`
	Vigentes     int     `json:"vigentes"`
	Porcentaje   float64 `json:"porcentaje"` // share of all counted causas
}

// ── Formalizaciones ──────────────────────────────────────────────

// FormalizacionCausa is one row of the formalizaciones panel.
type FormalizacionCausa struct {
	CausaID                 int64   `json:"causaId"`
	RUC                     string  `json:"ruc"`
	Denominacion            string  `json:"denominacion"`
	Delito                  string  `json:"delito"`
	TotalImputados          int     `json:"totalImputados"`
	Formalizados            int     `json:"formalizados"`
	PorcentajeFormalizados  float64 `json:"porcentajeFormalizados"`
}

// FormalizacionesPanel aggregates formalization progress across causas.
type FormalizacionesPanel struct {
	Data                   []FormalizacionCausa `json:"data"`
	TotalImputados         int                  `json:"totalImputados"`
	TotalFormalizados      int                  `json:"totalFormalizados"`
	PorcentajeGlobal       float64              `json:"porcentajeGlobal"`
}

// ── Carga de trabajo ─────────────────────────────────────────────

// CargaFiscal is the workload of one prosecutor.
type CargaFiscal struct {
	FiscalID            int64  `json:"fiscalId"`
	Nombre              string `json:"nombre"`
	Cargo               string `json:"cargo"`
	TotalCausas         int    `json:"totalCausas"`
	CausasVigentes      int    `json:"causasVigentes"`
	ActividadesAbiertas int    `json:"actividadesAbiertas"`
}

// ── Notificaciones y registro ────────────────────────────────────

// Notificacion is an in-app alert addressed to one user.
type Notificacion struct {
	ID         int64  `json:"id"`
	UsuarioID  int64  `json:"usuarioId"`
	Titulo     string `json:"titulo"`
	Mensaje    string `json:"mensaje"`
	Tipo       string `json:"tipo"` // e.g. "actividad_vencida"
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
	Leida      bool   `json:"leida"`
	CreatedAt  string `json:"createdAt"`
}

// RegistroActividad is one audit-trail entry.
type RegistroActividad struct {
	ID         int64   `json:"id"`
	UsuarioID  *int64  `json:"usuarioId,omitempty"`
	Usuario    *string `json:"usuario,omitempty"`
	Accion     string  `json:"accion"` // "created", "updated", "deleted", ...
	EntityType string  `json:"entityType"`
	EntityID   string  `json:"entityId"`
	Detalle    *string `json:"detalle,omitempty"` // JSON payload
	CreatedAt  string  `json:"createdAt"`
}
