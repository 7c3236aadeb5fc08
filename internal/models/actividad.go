package models

import "ecoh-backend/internal/seguimiento"

// Actividad represents a unit of work tied to a causa, assigned to a user,
// with a status and a time window.
type Actividad struct {
	ID           int64              `json:"id"`
	CausaID      int64              `json:"causaId"`
	TipoID       int64              `json:"tipoActividadId"`
	UsuarioID    int64              `json:"usuarioId"`
	Estado       seguimiento.Estado `json:"estado"`
	FechaInicio  string             `json:"fechaInicio"`
	FechaTermino string             `json:"fechaTermino"`
	Observacion  *string            `json:"observacion,omitempty"`
	CreatedAt    string             `json:"createdAt"`
	UpdatedAt    string             `json:"updatedAt"`
}

// ActividadConDetalle includes the joined causa, tipo and usuario fields
// for listings.
type ActividadConDetalle struct {
	Actividad
	RUC           string `json:"ruc"`
	Denominacion  string `json:"denominacion"`
	TipoNombre    string `json:"tipoActividad"`
	AreaNombre    string `json:"area"`
	UsuarioNombre string `json:"usuario"`
	Vencida       bool   `json:"vencida"`
}

// CreateActividadRequest holds the fields needed to create an actividad.
type CreateActividadRequest struct {
	TipoID       int64   `json:"tipoActividadId"`
	UsuarioID    int64   `json:"usuarioId"`
	FechaInicio  string  `json:"fechaInicio"`
	FechaTermino string  `json:"fechaTermino"`
	Observacion  *string `json:"observacion,omitempty"`
}

// Validate checks if the create request contains valid data.
// fechaInicio <= fechaTermino is deliberately NOT validated: the write path
// has always accepted inconsistent windows and the reports tolerate them.
func (r *CreateActividadRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.TipoID == 0 {
		errors["tipoActividadId"] = "Tipo de actividad is required"
	}
	if r.UsuarioID == 0 {
		errors["usuarioId"] = "Usuario is required"
	}
	if r.FechaInicio == "" {
		errors["fechaInicio"] = "Fecha de inicio is required"
	}
	if r.FechaTermino == "" {
		errors["fechaTermino"] = "Fecha de termino is required"
	}

	return errors
}

// UpdateActividadRequest holds the fields that can be updated.
type UpdateActividadRequest struct {
	TipoID       *int64  `json:"tipoActividadId,omitempty"`
	UsuarioID    *int64  `json:"usuarioId,omitempty"`
	FechaInicio  *string `json:"fechaInicio,omitempty"`
	FechaTermino *string `json:"fechaTermino,omitempty"`
	Observacion  *string `json:"observacion,omitempty"`
}

// UpdateEstadoRequest changes an actividad's estado. Any of the three
// states is accepted; no transition graph is enforced here.
type UpdateEstadoRequest struct {
	Estado seguimiento.Estado `json:"estado"`
}

// Validate checks that the estado is one of the known states.
func (r *UpdateEstadoRequest) Validate() map[string]string {
	errors := map[string]string{}
	if !r.Estado.Valido() {
		errors["estado"] = "Estado must be 'inicio', 'en_proceso', or 'terminado'"
	}
	return errors
}

// TipoActividad is a categorical activity tag with an owning area.
type TipoActividad struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Area      string `json:"area"` // owning area: "ECOH" | "SACFI"
	Activo    bool   `json:"activo"`
	SortOrder int    `json:"sortOrder"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// CreateTipoActividadRequest adds a catalog entry.
type CreateTipoActividadRequest struct {
	Nombre    string `json:"nombre"`
	Area      string `json:"area"`
	SortOrder int    `json:"sortOrder"`
}

// Validate checks required fields for a new tipo.
func (r *CreateTipoActividadRequest) Validate() map[string]string {
	errors := map[string]string{}
	if len(r.Nombre) < 2 {
		errors["nombre"] = "Nombre is required (min 2 characters)"
	}
	if r.Area != "ECOH" && r.Area != "SACFI" {
		errors["area"] = "Area must be 'ECOH' or 'SACFI'"
	}
	return errors
}

// UpdateTipoActividadRequest edits a catalog entry.
type UpdateTipoActividadRequest struct {
	Nombre    *string `json:"nombre,omitempty"`
	Area      *string `json:"area,omitempty"`
	Activo    *bool   `json:"activo,omitempty"`
	SortOrder *int    `json:"sortOrder,omitempty"`
}
