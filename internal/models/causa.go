package models

import "time"

// Causa represents a criminal case tracked by the unit.
type Causa struct {
	ID           int64     `json:"id"`
	RUC          string    `json:"ruc"` // unique case reference number
	Denominacion string    `json:"denominacion"`
	Delito       string    `json:"delito"`
	Area         string    `json:"area"` // "ECOH" | "SACFI"
	Comuna       *string   `json:"comuna,omitempty"`
	Region       *string   `json:"region,omitempty"`
	FiscalID     *int64    `json:"fiscalId,omitempty"`
	Tribunal     *string   `json:"tribunal,omitempty"`
	Estado       string    `json:"estado"` // "vigente" | "cerrada"
	FechaIngreso string    `json:"fechaIngreso"`
	Observacion  *string   `json:"observacion,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CausaConFiscal includes the assigned prosecutor's name and per-causa counts.
type CausaConFiscal struct {
	Causa
	FiscalNombre        *string `json:"fiscalNombre,omitempty"`
	ImputadosCount      int     `json:"imputadosCount"`
	ActividadesCount    int     `json:"actividadesCount"`
	ActividadesAbiertas int     `json:"actividadesAbiertas"` // estado != terminado
}

// CreateCausaRequest holds the fields needed to register a causa.
type CreateCausaRequest struct {
	RUC          string  `json:"ruc"`
	Denominacion string  `json:"denominacion"`
	Delito       string  `json:"delito"`
	Area         string  `json:"area"`
	Comuna       *string `json:"comuna,omitempty"`
	Region       *string `json:"region,omitempty"`
	FiscalID     *int64  `json:"fiscalId,omitempty"`
	Tribunal     *string `json:"tribunal,omitempty"`
	FechaIngreso string  `json:"fechaIngreso"`
	Observacion  *string `json:"observacion,omitempty"`
}

// Validate checks if the create request contains valid data.
func (r *CreateCausaRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.RUC) < 4 {
		errors["ruc"] = "RUC is required (min 4 characters)"
	}
	if len(r.Denominacion) < 2 || len(r.Denominacion) > 200 {
		errors["denominacion"] = "Denominacion must be between 2 and 200 characters"
	}
	if r.Delito == "" {
		errors["delito"] = "Delito is required"
	}
	if r.Area != "ECOH" && r.Area != "SACFI" {
		errors["area"] = "Area must be 'ECOH' or 'SACFI'"
	}
	if r.FechaIngreso == "" {
		errors["fechaIngreso"] = "Fecha de ingreso is required"
	}

	return errors
}

// UpdateCausaRequest holds the fields that can be updated.
type UpdateCausaRequest struct {
	Denominacion *string `json:"denominacion,omitempty"`
	Delito       *string `json:"delito,omitempty"`
	Area         *string `json:"area,omitempty"`
	Comuna       *string `json:"comuna,omitempty"`
	Region       *string `json:"region,omitempty"`
	FiscalID     *int64  `json:"fiscalId,omitempty"`
	Tribunal     *string `json:"tribunal,omitempty"`
	Estado       *string `json:"estado,omitempty"`
	Observacion  *string `json:"observacion,omitempty"`
}

// CausaRelacion links two causas in the organized-crime relationship graph.
type CausaRelacion struct {
	ID                int64   `json:"id"`
	CausaID           int64   `json:"causaId"`
	CausaRelacionadaID int64  `json:"causaRelacionadaId"`
	TipoRelacion      string  `json:"tipoRelacion"` // e.g. "misma_organizacion", "imputado_comun", "arma_comun"
	Observacion       *string `json:"observacion,omitempty"`
	CreatedAt         string  `json:"createdAt"`

	// Denormalized fields of the related causa for listing
	RUCRelacionada          string `json:"rucRelacionada,omitempty"`
	DenominacionRelacionada string `json:"denominacionRelacionada,omitempty"`
}

// CreateRelacionRequest links the causa in the URL to another one.
type CreateRelacionRequest struct {
	CausaRelacionadaID int64   `json:"causaRelacionadaId"`
	TipoRelacion       string  `json:"tipoRelacion"`
	Observacion        *string `json:"observacion,omitempty"`
}

// Validate checks the relation request.
func (r *CreateRelacionRequest) Validate() map[string]string {
	errors := map[string]string{}
	if r.CausaRelacionadaID == 0 {
		errors["causaRelacionadaId"] = "Related causa is required"
	}
	if r.TipoRelacion == "" {
		errors["tipoRelacion"] = "Tipo de relacion is required"
	}
	return errors
}

// Telefono is a phone record attached to a causa (and optionally an imputado).
type Telefono struct {
	ID          int64   `json:"id"`
	CausaID     int64   `json:"causaId"`
	ImputadoID  *int64  `json:"imputadoId,omitempty"`
	Numero      string  `json:"numero"`
	IMEI        *string `json:"imei,omitempty"`
	Proveedor   *string `json:"proveedor,omitempty"`
	Observacion *string `json:"observacion,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// CreateTelefonoRequest registers a phone record under a causa.
type CreateTelefonoRequest struct {
	ImputadoID  *int64  `json:"imputadoId,omitempty"`
	Numero      string  `json:"numero"`
	IMEI        *string `json:"imei,omitempty"`
	Proveedor   *string `json:"proveedor,omitempty"`
	Observacion *string `json:"observacion,omitempty"`
}

// Validate checks the phone record request.
func (r *CreateTelefonoRequest) Validate() map[string]string {
	errors := map[string]string{}
	if len(r.Numero) < 6 {
		errors["numero"] = "Numero is required (min 6 characters)"
	}
	return errors
}

// DocumentoCausa is an uploaded file attached to a causa.
type DocumentoCausa struct {
	ID        int64  `json:"id"`
	CausaID   int64  `json:"causaId"`
	Nombre    string `json:"nombre"`
	FileURL   string `json:"fileUrl"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	FileType  string `json:"fileType"`
	CreatedAt string `json:"createdAt"`
}

// CreateDocumentoRequest attaches an already-uploaded file to a causa.
type CreateDocumentoRequest struct {
	Nombre   string `json:"nombre"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// Validate checks the documento request.
func (r *CreateDocumentoRequest) Validate() map[string]string {
	errors := map[string]string{}
	if r.Nombre == "" {
		errors["nombre"] = "Nombre is required"
	}
	if r.FileURL == "" {
		errors["fileUrl"] = "File URL is required"
	}
	return errors
}
