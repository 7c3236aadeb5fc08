package models

// Imputado represents a defendant associated with a causa.
type Imputado struct {
	ID                  int64   `json:"id"`
	CausaID             int64   `json:"causaId"`
	Nombre              string  `json:"nombre"`
	Documento           *string `json:"documento,omitempty"` // RUT or passport
	Alias               *string `json:"alias,omitempty"`
	Nacionalidad        *string `json:"nacionalidad,omitempty"`
	Formalizado         bool    `json:"formalizado"`
	FechaFormalizacion  *string `json:"fechaFormalizacion,omitempty"`
	MedidaCautelar      *string `json:"medidaCautelar,omitempty"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

// CreateImputadoRequest holds the fields needed to register an imputado.
type CreateImputadoRequest struct {
	Nombre         string  `json:"nombre"`
	Documento      *string `json:"documento,omitempty"`
	Alias          *string `json:"alias,omitempty"`
	Nacionalidad   *string `json:"nacionalidad,omitempty"`
	MedidaCautelar *string `json:"medidaCautelar,omitempty"`
}

// Validate checks if the create request contains valid data.
func (r *CreateImputadoRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if len(r.Nombre) < 2 || len(r.Nombre) > 150 {
		errors["nombre"] = "Nombre must be between 2 and 150 characters"
	}
	return errors
}

// UpdateImputadoRequest holds the fields that can be updated.
type UpdateImputadoRequest struct {
	Nombre         *string `json:"nombre,omitempty"`
	Documento      *string `json:"documento,omitempty"`
	Alias          *string `json:"alias,omitempty"`
	Nacionalidad   *string `json:"nacionalidad,omitempty"`
	MedidaCautelar *string `json:"medidaCautelar,omitempty"`
}

// FormalizarRequest records the formalization of an imputado.
type FormalizarRequest struct {
	FechaFormalizacion string  `json:"fechaFormalizacion"`
	MedidaCautelar     *string `json:"medidaCautelar,omitempty"`
}

// Validate checks the formalization request.
func (r *FormalizarRequest) Validate() map[string]string {
	errors := map[string]string{}
	if r.FechaFormalizacion == "" {
		errors["fechaFormalizacion"] = "Fecha de formalizacion is required"
	}
	return errors
}

// Victima represents a victim associated with a causa.
type Victima struct {
	ID        int64   `json:"id"`
	CausaID   int64   `json:"causaId"`
	Nombre    string  `json:"nombre"`
	Documento *string `json:"documento,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// CreateVictimaRequest holds the fields needed to register a victima.
type CreateVictimaRequest struct {
	Nombre    string  `json:"nombre"`
	Documento *string `json:"documento,omitempty"`
}

// Validate checks if the create request contains valid data.
func (r *CreateVictimaRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if len(r.Nombre) < 2 || len(r.Nombre) > 150 {
		errors["nombre"] = "Nombre must be between 2 and 150 characters"
	}
	return errors
}
