package models

import (
	"testing"

	"ecoh-backend/internal/seguimiento"
)

func TestCreateCausaRequestValidate(t *testing.T) {
	valid := CreateCausaRequest{
		RUC:          "2400012345-1",
		Denominacion: "Homicidio calificado NN",
		Delito:       "homicidio",
		Area:         "ECOH",
		FechaIngreso: "2026-01-15",
	}
	if errs := valid.Validate(); len(errs) != 0 {
		t.Fatalf("valid request produced errors: %v", errs)
	}

	tests := []struct {
		name   string
		mutate func(*CreateCausaRequest)
		field  string
	}{
		{"short ruc", func(r *CreateCausaRequest) { r.RUC = "12" }, "ruc"},
		{"empty denominacion", func(r *CreateCausaRequest) { r.Denominacion = "" }, "denominacion"},
		{"missing delito", func(r *CreateCausaRequest) { r.Delito = "" }, "delito"},
		{"bad area", func(r *CreateCausaRequest) { r.Area = "OTRA" }, "area"},
		{"missing fecha", func(r *CreateCausaRequest) { r.FechaIngreso = "" }, "fechaIngreso"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			errs := req.Validate()
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("expected error on field %q, got %v", tt.field, errs)
			}
		})
	}
}

func TestCreateActividadRequestValidate(t *testing.T) {
	valid := CreateActividadRequest{
		TipoID:       3,
		UsuarioID:    7,
		FechaInicio:  "2026-02-01",
		FechaTermino: "2026-02-10",
	}
	if errs := valid.Validate(); len(errs) != 0 {
		t.Fatalf("valid request produced errors: %v", errs)
	}

	// An inverted window is accepted: the write path does not compare dates
	inverted := valid
	inverted.FechaInicio = "2026-02-10"
	inverted.FechaTermino = "2026-02-01"
	if errs := inverted.Validate(); len(errs) != 0 {
		t.Errorf("inverted window should pass validation, got %v", errs)
	}

	missing := CreateActividadRequest{}
	errs := missing.Validate()
	for _, field := range []string{"tipoActividadId", "usuarioId", "fechaInicio", "fechaTermino"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected error on field %q", field)
		}
	}
}

func TestUpdateEstadoRequestValidate(t *testing.T) {
	for _, estado := range []seguimiento.Estado{"inicio", "en_proceso", "terminado"} {
		req := UpdateEstadoRequest{Estado: estado}
		if errs := req.Validate(); len(errs) != 0 {
			t.Errorf("estado %q should be valid, got %v", estado, errs)
		}
	}

	req := UpdateEstadoRequest{Estado: "cancelado"}
	if errs := req.Validate(); len(errs) == 0 {
		t.Error("unknown estado should be rejected")
	}
}

func TestUpdateRoleRequestValidate(t *testing.T) {
	for _, role := range []string{"viewer", "analista", "admin", "super_admin"} {
		req := UpdateRoleRequest{Role: role}
		if errs := req.Validate(); len(errs) != 0 {
			t.Errorf("role %q should be valid, got %v", role, errs)
		}
	}

	req := UpdateRoleRequest{Role: "root"}
	if errs := req.Validate(); len(errs) == 0 {
		t.Error("unknown role should be rejected")
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{
		Email:    "analista@fiscalia.cl",
		Password: "hunter22",
		Name:     "Ana Pérez",
	}
	if errs := valid.Validate(); len(errs) != 0 {
		t.Fatalf("valid request produced errors: %v", errs)
	}

	short := valid
	short.Password = "abc"
	if _, ok := short.Validate()["password"]; !ok {
		t.Error("short password should be rejected")
	}
}
