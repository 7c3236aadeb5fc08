package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/causas", "/api/causas"},
		{"/api/causas/123", "/api/causas/{id}"},
		{"/api/causas/123/imputados", "/api/causas/{id}/imputados"},
		{"/api/actividades/9/estado", "/api/actividades/{id}/estado"},
		{"/api/reportes/seguimiento-actividades", "/api/reportes/seguimiento-actividades"},
		{"/", "/"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
