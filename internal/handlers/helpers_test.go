package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusNotFound, "Causa not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["error"] != "Causa not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestCSVEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"has,comma", "\"has,comma\""},
		{"has \"quotes\"", "\"has \"\"quotes\"\"\""},
		{"", ""},
		{"Robo con intimidación", "Robo con intimidación"},
	}

	for _, tt := range tests {
		if got := csvEscape(tt.in); got != tt.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"informe.pdf", "informe.pdf"},
		{"../../etc/passwd", "passwd"},
		{"acta audiencia.pdf", "acta_audiencia.pdf"},
		{"/abs/path/file.png", "file.png"},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStorageKeyFromURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"local url", "/api/files/documentos/abc_informe.pdf", "documentos/abc_informe.pdf"},
		{"absolute local url", "http://localhost:8080/api/files/general/x.png", "general/x.png"},
		{"r2 public url", "https://pub-xyz.r2.dev/documentos/abc_informe.pdf", "documentos/abc_informe.pdf"},
		{"unrecognized", "ftp://weird/thing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storageKeyFromURL(tt.in); got != tt.want {
				t.Errorf("storageKeyFromURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
