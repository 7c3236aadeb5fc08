package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStoreSaveAndDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()
	content := "contenido del informe"

	info, err := store.Save(ctx, "documentos/abc_informe.pdf", strings.NewReader(content), "application/pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if info.FileName != "abc_informe.pdf" {
		t.Errorf("FileName = %q", info.FileName)
	}
	if info.FileSize != int64(len(content)) {
		t.Errorf("FileSize = %d, want %d", info.FileSize, len(content))
	}
	if info.FileType != "application/pdf" {
		t.Errorf("FileType = %q", info.FileType)
	}
	if info.URL != "/api/files/documentos/abc_informe.pdf" {
		t.Errorf("URL = %q", info.URL)
	}

	written, err := os.ReadFile(filepath.Join(store.baseDir, "documentos", "abc_informe.pdf"))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(written) != content {
		t.Errorf("file content = %q, want %q", written, content)
	}

	if err := store.Delete(ctx, "documentos/abc_informe.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Deleting again (missing file) must not be an error
	if err := store.Delete(ctx, "documentos/abc_informe.pdf"); err != nil {
		t.Errorf("Delete of missing file returned error: %v", err)
	}
}
