package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecoh-backend/internal/ctxkeys"
	"ecoh-backend/internal/database"
	"ecoh-backend/internal/models"
	"ecoh-backend/internal/storage"
)

// DocumentoHandler manages file attachments on causas. The file bytes are
// uploaded separately via UploadHandler; this handler tracks the metadata.
type DocumentoHandler struct {
	db    database.Service
	store storage.Store
}

// NewDocumentoHandler creates a new DocumentoHandler.
func NewDocumentoHandler(db database.Service, store storage.Store) *DocumentoHandler {
	return &DocumentoHandler{db: db, store: store}
}

// ListByCausa handles GET /api/causas/{id}/documentos
func (h *DocumentoHandler) ListByCausa(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT id, causa_id, nombre, file_url, file_name, file_size, file_type, created_at::text
		FROM documentos_causa WHERE causa_id = $1 ORDER BY created_at DESC
	`, causaID)
	if err != nil {
		log.Printf("Error querying documentos: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch documentos")
		return
	}
	defer rows.Close()

	documentos := []models.DocumentoCausa{}
	for rows.Next() {
		var d models.DocumentoCausa
		if err := rows.Scan(&d.ID, &d.CausaID, &d.Nombre, &d.FileURL, &d.FileName, &d.FileSize, &d.FileType, &d.CreatedAt); err != nil {
			continue
		}
		documentos = append(documentos, d)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": documentos,
	})
}

// Create handles POST /api/causas/{id}/documentos
func (h *DocumentoHandler) Create(w http.ResponseWriter, r *http.Request) {
	causaID := urlParamID(r, "id")
	if causaID == 0 {
		JSONError(w, http.StatusBadRequest, "Causa ID is required")
		return
	}

	if !checkCausaAccess(r.Context(), h.db.GetPool(), causaID) {
		JSONError(w, http.StatusForbidden, "Access denied to this causa")
		return
	}

	var req models.CreateDocumentoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Validation failed",
			"details": errs,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var d models.DocumentoCausa
	err := pool.QueryRow(ctx, `
		INSERT INTO documentos_causa (causa_id, nombre, file_url, file_name, file_size, file_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, causa_id, nombre, file_url, file_name, file_size, file_type, created_at::text
	`, causaID, req.Nombre, req.FileURL, req.FileName, req.FileSize, req.FileType,
	).Scan(&d.ID, &d.CausaID, &d.Nombre, &d.FileURL, &d.FileName, &d.FileSize, &d.FileType, &d.CreatedAt)
	if err != nil {
		log.Printf("Error creating documento: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create documento")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "documento", strconv.FormatInt(d.ID, 10), map[string]interface{}{
		"causaId": causaID, "nombre": d.Nombre,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    d,
		"message": "Documento created successfully",
	})
}

// Delete handles DELETE /api/documentos/{id}
// Removes the metadata row and best-effort deletes the stored file.
func (h *DocumentoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "Documento ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	if !ctxkeys.IsGlobalScope(r.Context()) {
		var area string
		err := pool.QueryRow(ctx,
			"SELECT c.area FROM documentos_causa d JOIN causas c ON c.id = d.causa_id WHERE d.id = $1",
			id,
		).Scan(&area)
		if err != nil || !checkAreaAccess(r.Context(), area) {
			JSONError(w, http.StatusForbidden, "Access denied to this documento")
			return
		}
	}

	var fileURL string
	err := pool.QueryRow(ctx,
		"DELETE FROM documentos_causa WHERE id = $1 RETURNING file_url", id,
	).Scan(&fileURL)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Documento not found")
		return
	}

	// Best effort: a stale object in storage is preferable to a failed delete
	if key := storageKeyFromURL(fileURL); key != "" {
		if err := h.store.Delete(ctx, key); err != nil {
			log.Printf("Error deleting stored file %s: %v", key, err)
		}
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "documento", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Documento deleted successfully",
	})
}

// storageKeyFromURL extracts the storage key from a file URL produced by
// either store backend. Returns "" for URLs it does not recognize.
func storageKeyFromURL(fileURL string) string {
	if idx := strings.Index(fileURL, "/api/files/"); idx >= 0 {
		return fileURL[idx+len("/api/files/"):]
	}
	// R2 public URLs: https://host/key — strip scheme and host
	if strings.HasPrefix(fileURL, "https://") {
		rest := strings.TrimPrefix(fileURL, "https://")
		if idx := strings.Index(rest, "/"); idx >= 0 {
			return rest[idx+1:]
		}
	}
	return ""
}
