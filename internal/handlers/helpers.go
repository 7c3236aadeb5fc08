// Package handlers contains the HTTP handlers for the API.
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// JSONError writes a JSON error envelope with the given status code.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// PaginationMeta describes one page of a paginated listing.
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PaginatedResponse wraps a page of results.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// urlParamID reads a chi URL parameter as an int64 ID. Returns 0 when the
// parameter is missing or not numeric.
func urlParamID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

// logActivity records an audit-trail entry. Failures are logged and
// swallowed: the audit trail never blocks the main operation.
func logActivity(pool *pgxpool.Pool, userID string, accion, entityType, entityID string, detalle map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var detalleJSON interface{}
	if detalle != nil {
		b, err := json.Marshal(detalle)
		if err == nil {
			detalleJSON = string(b)
		}
	}

	// The JWT carries the user ID as a string; the column is BIGINT.
	var uid interface{}
	if n, err := strconv.ParseInt(userID, 10, 64); err == nil {
		uid = n
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO registro_actividad (usuario_id, accion, entity_type, entity_id, detalle)
		VALUES ($1, $2, $3, $4, $5)
	`, uid, accion, entityType, entityID, detalleJSON)
	if err != nil {
		log.Printf("Error writing audit entry (%s %s %s): %v", accion, entityType, entityID, err)
	}
}

// nilIfEmpty returns nil if the string is empty, otherwise a pointer to it.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nilIfEmptyStr returns nil for empty strings (for nullable DB columns).
func nilIfEmptyStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// csvEscape wraps a value in quotes if it contains commas or quotes.
func csvEscape(s string) string {
	if strings.Contains(s, ",") || strings.Contains(s, "\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

// isDuplicateKeyError checks if a PostgreSQL error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}
