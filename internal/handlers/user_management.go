package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"ecoh-backend/internal/ctxkeys"
	"ecoh-backend/internal/database"
	"ecoh-backend/internal/models"
)

// UserManagementHandler lets admins manage accounts: roles and area
// assignments. super_admin is required to grant admin or super_admin.
type UserManagementHandler struct {
	db database.Service
}

// NewUserManagementHandler creates a new UserManagementHandler.
func NewUserManagementHandler(db database.Service) *UserManagementHandler {
	return &UserManagementHandler{db: db}
}

// fiscalOption is one entry of the prosecutor/analyst selector.
type fiscalOption struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
	Cargo  string `json:"cargo"`
}

// ListFiscales handles GET /api/fiscales — the assignment selector used by
// the causa form. Available to all authenticated users.
func (h *UserManagementHandler) ListFiscales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT id, name, email, COALESCE(cargo, '')
		FROM users
		ORDER BY name
	`)
	if err != nil {
		log.Printf("Error querying fiscales: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch fiscales")
		return
	}
	defer rows.Close()

	fiscales := []fiscalOption{}
	for rows.Next() {
		var f fiscalOption
		if err := rows.Scan(&f.ID, &f.Nombre, &f.Email, &f.Cargo); err != nil {
			continue
		}
		fiscales = append(fiscales, f)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": fiscales,
	})
}

// userWithAreas is the admin listing row.
type userWithAreas struct {
	models.User
	Areas []string `json:"areas"`
}

// List handles GET /api/admin/users
func (h *UserManagementHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT u.id, u.email, u.name, COALESCE(u.cargo, ''), u.role,
			u.created_at::text, u.updated_at::text,
			COALESCE(array_agg(ua.area) FILTER (WHERE ua.area IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_areas ua ON ua.user_id = u.id
		GROUP BY u.id
		ORDER BY u.name
	`)
	if err != nil {
		log.Printf("Error querying users: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer rows.Close()

	users := []userWithAreas{}
	for rows.Next() {
		var u userWithAreas
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Cargo, &u.Role,
			&u.CreatedAt, &u.UpdatedAt, &u.Areas); err != nil {
			log.Printf("Error scanning user: %v", err)
			continue
		}
		users = append(users, u)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": users,
	})
}

// UpdateRole handles PATCH /api/admin/users/{id}/role
func (h *UserManagementHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	var req models.UpdateRoleRequest
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

	// Only super_admin can mint admins
	callerRole, _ := r.Context().Value(ctxkeys.UserRole).(string)
	if (req.Role == "admin" || req.Role == "super_admin") && callerRole != "super_admin" {
		JSONError(w, http.StatusForbidden, "Only super_admin can grant admin roles")
		return
	}

	// No self-demotion: locking yourself out is always a mistake
	callerID, _ := r.Context().Value(ctxkeys.UserID).(string)
	if callerID == strconv.FormatInt(id, 10) {
		JSONError(w, http.StatusUnprocessableEntity, "Cannot change your own role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	result, err := pool.Exec(ctx, `
		UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2
	`, req.Role, id)
	if err != nil {
		log.Printf("Error updating role: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update role")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	logActivity(pool, callerID, "role_changed", "user", strconv.FormatInt(id, 10), map[string]interface{}{
		"role": req.Role,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Role updated successfully",
	})
}

// AssignAreas handles PUT /api/admin/users/{id}/areas
// Replaces the user's area assignments wholesale.
func (h *UserManagementHandler) AssignAreas(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	var req models.AssignAreasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	for _, area := range req.Areas {
		if !ctxkeys.ValidAreas[area] {
			JSONError(w, http.StatusUnprocessableEntity, "Areas must be 'ECOH' or 'SACFI'")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to assign areas")
		return
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM user_areas WHERE user_id = $1", id); err != nil {
		log.Printf("Error clearing user areas: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to assign areas")
		return
	}
	for _, area := range req.Areas {
		if _, err := tx.Exec(ctx,
			"INSERT INTO user_areas (user_id, area) VALUES ($1, $2)", id, area); err != nil {
			log.Printf("Error inserting user area: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to assign areas")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing areas: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to assign areas")
		return
	}

	callerID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, callerID, "areas_assigned", "user", strconv.FormatInt(id, 10), map[string]interface{}{
		"areas": req.Areas,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Areas assigned successfully",
	})
}

// Delete handles DELETE /api/admin/users/{id}
func (h *UserManagementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := urlParamID(r, "id")
	if id == 0 {
		JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	callerID, _ := r.Context().Value(ctxkeys.UserID).(string)
	if callerID == strconv.FormatInt(id, 10) {
		JSONError(w, http.StatusUnprocessableEntity, "Cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Refuse while the user still owns causas or actividades
	var causas, actividades int
	if err := pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM causas WHERE fiscal_id = $1),
			(SELECT COUNT(*) FROM actividades WHERE usuario_id = $1)
	`, id).Scan(&causas, &actividades); err != nil {
		log.Printf("Error checking user references: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if causas > 0 || actividades > 0 {
		JSONError(w, http.StatusConflict,
			"Cannot delete: user is still assigned to causas or actividades")
		return
	}

	result, err := pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting user: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	logActivity(pool, callerID, "deleted", "user", strconv.FormatInt(id, 10), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "User deleted successfully",
	})
}
