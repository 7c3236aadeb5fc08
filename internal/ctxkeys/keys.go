// Package ctxkeys defines typed context keys shared between middleware and handlers.
// This avoids import cycles: both middleware and handlers import this package,
// but neither imports the other for context key types.
package ctxkeys

import "context"

// Key is a typed string used as context key to prevent collisions.
type Key string

const (
	UserID    Key = "userID"
	UserRole  Key = "userRole"
	AreaScope Key = "areaScope"
)

// GetAreaScope returns the unit areas the current user has access to.
// Returns nil for admin/super_admin (meaning "all areas").
func GetAreaScope(ctx context.Context) []string {
	v := ctx.Value(AreaScope)
	if v == nil {
		return nil
	}
	areas, _ := v.([]string)
	return areas
}

// IsGlobalScope returns true if the user has access to all areas (admin/super_admin).
func IsGlobalScope(ctx context.Context) bool {
	return ctx.Value(AreaScope) == nil
}

// ValidRoles lists all valid role strings.
var ValidRoles = map[string]bool{
	"viewer":      true,
	"analista":    true,
	"admin":       true,
	"super_admin": true,
}

// RoleLevel maps role names to permission levels.
var RoleLevel = map[string]int{
	"viewer":      1,
	"analista":    2,
	"admin":       3,
	"super_admin": 4,
}

// ValidAreas lists the organizational unit areas.
var ValidAreas = map[string]bool{
	"ECOH":  true,
	"SACFI": true,
}
