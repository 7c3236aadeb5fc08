package handlers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ecoh-backend/internal/ctxkeys"
)

// appendAreaScope adds an area scope filter to a dynamic WHERE clause.
// colExpr is the SQL column expression to filter on (e.g. "c.area").
// If the user has global scope (admin/super_admin), nothing is added.
func appendAreaScope(ctx context.Context, where string, args []interface{}, argIdx int, colExpr string) (string, []interface{}, int) {
	scope := ctxkeys.GetAreaScope(ctx)
	if scope == nil {
		return where, args, argIdx
	}
	where += fmt.Sprintf(" AND %s = ANY($%d)", colExpr, argIdx)
	args = append(args, scope)
	argIdx++
	return where, args, argIdx
}

// checkAreaAccess verifies that the given area is within the user's scope.
func checkAreaAccess(ctx context.Context, area string) bool {
	scope := ctxkeys.GetAreaScope(ctx)
	if scope == nil {
		return true
	}
	for _, a := range scope {
		if a == area {
			return true
		}
	}
	return false
}

// checkCausaAccess looks up the causa's area and checks scope.
func checkCausaAccess(ctx context.Context, pool *pgxpool.Pool, causaID int64) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var area string
	err := pool.QueryRow(ctx, "SELECT area FROM causas WHERE id = $1", causaID).Scan(&area)
	if err != nil {
		return false
	}
	return checkAreaAccess(ctx, area)
}

// checkActividadAccess looks up the actividad's causa → area and checks scope.
func checkActividadAccess(ctx context.Context, pool *pgxpool.Pool, actividadID int64) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var area string
	err := pool.QueryRow(ctx,
		"SELECT c.area FROM actividades a JOIN causas c ON c.id = a.causa_id WHERE a.id = $1",
		actividadID,
	).Scan(&area)
	if err != nil {
		return false
	}
	return checkAreaAccess(ctx, area)
}

// checkImputadoAccess looks up the imputado's causa → area and checks scope.
func checkImputadoAccess(ctx context.Context, pool *pgxpool.Pool, imputadoID int64) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var area string
	err := pool.QueryRow(ctx,
		"SELECT c.area FROM imputados i JOIN causas c ON c.id = i.causa_id WHERE i.id = $1",
		imputadoID,
	).Scan(&area)
	if err != nil {
		return false
	}
	return checkAreaAccess(ctx, area)
}
