// Package cron runs the background maintenance jobs of the API.
package cron

import (
	"context"
	"log"
	"time"

	"ecoh-backend/internal/database"
)

// Notifier periodically scans for overdue actividades and writes in-app
// notifications for the assigned users. Runs once at startup and then every
// 24 hours until the context is cancelled.
type Notifier struct {
	db       database.Service
	interval time.Duration
}

// NewNotifier creates a Notifier with the default 24h interval.
func NewNotifier(db database.Service) *Notifier {
	return &Notifier{db: db, interval: 24 * time.Hour}
}

// Start launches the notifier loop in a goroutine.
func (n *Notifier) Start(ctx context.Context) {
	go func() {
		log.Printf("[cron] overdue-activity notifier started (interval %s)", n.interval)

		n.run(ctx)

		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Printf("[cron] notifier stopped")
				return
			case <-ticker.C:
				n.run(ctx)
			}
		}
	}()
}

// run performs one notification sweep. The NOT EXISTS clause de-duplicates:
// a user is notified about a given actividad at most once.
func (n *Notifier) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tag, err := n.db.GetPool().Exec(runCtx, `
		INSERT INTO notificaciones (usuario_id, titulo, mensaje, tipo, entity_type, entity_id)
		SELECT
			a.usuario_id,
			'Actividad vencida',
			'La actividad "' || t.nombre || '" de la causa ' || c.ruc ||
				' venció el ' || to_char(a.fecha_termino, 'DD-MM-YYYY'),
			'actividad_vencida',
			'actividad',
			a.id
		FROM actividades a
		JOIN causas c ON c.id = a.causa_id
		JOIN tipos_actividad t ON t.id = a.tipo_actividad_id
		WHERE a.fecha_termino < CURRENT_DATE
			AND a.estado != 'terminado'
			AND NOT EXISTS (
				SELECT 1 FROM notificaciones n
				WHERE n.tipo = 'actividad_vencida'
					AND n.entity_type = 'actividad'
					AND n.entity_id = a.id
					AND n.usuario_id = a.usuario_id
			)
	`)
	if err != nil {
		log.Printf("[cron] notifier sweep failed: %v", err)
		return
	}

	if created := tag.RowsAffected(); created > 0 {
		log.Printf("[cron] created %d overdue-activity notifications", created)
	}
}
