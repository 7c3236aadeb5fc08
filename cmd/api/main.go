package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"ecoh-backend/internal/config"
	"ecoh-backend/internal/cron"
	"ecoh-backend/internal/database"
	"ecoh-backend/internal/handlers"
	"ecoh-backend/internal/metrics"
	"ecoh-backend/internal/middleware"
	"ecoh-backend/internal/storage"
)

func main() {
	// 1. Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to PostgreSQL
	db := database.New(&cfg.DB)
	defer db.Close()

	// 3. File storage: R2 when configured, local disk otherwise
	var fileStore storage.Store
	if cfg.Upload.R2AccountID != "" {
		fileStore, err = storage.NewR2Store(
			cfg.Upload.R2AccountID, cfg.Upload.R2AccessKey, cfg.Upload.R2SecretKey,
			cfg.Upload.R2Bucket, cfg.Upload.R2PublicURL,
		)
	} else {
		fileStore, err = storage.NewLocalStore(cfg.Upload.Dir)
	}
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// 4. Set up router with global middleware
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5. Initialize handlers with their dependencies
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	causaHandler := handlers.NewCausaHandler(db)
	imputadoHandler := handlers.NewImputadoHandler(db)
	actividadHandler := handlers.NewActividadHandler(db)
	telefonoHandler := handlers.NewTelefonoHandler(db)
	documentoHandler := handlers.NewDocumentoHandler(db, fileStore)
	reportesHandler := handlers.NewReportesHandler(db)
	notificacionHandler := handlers.NewNotificacionHandler(db)
	registroHandler := handlers.NewRegistroHandler(db)
	adminHandler := handlers.NewAdminHandler(db)
	userMgmtHandler := handlers.NewUserManagementHandler(db)
	uploadHandler := handlers.NewUploadHandler(fileStore)

	// Background jobs
	cronCtx, cronCancel := context.WithCancel(context.Background())
	defer cronCancel()
	cron.NewNotifier(db).Start(cronCtx)

	// 6. Public routes (no authentication required)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Sistema de Gestión de Causas ECOH/SACFI"))
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(db.Health())
	})
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	// Auth routes — public but rate-limited against brute force
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.Every(time.Second), 5))
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Serve uploaded files (local storage only — R2 redirects to CDN)
	r.Get("/api/files/*", uploadHandler.ServeFile)

	// 7. Protected routes (require valid JWT; area scope resolved per request)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.InjectAreaScope(db.GetPool()))

		// Current user profile
		r.Get("/api/auth/me", authHandler.GetMe)

		// File upload
		r.Post("/api/upload", uploadHandler.Upload)

		// Tipos de actividad catalog (read-only listing for the activity form)
		r.Get("/api/tipos-actividad", adminHandler.ListTipos)

		// Notifications (user-scoped)
		r.Get("/api/notificaciones", notificacionHandler.List)
		r.Get("/api/notificaciones/count", notificacionHandler.UnreadCount)
		r.Post("/api/notificaciones/leidas", notificacionHandler.MarkAllRead)
		r.Patch("/api/notificaciones/{id}/leida", notificacionHandler.MarkRead)

		// Audit trail (read-only) and assignment selector
		r.Get("/api/registro", registroHandler.List)
		r.Get("/api/fiscales", userMgmtHandler.ListFiscales)

		// Causas — read endpoints accessible to all authenticated users
		r.Get("/api/causas", causaHandler.List)
		r.Get("/api/causas/export", causaHandler.Export)
		r.Route("/api/causas/{id}", func(r chi.Router) {
			r.Get("/", causaHandler.GetByID)
			r.Get("/imputados", imputadoHandler.ListByCausa)
			r.Get("/victimas", imputadoHandler.ListVictimas)
			r.Get("/actividades", actividadHandler.ListByCausa)
			r.Get("/telefonos", telefonoHandler.ListByCausa)
			r.Get("/relaciones", telefonoHandler.ListRelaciones)
			r.Get("/documentos", documentoHandler.ListByCausa)
		})

		// Actividades — cross-causa listing
		r.Get("/api/actividades", actividadHandler.List)

		// Reportes
		r.Get("/api/reportes/seguimiento-actividades", reportesHandler.SeguimientoActividades)
		r.Get("/api/reportes/seguimiento-actividades/export", reportesHandler.SeguimientoExport)
		r.Get("/api/reportes/incidencia-geografica", reportesHandler.IncidenciaGeografica)
		r.Get("/api/reportes/formalizaciones", reportesHandler.Formalizaciones)
		r.Get("/api/reportes/carga-fiscales", reportesHandler.CargaFiscales)

		// Write operations require at least analista
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("analista"))

			r.Post("/api/causas", causaHandler.Create)
			r.Put("/api/causas/{id}", causaHandler.Update)
			r.Post("/api/causas/{id}/imputados", imputadoHandler.Create)
			r.Post("/api/causas/{id}/victimas", imputadoHandler.CreateVictima)
			r.Post("/api/causas/{id}/actividades", actividadHandler.Create)
			r.Post("/api/causas/{id}/telefonos", telefonoHandler.Create)
			r.Post("/api/causas/{id}/relaciones", telefonoHandler.CreateRelacion)
			r.Post("/api/causas/{id}/documentos", documentoHandler.Create)

			r.Put("/api/imputados/{id}", imputadoHandler.Update)
			r.Patch("/api/imputados/{id}/formalizar", imputadoHandler.Formalizar)
			r.Delete("/api/imputados/{id}", imputadoHandler.Delete)
			r.Delete("/api/victimas/{id}", imputadoHandler.DeleteVictima)

			r.Put("/api/actividades/{id}", actividadHandler.Update)
			r.Patch("/api/actividades/{id}/estado", actividadHandler.UpdateEstado)
			r.Delete("/api/actividades/{id}", actividadHandler.Delete)

			r.Delete("/api/telefonos/{id}", telefonoHandler.Delete)
			r.Delete("/api/relaciones/{id}", telefonoHandler.DeleteRelacion)
			r.Delete("/api/documentos/{id}", documentoHandler.Delete)
		})

		// Admin-only operations
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("admin"))

			r.Delete("/api/causas/{id}", causaHandler.Delete)

			r.Post("/api/admin/tipos-actividad", adminHandler.CreateTipo)
			r.Put("/api/admin/tipos-actividad/{id}", adminHandler.UpdateTipo)
			r.Delete("/api/admin/tipos-actividad/{id}", adminHandler.DeleteTipo)

			r.Get("/api/admin/users", userMgmtHandler.List)
			r.Patch("/api/admin/users/{id}/role", userMgmtHandler.UpdateRole)
			r.Put("/api/admin/users/{id}/areas", userMgmtHandler.AssignAreas)
			r.Delete("/api/admin/users/{id}", userMgmtHandler.Delete)
		})
	})

	// 8. Start server with graceful shutdown
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server started on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-done
	log.Println("Server stopped")

	cronCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
