// @title           Chmura Plików API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"chmura-plikow/internal/api"
	"chmura-plikow/internal/config"
	"chmura-plikow/internal/database"
	"chmura-plikow/internal/drive"
	"chmura-plikow/internal/storage"
	"chmura-plikow/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "chmura-plikow/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Nie można wczytać konfiguracji: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Nie można połączyć się z bazą danych: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Nie można pingować bazy danych: %v", err)
	}
	log.Println("Pomyślnie połączono z bazą danych")

	localStorage, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Nie można zainicjować local storage: %v", err)
	}
	log.Printf("Pliki będą przechowywane w: %s", cfg.Storage.Path)

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool)

	shareRegistry, err := drive.NewShareRegistry(store, time.Duration(cfg.Share.TTLHours)*time.Hour)
	if err != nil {
		log.Fatalf("Nie można zainicjować rejestru udostępnień: %v", err)
	}

	coordinator := drive.NewCoordinator(store, localStorage, shareRegistry)
	server := api.NewServer(cfg, store, coordinator, wsHub)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/ws", server.ServeWsHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Chmura plików działa! Dokumentacja dostępna pod /swagger/index.html"))
	})

	r.Post("/api/v1/auth/register", server.RegisterHandler)
	r.Post("/api/v1/auth/login", server.LoginHandler)
	r.Post("/api/v1/auth/refresh", server.RefreshTokenHandler)
	r.Post("/api/v1/auth/logout", server.LogoutHandler)

	// dostęp tokenowy — bez uwierzytelnienia
	r.Get("/api/v1/shared/{token}", server.GetSharedItemHandler)
	r.Get("/api/v1/shared/{token}/download", server.DownloadSharedFileHandler)
	r.Get("/api/v1/shared/{token}/validate", server.ValidateShareTokenHandler)

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Get("/me", server.GetCurrentUserHandler)
		r.Get("/me/storage", server.GetStorageUsageHandler)

		r.Get("/sessions", server.ListSessionsHandler)
		r.Delete("/sessions/{sessionId}", server.DeleteSessionHandler)
		r.Post("/sessions/terminate_all", server.TerminateAllSessionsHandler)

		r.Post("/folders", server.CreateFolderHandler)
		r.Get("/folders", server.ListFoldersHandler)
		r.Get("/folders/{folderId}", server.GetFolderHandler)
		r.Delete("/folders/{folderId}", server.DeleteFolderHandler)
		r.Post("/folders/{folderId}/rename", server.RenameFolderHandler)
		r.Post("/folders/{folderId}/move", server.MoveFolderHandler)
		r.Post("/folders/{folderId}/toggle-public", server.ToggleFolderPublicHandler)
		r.Post("/folders/{folderId}/share", server.ShareFolderHandler)

		r.Post("/files", server.UploadFileHandler)
		r.Get("/files", server.ListFilesHandler)
		r.Get("/files/public", server.ListPublicFilesHandler)
		r.Get("/files/{fileId}/download", server.DownloadFileHandler)
		r.Delete("/files/{fileId}", server.DeleteFileHandler)
		r.Post("/files/{fileId}/rename", server.RenameFileHandler)
		r.Post("/files/{fileId}/move", server.MoveFileHandler)
		r.Post("/files/{fileId}/clone", server.CloneFileHandler)
		r.Post("/files/{fileId}/toggle-public", server.ToggleFilePublicHandler)
		r.Post("/files/{fileId}/share", server.ShareFileHandler)

		r.Get("/search", server.SearchHandler)
		r.Get("/events", server.GetEventsHandler)
	})

	log.Println("Uruchamianie serwera na porcie :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		log.Fatalf("Nie można uruchomić serwera: %v", err)
	}
}
