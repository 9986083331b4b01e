package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tasknest/apiserver/config"
	"github.com/tasknest/apiserver/internal/db"
	"github.com/tasknest/apiserver/internal/handlers"
	"github.com/tasknest/apiserver/internal/notify"
	"github.com/tasknest/apiserver/internal/services"
	"github.com/tasknest/apiserver/internal/storage"
	"github.com/tasknest/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	dbClient   *mongo.Client
	notifier   *notify.Notifier
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	client, database, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		_ = client.Disconnect(ctx)
		return nil, errors.New("JWT_SECRET is required")
	}

	notifier, err := newNotifier(ctx, cfg.Notify)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	userRepo := store.NewUserRepository(database)
	taskRepo := store.NewTaskRepository(database)

	userService := services.NewUserService(userRepo)

	var publisher services.EventPublisher
	if notifier != nil {
		publisher = notifier
	}
	taskService := services.NewTaskService(taskRepo, publisher)

	authMiddleware := handlers.RequireAuth(jwtSecret)
	tokenTTL := time.Duration(cfg.TokenTTLHours) * time.Hour

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)

	if err := mountAssets(ctx, router, cfg); err != nil {
		_ = client.Disconnect(ctx)
		if notifier != nil {
			_ = notifier.Close()
		}
		return nil, err
	}

	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret, tokenTTL)
	})
	router.Route("/api/tasks", func(r chi.Router) {
		handlers.TaskRouter(r, taskService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 3333
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		dbClient:   client,
		notifier:   notifier,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.notifier != nil {
		_ = s.notifier.Close()
	}
	if s.dbClient != nil {
		_ = s.dbClient.Disconnect(context.Background())
	}
	return s.httpServer.Close()
}

func newNotifier(ctx context.Context, cfg config.NotifyConfig) (*notify.Notifier, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "pubsub":
		backend, err := notify.NewPubSubBackend(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return notify.New(backend, cfg.Topic), nil
	case "rabbitmq":
		backend, err := notify.NewRabbitMQBackend(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return notify.New(backend, cfg.Topic), nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.Backend)
	}
}

// mountAssets wires /assets from object storage when a backend is
// configured, otherwise from the local assets directory.
func mountAssets(ctx context.Context, router *chi.Mux, cfg config.Config) error {
	switch cfg.Storage.Backend {
	case "":
		fs := http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetsDir)))
		router.Get("/assets/*", fs.ServeHTTP)
		return nil
	case "minio":
		backend, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return err
		}
		assetStorage := storage.NewStorage(backend)
		if err := assetStorage.EnsureBucket(ctx); err != nil {
			return err
		}
		router.Get("/assets/*", handlers.AssetsHandler(assetStorage))
		return nil
	case "gcs":
		backend, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return err
		}
		assetStorage := storage.NewStorage(backend)
		if err := assetStorage.EnsureBucket(ctx); err != nil {
			return err
		}
		router.Get("/assets/*", handlers.AssetsHandler(assetStorage))
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
