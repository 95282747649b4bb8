package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"livedocs-server/collab"
	"livedocs-server/config"
	"livedocs-server/documents"
	"livedocs-server/handlers/api/appconfig"
	"livedocs-server/handlers/api/rooms"
	"livedocs-server/handlers/auth"
	authMiddleware "livedocs-server/middleware"
	"livedocs-server/routecache"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

//go:embed all:frontend
var assets embed.FS

// handleUI serves the embedded frontend. Unknown extension-less paths fall
// back to index.html so client-side routes resolve.
func handleUI() http.HandlerFunc {
	sub, err := fs.Sub(assets, "frontend")
	if err != nil {
		panic(err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" || path == "" {
			path = "/index.html"
		}

		f, err := sub.Open(strings.TrimPrefix(path, "/"))
		if err != nil {
			if os.IsNotExist(err) && !strings.Contains(path, ".") {
				path = "/index.html"
				f, err = sub.Open("index.html")
			}
			if err != nil {
				http.NotFound(w, r)
				return
			}
		}
		defer f.Close()

		switch {
		case strings.HasSuffix(path, ".js"):
			w.Header().Set("Content-Type", "application/javascript")
		case strings.HasSuffix(path, ".css"):
			w.Header().Set("Content-Type", "text/css")
		case strings.HasSuffix(path, ".html"):
			w.Header().Set("Content-Type", "text/html")
		case strings.HasSuffix(path, ".png"):
			w.Header().Set("Content-Type", "image/png")
		case strings.HasSuffix(path, ".woff2"):
			w.Header().Set("Content-Type", "font/woff2")
		}

		content, err := fs.ReadFile(sub, strings.TrimPrefix(path, "/"))
		if err != nil {
			http.Error(w, "Error reading file", http.StatusInternalServerError)
			return
		}
		w.Write(content)
	}
}

func setupRouter(service *documents.Service, authService *auth.Service, cache routecache.Cache) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "Host", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	cached := routecache.Middleware(cache, rooms.CacheKey)

	r.Route("/api/v2", func(r chi.Router) {
		r.Get("/app-config", appconfig.HandleGet(authService))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT(authService))

			r.Route("/rooms", func(r chi.Router) {
				r.With(cached).Get("/", rooms.HandleList(service))
				r.Post("/", rooms.HandleCreate(service))
				r.Route("/{id}", func(r chi.Router) {
					r.With(cached).Get("/", rooms.HandleGet(service))
					r.Patch("/", rooms.HandleUpdateTitle(service))
					r.Delete("/", rooms.HandleDelete(service))
					r.Post("/access", rooms.HandleShare(service))
					r.Delete("/access", rooms.HandleRemoveCollaborator(service))
				})
			})

			r.Get("/notifications", rooms.HandleListNotifications(service))
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authService.HandleLogin)
		r.Get("/callback", authService.HandleCallback)
	})

	r.NotFound(handleUI())
	return r
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	authService := auth.NewService(cfg)
	collabService := collab.GetService()
	cache := routecache.GetCache(cfg.CacheTTL)
	service := documents.NewService(collabService, cache)

	r := setupRouter(service, authService, cache)

	server := &http.Server{
		Addr:    *listenAddress,
		Handler: r,
	}

	go func() {
		logrus.WithField("addr", *listenAddress).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-signalC

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
