package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"

	"github.com/SaeedRasheed12/rent-app/internal/admin"
	"github.com/SaeedRasheed12/rent-app/internal/auth"
	"github.com/SaeedRasheed12/rent-app/internal/chat"
	"github.com/SaeedRasheed12/rent-app/internal/config"
	"github.com/SaeedRasheed12/rent-app/internal/httpx"
	"github.com/SaeedRasheed12/rent-app/internal/listing"
	applog "github.com/SaeedRasheed12/rent-app/internal/log"
	"github.com/SaeedRasheed12/rent-app/internal/media"
	"github.com/SaeedRasheed12/rent-app/internal/metrics"
	"github.com/SaeedRasheed12/rent-app/internal/middleware"
	"github.com/SaeedRasheed12/rent-app/internal/rental"
	"github.com/SaeedRasheed12/rent-app/internal/settings"
	"github.com/SaeedRasheed12/rent-app/internal/store"
	"github.com/SaeedRasheed12/rent-app/internal/ws"
)

func main() {
	cfg := config.Load()
	applog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres migrate")
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MongoDB (admin audit, optional) ──────────────────────
	var audit admin.AuditLog = admin.NopAudit{}
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connect")
		}
		defer mongoClient.Disconnect(context.Background())
		audit = store.NewMongoAuditLog(mongoClient.Database(cfg.MongoDB))
	} else {
		log.Warn().Msg("MONGO_URI not set, admin audit trail disabled")
	}

	// ── Blob storage ─────────────────────────────────────────
	var blobs media.ObjectStore
	switch cfg.BlobBackend {
	case "cloudinary":
		blobs = store.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	default:
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.MinioPublicURL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("minio connect")
		}
		blobs = minioStore
	}
	maxUpload := int64(cfg.MaxUploadMB) << 20
	mediaSvc := media.NewService(blobs, maxUpload)

	// ── Services ─────────────────────────────────────────────
	hub := ws.NewHub()
	authSvc := auth.NewService(pgStore)
	listingSvc := listing.NewService(pgStore)
	chatSvc := chat.NewService(pgStore, mediaSvc, hub)
	rentalSvc := rental.NewService(pgStore, pgStore, chatSvc, hub)
	settingsSvc := settings.NewService(pgStore)
	adminSvc := admin.NewService(pgStore, pgStore, settingsSvc, mediaSvc, audit, admin.Credentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Secret:   cfg.SecretKey,
	})

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(authSvc, sessions)
	listingHandler := listing.NewHandler(listingSvc)
	chatHandler := chat.NewHandler(chatSvc, maxUpload)
	rentalHandler := rental.NewHandler(rentalSvc)
	settingsHandler := settings.NewHandler(settingsSvc)
	mediaHandler := media.NewHandler(mediaSvc)
	adminHandler := admin.NewHandler(adminSvc, maxUpload)

	authLimiter := middleware.NewRateLimiter(rate.Every(12*time.Second), 5, 10*time.Minute)
	sendLimiter := middleware.NewRateLimiter(rate.Every(200*time.Millisecond), 20, 10*time.Minute)
	uploadLimiter := middleware.NewRateLimiter(rate.Every(2*time.Second), 5, 10*time.Minute)
	requireAuth := middleware.RequireAuth(sessions, pgStore)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pgStore.Ping(pingCtx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, httpx.M{"status": "degraded"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, httpx.M{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public
		r.With(authLimiter.Handler).Post("/signup", authHandler.Signup)
		r.With(authLimiter.Handler).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/settings", settingsHandler.Get)
		r.Get("/banner", settingsHandler.Banner)
		r.Get("/listings", listingHandler.Feed)
		r.Get("/listings/{id}", listingHandler.Get)
		r.Post("/listings/nearby", listingHandler.Nearby)
		r.Post("/listings/by_location", listingHandler.ByLocation)
		r.Get("/media/*", mediaHandler.Serve)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.Me)
			r.Get("/profile/{id}", authHandler.Profile)
			r.Post("/profile/update", authHandler.UpdateProfile)
			r.Post("/profile/change_password", authHandler.ChangePassword)

			r.Post("/listings/add", listingHandler.Add)
			r.Post("/listings/create", listingHandler.Create)
			r.Get("/my_listings/{id}", listingHandler.Mine)
			r.Delete("/listings/delete/{id}", listingHandler.Delete)
			r.With(uploadLimiter.Handler).Post("/upload", mediaHandler.Upload)

			r.Post("/chat/start", chatHandler.Start)
			r.With(sendLimiter.Handler).Post("/chat/send", chatHandler.Send)
			r.Get("/chat/messages/{chat_id}", chatHandler.Messages)
			r.Post("/chat/mark_read", chatHandler.MarkRead)
			r.Get("/chat/list/{id}", chatHandler.List)
			r.Get("/chats/{id}", chatHandler.List)
			r.Get("/chat/count/{id}", chatHandler.Count)
			r.Get("/unread_chats/{id}", chatHandler.Unread)

			r.Post("/rent/create", rentalHandler.Create)
			r.Post("/rent/create_safe", rentalHandler.CreateSafe)
			r.Get("/rent/status/{listing_id}/{user_id}", rentalHandler.Status)
			r.Post("/rent/check_request", rentalHandler.CheckRequest)
			r.Get("/rent/owner/{id}", rentalHandler.Owner)
			r.Get("/rent/my/{id}", rentalHandler.Mine)
			r.Post("/rent/decision", rentalHandler.Decision)
			r.Post("/rent/return", rentalHandler.Return)

			r.Get("/ws", ws.Serve(hub, cfg.CORSOrigins))
		})

		// Admin console
		r.Route("/admin", func(r chi.Router) {
			r.With(authLimiter.Handler).Post("/login", adminHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(cfg.SecretKey))
				r.Get("/users", adminHandler.Users)
				r.Get("/users/{id}", adminHandler.User)
				r.Post("/users/{id}/block", adminHandler.Block)
				r.Post("/users/{id}/unblock", adminHandler.Unblock)
				r.Delete("/users/{id}", adminHandler.Delete)
				r.Get("/listings/{id}", adminHandler.Listing)
				r.Post("/settings", adminHandler.Settings)
				r.Post("/banner", adminHandler.Banner)
				r.Get("/audit", adminHandler.Audit)
			})
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("blob", cfg.BlobBackend).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	authLimiter.Stop()
	sendLimiter.Stop()
	uploadLimiter.Stop()
}
