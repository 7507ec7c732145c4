package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/config"
	"github.com/ucc-hostels/hostelfinder/internal/db"
	dbFirestore "github.com/ucc-hostels/hostelfinder/internal/db/firestore"
	dbMemory "github.com/ucc-hostels/hostelfinder/internal/db/memory"
	dbRedis "github.com/ucc-hostels/hostelfinder/internal/db/redis"
	logpkg "github.com/ucc-hostels/hostelfinder/internal/logger"
	"github.com/ucc-hostels/hostelfinder/internal/metrics"
	favoriterepo "github.com/ucc-hostels/hostelfinder/internal/repository/favorite"
	hostelrepo "github.com/ucc-hostels/hostelfinder/internal/repository/hostel"
	prefsrepo "github.com/ucc-hostels/hostelfinder/internal/repository/prefs"
	profilerepo "github.com/ucc-hostels/hostelfinder/internal/repository/profile"
	reviewrepo "github.com/ucc-hostels/hostelfinder/internal/repository/review"
	chiTransport "github.com/ucc-hostels/hostelfinder/internal/transport/chi"
	"github.com/ucc-hostels/hostelfinder/internal/transport/cloudinary"
	fbTransport "github.com/ucc-hostels/hostelfinder/internal/transport/firebase"
	healthuc "github.com/ucc-hostels/hostelfinder/internal/usecase/health"
	hosteluc "github.com/ucc-hostels/hostelfinder/internal/usecase/hostel"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/live"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/notice"
	prefsuc "github.com/ucc-hostels/hostelfinder/internal/usecase/prefs"
	profileuc "github.com/ucc-hostels/hostelfinder/internal/usecase/profile"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/querycache"
	searchuc "github.com/ucc-hostels/hostelfinder/internal/usecase/search"
	"github.com/ucc-hostels/hostelfinder/internal/version"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting hostelfinder API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("prefs_driver", cfg.Prefs.Driver),
		zap.Bool("auth_disabled", cfg.Auth.Disabled),
	)

	ctx := context.Background()

	var app *firebase.App
	if cfg.Firebase.ProjectID != "" {
		app, err = fbTransport.NewApp(ctx, fbTransport.Config{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			logger.Fatal("Failed to initialize Firebase", zap.Error(err))
		}
	}

	store, err := openStore(ctx, cfg.Database.Driver, app)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	kv, prefsPinger, closeKV, err := openPrefsStore(cfg.Prefs)
	if err != nil {
		logger.Fatal("Failed to create preference store", zap.Error(err))
	}
	defer closeKV()

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Repositories
	hostelRepo := hostelrepo.New(store)
	reviewRepo := reviewrepo.New(store)
	favoriteRepo := favoriterepo.New(store)
	prefsRepo := prefsrepo.New(kv, cfg.Prefs.KeyPrefix)
	profileRepo := profilerepo.New(store)

	// Use cases
	notices := notice.New(0)
	cache := querycache.New(querycache.Config{
		PageSize:     cfg.Cache.PageSize,
		StaleTime:    time.Duration(cfg.Cache.StaleSec) * time.Second,
		GCTime:       time.Duration(cfg.Cache.GCSec) * time.Second,
		FetchTimeout: time.Duration(cfg.Cache.FetchTimeoutSec) * time.Second,
	}, hostelRepo, hostelRepo, favoriteRepo, notices, logger.Named("querycache"))

	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := cache.Schedule(scheduler, cfg.Cache.GCSchedule); err != nil {
		logger.Fatal("Failed to schedule cache sweep", zap.Error(err))
	}

	prefsSvc := prefsuc.New(prefsRepo, time.Duration(cfg.Prefs.WriteSec)*time.Second)
	if _, err := prefsSvc.Schedule(scheduler, cfg.Cache.GCSchedule, time.Duration(cfg.Cache.GCSec)*time.Second); err != nil {
		logger.Fatal("Failed to schedule preferences sweep", zap.Error(err))
	}
	searchSvc := searchuc.New(hostelRepo, prefsSvc, searchuc.Config{
		MinTermLength:  cfg.Search.MinTermLength,
		ScanLimit:      cfg.Search.ScanLimit,
		NearbyRadiusKm: cfg.Search.NearbyRadiusKm,
	})

	var (
		hostelOpts []hosteluc.Option
		variants   chiTransport.ImageVariants
	)
	if cfg.Media.UploadsEnabled {
		media, err := cloudinary.New(cloudinary.Config{
			CloudName:    cfg.Media.CloudName,
			UploadPreset: cfg.Media.UploadPreset,
			Folder:       cfg.Media.Folder,
		})
		if err != nil {
			logger.Fatal("Failed to create media client", zap.Error(err))
		}
		hostelOpts = append(hostelOpts, hosteluc.WithMedia(media, cfg.Media.MaxUploadBytes))
		variants = media
	}
	hostelSvc := hosteluc.New(hostelRepo, reviewRepo, cache, hostelOpts...)

	registry := live.New(store, logger.Named("live"))
	healthSvc := healthuc.New(store, prefsPinger)

	// Identity. Pass nil interfaces (not typed nil pointers) when auth is disabled.
	var (
		verifier chiTransport.TokenVerifier
		accounts chiTransport.Accounts
		claims   profileuc.RoleClaims
	)
	if !cfg.Auth.Disabled {
		client, err := fbTransport.AuthClient(ctx, app)
		if err != nil {
			logger.Fatal("Failed to create auth client", zap.Error(err))
		}
		var authOpts []fbTransport.AuthOption
		if cfg.Firebase.APIKey != "" {
			mailer, err := fbTransport.NewResetMailer(ctx, fbTransport.ResetConfig{
				APIKey:      cfg.Firebase.APIKey,
				ContinueURL: cfg.Firebase.ResetContinueURL,
			})
			if err != nil {
				logger.Fatal("Failed to create password reset mailer", zap.Error(err))
			}
			authOpts = append(authOpts, fbTransport.WithPasswordReset(mailer))
		} else {
			logger.Warn("firebase.api_key not set: password reset disabled")
		}
		fbAuth := fbTransport.NewAuth(client, store, authOpts...)
		if _, err := fbAuth.Schedule(scheduler, cfg.Cache.GCSchedule); err != nil {
			logger.Fatal("Failed to schedule limiter sweep", zap.Error(err))
		}
		verifier, accounts, claims = fbAuth, fbAuth, fbAuth
	} else {
		logger.Warn("Authentication disabled: dev tokens accepted")
	}
	profileSvc := profileuc.New(profileRepo, claims)
	scheduler.Start()

	server := chiTransport.NewServer(chiTransport.Deps{
		Cache:    cache,
		Hostels:  hostelSvc,
		Prefs:    prefsSvc,
		Search:   searchSvc,
		Notices:  notices,
		Live:     registry,
		Accounts: accounts,
		Profiles: profileSvc,
		Health:   healthSvc,
		Variants: variants,
	}, logger,
		chiTransport.WithDebounce(time.Duration(cfg.Search.DebounceMs)*time.Millisecond),
		chiTransport.WithMaxUploadBytes(cfg.Media.MaxUploadBytes),
		chiTransport.WithCheckOrigin(originChecker(cfg.CORS.AllowedOrigins)),
	)

	handler := server.Handler(
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
		metrics.Middleware(),
		chiTransport.AuthMiddleware(verifier),
	)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-ID", "Location"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      c.Handler(handler),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	<-scheduler.Stop().Done()
	cache.Wait()
	prefsSvc.Wait()

	logger.Info("Server stopped gracefully")
}

// openStore creates the document store for driver.
func openStore(ctx context.Context, driver string, app *firebase.App) (db.Store, error) {
	switch driver {
	case "firestore":
		client, err := fbTransport.FirestoreClient(ctx, app)
		if err != nil {
			return nil, err
		}
		return dbFirestore.NewStore(client), nil
	case "memory":
		return dbMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// openPrefsStore creates the preference KV store. The pinger is nil for the
// in-memory store.
func openPrefsStore(cfg config.PrefsConfig) (db.KVStore, healthuc.PrefsPinger, func(), error) {
	switch cfg.Driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis prefs store: %w", err)
		}
		return s, s, s.Close, nil
	case "memory":
		return dbMemory.NewKV(), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown prefs driver %q", cfg.Driver)
	}
}

// originChecker allows websocket upgrades from the configured CORS origins.
// An empty list or "*" allows any origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternal,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Query strings are not logged: websocket tokens travel there.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
