package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"schoolattend/internal/api"
	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/classroom"
	"schoolattend/internal/cloudinary"
	"schoolattend/internal/config"
	"schoolattend/internal/httpmiddleware"
	"schoolattend/internal/logger"
	"schoolattend/internal/metrics"
	"schoolattend/internal/school"
	"schoolattend/internal/student"
	"schoolattend/internal/subject"
	"schoolattend/internal/teacher"
)

const serviceName = "schoolattend-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	lg, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: serviceName})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := runHTTP(cfg, lg); err != nil {
		lg.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, lg *zap.Logger) error {
	ctx := context.Background()

	var (
		b   *backend
		err error
	)
	if cfg.MemoryStore() {
		lg.Warn("using the in-memory store, data is lost on exit")
		b = openMemory()
	} else {
		b, err = openPostgres(ctx, cfg, lg)
		if err != nil {
			return err
		}
	}
	defer b.close()

	m := metrics.New(serviceName, prometheus.DefaultRegisterer)
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return errors.Wrap(err, "token issuer")
	}
	authn := auth.NewAuthenticator(tokens, auth.NewBcryptHasher(cfg.BcryptCost), map[auth.Role]auth.AccountStore{
		auth.RoleSchool:  b.schools,
		auth.RoleTeacher: b.teachers,
		auth.RoleStudent: b.students,
	}, m)

	// nil when credentials are missing; the upload route then answers 503
	var uploader api.Uploader
	if cfg.CloudinaryEnabled() {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		lg.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		lg.Info("cloudinary not configured, uploads disabled")
	}

	global := httpmiddleware.NewTokenBucket("global", cfg.RateLimitPerMin, cfg.RateLimitPerMin, m.RateLimited)
	var loginLimit gin.HandlerFunc
	if b.redis != nil {
		loginLimit = httpmiddleware.NewRedisLimiter(b.redis.Client, "login", cfg.LoginRateLimit, cfg.LoginWindow, m.RateLimited).GinMiddleware()
	} else {
		loginLimit = httpmiddleware.NewTokenBucket("login", cfg.LoginRateLimit, perMinute(cfg.LoginRateLimit, cfg.LoginWindow), m.RateLimited).GinMiddleware()
	}

	r := api.NewRouter(api.Deps{
		Log:        lg,
		Metrics:    m,
		Tokens:     tokens,
		Authn:      authn,
		Schools:    school.NewService(b.schools, authn),
		Teachers:   teacher.NewService(b.teachers, authn),
		Students:   student.NewService(b.students, authn),
		Classes:    classroom.NewService(b.classes),
		Subjects:   subject.NewService(b.subjects),
		Attendance: attendance.NewService(b.attendance),
		Uploader:   uploader,
		Health:     b.health,

		GlobalLimit:    global.GinMiddleware(),
		LoginLimit:     loginLimit,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case sig := <-quit:
		lg.Info("shutting down server", zap.String("signal", sig.String()))
	}

	// outstanding requests get ten seconds
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced shutdown", zap.Error(err))
	}
	lg.Info("server exited")
	return nil
}

// perMinute converts "limit per window" into the bucket's refill rate.
func perMinute(limit int, window time.Duration) int {
	if window <= 0 {
		return limit
	}
	n := int(float64(limit) * float64(time.Minute) / float64(window))
	if n < 1 {
		n = 1
	}
	return n
}
