package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/config"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/controllers"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/middleware"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/services"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/storage"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to an optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.App.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	users, cars, client, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	media, err := openMedia(ctx, cfg)
	if err != nil {
		return err
	}

	var mailer utils.Mailer
	smtpCfg := utils.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	}
	if smtpCfg.Configured() {
		mailer = utils.NewSMTPMailer(smtpCfg)
	} else {
		log.Warn("SMTP not configured, mail is written to the log")
		mailer = utils.NewLogMailer(log)
	}

	tokens := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.SessionTTL, cfg.JWT.ResetTTL, nil)
	reaper := services.NewMediaReaper(media, log)
	h := &controllers.Handler{
		Auth: services.NewAuthService(users, tokens, mailer, log, services.AuthOptions{
			OTPTTL:      cfg.OTP.TTL,
			BcryptCost:  cfg.Security.BcryptCost,
			FrontendURL: cfg.App.FrontendURL,
		}),
		Users:     services.NewUserService(users, log),
		Cars:      services.NewCarService(cars, media, reaper, log, services.CarOptions{MaxFileBytes: cfg.Media.MaxFileBytes}),
		Dashboard: services.NewDashboardService(cars, log, nil),
		Export:    services.NewExportService(cars, users, log, nil),
		Log:       log,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := controllers.RouterOptions{
		Tokens:  tokens,
		Users:   users,
		Metrics: middleware.NewMetrics(reg),
	}
	if cfg.App.FrontendURL != "" && !cfg.IsDevelopment() {
		opts.AllowOrigins = []string{cfg.App.FrontendURL}
	}
	if local, ok := media.(*storage.LocalStore); ok {
		if u, err := url.Parse(local.BaseURL()); err == nil && u.Path != "" {
			opts.MediaPath = u.Path
			opts.MediaFS = local.FileSystem()
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, rate limiting fails open", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		opts.RateLimiter = middleware.NewRateLimiter(middleware.NewRedisCounter(rdb), "ratelimit:auth",
			cfg.RateLimit.Limit, cfg.RateLimit.Window, log)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controllers.NewRouter(h, opts)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.Int("port", cfg.App.Port), zap.String("store", cfg.Store.Driver), zap.String("media", cfg.Media.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	reaper.Wait()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warn("closing redis", zap.Error(err))
		}
	}
	if client != nil {
		if err := client.Disconnect(shutdownCtx); err != nil {
			log.Error("disconnecting MongoDB", zap.Error(err))
		} else {
			log.Info("MongoDB disconnected")
		}
	}
	log.Info("server exited")
	return nil
}

// openStore returns the user and car repositories for the configured driver.
// client is nil for the memory driver.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.UserRepository, repository.CarRepository, *mongo.Client, error) {
	if cfg.Store.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryUserRepo(), repository.NewMemoryCarRepo(), nil, nil
	}

	client, db, err := config.ConnectDB(ctx, cfg.Mongo, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := repository.EnsureUserIndexes(ctx, db); err != nil {
		return nil, nil, nil, fmt.Errorf("user indexes: %w", err)
	}
	if err := repository.EnsureCarIndexes(ctx, db); err != nil {
		return nil, nil, nil, fmt.Errorf("car indexes: %w", err)
	}
	return repository.NewMongoUserRepo(db), repository.NewMongoCarRepo(db), client, nil
}

func openMedia(ctx context.Context, cfg *config.Config) (storage.MediaStore, error) {
	if cfg.Media.Driver == "s3" {
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:        cfg.S3.Region,
			Bucket:        cfg.S3.Bucket,
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		})
	}
	return storage.NewLocalStore(afero.NewOsFs(), cfg.Local.Dir, cfg.Local.BaseURL), nil
}
