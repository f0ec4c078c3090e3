package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/immxrtalbeast/consult_rooms/internal/api/http"
	"github.com/immxrtalbeast/consult_rooms/internal/auth"
	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/events"
	"github.com/immxrtalbeast/consult_rooms/internal/repository"
	"github.com/immxrtalbeast/consult_rooms/internal/service"
	"github.com/immxrtalbeast/consult_rooms/internal/signaling"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := setupStore(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to set up room store", sl.Err(err))
		os.Exit(1)
	}

	registry := signaling.NewRegistry(cfg.Signaling.RegistryShards)
	router := signaling.NewRouter(registry, cfg.Signaling.SendTimeout, log)

	notifiers := service.Notifiers{router}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS, log)
		if err != nil {
			log.Error("failed to connect nats", sl.Err(err))
			os.Exit(1)
		}
		defer nc.Close()
		notifiers = append(notifiers, events.NewPublisher(nc, cfg.NATS.SubjectPrefix, log))
	}

	roomService := service.NewRoomService(store, notifiers, cfg.Rooms, log)
	participantService := roomService.Participants()

	sweeper := service.NewSweeper(roomService, cfg.Sweeper.Interval, cfg.Sweeper.Concurrency, log)
	go sweeper.Run(ctx)

	verifier := auth.New(cfg.Auth)
	ingress := signaling.NewIngress(registry, router, participantService, roomService, signaling.IngressOptions{
		Conn: signaling.ConnOptions{
			SendBuffer:     cfg.Signaling.SendBuffer,
			WriteWait:      cfg.Signaling.WriteWait,
			PongWait:       cfg.Signaling.PongWait,
			MaxMessageSize: cfg.Signaling.MaxMessageSize,
		},
		ReconnectGrace: cfg.Signaling.ReconnectGrace,
	}, log)

	meetingController := httpapi.NewMeetingController(roomService, participantService, sweeper, verifier, cfg.WebRTC, log)
	signalController := httpapi.NewSignalController(ingress, registry, verifier, cfg.HTTP.AllowedOrigins, log)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: httpapi.SetupRouter(meetingController, signalController, cfg.HTTP.AllowedOrigins),
	}

	go func() {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address), slog.String("store", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", sl.Err(err))
	}
	log.Info("application stopped")
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func setupStore(ctx context.Context, cfg config.DatabaseConfig) (repository.RoomStore, error) {
	switch cfg.Driver {
	case "", "memory":
		return repository.NewInMemoryRoomStore(), nil
	case "postgres":
		db, err := connectDatabase(cfg)
		if err != nil {
			return nil, err
		}
		store := repository.NewPostgresRoomStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}
