package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ElVatoEste/biblioteca-reservas/config"
	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/ElVatoEste/biblioteca-reservas/internal/cache"
	"github.com/ElVatoEste/biblioteca-reservas/internal/consumer"
	"github.com/ElVatoEste/biblioteca-reservas/internal/dto"
	"github.com/ElVatoEste/biblioteca-reservas/internal/handler"
	"github.com/ElVatoEste/biblioteca-reservas/internal/middleware"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/repository"
	"github.com/ElVatoEste/biblioteca-reservas/internal/service"
	"github.com/ElVatoEste/biblioteca-reservas/pkg/database"
	"github.com/ElVatoEste/biblioteca-reservas/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid TIMEZONE %q: %v", cfg.Timezone, err)
	}

	db := database.MustOpen(cfg.DBDriver, cfg.DSN())

	// Page cache: Redis when reachable, in-process otherwise
	rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}
	pages := cache.New(rdb, "reservas:pages", cfg.PageCacheTTL)

	// RabbitMQ: publish our changes, drop cached pages on anyone's changes
	var publisher service.Publisher
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer pub.Close()
		publisher = pub

		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}
		consumerCtx, stopConsumer := context.WithCancel(context.Background())
		defer stopConsumer()
		consumer.NewReservationConsumer(pages).Start(consumerCtx, msgs)
	} else {
		log.Println("RABBITMQ_URL not set, change events disabled")
	}

	// Repositories
	reservationRepo := repository.NewReservationRepository(db)
	userRepo := repository.NewUserRepository(db)
	allowlistRepo := repository.NewAllowlistRepository(db)

	// Services
	checker := service.NewAvailabilityChecker(reservationRepo, cfg.RoomCapacity)
	reservationSvc := service.NewReservationService(reservationRepo, checker, service.NewIDGenerator(nil), pages, publisher)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	accounts := auth.NewAccountService(userRepo, allowlistRepo, tokens, cfg.AllowedDomain, cfg.BcryptCost)

	var identity handler.IdentityVerifier
	if cfg.BrokerSecret != "" {
		identity = auth.NewProviderVerifier(cfg.BrokerSecret)
	}

	// Echo
	e := echo.New()
	e.Validator = dto.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(echoMw.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "biblioteca-reservas"})
	})

	authn := middleware.JWTAuth(tokens)
	admin := middleware.RequireRole(models.RoleAdmin)

	api := e.Group("/api/v1")
	handler.NewAuthHandler(accounts, identity).RegisterRoutes(api, authn, middleware.OptionalJWTAuth(tokens))
	handler.NewReservationHandler(reservationSvc, loc, cfg.DefaultPageSize).RegisterRoutes(api, authn, admin)
	handler.NewAdminHandler(allowlistRepo).RegisterRoutes(api, authn, admin)

	go func() {
		log.Printf("Reservation Service starting on :%s (%s, capacity %d)", cfg.ServerPort, cfg.Timezone, cfg.RoomCapacity)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for a signal, then drain requests before the deferred closes run
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}
