package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	_ "dialdesk/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"dialdesk/internal/auth"
	"dialdesk/internal/cache"
	"dialdesk/internal/config"
	"dialdesk/internal/db"
	"dialdesk/internal/handler"
	"dialdesk/internal/model"
	"dialdesk/internal/realtime"
	"dialdesk/internal/repository"
	"dialdesk/internal/router"
	"dialdesk/internal/service"
)

// @title DialDesk API
// @version 1.0
// @description Small-business VoIP desk: user directory, telephony credential vault, call presence, and realtime notifications.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the login token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.CallLog{},
			&model.CallPresence{},
			&model.Contact{},
			&model.TelephonyCredentials{},
			&model.Session{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.TelephonyCredentials{},
		&model.CallPresence{},
		&model.Contact{},
		&model.CallLog{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Printf("Warning: redis unreachable, directory caching disabled: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	sessionRepo := repository.NewSessionRepository(gormDB)
	credsRepo := repository.NewTelephonyCredentialsRepository(gormDB)
	presenceRepo := repository.NewCallPresenceRepository(gormDB)
	contactRepo := repository.NewContactRepository(gormDB)
	callLogRepo := repository.NewCallLogRepository(gormDB)

	// Sessions whose lifetime elapsed while the process was down would
	// otherwise linger until their users log in again.
	if n, err := sessionRepo.DeleteExpired(context.Background(), time.Now()); err != nil {
		log.Printf("Warning: expired session cleanup: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d expired sessions", n)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)

	// The hub validates realtime handshakes through the auth service, the
	// auth service delegates admin bootstrap to the user service, and the
	// user service broadcasts through the hub. The function adapter lets
	// the hub come first; authService is assigned before anything dials in.
	var authService service.AuthService
	hub := realtime.NewHub(realtime.ValidatorFunc(
		func(ctx context.Context, token string) (*model.UserIdentity, error) {
			return authService.Validate(ctx, token)
		}))

	userService := service.NewUserService(userRepo, sessionRepo, presenceRepo, cacheClient, hub)
	authService = service.NewAuthService(userRepo, sessionRepo, tokens, userService)
	telephonyService := service.NewTelephonyService(credsRepo, userRepo, hub)
	callService := service.NewCallService(presenceRepo, userRepo, contactRepo, callLogRepo, cacheClient, hub)
	defer callService.Close()
	contactService := service.NewContactService(contactRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, userService)
	userHandler := handler.NewUserHandler(userService)
	telephonyHandler := handler.NewTelephonyHandler(telephonyService)
	callHandler := handler.NewCallHandler(callService)
	contactHandler := handler.NewContactHandler(contactService)

	// Register routes
	router.Register(
		e,
		authService,
		authHandler,
		userHandler,
		telephonyHandler,
		callHandler,
		contactHandler,
	)

	// Realtime listener runs beside the REST port.
	rtServer := realtime.NewServer(hub, cfg.RealtimePort)
	if err := rtServer.Start(); err != nil {
		log.Fatalf("realtime start: %v", err)
	}
	defer rtServer.Stop()
	log.Printf("Realtime hub listening on :%d/ws", cfg.RealtimePort)

	log.Printf("Swagger documentation available at: http://localhost:%d/swagger/index.html", cfg.ServerPort)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
