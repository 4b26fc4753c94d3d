package main // Entry point package

import (
	"context"
	"errors"
	"log" // Logging library
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/hostel-management/internal/allocation"
	"github.com/iliyamo/hostel-management/internal/billing"
	"github.com/iliyamo/hostel-management/internal/config" // Internal config loader
	"github.com/iliyamo/hostel-management/internal/database"
	"github.com/iliyamo/hostel-management/internal/handler"
	"github.com/iliyamo/hostel-management/internal/middleware"
	"github.com/iliyamo/hostel-management/internal/otp"
	"github.com/iliyamo/hostel-management/internal/queue"
	"github.com/iliyamo/hostel-management/internal/repository"
	"github.com/iliyamo/hostel-management/internal/router" // Internal router setup
	"github.com/iliyamo/hostel-management/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	created, err := database.SeedAdmin(ctx, db, database.AdminSeed{
		Email:    cfg.AdminEmail,
		FullName: cfg.AdminName,
		Password: cfg.AdminPassword,
		Cost:     cfg.BcryptCost,
	})
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		log.Printf("admin %s created", cfg.AdminEmail)
	}

	// Redis is optional: without it the limiter passes through and OTPs
	// live in process memory.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var otpStore otp.Store
	if rdb != nil {
		defer rdb.Close()
		otpStore = otp.NewRedisStore(rdb, "hostel:otp", otp.SystemClock{})
	} else {
		log.Printf("redis unavailable: rate limiting disabled, OTPs kept in memory")
		otpStore = otp.NewMemoryStore(otp.SystemClock{})
	}

	var notifier service.Notifier = service.Nop{}
	if cfg.AMQPURL != "" {
		notifier = service.NewQueuePublisher(cfg.AMQPURL)
	}

	notifications := repository.NewNotificationRepo(db)
	if cfg.ConsumeNotify {
		go func() {
			if err := queue.StartNotificationConsumer(ctx, cfg.AMQPURL, notifications); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("notification consumer stopped: %v", err)
			}
		}()
	}

	alloc := allocation.New(db, notifier)
	ledger := billing.New(db, alloc, notifier)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	users := repository.NewUserRepo(db)
	authH := handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), otpStore, notifier)
	roomH := handler.NewRoomHandler(alloc)
	billH := handler.NewBillingHandler(ledger)
	notifH := handler.NewNotificationHandler(notifications)
	appH := handler.NewApplicationHandler(db, repository.NewApplicationRepo(db), users, notifier)
	annH := handler.NewAnnouncementHandler(repository.NewAnnouncementRepo(db), notifier)
	compH := handler.NewComplaintHandler(repository.NewComplaintRepo(db), notifier)

	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterAuth(e, authH, notifH, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterAdmin(e, roomH, billH, cfg.JWTSecret)
	router.RegisterStudent(e, roomH, billH, cfg.JWTSecret)
	router.RegisterResidentServices(e, appH, annH, compH, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
