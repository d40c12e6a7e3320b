package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusbilling_go/config"
	"campusbilling_go/database"
	"campusbilling_go/database/seeders"
	"campusbilling_go/middleware"
	"campusbilling_go/routes"
	"campusbilling_go/services"
	"campusbilling_go/services/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	setupLogging()
	config.LoadConfig()
	database.Connect()

	if getEnvDefault("SEED_DB", "false") == "true" {
		seeders.SeedAll()
	}
}

func main() {
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))

	// Custom middleware
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "Campus Billing API",
			"version": "1.0.0",
		})
	})

	// Notification worker (Redis queue -> DB)
	stopNotif := make(chan struct{})
	notifications.NewService().StartWorker(stopNotif)

	// Batch jobs. Every job is idempotent, so the schedule only decides how
	// quickly a missed period gets picked up, never whether it double-runs.
	scheduler := services.NewJobScheduler()
	registerJobs(scheduler)
	if config.AppConfig.EnableSchedulers {
		scheduler.Start()
	} else {
		log.Println("Schedulers disabled by configuration; jobs available via manual trigger only")
	}

	// API routes
	routes.SetupRoutes(app, scheduler)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	// Graceful shutdown: stop accepting requests, then let in-flight batch
	// jobs finish before the process exits.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down...")
		close(stopNotif)
		if err := app.Shutdown(); err != nil {
			logrus.WithError(err).Error("Server shutdown failed")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := scheduler.Stop(ctx); err != nil {
			logrus.WithError(err).Error("Scheduler shutdown failed")
		}
	}()

	addr := ":" + config.AppConfig.Port
	log.Printf("Server starting on port %s (env=%s)", config.AppConfig.Port, config.AppConfig.AppEnv)
	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// registerJobs wires the three recurring batches. The deduction job polls
// hourly because RunIfDue is a no-op once the month's batch exists; the
// rollover passes are day-gated internally, so firing them daily is safe.
func registerJobs(scheduler *services.JobScheduler) {
	db := database.GetDB()
	deductions := services.NewSalaryDeductionService(db)
	rollover := services.NewLeaveRolloverService(db)
	audit := services.NewAuditArchiveService(db)

	mustRegister(scheduler, "salary-deductions", "0 * * * *", deductions.RunIfDue)

	mustRegister(scheduler, "leave-rollover", "@midnight", func() error {
		now := time.Now()
		if _, err := rollover.RunMonthlyRollover(now); err != nil {
			return err
		}
		_, err := rollover.RunYearlyRollover(now)
		return err
	})

	mustRegister(scheduler, "audit-maintenance", "30 * * * *", audit.RunMaintenance)
}

func mustRegister(scheduler *services.JobScheduler, name, spec string, fn func() error) {
	if err := scheduler.Register(name, spec, fn); err != nil {
		log.Fatalf("Failed to register job %s: %v", name, err)
	}
}

// setupLogging configures the logging system
func setupLogging() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(getEnvDefault("LOG_LEVEL", "info"))
	if err == nil {
		logrus.SetLevel(level)
	}

	if os.Getenv("APP_ENV") == "development" {
		logrus.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
		}
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
