package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "postpilot/configs"
	"postpilot/internal/api/handlers"
	"postpilot/internal/api/middleware"
	job "postpilot/internal/jobs"
	"postpilot/internal/processor"
	"postpilot/internal/publisher"
	"postpilot/internal/queue"
	"postpilot/internal/repository"
	"postpilot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	deliveryHistoryRepo := repository.NewDeliveryHistoryRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	postService := service.NewPostService(db, postRepo, socialAccountRepo, mediaAssetRepo, deliveryHistoryRepo, r2Service)
	platformService := service.NewPlatformService(*cfg, socialAccountRepo)
	monitorService := service.NewMonitorService(postRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	// delivery processor
	publishers := publisher.NewRegistry(*cfg)
	proc := processor.New(postRepo, socialAccountRepo, deliveryHistoryRepo, publishers, processor.DefaultConfig(), slog.Default())
	if err := proc.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start delivery processor: %v", err)
	}

	markerJob := job.NewDueMarkerJob(postRepo)
	recoveryService := service.NewRecoveryService(postRepo, markerJob, proc)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	platform := handlers.NewPlatformHandler(*cfg, platformService)
	app.Get("/auth/:platform", platform.Connect)
	app.Get("/auth/:platform/callback", platform.ConnectCallback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	apiKeys := handlers.NewKeysHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveKey)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/history", post.PostHistory)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/cancel", post.CancelPost)
	api.Post("/posts/retry", post.RetryPost)
	api.Post("/posts/remove", post.RemovePost)

	api.Get("/accounts", platform.ListAccounts)
	api.Post("/accounts/remove", platform.RemoveAccount)

	monitor := handlers.NewMonitorHandler(monitorService)
	api.Get("/monitor/summary", monitor.PipelineSummary)

	recovery := handlers.NewRecoveryHandler(recoveryService)
	api.Post("/recovery/run-marker", recovery.RunMarker)
	api.Post("/recovery/force-ready", recovery.ForceReady)
	api.Post("/recovery/force-deliver", recovery.ForceDeliver)
	api.Get("/recovery/processor", recovery.ProcessorStatus)
	api.Post("/recovery/processor/start", recovery.ProcessorStart)
	api.Post("/recovery/processor/stop", recovery.ProcessorStop)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, service.NewOAuthConfigs(*cfg), cfg.SecretKey)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", markerJob.Run)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		queueW := queue.NewWorker(postRepo)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePromotePost, queueW.HandlePromotePostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db, proc)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, proc *processor.Processor) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	proc.Stop()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
