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

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/captionflow/configs"
	"github.com/maheshrc27/captionflow/internal/api"
	"github.com/maheshrc27/captionflow/internal/api/handlers"
	"github.com/maheshrc27/captionflow/internal/api/middleware"
	"github.com/maheshrc27/captionflow/internal/enhancer"
	"github.com/maheshrc27/captionflow/internal/imagegen"
	job "github.com/maheshrc27/captionflow/internal/jobs"
	"github.com/maheshrc27/captionflow/internal/openai"
	"github.com/maheshrc27/captionflow/internal/queue"
	"github.com/maheshrc27/captionflow/internal/repository"
	"github.com/maheshrc27/captionflow/internal/service"
	"github.com/maheshrc27/captionflow/internal/tinypng"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

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
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	store, err := newObjectStore(cfg)
	if err != nil {
		log.Fatalf("Failed to set up object storage: %v", err)
	}

	llm := openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	compressor := tinypng.NewClient(cfg.TinyPNGBaseURL, cfg.TinyPNGAPIKey)
	generator := imagegen.NewClient(cfg.ImageGenBaseURL, cfg.ImageGenAPIKey)
	imageEnhancer := enhancer.NewClient(cfg.EnhancerBaseURL, cfg.EnhancerAPIKey)

	contentRepo := repository.NewContentRepository(db)
	restaurantRepo := repository.NewRestaurantRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewScheduledPostRepository(db)
	connectionRepo := repository.NewTiktokConnectionRepository(db)
	stateRepo := repository.NewOAuthStateRepository(db)

	scheduler := queue.NewScheduler(client, inspector)
	tracker := service.NewEnhancementTracker(rdb)

	contentService := service.NewContentService(contentRepo, postRepo, store, scheduler, tracker)
	captionService := service.NewCaptionService(contentRepo, restaurantRepo, profileRepo, llm)
	enhancementService := service.NewEnhancementService(contentRepo, store, tracker, scheduler, imageEnhancer, cfg.EnhancementMaxWait, cfg.EnhancementJobAge)
	tiktokService := service.NewTiktokService(*cfg, contentRepo, postRepo, connectionRepo, stateRepo, store, compressor)
	schedulingService := service.NewSchedulingService(contentRepo, postRepo, store, scheduler, tiktokService, cfg.Location())
	variantService := service.NewVariantService(contentRepo, restaurantRepo, store, generator, compressor, llm)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("unhandled error", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	prom := fiberprometheus.New("captionflow")
	prom.RegisterAt(app, "/metrics")

	app.Use(recover.New())
	app.Use(prom.Middleware)
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api.RegisterRoutes(app, api.Handlers{
		Content:     handlers.NewContentHandler(contentService),
		Caption:     handlers.NewCaptionHandler(captionService),
		Enhancement: handlers.NewEnhancementHandler(enhancementService),
		Schedule:    handlers.NewScheduleHandler(schedulingService),
		Variant:     handlers.NewVariantHandler(variantService),
		Tiktok:      handlers.NewTiktokHandler(tiktokService, *cfg),
	}, authMiddleware.AuthMiddleware())

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(connectionRepo, tiktokService)
	enhancementJob := job.NewEnhancementJob(enhancementService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h05m00s", enhancementJob.SweepStale)
	c.AddFunc("@every 00h01m00s", enhancementJob.ReconcileMarkers)
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(schedulingService, enhancementService)

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)
		mux.HandleFunc(queue.TaskTypeEnhanceImage, queueW.HandleEnhanceImageTask)

		slog.Info("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("Server is running", "port", cfg.Port)

	gracefulShutdown(app, server)
}

func newObjectStore(cfg *config.Config) (service.ObjectStore, error) {
	if cfg.StorageBackend == "r2" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return service.NewR2Store(ctx, cfg.R2)
	}
	return service.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.StorageBucket), nil
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

// gracefulShutdown stops the HTTP server and the worker; deferred closers in
// main release the database and Redis connections afterwards.
func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}
	server.Shutdown()

	slog.Info("Server shutdown complete.")
}
