package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"uk.co.dudmesh.agora/internal/boot"
	"uk.co.dudmesh.agora/internal/handlers"
	"uk.co.dudmesh.agora/internal/lock"
	"uk.co.dudmesh.agora/internal/policy"
	"uk.co.dudmesh.agora/internal/queue"
	"uk.co.dudmesh.agora/internal/service/emailblock"
	"uk.co.dudmesh.agora/internal/service/export"
	"uk.co.dudmesh.agora/internal/service/user"
	"uk.co.dudmesh.agora/internal/store"
)

type UserService interface {
	handlers.UserService
	handlers.TokenVerifier
}

type ExportService interface {
	handlers.ExportService
	HandleJob(ctx context.Context, job queue.Job) error
	ScheduleCleanup(c *cron.Cron, spec string) (cron.EntryID, error)
}

type config struct {
	boot.Config
	store         *store.Store
	redis         *redis.Client
	userService   UserService
	exportService ExportService
	emailBlocks   handlers.EmailDomainBlockService
}

func newLocker(bootConfig *boot.Config, client redis.UniversalClient) lock.Locker {
	if bootConfig.Lock.Backend == boot.LockBackendMemory {
		log.Warnf("using in-process locks; exports are only exclusive within this process")
		return lock.NewMemoryLocker()
	}
	return lock.NewRedisLocker(client, "agora:lock:")
}

func newConfig(bootConfig *boot.Config) *config {
	db, err := store.Open(bootConfig.Database.URL)
	if err != nil {
		log.Fatalf("opening store: %+v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     bootConfig.Redis.Addr,
		Password: bootConfig.Redis.Password,
		DB:       bootConfig.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("connecting to redis at %s: %+v", bootConfig.Redis.Addr, err)
	}

	emailBlocks := emailblock.New(db)
	userService := user.New(bootConfig, db, emailBlocks)
	exportService := export.New(
		bootConfig,
		db,
		newLocker(bootConfig, client),
		policy.NewBackupPolicy(db, bootConfig.BackupMinInterval()),
		queue.NewProducer(client, queue.DefaultQueue),
	)

	return &config{*bootConfig, db, client, userService, exportService, emailBlocks}
}

func (c *config) Close() {
	if err := c.redis.Close(); err != nil {
		log.Warnf("closing redis: %+v", err)
	}
	if err := c.store.Close(); err != nil {
		log.Warnf("closing store: %+v", err)
	}
}

func main() {
	bootConfig, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	config := newConfig(bootConfig)
	defer config.Close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workers := queue.NewWorkerPool(config.redis, queue.DefaultQueue, config.Export.Workers)
	workers.Handle(export.JobType, config.exportService.HandleJob)
	workers.Start(workerCtx)

	scheduler := cron.New()
	if _, err := config.exportService.ScheduleCleanup(scheduler, config.Export.CleanupSchedule); err != nil {
		log.Fatalf("scheduling backup cleanup: %+v", err)
	}
	scheduler.Start()

	server := echo.New()
	server.HTTPErrorHandler = handlers.ErrorHandler(server)
	server.Use(middleware.BodyLimit("10M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("agora"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     strings.Split(config.Server.Origins, ","),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))
	server.Use(handlers.Authenticate(config.userService))

	server.POST("/local/user", handlers.CreateUser(config.userService))
	server.POST("/auth/token", handlers.CreateToken(config.userService))

	server.GET("/settings/export", handlers.ShowExport(config.exportService))
	server.POST("/settings/export", handlers.CreateExport(config.exportService))

	admin := server.Group("/admin")
	admin.GET("/accounts", handlers.ListAccounts(config.store))
	admin.GET("/email_domain_blocks", handlers.ListEmailDomainBlocks(config.emailBlocks))
	admin.POST("/email_domain_blocks", handlers.CreateEmailDomainBlock(config.emailBlocks))
	admin.DELETE("/email_domain_blocks/:id", handlers.DeleteEmailDomainBlock(config.emailBlocks))

	go func() {
		metrics := echo.New()
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
	<-scheduler.Stop().Done()
	stopWorkers()
	workers.Wait()
}
