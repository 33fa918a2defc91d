package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mini-maxit/judge-engine/internal/config"
	"github.com/mini-maxit/judge-engine/internal/docker"
	"github.com/mini-maxit/judge-engine/internal/evaluator"
	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/internal/pipeline"
	"github.com/mini-maxit/judge-engine/internal/queue"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq/channel"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq/consumer"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq/responder"
	"github.com/mini-maxit/judge-engine/internal/sandbox"
	"github.com/mini-maxit/judge-engine/internal/scheduler"
	"github.com/mini-maxit/judge-engine/internal/server"
	"github.com/mini-maxit/judge-engine/internal/store"
)

func main() {
	// Initialize the logger
	logger.InitializeLogger()
	defer logger.Sync()

	logger := logger.NewNamedLogger("main")
	logger.Info("Starting judge engine")

	config := config.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sandbox runtime. A missing daemon is not fatal: submissions then end in RUNTIME_ERROR.
	dockerCli, err := docker.NewDockerClient()
	if err != nil {
		logger.Errorf("Failed to create Docker client: %s", err)
		dockerCli = nil
	}
	executor := sandbox.NewDockerExecutor(dockerCli, config.DockerImageName, config.DockerEnabled, config.DockerDebugMode)
	if err := executor.Available(ctx); err != nil {
		logger.Warnf("Sandbox runtime unavailable: %s", err)
	}
	runner := sandbox.NewRunner(executor, config.ExecutionTempDir)

	// Persistence
	if err := store.Migrate(config.DatabaseDSN); err != nil {
		logger.Fatalf("Failed to run migrations: %s", err)
	}
	pgStore, err := store.NewPostgresStore(ctx, config.DatabaseDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %s", err)
	}
	defer func() {
		if err := pgStore.Close(); err != nil {
			logger.Errorf("Failed to close database: %s", err)
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warnf("Redis unreachable, test cases will be read from the database: %s", err)
	}
	submissionStore := store.NewCachedStore(pgStore, redisClient, config.TestCaseCacheTTL)

	// RabbitMQ
	conn := rabbitmq.NewRabbitMqConnection(config)
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close RabbitMQ connection: %s", err)
		}
	}()
	publishChannel := channel.NewAmqpChannel(rabbitmq.NewRabbitMQChannel(conn))
	consumeChannel := channel.NewAmqpChannel(rabbitmq.NewRabbitMQChannel(conn))
	if err := channel.DeclareDurableQueue(publishChannel, config.ResultQueueName, 0); err != nil {
		logger.Fatalf("Failed to declare result queue %s: %s", config.ResultQueueName, err)
	}
	resp := responder.NewResponder(publishChannel, config.PublishChanSize, config.ResultQueueName)

	// Worker pool
	eval := evaluator.NewEvaluator(runner)
	submissionQueue := queue.NewQueue()
	workers := make([]pipeline.Worker, config.MaxWorkers)
	for i := range workers {
		workers[i] = pipeline.NewWorker(i, submissionStore, eval, resp)
	}
	sched := scheduler.NewScheduler(workers, submissionQueue, config.QueuePollInterval)
	// In-flight submissions are cancelled by Stop, not by the signal.
	if err := sched.Start(context.Background()); err != nil {
		logger.Fatalf("Failed to start scheduler: %s", err)
	}

	cons := consumer.NewConsumer(consumeChannel, config.WorkerQueueName, submissionQueue, sched, resp)
	go func() {
		if err := cons.Listen(ctx); err != nil {
			logger.Errorf("Consumer stopped: %s", err)
			stop()
		}
	}()

	opsServer := server.NewServer(config.HTTPAddr, sched, runner.Available)
	go func() {
		if err := opsServer.Start(); err != nil {
			logger.Errorf("Ops server stopped: %s", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Failed to stop ops server: %s", err)
	}

	if err := sched.Stop(config.ShutdownGracePeriod); err != nil {
		logger.Errorf("Worker pool did not stop cleanly: %s", err)
	}
	if err := resp.Close(); err != nil {
		logger.Errorf("Failed to close responder: %s", err)
	}
	logger.Info("Judge engine stopped")
}
