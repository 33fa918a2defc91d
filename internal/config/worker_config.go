package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	"go.uber.org/zap"
)

type Config struct {
	RabbitMQURL     string
	PublishChanSize int
	WorkerQueueName string
	ResultQueueName string

	MaxWorkers          int
	QueuePollInterval   time.Duration
	ShutdownGracePeriod time.Duration

	DockerEnabled    bool
	DockerImageName  string
	DockerDebugMode  bool
	ExecutionTempDir string

	DatabaseDSN string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	TestCaseCacheTTL time.Duration
	HTTPAddr         string
}

func NewConfig() *Config {
	logger := logger.NewNamedLogger("config")

	_, err := os.Stat(".env")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("failed to stat .env file with error: %v", err)
		}
	} else {
		if os.Getenv("ENV") == "PROD" {
			logger.Warn(".env file detected in production environment. This is not recommended.")
		}
		err = godotenv.Load(".env")
		if err != nil {
			logger.Fatalf("failed to load .env file with error: %v", err)
		}
	}

	rabbitmqURL, publishChanSize := rabbitmqConfig(logger)
	workerQueueName, resultQueueName := queueConfig(logger)
	maxWorkers, pollInterval, gracePeriod := workerPoolConfig(logger)
	dockerEnabled, dockerImage, debugMode, tempDir := dockerConfig(logger)
	redisAddr, redisPassword, redisDB, cacheTTL := redisConfig(logger)

	return &Config{
		RabbitMQURL:         rabbitmqURL,
		PublishChanSize:     publishChanSize,
		WorkerQueueName:     workerQueueName,
		ResultQueueName:     resultQueueName,
		MaxWorkers:          maxWorkers,
		QueuePollInterval:   pollInterval,
		ShutdownGracePeriod: gracePeriod,
		DockerEnabled:       dockerEnabled,
		DockerImageName:     dockerImage,
		DockerDebugMode:     debugMode,
		ExecutionTempDir:    tempDir,
		DatabaseDSN:         databaseConfig(logger),
		RedisAddr:           redisAddr,
		RedisPassword:       redisPassword,
		RedisDB:             redisDB,
		TestCaseCacheTTL:    cacheTTL,
		HTTPAddr:            stringOrDefault(logger, "HTTP_ADDR", constants.DefaultHTTPAddr),
	}
}

func stringOrDefault(logger *zap.SugaredLogger, key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		logger.Warnf("%s is not set, using default value %s", key, def)
		return def
	}
	return value
}

func intOrDefault(logger *zap.SugaredLogger, key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		logger.Warnf("%s is not set, using default value %d", key, def)
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Fatalf("failed to parse %s with error: %v", key, err)
	}
	return value
}

func boolOrDefault(logger *zap.SugaredLogger, key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		logger.Warnf("%s is not set, using default value %t", key, def)
		return def
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Fatalf("failed to parse %s with error: %v", key, err)
	}
	return value
}

func rabbitmqConfig(logger *zap.SugaredLogger) (string, int) {
	rabbitmqHost := stringOrDefault(logger, "RABBITMQ_HOST", constants.DefaultRabbitmqHost)
	rabbitmqPortStr := stringOrDefault(logger, "RABBITMQ_PORT", constants.DefaultRabbitmqPort)
	rabbitmqPort, err := strconv.ParseUint(rabbitmqPortStr, 10, 16)
	if err != nil {
		logger.Fatalf("failed to parse RABBITMQ_PORT with error: %v", err)
	}
	rabbitmqUser := stringOrDefault(logger, "RABBITMQ_USER", constants.DefaultRabbitmqUser)
	rabbitmqPassword := stringOrDefault(logger, "RABBITMQ_PASSWORD", constants.DefaultRabbitmqPassword)
	publishChanSize := intOrDefault(logger, "RABBITMQ_PUBLISH_CHAN_SIZE", constants.DefaultRabbitmqPublishChanSize)

	rabbitmqURL := fmt.Sprintf("amqp://%s:%s@%s:%d/", rabbitmqUser, rabbitmqPassword, rabbitmqHost, rabbitmqPort)

	return rabbitmqURL, publishChanSize
}

func queueConfig(logger *zap.SugaredLogger) (string, string) {
	workerQueueName := stringOrDefault(logger, "WORKER_QUEUE_NAME", constants.DefaultWorkerQueueName)
	resultQueueName := stringOrDefault(logger, "RESULT_QUEUE_NAME", constants.DefaultResultQueueName)
	return workerQueueName, resultQueueName
}

func workerPoolConfig(logger *zap.SugaredLogger) (int, time.Duration, time.Duration) {
	maxWorkersStr := os.Getenv("MAX_WORKERS")
	maxWorkers := int64(constants.DefaultMaxWorkers)
	if maxWorkersStr == "" {
		logger.Warnf("MAX_WORKERS is not set, using default value %d", constants.DefaultMaxWorkers)
	} else {
		var err error
		maxWorkers, err = strconv.ParseInt(maxWorkersStr, 10, 8)
		if err != nil {
			logger.Fatalf("failed to parse MAX_WORKERS with error: %v", err)
		}
		if maxWorkers <= 0 {
			logger.Fatalf("MAX_WORKERS must be positive, got %d", maxWorkers)
		}
	}

	pollMs := intOrDefault(logger, "QUEUE_POLL_INTERVAL_MS", constants.DefaultQueuePollIntervalMs)
	graceSec := intOrDefault(logger, "SHUTDOWN_GRACE_PERIOD_SEC", constants.DefaultShutdownGracePeriodSec)

	return int(maxWorkers), time.Duration(pollMs) * time.Millisecond, time.Duration(graceSec) * time.Second
}

func dockerConfig(logger *zap.SugaredLogger) (bool, string, bool, string) {
	enabled := boolOrDefault(logger, "DOCKER_EXECUTION_ENABLED", true)
	image := stringOrDefault(logger, "DOCKER_IMAGE_NAME", constants.DefaultDockerImageName)
	debugMode := boolOrDefault(logger, "DOCKER_DEBUG_MODE", false)
	tempDir := stringOrDefault(logger, "EXECUTION_TEMP_DIR", constants.DefaultExecutionTempDir)
	return enabled, image, debugMode, tempDir
}

func databaseConfig(logger *zap.SugaredLogger) string {
	host := stringOrDefault(logger, "DB_HOST", constants.DefaultDBHost)
	portStr := stringOrDefault(logger, "DB_PORT", constants.DefaultDBPort)
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		logger.Fatalf("failed to parse DB_PORT with error: %v", err)
	}
	user := stringOrDefault(logger, "DB_USER", constants.DefaultDBUser)
	password := stringOrDefault(logger, "DB_PASSWORD", constants.DefaultDBPassword)
	name := stringOrDefault(logger, "DB_NAME", constants.DefaultDBName)
	sslMode := stringOrDefault(logger, "DB_SSLMODE", constants.DefaultDBSslMode)

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", user, password, host, port, name, sslMode)
}

func redisConfig(logger *zap.SugaredLogger) (string, string, int, time.Duration) {
	addr := stringOrDefault(logger, "REDIS_ADDR", constants.DefaultRedisAddr)
	password := os.Getenv("REDIS_PASSWORD")
	db := intOrDefault(logger, "REDIS_DB", 0)
	ttlSec := intOrDefault(logger, "TEST_CASE_CACHE_TTL_SEC", constants.DefaultTestCaseCacheTTLSec)
	return addr, password, db, time.Duration(ttlSec) * time.Second
}
