package app

import (
	"time"

	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/utils"
)

type Config struct {
	HTTPAddr     string
	AllowOrigins []string

	MediaStorageDir    string
	MediaPollInterval  time.Duration
	MediaBatchSize     int
	MediaMaxAttempts   int
	MediaBackoffBase   time.Duration
	MediaFetchTimeout  time.Duration
	RealtimeBusEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	httpAddr := utils.GetEnv("HTTP_ADDR", ":8080", log)
	allowOrigin := utils.GetEnv("CORS_ALLOW_ORIGIN", "http://localhost:3000", log)
	mediaDir := utils.GetEnv("MEDIA_STORAGE_DIR", "/var/lib/atendo/media", log)
	pollSeconds := utils.GetEnvAsInt("MEDIA_POLL_INTERVAL_SECONDS", 2, log)
	batchSize := utils.GetEnvAsInt("MEDIA_BATCH_SIZE", 8, log)
	maxAttempts := utils.GetEnvAsInt("MEDIA_MAX_ATTEMPTS", 5, log)
	backoffSeconds := utils.GetEnvAsInt("MEDIA_BACKOFF_BASE_SECONDS", 30, log)
	fetchTimeoutSeconds := utils.GetEnvAsInt("MEDIA_FETCH_TIMEOUT_SECONDS", 30, log)
	busEnabled := utils.GetEnv("REALTIME_BUS", "redis", log)

	return Config{
		HTTPAddr:           httpAddr,
		AllowOrigins:       []string{allowOrigin},
		MediaStorageDir:    mediaDir,
		MediaPollInterval:  time.Duration(pollSeconds) * time.Second,
		MediaBatchSize:     batchSize,
		MediaMaxAttempts:   maxAttempts,
		MediaBackoffBase:   time.Duration(backoffSeconds) * time.Second,
		MediaFetchTimeout:  time.Duration(fetchTimeoutSeconds) * time.Second,
		RealtimeBusEnabled: busEnabled == "redis",
	}
}
