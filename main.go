package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"veritext/api"
	"veritext/common"
	"veritext/config"
	"veritext/events"
	"veritext/exttool"
	"veritext/locks"
	"veritext/pipeline"
	"veritext/store"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	metaStore, err := store.Open(getEnvOrDefault("SQLITE_PATH", "veritext.db"))
	if err != nil {
		log.Fatalf("failed to open metadata store: %v", err)
	}
	defer metaStore.Close()

	blobs := initializeS3()
	if blobs == nil {
		log.Fatalf("S3_BUCKET is required: attachments and report archives live in blob storage")
	}

	lock := initializeLock()
	publisher := initializePublisher()
	defer publisher.Close()

	runner := pipeline.NewRunner(pipeline.Config{
		Store:     metaStore,
		Blobs:     blobs,
		Tool:      exttool.New(nil, blobs),
		Lock:      lock,
		Publisher: publisher,
	})

	r := api.NewRouter(runner)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/articles/:id/originality-check")
	log.Println("  POST /api/articles/:id/similarity")
	log.Println("  GET  /api/articles/:id/originality-report")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// initializeS3 returns the blob storage client if configured via env.
// Required: S3_BUCKET. Optional: S3_REGION, S3_PROFILE, S3_USE_PATH_STYLE=true
func initializeS3() *common.S3 {
	bucket := strings.TrimSpace(os.Getenv("S3_BUCKET"))
	if bucket == "" {
		return nil
	}

	cfg := common.S3Config{
		Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
		Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
		Bucket:       bucket,
		UsePathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
	}
	client, err := common.NewS3(context.Background(), cfg)
	if err != nil {
		log.Printf("Warning: failed to init S3 client: %v", err)
		return nil
	}
	return client
}

// initializeLock prefers the redis-backed lock so exclusivity holds
// across replicas; without REDIS_ADDR it degrades to in-process.
func initializeLock() locks.ArticleLock {
	if os.Getenv("REDIS_ADDR") == "" {
		log.Println("REDIS_ADDR not set; using in-process article locks")
		return locks.NewLocalLock()
	}
	lock, err := locks.NewRedisLockFromEnv(config.RunLockTTL)
	if err != nil {
		log.Printf("Warning: redis lock unavailable (%v); using in-process article locks", err)
		return locks.NewLocalLock()
	}
	return lock
}

func initializePublisher() *events.Publisher {
	publisher, err := events.NewPublisherFromEnv()
	if err != nil {
		log.Printf("Warning: kafka publisher unavailable: %v (report events disabled)", err)
		return nil
	}
	if publisher == nil {
		log.Println("KAFKA_BROKERS not set; report events disabled")
	}
	return publisher
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
