package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/mfyhq/collabchat/internal/api"
	"github.com/mfyhq/collabchat/internal/cache"
	"github.com/mfyhq/collabchat/internal/chat"
	"github.com/mfyhq/collabchat/internal/config"
	"github.com/mfyhq/collabchat/internal/database"
	"github.com/mfyhq/collabchat/internal/message"
	"github.com/mfyhq/collabchat/internal/pubsub"
	"github.com/mfyhq/collabchat/internal/stats"
	"github.com/mfyhq/collabchat/internal/storage"
)

const defaultSigningKey = "kQ4yfSMu2ZxGqAoN7cVPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr             string
	dsn              string
	redisAddr        string
	signingKey       string
	awsRegion        string
	attachmentBucket string
	allowedOrigins   stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&awsRegion, "aws-region", "us-east-1", "aws region for attachment storage")
	flag.StringVar(&attachmentBucket, "attachment-bucket", "collabchat-attachments", "s3 bucket for message attachments")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[collabchat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, redisAddr, signingKey, awsRegion, attachmentBucket, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	broker, err := pubsub.NewRedisBroker(logger, cfg.RedisAddr)
	if err != nil {
		logger.Fatal("redis broker:", err)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.Println("broker close:", err)
		}
	}()

	pageCache, err := cache.NewRedisPageCache(logger, cfg.RedisAddr)
	if err != nil {
		logger.Fatal("page cache:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewS3ObjectStore(ctx, cfg.AwsRegion, cfg.AttachmentBucket)
	if err != nil {
		logger.Fatal("object store:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	tracker := chat.NewTracker(logger, dbConn, broker, statsUpdater)
	router := chat.NewRouter(logger, broker, tracker, statsUpdater)
	broadcaster := chat.NewBroadcaster(logger, tracker, broker)
	messages := message.NewService(logger, dbConn, pageCache, store, router)

	hub := api.NewHub(logger, broker, statsUpdater)
	if err := hub.Run(ctx); err != nil {
		logger.Fatal("hub:", err)
	}

	srv := api.NewCollabChatApp(mux, logger, dbConn, tracker, messages, hub, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go broadcaster.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer shutDownCancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("stopping presence broadcaster...")
	broadcaster.Stop()

	cancel()
	select {
	case <-hub.Done():
	case <-shutDownCtx.Done():
		logger.Println("timed out waiting for hub shutdown")
	}

	logger.Println("shutdown complete")
}
