package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/stream"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// stream-probe подключается к streaming endpoint работающего
// risk-analyzer и печатает входящие события. Используется для
// smoke-проверки push-канала и логики переподключения.
func main() {
	url := flag.String("url", "http://localhost:8080/api/v1/risk-assessment/stream", "streaming endpoint URL")
	token := flag.String("token", "", "bearer token (if auth is enabled)")
	backoffBase := flag.Duration("backoff-base", time.Second, "reconnect backoff base")
	backoffCap := flag.Duration("backoff-cap", 30*time.Second, "reconnect backoff cap")
	maxAttempts := flag.Int("max-attempts", 5, "consecutive reconnect attempts before giving up")
	flag.Parse()

	log := logger.New(os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	client := stream.NewClient(stream.ClientConfig{
		URL:                  *url,
		AuthToken:            *token,
		BackoffBase:          *backoffBase,
		BackoffCap:           *backoffCap,
		MaxReconnectAttempts: *maxAttempts,
	}, func(name string, data []byte) {
		fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), name, data)
	}, log)

	err := client.Run(ctx)
	switch {
	case errors.Is(err, stream.ErrFallbackToPolling):
		log.Error("Stream unavailable, fall back to polling the pull endpoint", err)
		os.Exit(2)
	case errors.Is(err, context.Canceled):
		log.Info("Stream probe stopped")
	case err != nil:
		log.Error("Stream probe failed", err)
		os.Exit(1)
	}
}
