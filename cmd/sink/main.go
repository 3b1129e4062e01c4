// Command sink runs the development collector: a TCP listener for SDK
// batch frames plus an HTTP API for inspecting what arrived.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/pulsekit/pulsekit/pkg/sink"
)

func main() {
	listenAddr := pflag.String("listen", ":9041", "TCP address for SDK connections")
	httpAddr := pflag.String("http", ":9042", "HTTP address for the inspection API")
	maxBatches := pflag.Int("max-batches", 1000, "batches kept in memory before eviction")
	pflag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := sink.NewHub()
	go hub.Run(ctx)

	s := sink.New(sink.Config{
		ListenAddr: *listenAddr,
		MaxBatches: *maxBatches,
	}, hub)

	go func() {
		if err := s.Run(ctx); err != nil {
			log.Fatalf("sink listener failed: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         *httpAddr,
		Handler:      sink.Router(s, hub),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("inspection API on %s", *httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
