// Command example emits a stream of sample events, revenue, and logs
// through the SDK. Run cmd/sink first to watch them arrive.
package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/pulsekit/pulsekit/pkg/config"
	"github.com/pulsekit/pulsekit/pkg/sdk"
	"github.com/pulsekit/pulsekit/pkg/sdk/record"
)

func main() {
	endpoint := pflag.String("endpoint", "localhost:9041", "collector host:port")
	apiKey := pflag.String("api-key", "6578616d706c65", "hex API key")
	pflag.Parse()

	client, err := sdk.New(config.Config{
		APIKey:                *apiKey,
		Endpoint:              *endpoint,
		BatchSize:             10,
		FlushInterval:         3 * time.Second,
		OfflineStorageEnabled: true,
	})
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Start(ctx); err != nil {
		log.Fatalf("failed to start client: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	pages := []string{"/", "/pricing", "/docs", "/signup"}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	log.Printf("sending traffic to %s (ctrl-c to stop)", *endpoint)
	for i := 0; ; i++ {
		select {
		case <-sigCh:
			log.Println("flushing and shutting down...")
			if err := client.Flush(context.Background()); err != nil {
				log.Printf("final flush failed: %v", err)
			}
			client.Close()
			return
		case <-ticker.C:
		}

		userID := "user-" + string(rune('a'+rand.Intn(5)))

		client.Track(record.Event{
			UserID: userID,
			Name:   "page_view",
			Properties: map[string]any{
				"path": pages[rand.Intn(len(pages))],
			},
		})

		if i%20 == 19 {
			client.TrackRevenue(record.Revenue{
				UserID:   userID,
				OrderID:  time.Now().Format("ord-150405.000"),
				Amount:   9.99 + float64(rand.Intn(90)),
				Currency: "USD",
				Products: []record.Product{
					{ID: "sku-1", Name: "starter plan", Price: 9.99, Quantity: 1},
				},
			})
		}

		if i%7 == 6 {
			client.Log(record.LogEntry{
				UserID:    userID,
				Level:     record.LevelInfo,
				Service:   "example",
				Message:   "background job finished",
				ContextID: uint64(i / 7),
			})
		}

		if i%50 == 49 {
			stats := client.BatchStats()
			log.Printf("sent %d records in %d batches (%d retries)",
				stats.RecordsSent, stats.BatchesSent, stats.Retries)
		}
	}
}
