package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomasvik/threadline-go/internal/api"
	"github.com/tomasvik/threadline-go/internal/cart"
	"github.com/tomasvik/threadline-go/internal/checkout"
	"github.com/tomasvik/threadline-go/internal/store"
	"github.com/tomasvik/threadline-go/pkg/contracts"
	kafkautil "github.com/tomasvik/threadline-go/pkg/kafka"
	"github.com/tomasvik/threadline-go/pkg/logging"
	"github.com/tomasvik/threadline-go/pkg/metrics"
	"github.com/tomasvik/threadline-go/pkg/outbox"
)

type cfg struct {
	Port            string
	DatabaseURL     string
	KafkaBrokers    string
	Topic           string
	RelayInterval   time.Duration
	RelayBatchLimit int
}

func readCfg() (cfg, error) {
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if db == "" {
		return cfg{}, errors.New("DATABASE_URL is required")
	}
	relayMS, _ := strconv.Atoi(getenv("OUTBOX_RELAY_INTERVAL_MS", "1000"))
	batch, _ := strconv.Atoi(getenv("OUTBOX_RELAY_BATCH", "100"))

	return cfg{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     db,
		KafkaBrokers:    getenv("KAFKA_BROKERS", ""),
		Topic:           getenv("KAFKA_TOPIC", contracts.DefaultTopic),
		RelayInterval:   time.Duration(relayMS) * time.Millisecond,
		RelayBatchLimit: batch,
	}, nil
}

func main() {
	cfg, err := readCfg()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()

	if err := store.InitSchema(ctx, pool); err != nil {
		log.Fatalf("schema init error: %v", err)
	}

	products := store.NewProducts(pool)
	carts := store.NewCarts(pool)
	orders := store.NewOrders(pool)
	users := store.NewUsers(pool)
	events := store.NewEvents(pool, cfg.Topic)

	srv := &api.Server{
		Catalog:  products,
		Carts:    cart.NewService(products, carts),
		Checkout: checkout.New(products, orders, carts, users, events),
		Orders:   orders,
		Events:   events,
		Metrics:  metrics.NewServerMetrics("storefront"),
	}

	kafkaClient := kafkautil.NewClient(cfg.KafkaBrokers)
	if kafkaClient.Enabled() {
		go relayOutbox(pool, kafkaClient, cfg)
	} else {
		log.Printf("KAFKA_BROKERS not set, outbox relay disabled")
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("storefront listening on :%s", cfg.Port)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

// relayOutbox ships pending outbox rows to Kafka. Rows stay pending on
// publish failure and are retried on the next tick.
func relayOutbox(pool *pgxpool.Pool, client *kafkautil.Client, cfg cfg) {
	writer := client.NewWriter(cfg.Topic)
	defer writer.Close()

	ticker := time.NewTicker(cfg.RelayInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pending, err := outbox.FetchPending(ctx, pool, cfg.RelayBatchLimit)
		if err != nil {
			log.Printf("outbox fetch error: %v", err)
			cancel()
			continue
		}
		for _, rec := range pending {
			if err := kafkautil.PublishJSON(ctx, writer, rec.Key, rec.Payload); err != nil {
				log.Printf("outbox publish error: %v", err)
				break
			}
			if err := outbox.MarkSent(ctx, pool, rec.ID); err != nil {
				log.Printf("outbox mark-sent error: %v", err)
				break
			}
			logging.Log(logging.Fields{
				Service: "storefront", EventID: rec.EventID,
				Step: "outbox_relay", Status: "sent",
			})
		}
		cancel()
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
