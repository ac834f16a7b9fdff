package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/internal/store"
	"github.com/tomasvik/threadline-go/pkg/contracts"
	kafkautil "github.com/tomasvik/threadline-go/pkg/kafka"
	"github.com/tomasvik/threadline-go/pkg/logging"
	"github.com/tomasvik/threadline-go/pkg/metrics"
)

type cfg struct {
	Port         string
	DatabaseURL  string
	KafkaBrokers string
	Topic        string
	GroupID      string
	SMTPAddr     string
	SMTPFrom     string
	SMTPUser     string
	SMTPPass     string
}

func readCfg() (cfg, error) {
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if db == "" {
		return cfg{}, errors.New("DATABASE_URL is required")
	}
	return cfg{
		Port:         getenv("PORT", "8081"),
		DatabaseURL:  db,
		KafkaBrokers: getenv("KAFKA_BROKERS", ""),
		Topic:        getenv("KAFKA_TOPIC", contracts.DefaultTopic),
		GroupID:      getenv("KAFKA_GROUP_ID", "threadline-notifier"),
		SMTPAddr:     getenv("SMTP_ADDR", ""),
		SMTPFrom:     getenv("SMTP_FROM", "orders@threadline.example"),
		SMTPUser:     getenv("SMTP_USER", ""),
		SMTPPass:     getenv("SMTP_PASS", ""),
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

	srvMetrics := metrics.NewServerMetrics("notifier")

	kafkaClient := kafkautil.NewClient(cfg.KafkaBrokers)
	if kafkaClient.Enabled() {
		go consumeEvents(pool, kafkaClient, cfg)
	} else {
		log.Printf("KAFKA_BROKERS not set, consuming disabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if err := pool.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error"})
			srvMetrics.Requests.WithLabelValues("health", "503").Inc()
			srvMetrics.LatencyMS.WithLabelValues("health").Observe(float64(time.Since(start).Milliseconds()))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		srvMetrics.Requests.WithLabelValues("health", "200").Inc()
		srvMetrics.LatencyMS.WithLabelValues("health").Observe(float64(time.Since(start).Milliseconds()))
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("notifier listening on :%s", cfg.Port)
	log.Fatal(srv.ListenAndServe())
}

func consumeEvents(pool *pgxpool.Pool, client *kafkautil.Client, cfg cfg) {
	reader := client.NewReader(cfg.Topic, cfg.GroupID)
	defer reader.Close()
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("kafka read error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		var evt contracts.Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Printf("event decode error: %v", err)
			continue
		}
		if evt.EventID == "" {
			continue
		}
		fresh, err := saveNotification(context.Background(), pool, evt)
		if err != nil {
			log.Printf("notification save error: %v", err)
			continue
		}
		if fresh && evt.Type == contracts.EventOrderCreated {
			sendOrderEmail(cfg, evt)
		}
		logging.Log(logging.Fields{
			Service: "notifier", OrderID: evt.OrderID, UserID: evt.UserID,
			EventID: evt.EventID, Step: evt.Type, Status: "emitted",
		})
	}
}

// saveNotification records the event, deduplicating on event id. Returns
// whether the event was seen for the first time.
func saveNotification(ctx context.Context, pool *pgxpool.Pool, evt contracts.Event) (bool, error) {
	tag, err := pool.Exec(ctx, `INSERT INTO inbox(event_id, received_at)
		VALUES ($1, now()) ON CONFLICT (event_id) DO NOTHING`, evt.EventID)
	if err != nil {
		return false, err
	}
	fresh := tag.RowsAffected() == 1

	data, _ := json.Marshal(evt.Payload)
	_, err = pool.Exec(ctx, `INSERT INTO notifications(event_id, order_id, user_id, type, payload)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (event_id) DO NOTHING`,
		evt.EventID, evt.OrderID, evt.UserID, evt.Type, string(data))
	return fresh, err
}

// sendOrderEmail delivers the confirmation when SMTP is configured. Delivery
// is best-effort: failures are logged and the event stays recorded.
func sendOrderEmail(cfg cfg, evt contracts.Event) {
	if cfg.SMTPAddr == "" {
		return
	}

	email, _ := evt.Payload["user_email"].(string)
	name, _ := evt.Payload["user_name"].(string)
	if email == "" {
		return
	}

	var order domain.Order
	if raw, err := json.Marshal(evt.Payload["order"]); err == nil {
		_ = json.Unmarshal(raw, &order)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", cfg.SMTPFrom)
	fmt.Fprintf(&body, "To: %s\r\n", email)
	fmt.Fprintf(&body, "Subject: Order Confirmation - #%s\r\n\r\n", evt.OrderID)
	fmt.Fprintf(&body, "Thank you for your order, %s!\r\n\r\n", name)
	for _, line := range order.Lines {
		fmt.Fprintf(&body, "  %s (size %s) x%d - %d\r\n", line.Name, line.Size, line.Quantity, line.UnitPrice*int64(line.Quantity))
	}
	fmt.Fprintf(&body, "\r\nTotal: %d\r\nStatus: %s\r\n", order.TotalPrice, order.Status)

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		host := cfg.SMTPAddr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, host)
	}
	if err := smtp.SendMail(cfg.SMTPAddr, auth, cfg.SMTPFrom, []string{email}, []byte(body.String())); err != nil {
		log.Printf("email send error for order %s: %v", evt.OrderID, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
