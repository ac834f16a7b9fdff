package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasvik/threadline-go/pkg/idempotency"
)

type result struct {
	BaseURL            string         `json:"base_url"`
	Requests           int            `json:"requests"`
	Concurrency        int            `json:"concurrency"`
	SuccessfulRequests int            `json:"successful_requests"`
	ErrorRequests      int            `json:"error_requests"`
	DurationSeconds    float64        `json:"duration_seconds"`
	AvgLatencyMs       float64        `json:"avg_latency_ms"`
	P50LatencyMs       float64        `json:"p50_latency_ms"`
	P90LatencyMs       float64        `json:"p90_latency_ms"`
	P95LatencyMs       float64        `json:"p95_latency_ms"`
	P99LatencyMs       float64        `json:"p99_latency_ms"`
	ThroughputRPS      float64        `json:"throughput_rps"`
	StatusCounts       map[string]int `json:"status_counts"`
	FirstError         string         `json:"first_error"`
}

func main() {
	var (
		baseURL     = flag.String("base-url", "http://localhost:8080", "storefront base URL")
		requests    = flag.Int("n", 100, "number of checkout requests")
		concurrency = flag.Int("c", 10, "concurrent workers")
		productID   = flag.String("product-id", "", "product to order (required)")
		userID      = flag.String("user-id", "bench-user", "user id header value")
		size        = flag.String("size", "M", "size to order")
	)
	flag.Parse()

	if *productID == "" {
		fmt.Fprintln(os.Stderr, "-product-id is required")
		os.Exit(2)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	var (
		mu        sync.Mutex
		latencies []time.Duration
		statuses  = map[string]int{}
		okCount   int
		errCount  int
		firstErr  string
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				t0 := time.Now()
				status, err := doCheckout(client, *baseURL, *userID, *productID, *size)
				elapsed := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, elapsed)
				statuses[status]++
				if err != nil {
					errCount++
					if firstErr == "" {
						firstErr = err.Error()
					}
				} else {
					okCount++
				}
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	total := time.Since(start)

	res := result{
		BaseURL:            *baseURL,
		Requests:           *requests,
		Concurrency:        *concurrency,
		SuccessfulRequests: okCount,
		ErrorRequests:      errCount,
		DurationSeconds:    total.Seconds(),
		AvgLatencyMs:       avgMS(latencies),
		P50LatencyMs:       percentileMS(latencies, 50),
		P90LatencyMs:       percentileMS(latencies, 90),
		P95LatencyMs:       percentileMS(latencies, 95),
		P99LatencyMs:       percentileMS(latencies, 99),
		ThroughputRPS:      float64(len(latencies)) / total.Seconds(),
		StatusCounts:       statuses,
		FirstError:         firstErr,
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}

func doCheckout(client *http.Client, baseURL, userID, productID, size string) (string, error) {
	payload := map[string]any{
		"items": []map[string]any{{
			"product_id": productID,
			"name":       "bench item",
			"size":       size,
			"quantity":   1,
			"unit_price": 100,
			"image":      "",
		}},
		"total_price": 100,
		"shipping_address": map[string]any{
			"address": "1 Bench Street", "city": "Loadtown",
			"postal_code": "00000", "country": "Nowhere",
		},
	}
	data, _ := json.Marshal(payload)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/api/orders", bytes.NewReader(data))
	if err != nil {
		return "error", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	req.Header.Set(idempotency.Header, uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return "error", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	status := fmt.Sprintf("%d", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return status, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return status, nil
}

func avgMS(latencies []time.Duration) float64 {
	if len(latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return float64(sum.Milliseconds()) / float64(len(latencies))
}

func percentileMS(latencies []time.Duration, p int) float64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (p*len(sorted) + 99) / 100
	if idx > 0 {
		idx--
	}
	return float64(sorted[idx].Milliseconds())
}
