package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	accounts    int
	amount      string
	fund        string
	replayFrac  float64
)

// Metrics
var (
	totalRequests uint64
	created       uint64 // fresh commits (201)
	replayed      uint64 // idempotent replays (200)
	insufficient  uint64 // 409 insufficient_balance
	conflicts     uint64 // 409 concurrency_conflict
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&accounts, "accounts", 1000, "Number of benchmark accounts to provision")
	flag.StringVar(&amount, "amount", "1.00", "Amount per transaction")
	flag.StringVar(&fund, "fund", "1000.00", "Opening balance per benchmark account")
	flag.Float64Var(&replayFrac, "replay", 0.0, "Fraction of requests that resubmit an already-used idempotency key")
}

func main() {
	flag.Parse()

	log.Printf("Provisioning %d benchmark accounts...", accounts)
	if err := provisionAccounts(); err != nil {
		log.Fatalf("Provisioning failed: %v", err)
	}

	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(i, &wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func accountID(n int) string {
	return fmt.Sprintf("bench-%d", n)
}

// provisionAccounts creates the benchmark population through the API itself.
// Creation is insert-if-absent, so rerunning against a seeded database is
// harmless.
func provisionAccounts() error {
	client := &http.Client{Timeout: 10 * time.Second}
	for i := 0; i < accounts; i++ {
		payload := map[string]string{
			"account_id":      accountID(i),
			"initial_balance": fund,
		}
		body, _ := json.Marshal(payload)

		resp, err := client.Post(targetURL+"/api/v1/accounts", "application/json", bytes.NewBuffer(body))
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("create %s: unexpected status %d", accountID(i), resp.StatusCode)
		}
	}
	return nil
}

func worker(id int, wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	var recent []string
	seq := 0

	for time.Since(start) < duration {
		key := fmt.Sprintf("bench-%d-%d-%d", id, seq, time.Now().UnixNano())
		seq++

		// Optionally resubmit a key this worker already used, to measure
		// the replay path.
		if replayFrac > 0 && len(recent) > 0 && rand.Float64() < replayFrac {
			key = recent[rand.Intn(len(recent))]
		} else if len(recent) < 128 {
			recent = append(recent, key)
		}

		direction := "credit"
		if rand.Float32() < 0.5 {
			direction = "debit"
		}

		payload := map[string]string{
			"account_id": pickAccount(),
			"amount":     amount,
			"direction":  direction,
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/transactions", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case http.StatusCreated:
			atomic.AddUint64(&created, 1)
		case http.StatusOK:
			atomic.AddUint64(&replayed, 1)
		case http.StatusConflict:
			var e struct {
				Code string `json:"code"`
			}
			json.NewDecoder(resp.Body).Decode(&e)
			if e.Code == "insufficient_balance" {
				atomic.AddUint64(&insufficient, 1)
			} else {
				atomic.AddUint64(&conflicts, 1)
			}
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickAccount() string {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic hammers one account
		if rand.Float32() < 0.90 {
			return accountID(0)
		}
	}
	return accountID(rand.Intn(accounts))
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	fresh := atomic.LoadUint64(&created)
	replay := atomic.LoadUint64(&replayed)
	broke := atomic.LoadUint64(&insufficient)
	aborted := atomic.LoadUint64(&conflicts)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	var abortRate float64
	if total > 0 {
		abortRate = float64(aborted) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":             workload,
		"duration_sec":         d.Seconds(),
		"total_requests":       total,
		"throughput_tps":       tps,
		"committed":            fresh,
		"replayed":             replay,
		"insufficient_balance": broke,
		"conflicts":            aborted,
		"conflict_rate_pct":    abortRate,
		"errors":               fErr,
	}

	// Print JSON for downstream tooling to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
