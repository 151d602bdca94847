// Command gosession-loadtest drives concurrent gateway traffic against an in-process
// backend and reports latency and refresh coalescing.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/internal/testbackend"
)

func main() {
	var (
		requests    = flag.Int("requests", 20000, "gateway requests per phase")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		revokeEvery = flag.Int("revoke-every", 500, "revoke issued access tokens every N requests in the rotating phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "credential key prefix")
	)
	flag.Parse()

	if *requests <= 0 || *concurrency <= 0 || *revokeEvery <= 0 {
		fmt.Fprintln(os.Stderr, "requests, concurrency, and revoke-every must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv, err := testbackend.New([]byte("loadtest-signing-key"), time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
	srv.AddUser("Load", "Test", "load@example.com", "L0adTest")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	transport := &http.Transport{MaxIdleConnsPerHost: *concurrency}
	c, err := goSession.New().
		WithBaseURL(ts.URL).
		WithStore(credstore.NewRedisStore(client, *prefix, 0)).
		WithHTTPClient(&http.Client{Transport: transport}).
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build controller: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	c.Bootstrap(ctx)
	if err := c.Login(ctx, "load@example.com", "L0adTest"); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	target := ts.URL + testbackend.PathUser
	gw := c.Gateway(nil)

	steady := runPhase(ctx, gw, target, *requests, *concurrency, nil)

	refreshesBefore := srv.RefreshCalls()
	var issued int64
	rotating := runPhase(ctx, gw, target, *requests, *concurrency, func(i int) {
		if i > 0 && i%*revokeEvery == 0 {
			atomic.AddInt64(&issued, 1)
			srv.RevokeAccess()
		}
	})
	refreshes := srv.RefreshCalls() - refreshesBefore

	fmt.Println("---- results ----")
	printStats("steady", steady)
	printStats("rotating", rotating)

	snap := c.MetricsSnapshot()
	fmt.Printf("revocations=%d backend_refreshes=%d gateway_401s=%d shared_refresh_joins=%d final_status=%s\n",
		atomic.LoadInt64(&issued),
		refreshes,
		snap.Counters[goSession.MetricGatewayUnauthorized],
		snap.Counters[goSession.MetricRefreshShared],
		c.Status(),
	)
}

func runPhase(ctx context.Context, gw *goSession.Gateway, target string, ops, concurrency int, before func(i int)) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				if before != nil {
					before(i)
				}

				t0 := time.Now()
				resp, err := gw.Request(ctx, http.MethodGet, target, nil)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
					if resp.StatusCode != http.StatusOK {
						atomic.AddInt64(&failures, 1)
					}
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
