// Command session-loadtest hammers a fake SkillUp backend with concurrent
// requests carrying an expired access token and reports how many refresh calls
// each round needed. A healthy client needs exactly one per round.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/testbackend"
	"github.com/MrEthical07/goSession/session"
)

const password = "loadtest-password"

func main() {
	var (
		rounds      = flag.Int("rounds", 20, "number of expire-and-burst rounds")
		concurrency = flag.Int("concurrency", 64, "concurrent requests per round")
		requests    = flag.Int("requests", 4, "requests per worker per round")
		path        = flag.String("path", "/courses", "protected API path")
	)
	flag.Parse()

	if *rounds <= 0 || *concurrency <= 0 || *requests <= 0 {
		fmt.Fprintln(os.Stderr, "rounds, concurrency, and requests must be > 0")
		os.Exit(2)
	}

	results, err := run(context.Background(), config{
		rounds:      *rounds,
		concurrency: *concurrency,
		requests:    *requests,
		path:        *path,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadtest failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	bad := 0
	for i, r := range results {
		printRound(i+1, r)
		if r.refreshCalls != 1 {
			bad++
		}
	}
	if bad > 0 {
		fmt.Fprintf(os.Stderr, "%d round(s) did not share a single refresh\n", bad)
		os.Exit(1)
	}
}

type config struct {
	rounds      int
	concurrency int
	requests    int
	path        string
}

type roundStats struct {
	refreshCalls int64
	total        time.Duration
	ops          int
	failures     int64
	p50          time.Duration
	p95          time.Duration
	p99          time.Duration
}

func run(ctx context.Context, cfg config) ([]roundStats, error) {
	backend := testbackend.New(testbackend.Options{})
	defer backend.Close()

	if err := backend.AddUser(session.Profile{
		Email:    "load@skillup.dev",
		Username: "load",
		Name:     session.Name{FirstName: "Load", LastName: "Test"},
		Role:     session.RoleLearner,
	}, password); err != nil {
		return nil, err
	}

	sessionCfg := goSession.DefaultConfig()
	sessionCfg.API.BaseURL = backend.URL()

	client, err := goSession.New().
		WithConfig(sessionCfg).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if _, err := client.Login(ctx, "load", password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	out := make([]roundStats, 0, cfg.rounds)
	for i := 0; i < cfg.rounds; i++ {
		before := backend.RefreshCalls()
		backend.ExpireAccessTokens()

		stats := runRound(ctx, client, cfg)
		stats.refreshCalls = backend.RefreshCalls() - before
		out = append(out, stats)
	}
	return out, nil
}

func runRound(ctx context.Context, client *goSession.Client, cfg config) roundStats {
	var (
		mu        sync.Mutex
		failures  int64
		latencies = make([]time.Duration, 0, cfg.concurrency*cfg.requests)
	)

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < cfg.concurrency; w++ {
		g.Go(func() error {
			for j := 0; j < cfg.requests; j++ {
				t0 := time.Now()
				_, err := client.Get(ctx, cfg.path, nil)
				d := time.Since(t0)

				mu.Lock()
				latencies = append(latencies, d)
				if err != nil {
					failures++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) roundStats {
	if len(samples) == 0 {
		return roundStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return roundStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
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

func printRound(n int, s roundStats) {
	fmt.Printf("round %d: refreshes=%d ops=%d failures=%d total=%s p50=%s p95=%s p99=%s\n",
		n,
		s.refreshCalls,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
