package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/authgate"
	authotel "github.com/MrEthical07/authgate/metrics/export/otel"
)

var (
	ltServices    int
	ltConcurrency int
	ltOps         int
	ltRedisAddr   string
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure handshake and bearer verification throughput in-process",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ltServices <= 0 || ltConcurrency <= 0 || ltOps <= 0 {
			return fmt.Errorf("services, concurrency, and ops must be > 0")
		}
		ctx := cmd.Context()
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

		rdb, closeRedis, err := connectRedis(ltRedisAddr, logger)
		if err != nil {
			return err
		}
		defer closeRedis()

		cfg := authgate.DefaultConfig()
		cfg.Mechanisms.Challenge = true
		cfg.Metrics.Enabled = true
		cfg.Challenge.TokenSecret = []byte("loadtest-secret-loadtest-secret-0")
		names := make([]string, ltServices)
		for i := range names {
			names[i] = fmt.Sprintf("svc-%d", i)
			cfg.ServiceAccounts.Accounts = append(cfg.ServiceAccounts.Accounts, authgate.ServiceAccount{
				Name:   names[i],
				APIKey: fmt.Sprintf("secret-%d", i),
			})
		}

		gw, err := authgate.New().WithConfig(cfg).WithRedis(rdb).WithLogger(logger).Build()
		if err != nil {
			return err
		}
		defer gw.Close()

		var (
			tokensMu sync.Mutex
			tokens   []string
		)
		handshake := runPhase(ltOps, ltConcurrency, func(r *rand.Rand) error {
			idx := r.Intn(len(names))
			name := names[idx]
			challenge, err := gw.CreateChallenge(ctx, name)
			if err != nil {
				return err
			}
			tok, err := gw.CreateToken(ctx, name, authgate.ChallengeHash(cfg.ServiceAccounts.Accounts[idx].APIKey, challenge))
			if err != nil {
				return err
			}
			tokensMu.Lock()
			tokens = append(tokens, tok.AccessToken)
			tokensMu.Unlock()
			return nil
		})
		if len(tokens) == 0 {
			return fmt.Errorf("no tokens issued during handshake phase")
		}

		verify := runPhase(ltOps, ltConcurrency, func(r *rand.Rand) error {
			_, err := gw.VerifyBearer(ctx, tokens[r.Intn(len(tokens))])
			return err
		})

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "---- results ----")
		printStats(out, "handshake", handshake)
		printStats(out, "verify", verify)
		return printEvents(ctx, out, gw)
	},
}

type phaseStats struct {
	elapsed  time.Duration
	ops      int
	failures int
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

// runPhase feeds ops jobs to concurrency workers. Each worker keeps its own
// samples; they are merged once every worker has exited. Concurrent
// handshakes for one service can replace each other's challenge, and those
// count as failures.
func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	type result struct {
		samples  []time.Duration
		failures int
	}

	jobs := make(chan struct{}, concurrency)
	results := make(chan result, concurrency)
	start := time.Now()

	var wg sync.WaitGroup
	for w := range concurrency {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			var res result
			for range jobs {
				began := time.Now()
				if op(r) != nil {
					res.failures++
				}
				res.samples = append(res.samples, time.Since(began))
			}
			results <- res
		}(start.UnixNano() + int64(w)*7919)
	}

	for range ops {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	close(results)

	var (
		all      = make([]time.Duration, 0, ops)
		failures int
	)
	for res := range results {
		all = append(all, res.samples...)
		failures += res.failures
	}
	slices.Sort(all)
	return phaseStats{
		elapsed:  time.Since(start),
		ops:      len(all),
		failures: failures,
		p50:      percentile(all, 50),
		p95:      percentile(all, 95),
		p99:      percentile(all, 99),
	}
}

// percentile reads the nearest-rank sample from sorted.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted) - 1) * min(max(p, 0), 100) / 100
	return sorted[idx]
}

func printStats(w io.Writer, name string, s phaseStats) {
	rate := 0.0
	if s.elapsed > 0 {
		rate = float64(s.ops) / s.elapsed.Seconds()
	}
	fmt.Fprintf(w, "%s: ops=%d failures=%d elapsed=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures, s.elapsed.Round(time.Millisecond), rate,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}

// printEvents collects the gateway counters through an OTel manual reader and
// prints the non-zero ones.
func printEvents(ctx context.Context, w io.Writer, gw *authgate.Gateway) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

	exp, err := authotel.New(provider.Meter("authgate-loadtest"), gw)
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || m.Name != "authgate.events" {
				continue
			}
			for _, dp := range sum.DataPoints {
				if dp.Value == 0 {
					continue
				}
				event, _ := dp.Attributes.Value("event")
				lines = append(lines, fmt.Sprintf("event %s=%d", event.AsString(), dp.Value))
			}
		}
	}
	slices.Sort(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(loadtestCmd)
	loadtestCmd.Flags().IntVar(&ltServices, "services", 1000, "number of service accounts")
	loadtestCmd.Flags().IntVar(&ltConcurrency, "concurrency", 64, "number of concurrent workers")
	loadtestCmd.Flags().IntVar(&ltOps, "ops", 50000, "operations per phase")
	loadtestCmd.Flags().StringVar(&ltRedisAddr, "redis-addr", "", "redis address; if empty, miniredis is used")
}
