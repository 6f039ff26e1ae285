package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 10000, "number of long-lived tokens to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "token validations to run")
		codes       = flag.Int("codes", 2000, "reset codes to race on")
		racers      = flag.Int("racers", 8, "concurrent consumers per reset code")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gocred-load", "store key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 || *codes <= 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, ops, codes, and racers must be > 0")
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

	cfg := goCred.DefaultConfig()
	cfg.Storage.RedisPrefix = *prefix
	cfg.Storage.LimiterPrefix = *prefix + ":rl"
	cfg.PasswordReset.Limit.MaxAttempts = 0

	users := goCred.NewStaticUserProvider(goCred.UserRecord{UserID: "load-user", Email: "load@example.com"})
	engine, err := goCred.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(users).
		WithLogger(logging.New(logging.WithLevel(slog.LevelWarn), logging.WithFormat(logging.FormatText), logging.WithOutput(os.Stderr))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	secrets := make([]string, *tokens)
	fmt.Printf("seeding %d tokens...\n", *tokens)
	startSeed := time.Now()
	for i := range secrets {
		issued, err := engine.CreateToken(ctx, "load-user", fmt.Sprintf("load-%d", i), "", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create token failed: %v\n", err)
			os.Exit(1)
		}
		secrets[i] = issued.Secret
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runValidatePhase(ctx, engine, secrets, *ops, *concurrency)
	consumeStats, doubleSpends := runConsumeRace(ctx, engine, *codes, *racers, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("consume", consumeStats)
	fmt.Printf("double-spends: %d\n", doubleSpends)
	if doubleSpends > 0 {
		os.Exit(1)
	}
}

func runValidatePhase(ctx context.Context, engine *goCred.Engine, secrets []string, ops, concurrency int) phaseStats {
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
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				v, err := engine.ValidateToken(ctx, secrets[r.Intn(len(secrets))])
				d := time.Since(t0)
				if err != nil || !v.Valid {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runConsumeRace issues codes and lets racers consume each one at once.
// Exactly one consumer per code may win; any extra winner is a double-spend.
func runConsumeRace(ctx context.Context, engine *goCred.Engine, codes, racers, concurrency int) (phaseStats, int64) {
	plaintexts := make([]string, codes)
	for i := range plaintexts {
		issued, err := engine.RequestPasswordReset(ctx, "load-user", goCred.WithoutDelivery())
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue reset code failed: %v\n", err)
			os.Exit(1)
		}
		plaintexts[i] = issued.Secret
	}

	var (
		cursor       int64
		failures     int64
		doubleSpends int64
		latencies    = make([]time.Duration, 0, codes*racers)
		mu           sync.Mutex
		workers      sync.WaitGroup
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= codes {
					return
				}

				var (
					wins int64
					race sync.WaitGroup
					gate = make(chan struct{})
				)
				for r := 0; r < racers; r++ {
					race.Add(1)
					go func() {
						defer race.Done()
						<-gate
						t0 := time.Now()
						_, err := engine.ConsumePasswordReset(ctx, plaintexts[i])
						d := time.Since(t0)
						switch {
						case err == nil:
							atomic.AddInt64(&wins, 1)
						case !errors.Is(err, goCred.ErrInvalidCredential):
							atomic.AddInt64(&failures, 1)
						}
						mu.Lock()
						latencies = append(latencies, d)
						mu.Unlock()
					}()
				}
				close(gate)
				race.Wait()

				if wins > 1 {
					atomic.AddInt64(&doubleSpends, wins-1)
				}
				if wins == 0 {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}
	workers.Wait()
	return computeStats(time.Since(start), latencies, failures), doubleSpends
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
		return phaseStats{total: total, failures: failures}
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
