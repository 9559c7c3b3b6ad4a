// Command sessiond-loadtest drives concurrent login, validate and logout
// through a goSession Engine and reports latency percentiles per phase.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadtestPassword = "loadtest-password"

// seededDirectory accepts loadtestPassword for every seeded user without
// hashing, so the phases measure the session path only.
type seededDirectory struct {
	ids map[string]string
}

func newSeededDirectory(n int) *seededDirectory {
	d := &seededDirectory{ids: make(map[string]string, n)}
	for i := 0; i < n; i++ {
		d.ids[emailFor(i)] = fmt.Sprintf("user-%d", i)
	}
	return d
}

func (d *seededDirectory) Verify(_ context.Context, email, pw string) (bool, error) {
	_, ok := d.ids[email]
	return ok && pw == loadtestPassword, nil
}

func (d *seededDirectory) GetByEmail(_ context.Context, email string) (goSession.User, error) {
	id, ok := d.ids[email]
	if !ok {
		return goSession.User{}, goSession.ErrUserNotFound
	}
	return goSession.User{ID: id, Email: email}, nil
}

func (d *seededDirectory) Exists(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func emailFor(i int) string {
	return fmt.Sprintf("user-%d@loadtest.local", i)
}

type userState struct {
	mu    sync.Mutex
	token string
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per validate phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt:", "session key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
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

	cfg := goSession.DefaultConfig()
	cfg.Cookie.Secret = []byte("loadtest-secret-loadtest-secret-")
	cfg.Store.KeyPrefix = *prefix

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(newSeededDirectory(*users)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]userState, *users)

	loginStats := runLoginPhase(ctx, engine, states, *concurrency)
	validateStats := runValidatePhase(ctx, engine, states, *ops, *concurrency)
	reloginStats := runLoginPhase(ctx, engine, states, *concurrency)
	logoutStats := runLogoutPhase(ctx, engine, states, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("validate", validateStats)
	printStats("relogin", reloginStats)
	printStats("logout", logoutStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("sessions created=%d revoked=%d validate ok=%d failed=%d store unavailable=%d\n",
		snap.Counters[goSession.MetricSessionCreated],
		snap.Counters[goSession.MetricSessionRevoked],
		snap.Counters[goSession.MetricValidateSuccess],
		snap.Counters[goSession.MetricValidateFailure],
		snap.Counters[goSession.MetricStoreUnavailable],
	)
}

// runPhase hands out op indexes to concurrency workers until ops is reached.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
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
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runLoginPhase(ctx context.Context, engine *goSession.Engine, states []userState, concurrency int) phaseStats {
	return runPhase(len(states), concurrency, func(_ *rand.Rand, i int) error {
		res, err := engine.Login(ctx, emailFor(i), loadtestPassword)
		if err != nil {
			return err
		}
		states[i].mu.Lock()
		states[i].token = res.Cookie.Value
		states[i].mu.Unlock()
		return nil
	})
}

func runValidatePhase(ctx context.Context, engine *goSession.Engine, states []userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		token := state.token
		state.mu.Unlock()
		return engine.Validate(ctx, token).Err()
	})
}

func runLogoutPhase(ctx context.Context, engine *goSession.Engine, states []userState, concurrency int) phaseStats {
	return runPhase(len(states), concurrency, func(_ *rand.Rand, i int) error {
		states[i].mu.Lock()
		token := states[i].token
		states[i].token = ""
		states[i].mu.Unlock()
		if token == "" {
			return errors.New("no session to log out")
		}
		engine.Logout(ctx, token)
		return nil
	})
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
