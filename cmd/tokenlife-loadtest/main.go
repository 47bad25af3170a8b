package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/identity"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/password"
)

const tokenTTL = time.Minute

type pairState struct {
	user    string
	auth    string
	refresh string
	mu      sync.Mutex
}

// skewClock lets the harness expire every issued token at once.
type skewClock struct {
	offset atomic.Int64
}

func (c *skewClock) Now() time.Time {
	return time.Now().Add(time.Duration(c.offset.Load()))
}

func (c *skewClock) Advance(d time.Duration) {
	c.offset.Add(int64(d))
}

func main() {
	var (
		users       = flag.Int("users", 2000, "number of principals to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations in the resolve phase")
		contenders  = flag.Int("contenders", 4, "workers racing on the same refresh token")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "tl", "cache key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *contenders <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops, and contenders must be > 0")
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

	clock := &skewClock{}
	engine, ids, err := buildEngine(client, *prefix, clock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine init failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]pairState, *users)
	fmt.Printf("seeding %d principals...\n", *users)
	startSeed := time.Now()
	for i := range states {
		user := fmt.Sprintf("user-%d", i)
		if err := ids.Put(tokenlife.Principal{Username: user, Registered: true}, secretFor(user)); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		resp, err := engine.Login(ctx, user, secretFor(user))
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].user = user
		states[i].auth = resp.AuthToken
		states[i].refresh = resp.RefreshToken
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runResolvePhase(ctx, engine, states, *ops, *concurrency)

	clock.Advance(tokenTTL)
	refreshStats, winners := runRefreshPhase(ctx, engine, states, *contenders, *concurrency)

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("refresh", refreshStats)
	fmt.Printf("refresh winners: %d of %d pairs\n", winners, len(states))
	if winners != int64(len(states)) {
		fmt.Fprintln(os.Stderr, "refresh rotation produced an unexpected number of winners")
		os.Exit(1)
	}
}

func buildEngine(client redis.UniversalClient, prefix string, clock *skewClock) (*tokenlife.Engine, *identity.Memory, error) {
	codec, err := jwt.NewManager(jwt.Config{
		TTL:           tokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("loadtest-secret-key"),
		Issuer:        "tokenlife-loadtest",
		Now:           clock.Now,
	})
	if err != nil {
		return nil, nil, err
	}

	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		return nil, nil, err
	}
	ids := identity.NewMemory(hasher)

	cfg := tokenlife.DefaultConfig()
	cfg.Token.TTL = tokenTTL
	cfg.Cache.RedisPrefix = prefix
	cfg.Metrics.Enabled = true

	engine, err := tokenlife.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCodec(codec).
		WithIdentityResolver(ids).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, ids, nil
}

func runResolvePhase(ctx context.Context, engine *tokenlife.Engine, states []pairState, ops, concurrency int) phaseStats {
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
				idx := r.Intn(len(states))
				t0 := time.Now()
				_, err := engine.ResolvePrincipal(ctx, states[idx].auth)
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

// runRefreshPhase rotates every pair once with several workers racing on
// each refresh token. Exactly one contender per pair should win.
func runRefreshPhase(ctx context.Context, engine *tokenlife.Engine, states []pairState, contenders, concurrency int) (phaseStats, int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		winners   int64
		total     = len(states) * contenders
		latencies = make([]time.Duration, 0, total)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= total {
					return
				}
				state := &states[i%len(states)]

				state.mu.Lock()
				auth, refresh := state.auth, state.refresh
				state.mu.Unlock()

				t0 := time.Now()
				resp, err := engine.Refresh(ctx, auth, refresh, state.user)
				d := time.Since(t0)
				if err == nil {
					atomic.AddInt64(&winners, 1)
					state.mu.Lock()
					state.auth, state.refresh = resp.AuthToken, resp.RefreshToken
					state.mu.Unlock()
				} else {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	return computeStats(elapsed, latencies, failures), winners
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

func secretFor(user string) string {
	return user + "-loadtest"
}
