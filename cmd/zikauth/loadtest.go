package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Fpierr/zikauth/internal"
	"github.com/Fpierr/zikauth/internal/stores"
	"github.com/Fpierr/zikauth/session"
)

var loadtestFlags struct {
	sessions    int
	concurrency int
	ops         int
	redisURL    string
}

type seeded struct {
	mu  sync.Mutex
	sid string
	jti string
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure session store latency for the authenticate and refresh paths",
	Long: `Seeds encrypted sessions, then runs two concurrent phases: "get" reads and
decrypts random sessions the way every authenticated request does, and "rotate"
blacklists a refresh id and replaces the session the way a refresh does.
Without --redis-url an in-process miniredis is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := loadtestFlags
		if f.sessions <= 0 || f.concurrency <= 0 || f.ops <= 0 {
			return fmt.Errorf("sessions, concurrency and ops must be > 0")
		}
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		var client redis.UniversalClient
		if f.redisURL == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return fmt.Errorf("start miniredis: %w", err)
			}
			defer mr.Close()
			client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
			fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
		} else {
			opts, err := redis.ParseURL(f.redisURL)
			if err != nil {
				return err
			}
			client = redis.NewClient(opts)
			fmt.Fprintf(out, "using redis at %s\n", opts.Addr)
		}
		defer client.Close()

		key, err := session.GenerateKey()
		if err != nil {
			return err
		}
		keys, err := session.ParseKeys(key)
		if err != nil {
			return err
		}
		keyring, err := session.NewKeyring(keys...)
		if err != nil {
			return err
		}
		store, err := session.NewStore(client, keyring, session.Config{Prefix: "zklt", TTL: time.Hour})
		if err != nil {
			return err
		}
		revocations := stores.NewRevocationStore(client, "zklt-rb", time.Second)

		states := make([]seeded, f.sessions)
		fmt.Fprintf(out, "seeding %d sessions...\n", f.sessions)
		startSeed := time.Now()
		for i := range states {
			jti, err := internal.NewTokenID()
			if err != nil {
				return err
			}
			sid, err := store.Create(ctx, fmt.Sprint(i), "csrf", jti)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			states[i].sid, states[i].jti = sid, jti
		}
		fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

		get := runPhase(f.ops, f.concurrency, len(states), func(idx int) error {
			st := &states[idx]
			st.mu.Lock()
			sid := st.sid
			st.mu.Unlock()
			_, err := store.Get(ctx, sid)
			return err
		})

		rotate := runPhase(f.ops, f.concurrency, len(states), func(idx int) error {
			st := &states[idx]
			st.mu.Lock()
			defer st.mu.Unlock()
			return rotateSession(ctx, store, revocations, idx, st)
		})

		fmt.Fprintln(out, "---- results ----")
		printStats(out, "get", get)
		printStats(out, "rotate", rotate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadtestCmd)
	loadtestCmd.Flags().IntVar(&loadtestFlags.sessions, "sessions", 10000, "number of sessions to seed")
	loadtestCmd.Flags().IntVar(&loadtestFlags.concurrency, "concurrency", 64, "number of concurrent workers")
	loadtestCmd.Flags().IntVar(&loadtestFlags.ops, "ops", 50000, "operations per phase")
	loadtestCmd.Flags().StringVar(&loadtestFlags.redisURL, "redis-url", "", "redis URL; empty starts miniredis")
}

func rotateSession(ctx context.Context, store *session.Store, revocations *stores.RevocationStore, idx int, st *seeded) error {
	won, err := revocations.Revoke(ctx, st.jti, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("refresh id %s already revoked", st.jti)
	}
	next, err := internal.NewTokenID()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, st.sid); err != nil {
		return err
	}
	sid, err := store.Create(ctx, fmt.Sprint(idx), "csrf", next)
	if err != nil {
		return err
	}
	st.sid, st.jti = sid, next
	return nil
}

// runPhase runs ops calls of op spread over concurrency workers, each call on a
// random state index.
func runPhase(ops, concurrency, states int, op func(idx int) error) phaseStats {
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
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r.Intn(states))
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
	return computeStats(time.Since(start), latencies, failures)
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
