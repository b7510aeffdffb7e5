package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/config"
	"github.com/IvanBrykalov/tiercache/metrics/prom"
	"github.com/IvanBrykalov/tiercache/store/memstore"
	"github.com/IvanBrykalov/tiercache/strategy"
)

var (
	capacity     int
	policyName   string
	wrapperName  string
	strategyName string
	level        int

	workers      int
	duration     time.Duration
	readPct      int
	keys         int
	zipfS        float64
	zipfV        float64
	seed         int64
	preload      int
	storeLatency time.Duration

	metricsAddr string
	pprofAddr   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the workload and print a summary",
	RunE:  runBench,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&capacity, "cap", 0, "cache capacity in entries (0 = from config)")
	f.StringVar(&policyName, "policy", "", "eviction policy: lru, lfu, fifo, 2q")
	f.StringVar(&wrapperName, "wrapper", "", "wrapper: none, readoptimized, striped, partitioned")
	f.StringVar(&strategyName, "strategy", "", "strategy: cache-aside, read-through, write-through, write-behind")
	f.IntVar(&level, "level", 0, "stripes or partitions (0 = auto)")

	f.IntVar(&workers, "workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	f.DurationVarP(&duration, "duration", "d", 10*time.Second, "benchmark duration")
	f.IntVar(&readPct, "reads", 80, "read percentage [0..100]")
	f.IntVar(&keys, "keys", 1_000_000, "keyspace size")
	f.Float64Var(&zipfS, "zipf-s", 1.1, "Zipf s > 1 (skew)")
	f.Float64Var(&zipfV, "zipf-v", 1.0, "Zipf v >= 1")
	f.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	f.IntVar(&preload, "preload", -1, "entries to preload into the cache (-1 = cap/2)")
	f.DurationVar(&storeLatency, "store-latency", 0, "simulated latency of each store load/save")

	f.StringVar(&metricsAddr, "http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	f.StringVar(&pprofAddr, "pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")

	rootCmd.AddCommand(runCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return cfg, err
		}
	}
	if capacity > 0 {
		cfg.Cache.Capacity = capacity
	}
	if policyName != "" {
		cfg.Cache.Policy = policyName
	}
	if wrapperName != "" {
		cfg.Wrapper.Kind = wrapperName
	}
	if strategyName != "" {
		cfg.Strategy.Kind = strategyName
	}
	if cmd.Flags().Changed("level") {
		cfg.Wrapper.Level = level
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	// The workload runs in-process against memstore.
	cfg.Store.Kind = config.StoreMemory
	return cfg, cfg.Validate()
}

func runBench(cmd *cobra.Command, args []string) error {
	if readPct < 0 || readPct > 100 {
		return fmt.Errorf("--reads must be within [0,100], got %d", readPct)
	}
	if keys < 1 || zipfS <= 1 || zipfV < 1 {
		return errors.New("--keys must be >= 1, --zipf-s > 1 and --zipf-v >= 1")
	}
	if workers < 1 {
		workers = 1
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	serve(log, "pprof", pprofAddr, http.DefaultServeMux)
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		serve(log, "metrics", metricsAddr, mux)
	}

	labels := prometheus.Labels{"policy": cfg.Cache.Policy, "strategy": cfg.Strategy.Kind}
	d := config.Deps[string, string]{
		Logger:          log,
		Metrics:         prom.New(nil, "tiercache", "bench", labels),
		StrategyMetrics: prom.NewStrategy(nil, "tiercache", "bench", labels),
	}

	tier, err := config.NewTier(cfg, d)
	if err != nil {
		return err
	}
	defer func() { _ = tier.Close() }()

	st := memstore.New[string, string]()
	for i := 0; i < keys; i++ {
		st.Seed(key(uint64(i)), "v"+strconv.Itoa(i))
	}
	if storeLatency > 0 {
		st.OnLoad(func(ctx context.Context, _ string) error { return sleep(ctx, storeLatency) })
		st.OnSave(func(ctx context.Context, _ string, _ string) error { return sleep(ctx, storeLatency) })
	}

	s, err := config.NewStrategy(cfg.Strategy, tier.Cache, st, d)
	if err != nil {
		return err
	}

	pl := preload
	if pl < 0 {
		pl = cfg.Cache.Capacity / 2
	}
	for i := 0; i < pl && i < keys; i++ {
		tier.Cache.Put(key(uint64(i)), "v"+strconv.Itoa(i))
	}

	res, err := drive(cmd.Context(), s)
	if err != nil {
		return err
	}

	if c, ok := s.(strategy.Closer); ok {
		if err := c.Close(cfg.Strategy.DrainTimeout); err != nil {
			log.Warn("strategy close", zap.Error(err))
		}
	}

	res.report(cmd.OutOrStdout(), cfg, tier.Cache, st)
	return nil
}

type result struct {
	elapsed                                  time.Duration
	total, reads, writes, hits, misses, errs uint64
}

// drive runs the workers until duration elapses.
func drive(parent context.Context, s strategy.Strategy[string, string]) (*result, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, duration)
	defer cancel()

	var total, reads, writes, hits, misses, errs atomic.Uint64
	keysMax := uint64(keys - 1)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// rand.Rand is not goroutine-safe; one per worker.
			r := rand.New(rand.NewSource(seed + int64(w)*9973))
			zipf := rand.NewZipf(r, zipfS, zipfV, keysMax)

			for gctx.Err() == nil {
				total.Add(1)
				k := key(zipf.Uint64())
				if int(r.Int31n(100)) < readPct {
					reads.Add(1)
					if _, ok := s.Read(gctx, k); ok {
						hits.Add(1)
					} else {
						misses.Add(1)
					}
					continue
				}
				writes.Add(1)
				if err := s.Write(gctx, k, "v"+strconv.Itoa(r.Int())); err != nil {
					if gctx.Err() != nil {
						return nil
					}
					errs.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &result{
		elapsed: time.Since(start),
		total:   total.Load(),
		reads:   reads.Load(),
		writes:  writes.Load(),
		hits:    hits.Load(),
		misses:  misses.Load(),
		errs:    errs.Load(),
	}, nil
}

func (r *result) report(w io.Writer, cfg config.Config, c cache.Cache[string, string], st *memstore.Store[string, string]) {
	hitRate := 0.0
	if r.reads > 0 {
		hitRate = float64(r.hits) / float64(r.reads) * 100
	}
	size, _ := cache.LenOf(c)

	fmt.Fprintf(w, "cache=%s policy=%s wrapper=%s strategy=%s cap=%d workers=%d keys=%d dur=%v seed=%d\n",
		cfg.Cache.Kind, cfg.Cache.Policy, cfg.Wrapper.Kind, cfg.Strategy.Kind,
		cfg.Cache.Capacity, workers, keys, r.elapsed, seed)
	fmt.Fprintf(w, "ops=%d (%.0f ops/s)  reads=%d  writes=%d  write-errors=%d\n",
		r.total, float64(r.total)/r.elapsed.Seconds(), r.reads, r.writes, r.errs)
	fmt.Fprintf(w, "hits=%d  misses=%d  hit-rate=%.2f%%\n", r.hits, r.misses, hitRate)
	fmt.Fprintf(w, "store loads=%d saves=%d  len=%d\n", st.Loads(), st.Saves(), size)
}

func key(i uint64) string { return "k:" + strconv.FormatUint(i, 10) }

func serve(log *zap.Logger, name, addr string, h http.Handler) {
	if addr == "" {
		return
	}
	go func() {
		log.Info("serving", zap.String("endpoint", name), zap.String("addr", addr))
		if err := http.ListenAndServe(addr, h); err != nil {
			log.Error("server stopped", zap.String("endpoint", name), zap.Error(err))
		}
	}()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
