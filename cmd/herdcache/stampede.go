package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/spf13/cobra"
	"github.com/vearutop/herdcache"
	"golang.org/x/sync/errgroup"
)

type stampedeOptions struct {
	config  string
	redis   string
	callers int
	keys    int
	rounds  int
	delay   time.Duration
	pause   time.Duration
}

func stampedeCmd(verbose *bool) *cobra.Command {
	opts := stampedeOptions{}

	cmd := &cobra.Command{
		Use:   "stampede",
		Short: "Run concurrent callers over a few keys and report computations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStampede(cmd.Context(), cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), *verbose), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.config, "config", "", "YAML cache config file")
	f.StringVar(&opts.redis, "redis", "", "redis URL, overrides redis_url of config, in-process store is used if empty")
	f.IntVar(&opts.callers, "callers", 100, "concurrent callers per round")
	f.IntVar(&opts.keys, "keys", 3, "number of distinct keys")
	f.IntVar(&opts.rounds, "rounds", 3, "number of rounds")
	f.DurationVar(&opts.delay, "delay", 100*time.Millisecond, "duration of a single computation")
	f.DurationVar(&opts.pause, "pause", 0, "pause between rounds, time to live of config by default")

	return cmd
}

func loadConfig(opts stampedeOptions) (herdcache.RemoteConfig, string, error) {
	fc := herdcache.FileConfig{
		Name:       "stampede",
		TimeToLive: "1s",
		UseStale:   true,
	}

	if opts.config != "" {
		var err error

		if fc, err = herdcache.LoadFileConfig(opts.config); err != nil {
			return herdcache.RemoteConfig{}, "", err
		}
	}

	rc, err := fc.RemoteConfig()
	if err != nil {
		return rc, "", err
	}

	redisURL := fc.RedisURL
	if opts.redis != "" {
		redisURL = opts.redis
	}

	return rc, redisURL, nil
}

func runStampede(ctx context.Context, out io.Writer, logger ctxd.Logger, opts stampedeOptions) error {
	if opts.callers < 1 || opts.keys < 1 || opts.rounds < 1 {
		return fmt.Errorf("%w: callers, keys and rounds must be positive", herdcache.ErrInvalidConfig)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rc, redisURL, err := loadConfig(opts)
	if err != nil {
		return err
	}

	st := &stats.TrackerMock{}
	rc.Logger = logger
	rc.Stats = st

	if redisURL != "" {
		rs, rerr := herdcache.NewRedisStoreFromURL(redisURL, herdcache.RedisConfig{Name: rc.Name, Logger: logger})
		if rerr != nil {
			return fmt.Errorf("%w: redis url: %v", herdcache.ErrInvalidConfig, rerr) //nolint:errorlint
		}

		rc.Remote = rs
	} else {
		rc.Remote = herdcache.NewMemoryStore(time.Minute)
	}

	c, err := herdcache.NewRemoteCache[string](rc)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	pause := opts.pause
	if pause == 0 {
		pause = rc.TimeToLive
	}

	var computations int64

	for r := 0; r < opts.rounds; r++ {
		if r > 0 {
			time.Sleep(pause)
		}

		start := time.Now()
		rctx := ctxd.AddFields(ctx, "round", r)

		values, err := stampedeRound(rctx, c, opts, r, &computations)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "round %d: %d callers, %d distinct values, %s\n",
			r, opts.callers, len(values), time.Since(start).Round(time.Millisecond))
	}

	fmt.Fprintf(out, "computations: %d\n", atomic.LoadInt64(&computations))

	printStats(out, st.Values())

	return nil
}

func stampedeRound(
	ctx context.Context,
	c *herdcache.RemoteCache[string],
	opts stampedeOptions,
	round int,
	computations *int64,
) (map[string]int, error) {
	results := make([]string, opts.callers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < opts.callers; i++ {
		key := "key" + strconv.Itoa(i%opts.keys)

		g.Go(func() error {
			f := c.Apply(gctx, key, func(ctx context.Context) (string, error) {
				atomic.AddInt64(computations, 1)
				time.Sleep(opts.delay)

				return key + "@" + strconv.Itoa(round), nil
			})

			v, err := f.Wait(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}

			results[i] = v

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := make(map[string]int)
	for _, v := range results {
		values[v]++
	}

	return values, nil
}

func printStats(out io.Writer, values map[string]float64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(out, "%s: %v\n", name, values[name])
	}
}
