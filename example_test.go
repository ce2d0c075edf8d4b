package herdcache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/vearutop/herdcache"
)

func ExampleNewCache() {
	// Create cache instance.
	c, err := herdcache.NewCache[[]int](herdcache.Config{
		Name:       "dogs",
		TimeToLive: 13 * time.Minute,
		TimeToIdle: 5 * time.Minute,
		Logger:     &ctxd.LoggerMock{},
		Stats:      &stats.TrackerMock{},

		// Least recently used entries are evicted beyond this limit.
		MaxCapacity: 1000,
	})
	if err != nil {
		panic(err)
	}
	defer c.Shutdown()

	// Use context if available.
	ctx := context.TODO()

	// Concurrent callers of the same key share a single computation.
	f := c.Apply(ctx, "my-key", func(ctx context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})

	// Read value or fall back to default after timeout.
	val := herdcache.AwaitOrElse(f, nil, time.Second)
	fmt.Printf("%v", val)

	// Output:
	// [1 2 3]
}

func ExampleNewRemoteCache() {
	c, err := herdcache.NewRemoteCache[string](herdcache.RemoteConfig{
		Config: herdcache.Config{
			Name:       "greetings",
			TimeToLive: time.Minute,
		},

		// Use NewRedisStore to share values between processes.
		Remote: herdcache.NewMemoryStore(time.Minute),

		// Serve previous value while a new one is computed.
		UseStale: true,
		StaleTTL: time.Hour,
	})
	if err != nil {
		panic(err)
	}
	defer c.Shutdown()

	ctx := context.TODO()

	val, err := c.Apply(ctx, "hello", func(ctx context.Context) (string, error) {
		return "Hello, World!", nil
	}).Wait(ctx)

	fmt.Println(val, err)

	// Output:
	// Hello, World! <nil>
}
