package database

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	c "github.com/life-stream-dev/mqtt-cluster-store/internal/config"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/errs"
	event2 "github.com/life-stream-dev/mqtt-cluster-store/internal/event"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/logger"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/utils"
	"github.com/redis/go-redis/v9"
)

// redisClient adapts go-redis's synchronous API to the Client contract
// by running every call in its own goroutine via database.Go, which is
// what makes it non-blocking from the caller's point of view without
// needing Lettuce-style native async support.
type redisClient struct {
	rdb *redis.Client
}

// Connect opens a connection to the shared KVS per config.Config.KVS,
// mirroring the teacher's ConnectDatabase: pool sizing, TLS, timeouts,
// and a pool-event log hook, registered with the Cleaner for graceful
// shutdown.
func Connect(cfg c.Config) (Client, error) {
	logger.DebugF("Connecting to KVS at %s...", cfg.KVS.Addr)

	opts := &redis.Options{
		Addr:            cfg.KVS.Addr,
		Username:        cfg.KVS.Username,
		Password:        cfg.KVS.Password,
		DB:              cfg.KVS.DB,
		PoolSize:        cfg.KVS.PoolSize,
		MinIdleConns:    cfg.KVS.MinIdleConns,
		ConnMaxIdleTime: utils.ParseStringTime(cfg.KVS.ConnMaxIdleTime),
		DialTimeout:     utils.ParseStringTime(cfg.KVS.DialTimeout),
		ReadTimeout:     utils.ParseStringTime(cfg.KVS.ReadTimeout),
		WriteTimeout:    utils.ParseStringTime(cfg.KVS.WriteTimeout),
	}
	if cfg.KVS.UseTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(&poolLogHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 15_000_000_000)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("error occurred while pinging KVS: %w", err)
	}

	cl := &redisClient{rdb: rdb}
	event2.NewCleaner().Add(&closeCallback{client: cl})
	return cl, nil
}

type closeCallback struct{ client *redisClient }

func (cc *closeCallback) Invoke(ctx context.Context) error {
	logger.InfoF("Closing KVS connection")
	return cc.client.Close()
}

// poolLogHook logs connection churn the way the teacher's Mongo
// PoolMonitor did, adapted to go-redis's hook interface.
type poolLogHook struct{}

func (h *poolLogHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			logger.DebugF("KVS connection dial failed: %v", err)
		} else {
			logger.DebugF("KVS connection created: %s", addr)
		}
		return conn, err
	}
}

func (h *poolLogHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h *poolLogHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (c *redisClient) Close() error {
	return c.rdb.Close()
}

func (c *redisClient) Get(ctx context.Context, key string) *Future[Optional[string]] {
	return Go(func() (Optional[string], error) {
		v, err := c.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return None[string](), nil
		}
		if err != nil {
			return None[string](), errs.Transport("Get", err)
		}
		return Some(v), nil
	})
}

func (c *redisClient) Set(ctx context.Context, key, value string) *Future[struct{}] {
	return Go(func() (struct{}, error) {
		err := c.rdb.Set(ctx, key, value, 0).Err()
		return struct{}{}, errs.Transport("Set", err)
	})
}

func (c *redisClient) Del(ctx context.Context, key string) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.Del(ctx, key).Result()
		return n, errs.Transport("Del", err)
	})
}

func (c *redisClient) SAdd(ctx context.Context, key, member string) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.SAdd(ctx, key, member).Result()
		return n, errs.Transport("SAdd", err)
	})
}

func (c *redisClient) SRem(ctx context.Context, key, member string) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.SRem(ctx, key, member).Result()
		return n, errs.Transport("SRem", err)
	})
}

func (c *redisClient) SScan(ctx context.Context, key string, cursor uint64, count int64) *Future[ScanPage] {
	return Go(func() (ScanPage, error) {
		members, next, err := c.rdb.SScan(ctx, key, cursor, "", count).Result()
		if err != nil {
			return ScanPage{}, errs.Transport("SScan", err)
		}
		return ScanPage{Members: members, Cursor: next}, nil
	})
}

func (c *redisClient) HGet(ctx context.Context, key, field string) *Future[Optional[string]] {
	return Go(func() (Optional[string], error) {
		v, err := c.rdb.HGet(ctx, key, field).Result()
		if errors.Is(err, redis.Nil) {
			return None[string](), nil
		}
		if err != nil {
			return None[string](), errs.Transport("HGet", err)
		}
		return Some(v), nil
	})
}

func (c *redisClient) HSet(ctx context.Context, key, field, value string) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.HSet(ctx, key, field, value).Result()
		return n, errs.Transport("HSet", err)
	})
}

func (c *redisClient) HSetMap(ctx context.Context, key string, values map[string]string) *Future[struct{}] {
	return Go(func() (struct{}, error) {
		if len(values) == 0 {
			return struct{}{}, nil
		}
		fields := make(map[string]any, len(values))
		for k, v := range values {
			fields[k] = v
		}
		err := c.rdb.HSet(ctx, key, fields).Err()
		return struct{}{}, errs.Transport("HSetMap", err)
	})
}

func (c *redisClient) HDel(ctx context.Context, key, field string) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.HDel(ctx, key, field).Result()
		return n, errs.Transport("HDel", err)
	})
}

func (c *redisClient) HGetAll(ctx context.Context, key string) *Future[map[string]string] {
	return Go(func() (map[string]string, error) {
		m, err := c.rdb.HGetAll(ctx, key).Result()
		return m, errs.Transport("HGetAll", err)
	})
}

func (c *redisClient) HMGet(ctx context.Context, key string, fields ...string) *Future[[]Optional[string]] {
	return Go(func() ([]Optional[string], error) {
		vals, err := c.rdb.HMGet(ctx, key, fields...).Result()
		if err != nil {
			return nil, errs.Transport("HMGet", err)
		}
		out := make([]Optional[string], len(vals))
		for i, v := range vals {
			if v == nil {
				out[i] = None[string]()
				continue
			}
			s, _ := v.(string)
			out[i] = Some(s)
		}
		return out, nil
	})
}

func (c *redisClient) HIncrBy(ctx context.Context, key, field string, delta int64) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.HIncrBy(ctx, key, field, delta).Result()
		return n, errs.Transport("HIncrBy", err)
	})
}

func (c *redisClient) RPush(ctx context.Context, key, value string) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.RPush(ctx, key, value).Result()
		return n, errs.Transport("RPush", err)
	})
}

func (c *redisClient) LPop(ctx context.Context, key string) *Future[Optional[string]] {
	return Go(func() (Optional[string], error) {
		v, err := c.rdb.LPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return None[string](), nil
		}
		if err != nil {
			return None[string](), errs.Transport("LPop", err)
		}
		return Some(v), nil
	})
}

func (c *redisClient) LRange(ctx context.Context, key string, start, stop int64) *Future[[]string] {
	return Go(func() ([]string, error) {
		vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
		return vals, errs.Transport("LRange", err)
	})
}

func (c *redisClient) LRem(ctx context.Context, key string, count int64, value string) *Future[int64] {
	return Go(func() (int64, error) {
		n, err := c.rdb.LRem(ctx, key, count, value).Result()
		return n, errs.Transport("LRem", err)
	})
}

func (c *redisClient) CheckDel(ctx context.Context, key, expected string) *Future[int64] {
	return Go(func() (int64, error) {
		v, err := checkDelScript.Run(ctx, c.rdb, []string{key}, expected).Result()
		if err != nil {
			return 0, errs.Transport("CheckDel", err)
		}
		n, _ := v.(int64)
		return n, nil
	})
}

func (c *redisClient) IncrLimit(ctx context.Context, key string, limit int64) *Future[int64] {
	return Go(func() (int64, error) {
		v, err := incrLimitScript.Run(ctx, c.rdb, []string{key}, limit).Result()
		if err != nil {
			return 0, errs.Transport("IncrLimit", err)
		}
		n, _ := v.(int64)
		return n, nil
	})
}
