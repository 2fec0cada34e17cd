package cache

import (
	"context"
	"time"

	"github.com/matzehuels/vase/pkg/config"
	"github.com/matzehuels/vase/pkg/errors"
	"github.com/matzehuels/vase/pkg/observability"
)

// Open creates the cache selected by cfg.Cache.Driver. The result reports
// hits, misses and writes to the registered observability cache hooks.
func Open(ctx context.Context, cfg config.Config) (Cache, error) {
	var (
		c   Cache
		err error
	)
	driver := cfg.Cache.Driver
	switch driver {
	case config.DriverFile:
		if cfg.Cache.Dir == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "file cache requires cache.dir").WithSubject("cache.dir")
		}
		c, err = NewFileCache(cfg.Cache.Dir)
	case config.DriverMemory:
		c = NewMemoryCache(cfg.Cache.Capacity)
	case config.DriverRedis:
		c, err = NewRedisCache(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.DriverMongo:
		c, err = NewMongoCache(ctx, MongoOptions{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	case config.DriverS3:
		c, err = NewS3Cache(ctx, S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case config.DriverSQLite:
		if cfg.SQLite.Path == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "sqlite cache requires sqlite.path").WithSubject("sqlite.path")
		}
		c, err = NewSQLiteCache(ctx, cfg.SQLite.Path)
	case config.DriverPostgres:
		c, err = NewPostgresCache(ctx, cfg.Postgres.DSN)
	case config.DriverNone:
		c = NewNullCache()
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache driver %q", driver).WithSubject("cache.driver")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s cache", driver)
	}
	return Instrument(c, driver), nil
}

// NewKeyer returns the keyer for cfg: the default keyer, scoped by
// cfg.Cache.Prefix when one is set.
func NewKeyer(cfg config.Config) Keyer {
	if cfg.Cache.Prefix == "" {
		return NewDefaultKeyer()
	}
	return NewScopedKeyer(NewDefaultKeyer(), cfg.Cache.Prefix)
}

// instrumented reports cache traffic to observability hooks.
type instrumented struct {
	Cache
	driver string
}

// Instrument wraps c so that its traffic is reported to the observability
// cache hooks under the given driver name.
func Instrument(c Cache, driver string) Cache {
	return &instrumented{Cache: c, driver: driver}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, c.driver)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.driver)
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.driver, len(data))
	return nil
}
