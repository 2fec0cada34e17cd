// Package config loads vase configuration from TOML files and the
// environment.
//
// A configuration file looks like this; every key is optional:
//
//	[cache]
//	driver = "redis"      # file, memory, redis, mongo, s3, sqlite, postgres or none
//	dir = "/var/cache/vase"
//	ttl = "720h"
//	prefix = "prod:"
//
//	[redis]
//	addr = "localhost:6379"
//
//	[postgres]
//	dsn = "postgres://vase@db/vase?sslmode=disable"
//
//	[jobs]
//	threads = 4
//	retention = "24h"
//
//	[server]
//	addr = ":8080"
//	xml_only = false
//
//	[sources]
//	dir = "/data/vase/sources"
//
//	[limits]
//	max_document_bytes = 268435456
//
// [Load] starts from [Default], applies the file, then the VASE_*
// environment overrides, and finally calls [Config.Validate].
package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/vase/pkg/errors"
)

// Cache drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverS3       = "s3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

var drivers = map[string]bool{
	DriverFile: true, DriverMemory: true, DriverRedis: true,
	DriverMongo: true, DriverS3: true, DriverSQLite: true,
	DriverPostgres: true, DriverNone: true,
}

// Config is the complete vase configuration.
type Config struct {
	Cache    Cache    `toml:"cache"`
	Redis    Redis    `toml:"redis"`
	Mongo    Mongo    `toml:"mongo"`
	S3       S3       `toml:"s3"`
	SQLite   SQLite   `toml:"sqlite"`
	Postgres Postgres `toml:"postgres"`
	Jobs     Jobs     `toml:"jobs"`
	Server   Server   `toml:"server"`
	Sources  Sources  `toml:"sources"`
	Limits   Limits   `toml:"limits"`
}

// Cache selects and tunes the document cache.
type Cache struct {
	Driver   string   `toml:"driver"`
	Dir      string   `toml:"dir"`      // file driver; empty means the user cache dir
	TTL      Duration `toml:"ttl"`      // zero keeps documents forever
	Capacity uint64   `toml:"capacity"` // memory driver; zero is unbounded
	Prefix   string   `toml:"prefix"`   // prepended to every key
}

type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type S3 struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
}

// SQLite locates the database file of the sqlite driver. An empty path
// means documents.db in the user cache dir.
type SQLite struct {
	Path string `toml:"path"`
}

type Postgres struct {
	DSN string `toml:"dsn"`
}

// Jobs configures the recompute queue.
type Jobs struct {
	Threads int `toml:"threads"`
	// Retention keeps finished and failed jobs queryable for this long.
	Retention Duration `toml:"retention"`
}

// Server configures `vase serve`.
type Server struct {
	Addr string `toml:"addr"`
	// XMLOnly serves cached documents read-only: uploads and recompute
	// jobs are refused.
	XMLOnly bool `toml:"xml_only"`
}

// Sources locates producer input files (FASTA, PDB, CSV) for recompute
// jobs.
type Sources struct {
	Dir string `toml:"dir"`
}

type Limits struct {
	MaxDocumentBytes int64 `toml:"max_document_bytes"`
}

// Duration is a time.Duration read from a TOML string such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration: a file cache in the user
// cache directory, one worker per CPU and a server on :8080.
func Default() Config {
	return Config{
		Cache:  Cache{Driver: DriverFile},
		Mongo:  Mongo{Database: "vase", Collection: "documents"},
		S3:     S3{Region: "us-east-1"},
		Jobs:   Jobs{Threads: runtime.NumCPU(), Retention: Duration{24 * time.Hour}},
		Server: Server{Addr: ":8080"},
		Limits: Limits{MaxDocumentBytes: 256 << 20},
	}
}

// Load reads the TOML file at path on top of [Default]. An empty path skips
// the file. Unknown keys are rejected so that typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s not found", path).WithSubject(path)
			}
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path).WithSubject(path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", ")).
				WithSubject(keys[0])
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv applies VASE_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"VASE_CACHE_DRIVER": &c.Cache.Driver,
		"VASE_CACHE_DIR":    &c.Cache.Dir,
		"VASE_REDIS_ADDR":   &c.Redis.Addr,
		"VASE_MONGO_URI":    &c.Mongo.URI,
		"VASE_S3_BUCKET":    &c.S3.Bucket,
		"VASE_SQLITE_PATH":  &c.SQLite.Path,
		"VASE_POSTGRES_DSN": &c.Postgres.DSN,
		"VASE_SERVER_ADDR":  &c.Server.Addr,
		"VASE_SOURCES_DIR":  &c.Sources.Dir,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("VASE_JOBS_THREADS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "VASE_JOBS_THREADS must be an integer").WithSubject("VASE_JOBS_THREADS")
		}
		c.Jobs.Threads = n
	}
	return nil
}

// Validate checks that the selected driver has what it needs.
func (c Config) Validate() error {
	invalid := func(subject, format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...).WithSubject(subject)
	}

	if !drivers[c.Cache.Driver] {
		return invalid("cache.driver", "unknown cache driver %q", c.Cache.Driver)
	}
	if c.Cache.TTL.Duration < 0 {
		return invalid("cache.ttl", "cache ttl must not be negative")
	}
	switch c.Cache.Driver {
	case DriverRedis:
		if c.Redis.Addr == "" {
			return invalid("redis.addr", "redis driver requires redis.addr")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return invalid("mongo.uri", "mongo driver requires mongo.uri")
		}
	case DriverS3:
		if c.S3.Bucket == "" {
			return invalid("s3.bucket", "s3 driver requires s3.bucket")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return invalid("postgres.dsn", "postgres driver requires postgres.dsn")
		}
	}
	if c.Jobs.Threads < 1 {
		return invalid("jobs.threads", "jobs.threads must be at least 1, got %d", c.Jobs.Threads)
	}
	if c.Jobs.Retention.Duration < 0 {
		return invalid("jobs.retention", "jobs.retention must not be negative")
	}
	if c.Server.Addr == "" {
		return invalid("server.addr", "server.addr must not be empty")
	}
	if c.Limits.MaxDocumentBytes < 0 {
		return invalid("limits.max_document_bytes", "limits.max_document_bytes must not be negative")
	}
	return nil
}

// String renders c as TOML, for `vase serve --print-config`. The Redis
// and Postgres passwords are masked.
func (c Config) String() string {
	if c.Redis.Password != "" {
		c.Redis.Password = "********"
	}
	if u, err := url.Parse(c.Postgres.DSN); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "********")
			c.Postgres.DSN = u.String()
		}
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("# encode config: %v\n", err)
	}
	return b.String()
}
