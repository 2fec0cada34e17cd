package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/vase/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vase.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VASE_CACHE_DRIVER", "VASE_CACHE_DIR", "VASE_REDIS_ADDR", "VASE_MONGO_URI",
		"VASE_S3_BUCKET", "VASE_SQLITE_PATH", "VASE_POSTGRES_DSN", "VASE_SERVER_ADDR",
		"VASE_SOURCES_DIR", "VASE_JOBS_THREADS",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[cache]
driver = "redis"
ttl = "36h"
prefix = "staging:"

[redis]
addr = "redis:6379"
db = 2

[jobs]
threads = 3

[server]
addr = "127.0.0.1:9000"
xml_only = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Cache.Driver != DriverRedis || cfg.Cache.TTL.Duration != 36*time.Hour || cfg.Cache.Prefix != "staging:" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Jobs.Threads != 3 || !cfg.Server.XMLOnly || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("jobs/server = %+v %+v", cfg.Jobs, cfg.Server)
	}
	// Untouched sections keep their defaults.
	if cfg.Mongo.Collection != "documents" || cfg.Limits.MaxDocumentBytes != 256<<20 {
		t.Errorf("defaults lost: %+v %+v", cfg.Mongo, cfg.Limits)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
		subject string
	}{
		{"syntax", "[cache\n", errors.ErrCodeInvalidConfig, ""},
		{"unknown key", "[cache]\ndriverr = \"file\"\n", errors.ErrCodeInvalidConfig, "cache.driverr"},
		{"bad duration", "[cache]\nttl = \"soon\"\n", errors.ErrCodeInvalidConfig, ""},
		{"unknown driver", "[cache]\ndriver = \"memcached\"\n", errors.ErrCodeInvalidConfig, "cache.driver"},
		{"redis without addr", "[cache]\ndriver = \"redis\"\n", errors.ErrCodeInvalidConfig, "redis.addr"},
		{"mongo without uri", "[cache]\ndriver = \"mongo\"\n", errors.ErrCodeInvalidConfig, "mongo.uri"},
		{"s3 without bucket", "[cache]\ndriver = \"s3\"\n", errors.ErrCodeInvalidConfig, "s3.bucket"},
		{"postgres without dsn", "[cache]\ndriver = \"postgres\"\n", errors.ErrCodeInvalidConfig, "postgres.dsn"},
		{"zero threads", "[jobs]\nthreads = 0\n", errors.ErrCodeInvalidConfig, "jobs.threads"},
		{"negative retention", "[jobs]\nretention = \"-1h\"\n", errors.ErrCodeInvalidConfig, "jobs.retention"},
		{"negative limit", "[limits]\nmax_document_bytes = -5\n", errors.ErrCodeInvalidConfig, "limits.max_document_bytes"},
	}

	clearEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.code) {
				t.Fatalf("Load() error = %v, want %s", err, tt.code)
			}
			if tt.subject != "" && errors.GetSubject(err) != tt.subject {
				t.Errorf("subject = %q, want %q", errors.GetSubject(err), tt.subject)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("VASE_CACHE_DRIVER", "memory")
	t.Setenv("VASE_SERVER_ADDR", ":9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Cache.Driver != DriverMemory || cfg.Server.Addr != ":9999" {
		t.Errorf("environment not applied: %+v %+v", cfg.Cache, cfg.Server)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"VASE_CACHE_DIR":    "/tmp/vase",
		"VASE_S3_BUCKET":    "docs",
		"VASE_MONGO_URI":    "mongodb://db",
		"VASE_REDIS_ADDR":   "",
		"VASE_JOBS_THREADS": "7",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.Redis.Addr = "keep:6379"
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}
	if cfg.Cache.Dir != "/tmp/vase" || cfg.S3.Bucket != "docs" || cfg.Mongo.URI != "mongodb://db" || cfg.Jobs.Threads != 7 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Redis.Addr != "keep:6379" {
		t.Error("empty variables should not override")
	}

	env["VASE_JOBS_THREADS"] = "many"
	if err := cfg.ApplyEnv(lookup); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("ApplyEnv() error = %v, want INVALID_CONFIG", err)
	}
}

func TestString(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTL = Duration{90 * time.Minute}
	cfg.Redis.Password = "hunter2"
	cfg.Postgres.DSN = "postgres://vase:swordfish@db:5432/vase"

	out := cfg.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "swordfish") {
		t.Error("passwords should be masked")
	}
	if !strings.Contains(out, "vase:") || !strings.Contains(out, "@db:5432/vase") {
		t.Errorf("postgres dsn should keep user and host:\n%s", out)
	}
	if !strings.Contains(out, `ttl = "1h30m0s"`) {
		t.Errorf("ttl not rendered as duration string:\n%s", out)
	}
}
