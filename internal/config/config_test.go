package config

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const prodSecret = "0123456789abcdef0123456789abcdef"

func testHash(t *testing.T) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(h)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("HOSTEL_TIMEZONE", "UTC")
	t.Setenv("STORE_DRIVER", "")

	cfg := Load()
	if cfg.StoreDriver != StoreMemory {
		t.Fatalf("expected memory store, got %q", cfg.StoreDriver)
	}
	if cfg.HoldTTL != 10*time.Minute || cfg.SweepInterval != 30*time.Second {
		t.Fatalf("unexpected hold timings %s / %s", cfg.HoldTTL, cfg.SweepInterval)
	}
	if cfg.BasePriceCents != 6000 || cfg.LargeGroupThreshold != 15 || cfg.AdvertisedBeds != 45 {
		t.Fatalf("unexpected pricing defaults %+v", cfg)
	}
	if cfg.FlexibleRoomWindow != 48*time.Hour {
		t.Fatalf("unexpected flexible window %s", cfg.FlexibleRoomWindow)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected UTC, got %v", cfg.Location)
	}
	if cfg.IsProd() {
		t.Fatalf("dev is not prod")
	}
}

func TestLoad_SweepIntervalClampedBelowTTL(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", prodSecret)
	t.Setenv("ADMIN_PASSWORD_HASH", testHash(t))
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("HOSTEL_TIMEZONE", "UTC")
	t.Setenv("HOLD_TTL", "2m")
	t.Setenv("SWEEP_INTERVAL", "5m")

	cfg := Load()
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("expected sweep interval clamped to 1m, got %s", cfg.SweepInterval)
	}
	if !cfg.IsProd() {
		t.Fatalf("expected prod")
	}
}

func TestConfig_CheckProd(t *testing.T) {
	hash := testHash(t)
	cases := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{name: "dev tolerates defaults", cfg: Config{Env: "dev", JWTSecret: "secret"}},
		{name: "prod with strong settings", cfg: Config{Env: "production", JWTSecret: prodSecret, AdminPasswordHash: hash}},
		{
			name:    "prod with short secret and no hash",
			cfg:     Config{Env: "prod", JWTSecret: "secret"},
			wantErr: []string{"JWT_SECRET", "ADMIN_PASSWORD_HASH is required"},
		},
		{
			name:    "prod with plaintext password",
			cfg:     Config{Env: "PROD", JWTSecret: prodSecret, AdminPasswordHash: "hunter2"},
			wantErr: []string{"not a bcrypt hash"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.checkProd()
			if len(tc.wantErr) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %v", tc.wantErr)
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Fatalf("expected %q in %q", want, err.Error())
				}
			}
		})
	}
}

func TestLoad_MySQLRequiresDB(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("HOSTEL_TIMEZONE", "UTC")
	t.Setenv("STORE_DRIVER", "MySQL")
	t.Setenv("DB_USER", "hostel")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "hostel")

	cfg := Load()
	if cfg.StoreDriver != StoreMySQL || cfg.DBHost != "db" || cfg.DBPass != "" {
		t.Fatalf("unexpected db config %+v", cfg)
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg := LoadRateLimitConfig()
	if cfg.Enabled {
		t.Fatalf("expected disabled")
	}
	if cfg.Capacity != 5 || cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second {
		t.Fatalf("unexpected bucket %+v", cfg)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("expected TTL raised to 5 intervals, got %s", cfg.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,")
	t.Setenv("CACHE_TTL", "not-a-duration")

	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || len(cfg.Methods) != 2 {
		t.Fatalf("unexpected methods %v", cfg.Methods)
	}
	if cfg.TTL != 15*time.Second {
		t.Fatalf("expected default TTL on parse error, got %s", cfg.TTL)
	}
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TLS", "1")

	opts := redisOptions()
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.TLSConfig == nil {
		t.Fatalf("unexpected options %+v", opts)
	}

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	if got := redisOptions().Addr; got != "redis:6379" {
		t.Fatalf("expected host:port to win, got %q", got)
	}
}
