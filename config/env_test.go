package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "DB_DRIVER", "REDIS_ENABLED", "BILL_FREEZE_WHEN_PAID", "CACHE_TTL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.App.Port != "8080" {
		t.Errorf("App.Port = %q, want 8080", cfg.App.Port)
	}
	if cfg.DB.Driver != "postgres" {
		t.Errorf("DB.Driver = %q, want postgres", cfg.DB.Driver)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want false")
	}
	if cfg.Billing.FreezeWhenPaid {
		t.Error("Billing.FreezeWhenPaid = true, want false")
	}
	if cfg.App.CacheTTL != 5*time.Minute {
		t.Errorf("App.CacheTTL = %v, want 5m", cfg.App.CacheTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("BILL_FREEZE_WHEN_PAID", "true")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")

	cfg := LoadConfig()

	if cfg.DB.Driver != "sqlite" {
		t.Errorf("DB.Driver = %q, want sqlite", cfg.DB.Driver)
	}
	if !cfg.Billing.FreezeWhenPaid {
		t.Error("Billing.FreezeWhenPaid = false, want true")
	}
	if cfg.App.CacheTTL != 5*time.Minute {
		t.Errorf("invalid CACHE_TTL should fall back to 5m, got %v", cfg.App.CacheTTL)
	}
	want := []string{"http://a.example", "http://b.example"}
	if !reflect.DeepEqual(cfg.App.CORSOrigins, want) {
		t.Errorf("CORSOrigins = %v, want %v", cfg.App.CORSOrigins, want)
	}
}

func TestNewRedisClientDisabled(t *testing.T) {
	rdb, err := NewRedisClient(RedisConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rdb != nil {
		t.Fatal("expected nil client when redis is disabled")
	}
}
