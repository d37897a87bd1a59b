package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisConfigDefaults(t *testing.T) {
	got := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if got.DialTimeout != 3*time.Second || got.ReadTimeout != 2*time.Second {
		t.Errorf("timeout defaults = %v/%v", got.DialTimeout, got.ReadTimeout)
	}
	if got.PoolSize != 20 {
		t.Errorf("pool size default = %d, want 20", got.PoolSize)
	}
	if got.PingTimeout != 2*time.Second {
		t.Errorf("ping timeout default = %v", got.PingTimeout)
	}
}

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatal("expected error for missing addr")
	}
}

func TestAcquireConcurrencyCapValidatesInput(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	if _, err := AcquireConcurrencyCap(ctx, nil, "cap:inbound_calls", 8, time.Minute); err == nil {
		t.Error("nil client accepted")
	}
	if _, err := AcquireConcurrencyCap(ctx, rdb, "", 8, time.Minute); err == nil {
		t.Error("empty key accepted")
	}
	if _, err := AcquireConcurrencyCap(ctx, rdb, "cap:inbound_calls", 0, time.Minute); err == nil {
		t.Error("zero limit accepted")
	}
	if _, err := AcquireConcurrencyCap(ctx, rdb, "cap:inbound_calls", 8, 0); err == nil {
		t.Error("zero ttl accepted")
	}
}

func TestReleaseConcurrencyCapValidatesInput(t *testing.T) {
	ctx := context.Background()
	if err := ReleaseConcurrencyCap(ctx, nil, "cap:inbound_calls"); err == nil {
		t.Error("nil client accepted")
	}
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := ReleaseConcurrencyCap(ctx, rdb, ""); err == nil {
		t.Error("empty key accepted")
	}
}
