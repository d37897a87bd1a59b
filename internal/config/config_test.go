package config

import (
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voiceagent"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		LLM:   LLMConfig{APIKey: "sk-ant-test"},
		Voice: VoiceConfig{APIKey: "vapi-test"},
		Business: BusinessConfig{
			TransferNumber: "+15550000001",
			OutboundNumber: "+15550000002",
		},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "voice-agent"
	c.Auth.JWTAudience = "api"
	c.Voice.WebhookSecret = "hook"
	c.Business.WebhookURL = "https://example.com/webhooks/voice/call"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Scheduler.SweepInterval != 15*time.Minute {
		t.Fatalf("expected 15m sweep default, got %v", c.Scheduler.SweepInterval)
	}
	if c.Scheduler.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts default, got %d", c.Scheduler.MaxAttempts)
	}
	if c.Scheduler.BackoffBase != 15*time.Minute || c.Scheduler.BackoffCap != 24*time.Hour {
		t.Fatalf("unexpected backoff defaults: %v %v", c.Scheduler.BackoffBase, c.Scheduler.BackoffCap)
	}
	if c.Scheduler.MaxConcurrentCalls != 32 {
		t.Fatalf("expected 32 concurrent calls default, got %d", c.Scheduler.MaxConcurrentCalls)
	}
	if c.Business.DefaultRegion != "US" {
		t.Fatalf("expected default region US, got %q", c.Business.DefaultRegion)
	}
}

func TestValidate_BackoffCapBelowBase(t *testing.T) {
	c := validBase()
	c.Scheduler.BackoffBase = time.Hour
	c.Scheduler.BackoffCap = time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for cap below base")
	}
}
