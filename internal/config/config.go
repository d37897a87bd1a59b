package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
//
// This is the single authoritative source for collaborator URLs and phone
// numbers; nothing else in the tree reads os.Getenv.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Voice     VoiceConfig
	Calendar  CalendarConfig
	SMS       SMSConfig
	Scheduler SchedulerConfig
	Business  BusinessConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type LLMConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type VoiceConfig struct {
	APIKey  string
	BaseURL string
	// WebhookSecret authenticates inbound webhook deliveries.
	WebhookSecret string
	Timeout       time.Duration
}

type CalendarConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type SMSConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// SchedulerConfig tunes the callback sweep and the call-session reaper.
type SchedulerConfig struct {
	SweepInterval   time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	CallTimeout     time.Duration
	StalenessWindow time.Duration

	// MaxConcurrentCalls caps simultaneous inbound pipeline runs.
	MaxConcurrentCalls int
}

// BusinessConfig carries business-level call handling settings.
type BusinessConfig struct {
	// TransferNumber receives human-escalated calls.
	TransferNumber string
	// OutboundNumber is the caller ID for outbound callbacks.
	OutboundNumber string
	// WebhookURL is where the voice provider posts call events.
	WebhookURL string
	// DefaultRegion is the ISO region used to parse national phone numbers.
	DefaultRegion string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	c.LLM.Model = strings.TrimSpace(os.Getenv("LLM_MODEL"))
	{
		n, _ := mustInt("LLM_MAX_TOKENS")
		c.LLM.MaxTokens = n
	}
	c.LLM.Timeout = mustDuration("LLM_TIMEOUT")

	c.Voice.APIKey = os.Getenv("VOICE_API_KEY")
	c.Voice.BaseURL = strings.TrimSpace(os.Getenv("VOICE_BASE_URL"))
	c.Voice.WebhookSecret = os.Getenv("VOICE_WEBHOOK_SECRET")
	c.Voice.Timeout = mustDuration("VOICE_TIMEOUT")

	c.Calendar.BaseURL = strings.TrimSpace(os.Getenv("CALENDAR_BASE_URL"))
	c.Calendar.APIKey = os.Getenv("CALENDAR_API_KEY")
	c.Calendar.Timeout = mustDuration("CALENDAR_TIMEOUT")

	c.SMS.BaseURL = strings.TrimSpace(os.Getenv("SMS_BASE_URL"))
	c.SMS.APIKey = os.Getenv("SMS_API_KEY")
	c.SMS.From = strings.TrimSpace(os.Getenv("SMS_FROM"))
	c.SMS.Timeout = mustDuration("SMS_TIMEOUT")

	c.Scheduler.SweepInterval = mustDuration("SWEEP_INTERVAL")
	{
		n, _ := mustInt("CALLBACK_MAX_ATTEMPTS")
		c.Scheduler.MaxAttempts = n
	}
	c.Scheduler.BackoffBase = mustDuration("CALLBACK_BACKOFF_BASE")
	c.Scheduler.BackoffCap = mustDuration("CALLBACK_BACKOFF_CAP")
	c.Scheduler.CallTimeout = mustDuration("OUTBOUND_CALL_TIMEOUT")
	c.Scheduler.StalenessWindow = mustDuration("CALL_STALENESS_WINDOW")
	{
		n, _ := mustInt("MAX_CONCURRENT_CALLS")
		c.Scheduler.MaxConcurrentCalls = n
	}

	c.Business.TransferNumber = strings.TrimSpace(os.Getenv("TRANSFER_NUMBER"))
	c.Business.OutboundNumber = strings.TrimSpace(os.Getenv("OUTBOUND_NUMBER"))
	c.Business.WebhookURL = strings.TrimSpace(os.Getenv("WEBHOOK_URL"))
	c.Business.DefaultRegion = strings.TrimSpace(os.Getenv("DEFAULT_REGION"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required"))
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 30 * time.Second
	}

	if c.Voice.APIKey == "" {
		errs = append(errs, errors.New("VOICE_API_KEY is required"))
	}
	if c.Voice.BaseURL == "" {
		c.Voice.BaseURL = "https://api.vapi.ai"
	}
	if c.Voice.WebhookSecret == "" && c.IsProduction() {
		errs = append(errs, errors.New("VOICE_WEBHOOK_SECRET is required in production"))
	}
	if c.Voice.Timeout <= 0 {
		c.Voice.Timeout = 30 * time.Second
	}

	if c.Calendar.Timeout <= 0 {
		c.Calendar.Timeout = 10 * time.Second
	}
	if c.SMS.Timeout <= 0 {
		c.SMS.Timeout = 10 * time.Second
	}

	if c.Scheduler.SweepInterval <= 0 {
		c.Scheduler.SweepInterval = 15 * time.Minute
	}
	if c.Scheduler.MaxAttempts <= 0 {
		c.Scheduler.MaxAttempts = 3
	}
	if c.Scheduler.BackoffBase <= 0 {
		c.Scheduler.BackoffBase = 15 * time.Minute
	}
	if c.Scheduler.BackoffCap <= 0 {
		c.Scheduler.BackoffCap = 24 * time.Hour
	}
	if c.Scheduler.BackoffCap < c.Scheduler.BackoffBase {
		errs = append(errs, errors.New("CALLBACK_BACKOFF_CAP must be >= CALLBACK_BACKOFF_BASE"))
	}
	if c.Scheduler.CallTimeout <= 0 {
		c.Scheduler.CallTimeout = 60 * time.Second
	}
	if c.Scheduler.StalenessWindow <= 0 {
		c.Scheduler.StalenessWindow = 5 * time.Minute
	}
	if c.Scheduler.MaxConcurrentCalls <= 0 {
		c.Scheduler.MaxConcurrentCalls = 32
	}

	if c.Business.TransferNumber == "" {
		errs = append(errs, errors.New("TRANSFER_NUMBER is required"))
	}
	if c.Business.OutboundNumber == "" {
		errs = append(errs, errors.New("OUTBOUND_NUMBER is required"))
	}
	if c.Business.WebhookURL == "" && c.IsProduction() {
		errs = append(errs, errors.New("WEBHOOK_URL is required in production"))
	}
	if c.Business.DefaultRegion == "" {
		c.Business.DefaultRegion = "US"
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
