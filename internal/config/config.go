// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-tunable knob for the integration hub.
type Config struct {
	Mode string `env:"RELAYHUB_MODE" envDefault:"api"` // api | worker | migrate

	Host string `env:"RELAYHUB_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"RELAYHUB_PORT" envDefault:"8080"`

	DatabaseURL        string `env:"RELAYHUB_DATABASE_URL,required"`
	DBMaxConnections   int32  `env:"RELAYHUB_DB_MAX_CONNECTIONS" envDefault:"20"`
	DBAcquireTimeoutMs int    `env:"RELAYHUB_DB_ACQUIRE_TIMEOUT_MS" envDefault:"5000"`
	MigrationsDir      string `env:"RELAYHUB_MIGRATIONS_DIR" envDefault:"migrations"`

	RedisURL string `env:"RELAYHUB_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	LogLevel  string `env:"RELAYHUB_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"RELAYHUB_LOG_FORMAT" envDefault:"json"`

	OTLPEndpoint string `env:"RELAYHUB_OTLP_ENDPOINT" envDefault:""`
	MetricsPath  string `env:"RELAYHUB_METRICS_PATH" envDefault:"/metrics"`

	CORSAllowedOrigins []string `env:"RELAYHUB_CORS_ALLOWED_ORIGINS" envSeparator:","`

	// OperatorTokens are accepted bearer tokens for operator-authenticated
	// routes, compared constant-time.
	OperatorTokens []string `env:"RELAYHUB_OPERATOR_TOKENS,required" envSeparator:","`

	// CryptoKeyHex is the 32-byte symmetric key for the token envelope (C1),
	// hex-encoded.
	CryptoKeyHex string `env:"RELAYHUB_CRYPTO_KEY" envDefault:""`

	// Scheduler (C9) options.
	SchedulerTickIntervalSeconds       int     `env:"RELAYHUB_SCHEDULER_TICK_INTERVAL_SECONDS" envDefault:"60"`
	SchedulerDefaultIntervalSeconds    int     `env:"RELAYHUB_SCHEDULER_DEFAULT_INTERVAL_SECONDS" envDefault:"900"`
	SchedulerMaxOverriddenIntervalSecs int     `env:"RELAYHUB_SCHEDULER_MAX_OVERRIDDEN_INTERVAL_SECONDS" envDefault:"86400"`
	SchedulerJitterPctMin              float64 `env:"RELAYHUB_SCHEDULER_JITTER_PCT_MIN" envDefault:"0.0"`
	SchedulerJitterPctMax              float64 `env:"RELAYHUB_SCHEDULER_JITTER_PCT_MAX" envDefault:"0.1"`

	// Executor (C10) options.
	ExecutorConcurrency        int `env:"RELAYHUB_EXECUTOR_CONCURRENCY" envDefault:"8"`
	ExecutorClaimBatch         int `env:"RELAYHUB_EXECUTOR_CLAIM_BATCH" envDefault:"16"`
	ExecutorMaxAttempts        int `env:"RELAYHUB_EXECUTOR_MAX_ATTEMPTS" envDefault:"8"`
	ExecutorPollIntervalMs     int `env:"RELAYHUB_EXECUTOR_POLL_INTERVAL_MS" envDefault:"2000"`
	ExecutorBaseBackoffSeconds int `env:"RELAYHUB_EXECUTOR_BASE_BACKOFF_SECONDS" envDefault:"5"`
	ExecutorMaxBackoffSeconds  int `env:"RELAYHUB_EXECUTOR_MAX_BACKOFF_SECONDS" envDefault:"900"`

	// Token refresher (C7) options.
	RefresherIntervalSeconds    int `env:"RELAYHUB_REFRESHER_INTERVAL_SECONDS" envDefault:"120"`
	RefresherWindowSeconds      int `env:"RELAYHUB_REFRESHER_WINDOW_SECONDS" envDefault:"600"`
	RefresherMaxAttempts        int `env:"RELAYHUB_REFRESHER_MAX_ATTEMPTS" envDefault:"5"`
	RefresherRetryCooldownSecs  int `env:"RELAYHUB_REFRESHER_RETRY_COOLDOWN_SECONDS" envDefault:"300"`
	RefresherConcurrency        int `env:"RELAYHUB_REFRESHER_CONCURRENCY" envDefault:"4"`

	// Webhook (C11) options.
	SlackToleranceSeconds  int      `env:"RELAYHUB_SLACK_TOLERANCE_SECONDS" envDefault:"300"`
	OIDCAudience           []string `env:"RELAYHUB_OIDC_AUDIENCE" envSeparator:","`
	OIDCIssuers            []string `env:"RELAYHUB_OIDC_ISSUERS" envSeparator:","`
	MaxWebhookBodyKB       int      `env:"RELAYHUB_MAX_WEBHOOK_BODY_KB" envDefault:"256"`
	WebhookSecretGitHub    string   `env:"RELAYHUB_WEBHOOK_SECRET_GITHUB" envDefault:""`
	WebhookSecretSlack     string   `env:"RELAYHUB_WEBHOOK_SECRET_SLACK" envDefault:""`
	WebhookSecretZohoCliq  string   `env:"RELAYHUB_WEBHOOK_SECRET_ZOHO_CLIQ" envDefault:""`
	WebhookSharedSecretMap string   `env:"RELAYHUB_WEBHOOK_SHARED_SECRETS" envDefault:""` // "provider=secret,provider=secret"

	// Mail spam filter (supplemented feature, see pkg/mailfilter).
	MailSpamThreshold float32  `env:"MAIL_SPAM_THRESHOLD" envDefault:"0.8"`
	MailSpamAllowlist []string `env:"MAIL_SPAM_ALLOWLIST" envSeparator:","`
	MailSpamDenylist  []string `env:"MAIL_SPAM_DENYLIST" envSeparator:","`

	// PublicBaseURL is prefixed onto provider slugs to build OAuth
	// redirect_uri values (§4.3).
	PublicBaseURL string `env:"RELAYHUB_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Slack OAuth2 connector credentials (pkg/connectorref).
	SlackClientID     string   `env:"RELAYHUB_SLACK_CLIENT_ID" envDefault:""`
	SlackClientSecret string   `env:"RELAYHUB_SLACK_CLIENT_SECRET" envDefault:""`
	SlackScopes       []string `env:"RELAYHUB_SLACK_SCOPES" envSeparator:"," envDefault:"channels:history,chat:write"`

	// Zoho Cliq is a webhook-only connector (pkg/connectorref); no
	// OAuth credentials apply.
	ZohoCliqKindMappings string `env:"RELAYHUB_ZOHO_CLIQ_KIND_MAPPINGS" envDefault:""` // "event_type=canonical_kind,..."
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the host:port the API server should bind.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseKVList parses a "k1=v1,k2=v2" string into a map, skipping blank
// entries. Used for WebhookSharedSecretMap and ZohoCliqKindMappings, both
// of which are too irregular (per-provider, per-tenant-operator keys) to
// model as typed fields.
func ParseKVList(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
