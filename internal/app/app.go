// Package app wires configuration, infrastructure, and domain handlers into
// the running process for each of relayhub's modes (api, worker, migrate).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/akamaotto/relayhub/internal/auditlog"
	"github.com/akamaotto/relayhub/internal/config"
	"github.com/akamaotto/relayhub/internal/crypto"
	"github.com/akamaotto/relayhub/internal/docs"
	"github.com/akamaotto/relayhub/internal/httpserver"
	"github.com/akamaotto/relayhub/internal/operatorauth"
	"github.com/akamaotto/relayhub/internal/platform"
	"github.com/akamaotto/relayhub/internal/telemetry"
	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/connectorref"
	"github.com/akamaotto/relayhub/pkg/credential"
	"github.com/akamaotto/relayhub/pkg/executor"
	"github.com/akamaotto/relayhub/pkg/mailfilter"
	"github.com/akamaotto/relayhub/pkg/oauth"
	"github.com/akamaotto/relayhub/pkg/oauthstate"
	"github.com/akamaotto/relayhub/pkg/provider"
	"github.com/akamaotto/relayhub/pkg/refresher"
	"github.com/akamaotto/relayhub/pkg/scheduler"
	"github.com/akamaotto/relayhub/pkg/scoring"
	"github.com/akamaotto/relayhub/pkg/signal"
	"github.com/akamaotto/relayhub/pkg/syncjob"
	"github.com/akamaotto/relayhub/pkg/tenant"
	"github.com/akamaotto/relayhub/pkg/tenantconfig"
	"github.com/akamaotto/relayhub/pkg/webhook"
)

// Run is the process entry point: it reads infrastructure out of cfg,
// connects to it, and starts the mode the caller selected.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting relayhub", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "relayhub")
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBAcquireTimeoutMs)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if cfg.Mode == "migrate" {
		if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	}

	metricsReg := prometheus.NewRegistry()
	for _, c := range telemetry.All() {
		if err := metricsReg.Register(c); err != nil {
			return fmt.Errorf("registering metric collector: %w", err)
		}
	}

	if err := seedProviderCatalog(ctx, db, buildRegistry(cfg, logger)); err != nil {
		return fmt.Errorf("seeding provider catalog: %w", err)
	}

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, db)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// buildRegistry constructs the connector registry from configured
// providers. A provider missing its required credentials is skipped rather
// than registered half-configured (§9).
func buildRegistry(cfg *config.Config, logger *slog.Logger) *connector.Registry {
	registry := connector.NewRegistry()

	if cfg.SlackClientID != "" && cfg.SlackClientSecret != "" {
		registry.Register(connectorref.NewSlackConnector(cfg.SlackClientID, cfg.SlackClientSecret, cfg.SlackScopes))
	} else {
		logger.Info("slack connector disabled (RELAYHUB_SLACK_CLIENT_ID/SECRET not set)")
	}

	registry.Register(connectorref.NewWebhookOnlyConnector("zoho-cliq", config.ParseKVList(cfg.ZohoCliqKindMappings)))

	return registry
}

// seedProviderCatalog upserts every registered connector's metadata into
// the providers table so the connections table's provider_slug foreign key
// has somewhere to point and GET /providers reflects what's actually
// wired, rather than requiring a separate operator-run seed step.
func seedProviderCatalog(ctx context.Context, db *pgxpool.Pool, registry *connector.Registry) error {
	store := provider.NewStore(db)
	for _, m := range registry.All() {
		p := provider.Provider{Slug: m.Slug, DisplayName: m.Slug, AuthType: provider.AuthType(m.AuthType)}
		if err := store.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func buildEnvelope(cfg *config.Config) (*crypto.Envelope, error) {
	key, err := parseHexKey(cfg.CryptoKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parsing RELAYHUB_CRYPTO_KEY: %w", err)
	}
	return crypto.NewEnvelope(key)
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	envelope, err := buildEnvelope(cfg)
	if err != nil {
		return err
	}

	registry := buildRegistry(cfg, logger)
	auth := operatorauth.New(cfg.OperatorTokens)

	srv := httpserver.NewServer(httpserver.ServerConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsPath:        cfg.MetricsPath,
	}, logger, db, rdb, metricsReg, auth, docs.Handler)

	auditWriter := auditlog.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	jobs := syncjob.NewStore(db)
	credStore := credential.NewStore(db, envelope)
	states := oauthstate.NewStore(db)

	tenantHandler := tenant.NewHandler(db, logger)
	srv.APIRouter.Mount("/api/v1/tenants", tenantHandler.Routes())

	tenantConfigHandler := tenantconfig.NewHandler(db, logger)
	srv.APIRouter.Mount("/tenants", tenantConfigHandler.Routes())

	providerHandler := provider.NewHandler(db, logger)
	srv.APIRouter.Mount("/providers", providerHandler.Routes())

	credentialHandler := credential.NewHandler(db, envelope, registry, jobs, auditWriter, logger)
	srv.APIRouter.Mount("/connections", credentialHandler.Routes())

	syncJobHandler := syncjob.NewHandler(db, logger)
	srv.APIRouter.Mount("/sync-jobs", syncJobHandler.Routes())

	signalHandler := signal.NewHandler(db, logger)
	srv.APIRouter.Mount("/signals", signalHandler.Routes())

	scoringHandler := scoring.NewHandler(db, auditWriter, logger)
	srv.APIRouter.Mount("/grounded-signals", scoringHandler.Routes())

	oauthHandler := oauth.NewHandler(registry, states, credStore, logger, cfg.PublicBaseURL)
	srv.APIRouter.Mount("/connect", oauthHandler.AuthorizeRoutes())
	srv.PublicRouter.Mount("/connect", oauthHandler.CallbackRoutes())

	verifiers := webhook.VerifierSet{}
	if cfg.WebhookSecretGitHub != "" {
		verifiers["github"] = webhook.GitHubVerifier{Secret: cfg.WebhookSecretGitHub}
	}
	if cfg.WebhookSecretSlack != "" {
		verifiers["slack"] = webhook.NewSlackVerifier(cfg.WebhookSecretSlack, time.Duration(cfg.SlackToleranceSeconds)*time.Second)
	}
	if cfg.WebhookSecretZohoCliq != "" {
		verifiers["zoho-cliq"] = webhook.SharedSecretVerifier{Secret: cfg.WebhookSecretZohoCliq}
	}
	for providerSlug, secret := range config.ParseKVList(cfg.WebhookSharedSecretMap) {
		verifiers[providerSlug] = webhook.SharedSecretVerifier{Secret: secret}
	}
	if len(cfg.OIDCIssuers) > 0 {
		oidcVerifier, err := webhook.NewOIDCVerifier(ctx, cfg.OIDCIssuers, cfg.OIDCAudience, cfg.MaxWebhookBodyKB)
		if err != nil {
			return fmt.Errorf("initializing OIDC webhook verifier: %w", err)
		}
		verifiers["oidc"] = oidcVerifier
	}

	webhookHandler := webhook.NewHandler(verifiers, provider.NewStore(db), credStore, jobs, auth, cfg.MaxWebhookBodyKB, logger)
	srv.APIRouter.Mount("/webhooks", webhookHandler.OperatorRoutes())
	srv.PublicRouter.Mount("/webhooks", webhookHandler.PublicRoutes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv.Router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// refresherStoreAdapter satisfies refresher.Store by projecting
// credential.Store's decrypted due-for-refresh connections into
// refresher.Candidate, keeping pkg/credential from importing pkg/refresher
// (which already imports pkg/credential).
type refresherStoreAdapter struct {
	creds *credential.Store
}

func (a refresherStoreAdapter) DueForRefresh(ctx context.Context, before time.Time) ([]refresher.Candidate, error) {
	due, err := a.creds.DueForRefresh(ctx, before)
	if err != nil {
		return nil, err
	}
	out := make([]refresher.Candidate, len(due))
	for i, d := range due {
		out[i] = refresher.Candidate{ConnectionView: d.View, ProviderSlug: d.ProviderSlug}
	}
	return out, nil
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool) error {
	logger.Info("worker started")

	envelope, err := buildEnvelope(cfg)
	if err != nil {
		return err
	}

	registry := buildRegistry(cfg, logger)
	jobs := syncjob.NewStore(db)
	credStore := credential.NewStore(db, envelope)
	states := oauthstate.NewStore(db)
	signals := signal.NewStore(db)

	spamFilter := mailfilter.NewDefaultFilter(float64(cfg.MailSpamThreshold), cfg.MailSpamAllowlist, cfg.MailSpamDenylist)
	normalizer := signal.NewNormalizer(spamFilter, logger)

	sched := scheduler.New(db, jobs, credStore, logger, scheduler.Config{
		TickInterval:                 time.Duration(cfg.SchedulerTickIntervalSeconds) * time.Second,
		DefaultIntervalSeconds:       cfg.SchedulerDefaultIntervalSeconds,
		MaxOverriddenIntervalSeconds: cfg.SchedulerMaxOverriddenIntervalSecs,
		JitterPctMin:                 cfg.SchedulerJitterPctMin,
		JitterPctMax:                 cfg.SchedulerJitterPctMax,
	})

	exec := executor.New(jobs, credStore, registry, signals, normalizer, logger, executor.Config{
		PollInterval: time.Duration(cfg.ExecutorPollIntervalMs) * time.Millisecond,
		ClaimBatch:   cfg.ExecutorClaimBatch,
		Concurrency:  cfg.ExecutorConcurrency,
		MaxAttempts:  cfg.ExecutorMaxAttempts,
		BaseBackoff:  time.Duration(cfg.ExecutorBaseBackoffSeconds) * time.Second,
		MaxBackoff:   time.Duration(cfg.ExecutorMaxBackoffSeconds) * time.Second,
	})

	refr := refresher.New(credStore, registry, logger, refresher.Config{
		Interval:      time.Duration(cfg.RefresherIntervalSeconds) * time.Second,
		Window:        time.Duration(cfg.RefresherWindowSeconds) * time.Second,
		RetryCooldown: time.Duration(cfg.RefresherRetryCooldownSecs) * time.Second,
		MaxAttempts:   cfg.RefresherMaxAttempts,
		Concurrency:   cfg.RefresherConcurrency,
	})

	go sched.Run(ctx)
	go exec.Run(ctx)
	go runStateGC(ctx, states, logger)

	refr.Run(ctx, refresherStoreAdapter{creds: credStore})
	return nil
}

// runStateGC purges expired OAuth state rows (§4.3) every 15 minutes, a
// fixed cadence with no configuration knob.
func runStateGC(ctx context.Context, states *oauthstate.Store, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := states.GCExpired(ctx)
			if err != nil {
				logger.Error("gc oauth states", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("gc oauth states", "removed", n)
			}
		}
	}
}
