package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/yaseenp24/Healthcare-Agent/internal/api/router"
	appconfig "github.com/yaseenp24/Healthcare-Agent/internal/config"
	"github.com/yaseenp24/Healthcare-Agent/internal/conversation"
	"github.com/yaseenp24/Healthcare-Agent/internal/geo"
	"github.com/yaseenp24/Healthcare-Agent/internal/observability/metrics"
	"github.com/yaseenp24/Healthcare-Agent/internal/search"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

// App is the wired chat stack shared by the HTTP server, the REPL and the
// Lambda entrypoint.
type App struct {
	Service *conversation.Service
	Metrics *metrics.ChatMetrics

	redis    *redis.Client
	db       *sql.DB
	closeLLM func()
}

// Deps carries prebuilt collaborators. Zero fields are built from config.
type Deps struct {
	LLM        conversation.LLMClient
	Store      conversation.SessionStore
	Registerer prometheus.Registerer
}

// Build wires the conversation service from config.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	app := &App{closeLLM: func() {}}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	app.Metrics = metrics.NewChatMetrics(registerer)

	llm := deps.LLM
	if llm == nil {
		client, cleanup, err := BuildLLMClient(ctx, cfg, app.Metrics, logger)
		if err != nil {
			return nil, err
		}
		llm = client
		app.closeLLM = cleanup
	}

	store := deps.Store
	if store == nil {
		if cfg.SessionBackend == appconfig.SessionBackendRedis {
			app.redis = BuildRedisClient(ctx, cfg, logger, true)
		}
		built, err := BuildSessionStore(ctx, cfg, app.redis, logger)
		if err != nil {
			return nil, err
		}
		store = built
	}

	db, err := BuildAuditDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db


	locator := conversation.Locator{
		Geocoder: geo.NewGeocoder(geo.GeocoderConfig{
			BaseURL:     cfg.GeocoderURL,
			APIKey:      cfg.GeocoderAPIKey,
			Email:       cfg.GeocoderEmail,
			UserAgent:   cfg.GeocoderUserAgent,
			CountryCode: cfg.GeocoderCountry,
			Timeout:     cfg.GeocoderTimeout,
		}, logger),
		Places: geo.NewPlaceFinder(geo.PlaceSearchConfig{
			BaseURL:      cfg.POIURL,
			Amenity:      cfg.POIAmenity,
			RadiusMeters: cfg.POIRadiusMeters,
			IncludeAreas: cfg.POIIncludeAreas,
			UserAgent:    cfg.GeocoderUserAgent,
			Timeout:      cfg.POITimeout,
		}, logger),
	}

	routerOpts := []conversation.RouterOption{conversation.WithMetrics(app.Metrics)}
	if cfg.SearchEnabled() {
		answerer, err := buildAnswerer(ctx, cfg, llm, app.Metrics, logger)
		if err != nil {
			return nil, err
		}
		routerOpts = append(routerOpts, conversation.WithHealthAnswerer(answerer))
	} else {
		logger.Warn("web search not configured; health questions will be declined")
	}

	var serviceOpts []conversation.ServiceOption
	if audit := BuildAuditService(app.db); audit != nil {
		serviceOpts = append(serviceOpts, conversation.WithAuditor(audit))
	}

	app.Service = conversation.NewService(
		conversation.NewRouter(locator, llm, logger, routerOpts...),
		store,
		logger,
		serviceOpts...,
	)
	ok = true
	return app, nil
}

func buildAnswerer(ctx context.Context, cfg *appconfig.Config, llm conversation.LLMClient, m *metrics.ChatMetrics, logger *logging.Logger) (*conversation.GroundedAnswerer, error) {
	client, err := search.NewClient(ctx, search.Config{
		APIKey:   cfg.SearchAPIKey,
		EngineID: cfg.SearchEngineID,
		Safe:     cfg.SearchSafe,
		Timeout:  cfg.SearchTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("grounded health answers enabled", "allowed_domains", len(cfg.SearchAllowedDomains))
	return conversation.NewGroundedAnswerer(
		client,
		search.NewDomainPolicy(cfg.SearchAllowedDomains),
		llm,
		logger,
		conversation.WithAnswererMetrics(m),
	), nil
}

// HealthChecks probes the optional backing stores.
func (a *App) HealthChecks() map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}
	if a.db != nil {
		checks["database"] = func(ctx context.Context) error {
			return a.db.PingContext(ctx)
		}
	}
	return checks
}

// Close releases provider clients and connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.closeLLM != nil {
		a.closeLLM()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
