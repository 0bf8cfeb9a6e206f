package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/grievai-platform/internal/config"
	"github.com/wolfman30/grievai-platform/internal/geocode"
	"github.com/wolfman30/grievai-platform/internal/grievances"
	"github.com/wolfman30/grievai-platform/internal/observability/metrics"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRepository connects to Postgres when DATABASE_URL is set and falls
// back to the in-memory store otherwise. The returned func releases the pool.
func BuildRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (grievances.Repository, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("using in-memory grievance store")
		return grievances.NewInMemoryRepository(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return grievances.NewPostgresRepository(pool), pool.Close, nil
}

// BuildGeocodeService wires LocationIQ, the Nominatim fallback and the
// optional Redis cache.
func BuildGeocodeService(cfg *appconfig.Config, redisClient *redis.Client, m *metrics.GeocodeMetrics, logger *logging.Logger) *geocode.Service {
	liq := geocode.NewLocationIQ(geocode.LocationIQConfig{
		APIKey:       cfg.LocationIQAPIKey,
		BaseURL:      cfg.LocationIQBaseURL,
		MapsURL:      cfg.LocationIQMapsURL,
		CountryCodes: cfg.GeocodeCountryCodes,
		RPS:          cfg.GeocodeRPS,
	})
	// Nominatim's usage policy allows one request per second.
	osm := geocode.NewNominatim(cfg.NominatimBaseURL, 1, nil)
	cache := geocode.NewCache(redisClient, cfg.GeocodeCacheTTL)
	return geocode.NewService(liq, osm, cache, m, logger)
}
