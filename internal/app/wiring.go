package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
)

// NewCatalogProvider selects the catalog source and wraps it with the Redis cache when a
// client is available.
func NewCatalogProvider(cfg *Config, pool *pgxpool.Pool, client *redis.Client, logger *slog.Logger) catalog.Provider {
	var source catalog.Provider = catalog.SampleProvider()
	if cfg.CatalogSource == CatalogSourcePostgres && pool != nil {
		source = catalog.NewRepository(pool)
	} else if cfg.CatalogSource == CatalogSourcePostgres {
		logger.Warn("postgres catalog requested without a pool, using sample catalog")
	}
	if client == nil || cfg.CatalogCacheTTL <= 0 {
		return source
	}
	return catalog.NewCachedProvider(source, client, cfg.CatalogCacheTTL)
}

// NewDraftStore keeps editing sessions in Redis, or in memory when Redis is unavailable.
func NewDraftStore(cfg *Config, client *redis.Client) procurement.DraftStore {
	if client == nil {
		return procurement.NewMemoryDraftStore(cfg.DraftTTL)
	}
	return procurement.NewRedisDraftStore(client, cfg.DraftTTL)
}

// BuilderOptions returns the builder options derived from configuration.
func BuilderOptions(cfg *Config) []procurement.BuilderOption {
	return []procurement.BuilderOption{procurement.WithDefaultBranch(cfg.DefaultBranchID)}
}
