package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/client"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/pkg/cache"
)

const (
	defaultLimit = 12
	maxLimit     = 100
)

// ErrInvalidParams wraps every validation failure of a listing request.
var ErrInvalidParams = errors.New("invalid search parameters")

// CatalogClient is the subset of the Catalog Service the services use.
type CatalogClient interface {
	ListProducts(ctx context.Context, q models.ListQuery) (*client.ProductList, error)
	GetProduct(ctx context.Context, id string) (models.CatalogEntry, error)
}

// SearchService answers storefront listing requests: it fetches the raw
// catalog (through the cache when one is configured), normalises it and
// applies filters, sorting and pagination locally.
type SearchService struct {
	client  CatalogClient
	cache   *cache.RedisCache
	metrics *metrics.Registry
	logger  *zap.Logger
}

func NewSearchService(c CatalogClient, rc *cache.RedisCache, reg *metrics.Registry, logger *zap.Logger) *SearchService {
	return &SearchService{
		client:  c,
		cache:   rc,
		metrics: reg,
		logger:  logging.OrNop(logger),
	}
}

func (s *SearchService) SearchProducts(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	startTime := time.Now()

	if err := validateSearchParams(&params); err != nil {
		return nil, err
	}

	list, cached, err := s.fetchListing(ctx, params.Query)
	if err != nil {
		return nil, err
	}

	products := catalog.NormalizeAll(list.Products)
	visible := catalog.Visible(products, params.Criteria, params.Sort)
	page, totalPages := catalog.ApplyPagination(visible, params.Page, params.Limit)
	s.metrics.Listing(len(visible))

	duration := time.Since(startTime).String()
	if cached {
		duration += " (cached)"
	}

	return &models.SearchResponse{
		Products:   page,
		Total:      len(visible),
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
		Facets:     catalog.BuildFacets(products),
		Criteria:   params.Criteria,
		Sort:       params.Sort,
		Duration:   duration,
	}, nil
}

// GetProduct returns one normalised product.
func (s *SearchService) GetProduct(ctx context.Context, id string) (models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return models.Product{}, fmt.Errorf("%w: product id cannot be empty", ErrInvalidParams)
	}

	key := cache.ProductKey(id)
	var entry models.CatalogEntry
	if s.lookup(ctx, key, &entry) {
		return catalog.Normalize(entry), nil
	}

	entry, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	s.store(ctx, key, entry)
	return catalog.Normalize(entry), nil
}

func (s *SearchService) fetchListing(ctx context.Context, q models.ListQuery) (*client.ProductList, bool, error) {
	key := cache.ListingKey(q)

	var list client.ProductList
	if s.lookup(ctx, key, &list) {
		return &list, true, nil
	}

	fetched, err := s.client.ListProducts(ctx, q)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, key, fetched)
	return fetched, false, nil
}

func (s *SearchService) lookup(ctx context.Context, key string, v any) bool {
	if !s.cache.IsAvailable() {
		return false
	}
	hit, err := s.cache.Get(ctx, key, v)
	if err != nil {
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		s.metrics.CacheHit()
		s.logger.Debug("Cache HIT", zap.String("key", key))
		return true
	}
	s.metrics.CacheMiss()
	s.logger.Debug("Cache MISS", zap.String("key", key))
	return false
}

func (s *SearchService) store(ctx context.Context, key string, v any) {
	if !s.cache.IsAvailable() {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn("Failed to cache results", zap.String("key", key), zap.Error(err))
	}
}

func validateSearchParams(params *models.SearchParams) error {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	if !catalog.ValidSortKey(params.Sort) {
		return fmt.Errorf("%w: invalid sort %q. Valid sorts: %s, %s, %s", ErrInvalidParams,
			params.Sort, models.SortName, models.SortPriceLow, models.SortPriceHigh)
	}
	if !catalog.ValidPriceRange(params.Criteria.PriceRange) {
		return fmt.Errorf("%w: invalid price range %q", ErrInvalidParams, params.Criteria.PriceRange)
	}
	if params.Query.OnSale != "" && params.Query.OnSale != "true" && params.Query.OnSale != "false" {
		return fmt.Errorf("%w: onSale must be true or false", ErrInvalidParams)
	}

	return nil
}
