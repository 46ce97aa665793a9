package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/client"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/models"
)

// ErrSuperseded is returned by a fetch whose navigation was overtaken by a
// newer one. Its response has been discarded.
var ErrSuperseded = errors.New("superseded by a newer navigation")

// ErrNothingToRetry is returned by Retry before the first navigation.
var ErrNothingToRetry = errors.New("no navigation to retry")

// ProductFetcher fetches one raw product listing.
type ProductFetcher interface {
	ListProducts(ctx context.Context, q models.ListQuery) (*client.ProductList, error)
}

// ViewOption configures ListingView and ProductDetail.
type ViewOption func(*viewConfig)

type viewConfig struct {
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Registry
}

// WithFetchTimeout bounds every fetch issued by the view.
func WithFetchTimeout(d time.Duration) ViewOption {
	return func(c *viewConfig) { c.timeout = d }
}

func WithViewLogger(logger *zap.Logger) ViewOption {
	return func(c *viewConfig) { c.logger = logger }
}

func WithViewMetrics(reg *metrics.Registry) ViewOption {
	return func(c *viewConfig) { c.metrics = reg }
}

func newViewConfig(opts []ViewOption) viewConfig {
	var c viewConfig
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

func (c viewConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// ListingView is the state behind one product listing page. Each navigation
// issues exactly one fetch; only the response of the latest navigation is
// ever applied. Filter and sort changes re-derive the visible sequence from
// the stored products without refetching.
type ListingView struct {
	fetcher ProductFetcher
	cfg     viewConfig

	mu         sync.RWMutex
	generation uint64
	requestID  string
	query      models.ListQuery
	navigated  bool
	loading    bool
	products   []models.Product
	criteria   models.Criteria
	sort       models.SortKey
	visible    []models.Product
	err        error
}

func NewListingView(fetcher ProductFetcher, opts ...ViewOption) *ListingView {
	return &ListingView{
		fetcher:  fetcher,
		cfg:      newViewConfig(opts),
		products: []models.Product{},
		visible:  []models.Product{},
	}
}

// Navigate fetches the listing for q and preselects the filters it implies.
// It returns ErrSuperseded if another navigation started before the
// response arrived.
func (v *ListingView) Navigate(ctx context.Context, q models.ListQuery) error {
	gen, id, query, _ := v.begin(&q)
	return v.fetch(ctx, gen, id, query)
}

// Retry re-issues the last navigation.
func (v *ListingView) Retry(ctx context.Context) error {
	gen, id, q, ok := v.begin(nil)
	if !ok {
		return ErrNothingToRetry
	}
	return v.fetch(ctx, gen, id, q)
}

// begin registers a new fetch. A nil q repeats the last navigation.
func (v *ListingView) begin(q *models.ListQuery) (uint64, string, models.ListQuery, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if q != nil {
		v.query = *q
		v.navigated = true
		v.criteria = q.Criteria()
	} else if !v.navigated {
		return 0, "", models.ListQuery{}, false
	}

	v.generation++
	v.requestID = uuid.NewString()
	v.loading = true
	return v.generation, v.requestID, v.query, true
}

func (v *ListingView) fetch(ctx context.Context, gen uint64, id string, q models.ListQuery) error {
	log := v.cfg.logger.With(zap.String("request_id", id), zap.Uint64("generation", gen))
	log.Debug("Fetching listing",
		zap.String("gender", q.Gender),
		zap.String("category", q.Category))

	fetchCtx, cancel := v.cfg.withTimeout(ctx)
	list, err := v.fetcher.ListProducts(fetchCtx, q)
	cancel()

	var products []models.Product
	if err == nil {
		products = catalog.NormalizeAll(list.Products)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		v.cfg.metrics.Stale()
		log.Debug("Discarding stale listing response", zap.Uint64("latest", v.generation))
		return ErrSuperseded
	}

	v.loading = false
	if err != nil {
		log.Warn("Listing fetch failed", zap.Error(err))
		v.products = []models.Product{}
		v.visible = []models.Product{}
		v.err = err
		return err
	}

	v.products = products
	v.err = nil
	v.derive()
	v.cfg.metrics.Listing(len(v.visible))
	log.Debug("Listing updated",
		zap.Int("products", len(v.products)),
		zap.Int("visible", len(v.visible)))
	return nil
}

// derive recomputes the visible sequence. Callers hold the write lock.
func (v *ListingView) derive() {
	v.visible = catalog.Visible(v.products, v.criteria, v.sort)
}

// SetCriteria replaces the active filters.
func (v *ListingView) SetCriteria(c models.Criteria) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.criteria = c
	v.derive()
}

// SetSort replaces the active sort key.
func (v *ListingView) SetSort(key models.SortKey) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort = key
	v.derive()
}

func (v *ListingView) Visible() []models.Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.visible)
}

func (v *ListingView) Products() []models.Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.products)
}

func (v *ListingView) Criteria() models.Criteria {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.criteria
}

func (v *ListingView) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

func (v *ListingView) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

// RequestID identifies the most recently issued fetch.
func (v *ListingView) RequestID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.requestID
}

// DetailFetcher fetches one raw product.
type DetailFetcher interface {
	GetProduct(ctx context.Context, id string) (models.CatalogEntry, error)
}

// ProductDetail is the state behind a product page.
type ProductDetail struct {
	fetcher DetailFetcher
	cfg     viewConfig

	mu         sync.RWMutex
	generation uint64
	id         string
	product    *models.Product
	err        error
}

func NewProductDetail(fetcher DetailFetcher, opts ...ViewOption) *ProductDetail {
	return &ProductDetail{fetcher: fetcher, cfg: newViewConfig(opts)}
}

// Load fetches product id. A failed load clears the previous product.
func (d *ProductDetail) Load(ctx context.Context, id string) (models.Product, error) {
	d.mu.Lock()
	d.id = id
	d.mu.Unlock()
	return d.load(ctx)
}

func (d *ProductDetail) Retry(ctx context.Context) (models.Product, error) {
	d.mu.RLock()
	id := d.id
	d.mu.RUnlock()

	if id == "" {
		return models.Product{}, ErrNothingToRetry
	}
	return d.load(ctx)
}

func (d *ProductDetail) load(ctx context.Context) (models.Product, error) {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	id := d.id
	d.mu.Unlock()

	fetchCtx, cancel := d.cfg.withTimeout(ctx)
	entry, err := d.fetcher.GetProduct(fetchCtx, id)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		d.cfg.metrics.Stale()
		return models.Product{}, ErrSuperseded
	}
	if err != nil {
		d.cfg.logger.Warn("Product fetch failed", zap.String("id", id), zap.Error(err))
		d.product = nil
		d.err = err
		return models.Product{}, err
	}

	p := catalog.Normalize(entry)
	d.product = &p
	d.err = nil
	return p, nil
}

// Product returns the loaded product, if any.
func (d *ProductDetail) Product() (models.Product, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.product == nil {
		return models.Product{}, false
	}
	return *d.product, true
}

func (d *ProductDetail) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}
