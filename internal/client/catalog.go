package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"autoparts/catalog/internal/config"
	"autoparts/catalog/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var (
	ErrCircuitOpen = errors.New("catalog circuit breaker is open")
	ErrNotFound    = errors.New("catalog item not found")
)

// Page types understood by the catalog actor.
const (
	pageCategories    = "categories"
	pageOEMSearch     = "search-articles-by-oem"
	pageVehicleFit    = "vehicle-articles"
	pageArticleDetail = "article-details"
)

type CatalogClient interface {
	GetCategories(ctx context.Context, q domain.VehicleQuery) ([]byte, error)
	SearchByOEM(ctx context.Context, oem string, countryID int64) ([]domain.ArticleDetails, error)
	FitmentArticleIDs(ctx context.Context, vehicleID, productGroupID, countryID int64) ([]int64, error)
	GetArticle(ctx context.Context, articleID, countryID int64) (*domain.ArticleDetails, error)
}

type catalogClient struct {
	rl         ratelimit.Limiter
	config     config.CatalogConfig
	httpClient *resty.Client
	timeout    time.Duration

	// Circuit breaker for quota exceeded
	circuitBreakerMutex sync.RWMutex
	quotaExceededUntil  time.Time
	circuitBreakerDelay time.Duration
}

func NewCatalogClient(cfg config.CatalogConfig) CatalogClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		// Actor runs are reads even though they are POSTed
		SetAllowNonIdempotentRetry(true).
		SetRetryDefaultConditions(false).
		AddRetryConditions(shouldRetry).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	delay := time.Duration(cfg.CircuitBreakerDelay) * time.Second
	if delay <= 0 {
		delay = 5 * time.Minute
	}

	return &catalogClient{
		rl:                  rl,
		config:              cfg,
		httpClient:          client,
		timeout:             timeout,
		circuitBreakerDelay: delay,
	}
}

// GetCategories returns the raw category payload in the shape of q.Version, or
// nil when the catalog has none for the vehicle.
func (c *catalogClient) GetCategories(ctx context.Context, q domain.VehicleQuery) ([]byte, error) {
	var out struct {
		Categories json.RawMessage `json:"categories"`
	}

	found, err := c.run(ctx, map[string]any{
		"selectPageType":  pageCategories,
		"categoryVersion": q.Version.String(),
		"manufacturerId":  q.ManufacturerID,
		"vehicleId":       q.VehicleID,
		"countryId":       q.CountryID,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s categories for vehicle %d: %w", q.Version, q.VehicleID, err)
	}
	if !found {
		return nil, nil
	}

	log.Debugf("Fetched %s categories for vehicle %d (%d bytes)", q.Version, q.VehicleID, len(out.Categories))
	return out.Categories, nil
}

// SearchByOEM returns the articles cross referenced to an OEM number. A response
// without articles is an empty result.
func (c *catalogClient) SearchByOEM(ctx context.Context, oem string, countryID int64) ([]domain.ArticleDetails, error) {
	var out struct {
		Articles []domain.ArticleDetails `json:"articles"`
	}

	if _, err := c.run(ctx, map[string]any{
		"selectPageType": pageOEMSearch,
		"articleOemNo":   oem,
		"countryId":      countryID,
	}, &out); err != nil {
		return nil, fmt.Errorf("failed to search OEM %q: %w", oem, err)
	}

	return out.Articles, nil
}

// FitmentArticleIDs returns the ids of the articles of a product group linked to a vehicle.
func (c *catalogClient) FitmentArticleIDs(ctx context.Context, vehicleID, productGroupID, countryID int64) ([]int64, error) {
	var out struct {
		Articles []struct {
			ArticleID int64 `json:"articleId"`
		} `json:"articles"`
	}

	if _, err := c.run(ctx, map[string]any{
		"selectPageType": pageVehicleFit,
		"vehicleId":      vehicleID,
		"productGroupId": productGroupID,
		"countryId":      countryID,
	}, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch fitment for vehicle %d: %w", vehicleID, err)
	}

	ids := make([]int64, 0, len(out.Articles))
	for _, a := range out.Articles {
		ids = append(ids, a.ArticleID)
	}
	return ids, nil
}

func (c *catalogClient) GetArticle(ctx context.Context, articleID, countryID int64) (*domain.ArticleDetails, error) {
	var out struct {
		Article *domain.ArticleDetails `json:"article"`
	}

	if _, err := c.run(ctx, map[string]any{
		"selectPageType": pageArticleDetail,
		"articleId":      articleID,
		"countryId":      countryID,
	}, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch article %d: %w", articleID, err)
	}
	if out.Article == nil {
		return nil, fmt.Errorf("article %d: %w", articleID, ErrNotFound)
	}

	return out.Article, nil
}

// shouldRetry retries transport errors and 5xx responses. 429 is left to the
// circuit breaker.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code >= http.StatusInternalServerError && code != http.StatusNotImplemented
}

// run calls the actor synchronously and decodes the first dataset item into
// out. It reports false when the dataset is empty.
func (c *catalogClient) run(ctx context.Context, input map[string]any, out any) (bool, error) {
	if c.isCircuitBreakerOpen() {
		remaining := c.getRemainingCircuitBreakerTime()
		log.Debugf("🚫 Request blocked by circuit breaker. Remaining time: %v", remaining.Round(time.Second))
		return false, fmt.Errorf("%w: requests disabled for %v more", ErrCircuitOpen, remaining.Round(time.Second))
	}

	if c.config.LanguageID != 0 {
		input["langId"] = c.config.LanguageID
	}

	c.rl.Take()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(reqCtx).
		SetPathParam("actor", c.config.Actor).
		SetBody(input).
		Post("/acts/{actor}/run-sync-get-dataset-items")
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return false, fmt.Errorf("failed to call catalog actor: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		c.triggerCircuitBreaker()
		return false, fmt.Errorf("%w: quota exceeded", ErrCircuitOpen)
	}
	if resp.IsError() {
		return false, fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(resp.String()), &items); err != nil {
		return false, fmt.Errorf("failed to decode dataset items: %w", err)
	}
	if len(items) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(items[0], out); err != nil {
		return false, fmt.Errorf("failed to decode %s item: %w", input["selectPageType"], err)
	}
	return true, nil
}

func (c *catalogClient) isCircuitBreakerOpen() bool {
	c.circuitBreakerMutex.RLock()
	now := time.Now()
	wasOpen := now.Before(c.quotaExceededUntil)
	wasTriggered := !c.quotaExceededUntil.IsZero()
	c.circuitBreakerMutex.RUnlock()

	// Reset once expired so the re-enable message is logged once
	if !wasOpen && wasTriggered {
		c.circuitBreakerMutex.Lock()
		if !c.quotaExceededUntil.IsZero() && now.After(c.quotaExceededUntil) {
			c.quotaExceededUntil = time.Time{}
			log.Infof("✅ Catalog circuit breaker re-enabled - requests are allowed again")
		}
		c.circuitBreakerMutex.Unlock()
	}

	return wasOpen
}

func (c *catalogClient) triggerCircuitBreaker() {
	c.circuitBreakerMutex.Lock()
	defer c.circuitBreakerMutex.Unlock()

	c.quotaExceededUntil = time.Now().Add(c.circuitBreakerDelay)
	log.Warnf("🚫 Catalog quota exceeded! Requests disabled until %v",
		c.quotaExceededUntil.Format("15:04:05"))
}

func (c *catalogClient) getRemainingCircuitBreakerTime() time.Duration {
	c.circuitBreakerMutex.RLock()
	defer c.circuitBreakerMutex.RUnlock()

	remaining := time.Until(c.quotaExceededUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}
