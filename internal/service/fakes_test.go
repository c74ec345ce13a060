package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"autoparts/catalog/internal/client"
	"autoparts/catalog/internal/domain"
	"autoparts/catalog/internal/domain/task"

	"github.com/redis/go-redis/v9"
)

type fakeClient struct {
	mu         sync.Mutex
	categories map[domain.CategoryVersion]string
	catErrs    map[domain.CategoryVersion]error
	articles   map[int64]*domain.ArticleDetails
	articleErr error
	oem        map[string][]domain.ArticleDetails
	fitment    []int64
	catCalls   int
	fitCalls   int
}

func (f *fakeClient) GetCategories(_ context.Context, q domain.VehicleQuery) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.catCalls++
	if err := f.catErrs[q.Version]; err != nil {
		return nil, err
	}
	raw, ok := f.categories[q.Version]
	if !ok {
		return nil, nil
	}
	return []byte(raw), nil
}

func (f *fakeClient) SearchByOEM(_ context.Context, oem string, _ int64) ([]domain.ArticleDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oem[oem], nil
}

func (f *fakeClient) FitmentArticleIDs(context.Context, int64, int64, int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fitCalls++
	return f.fitment, nil
}

func (f *fakeClient) GetArticle(_ context.Context, articleID, _ int64) (*domain.ArticleDetails, error) {
	if f.articleErr != nil {
		return nil, f.articleErr
	}
	a, ok := f.articles[articleID]
	if !ok {
		return nil, fmt.Errorf("article %d: %w", articleID, client.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

type fakeCache struct {
	mu      sync.Mutex
	trees   map[domain.VehicleQuery]*domain.CategoryTree
	fitment map[string][]int64
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		trees:   make(map[domain.VehicleQuery]*domain.CategoryTree),
		fitment: make(map[string][]int64),
	}
}

func (c *fakeCache) GetCategoryTree(_ context.Context, q domain.VehicleQuery) (*domain.CategoryTree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trees[q], nil
}

func (c *fakeCache) SetCategoryTree(_ context.Context, q domain.VehicleQuery, tree *domain.CategoryTree) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.trees[q] = tree
	return nil
}

func fitKey(vehicleID, productGroupID, countryID int64) string {
	return fmt.Sprintf("%d:%d:%d", vehicleID, productGroupID, countryID)
}

func (c *fakeCache) GetFitment(_ context.Context, vehicleID, productGroupID, countryID int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fitment[fitKey(vehicleID, productGroupID, countryID)], nil
}

func (c *fakeCache) SetFitment(_ context.Context, vehicleID, productGroupID, countryID int64, ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fitment[fitKey(vehicleID, productGroupID, countryID)] = ids
	return nil
}

type fakeQueue struct {
	mu       sync.Mutex
	added    []task.Task
	acked    []string
	err      error
	getErr   error
	getCalls int
}

func (q *fakeQueue) AddTask(_ context.Context, t task.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.added = append(q.added, t)
	return fmt.Sprintf("%d-0", len(q.added)), nil
}

func (q *fakeQueue) GetTask(context.Context, string, string) (*redis.XMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.getCalls++
	return nil, q.getErr
}

func (q *fakeQueue) AckTask(_ context.Context, taskType, msgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, taskType+"/"+msgID)
	return nil
}

func (q *fakeQueue) AutoClaim(context.Context, string, string, time.Duration) ([]redis.XMessage, error) {
	return nil, nil
}

func (q *fakeQueue) EnsureStreamsExist(context.Context) error {
	return nil
}

type fakeRepository struct {
	mu       sync.Mutex
	sections map[domain.EquivalenceQuery]*domain.EquivalenceResult
	updated  map[domain.EquivalenceQuery]time.Time // sections without an entry count as fresh
	saveErr  error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		sections: make(map[domain.EquivalenceQuery]*domain.EquivalenceResult),
		updated:  make(map[domain.EquivalenceQuery]time.Time),
	}
}

func (r *fakeRepository) SaveSection(_ context.Context, q domain.EquivalenceQuery, section *domain.EquivalenceResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.sections[q] = section
	r.updated[q] = time.Now()
	return nil
}

func (r *fakeRepository) GetSection(_ context.Context, q domain.EquivalenceQuery, notBefore time.Time) (*domain.EquivalenceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.updated[q]; ok && t.Before(notBefore) {
		return nil, nil
	}
	return r.sections[q], nil
}

var errUpstream = errors.New("upstream unavailable")
