package service

import (
	"context"
	"fmt"
	"time"

	"autoparts/catalog/internal/cache"
	"autoparts/catalog/internal/client"
	"autoparts/catalog/internal/domain"

	log "github.com/sirupsen/logrus"
)

// StreamEquivalents loads the base article and streams its equivalents. Errors
// loading the article are returned before anything is streamed.
func (s *Service) StreamEquivalents(ctx context.Context, q domain.EquivalenceQuery) (<-chan domain.EquivalenceEvent, error) {
	q.CountryID = s.country(q.CountryID)

	base, err := s.client.GetArticle(ctx, q.ArticleID, q.CountryID)
	if err != nil {
		return nil, err
	}

	return s.resolver.Stream(ctx, *base, q), nil
}

// EquivalentsSection returns the stored section for q when one was precomputed
// within the section TTL and builds it on the fly otherwise.
func (s *Service) EquivalentsSection(ctx context.Context, q domain.EquivalenceQuery) (*domain.EquivalenceResult, error) {
	q.CountryID = s.country(q.CountryID)

	var notBefore time.Time
	if s.sectionTTL > 0 {
		notBefore = time.Now().Add(-s.sectionTTL)
	}

	section, err := s.repository.GetSection(ctx, q, notBefore)
	if err != nil {
		log.Warnf("⚠️ Failed to load stored section for article %d: %v", q.ArticleID, err)
	} else if section != nil {
		return section, nil
	}

	return s.buildSection(ctx, q)
}

func (s *Service) buildSection(ctx context.Context, q domain.EquivalenceQuery) (*domain.EquivalenceResult, error) {
	base, err := s.client.GetArticle(ctx, q.ArticleID, q.CountryID)
	if err != nil {
		return nil, err
	}

	section, err := s.resolver.BuildSection(ctx, *base, q)
	if err != nil {
		return nil, fmt.Errorf("failed to build equivalents of article %d: %w", q.ArticleID, err)
	}
	return section, nil
}

// cachedFitment serves vehicle fitment sets from the cache and fills it from
// the catalog. Empty sets are not cached.
type cachedFitment struct {
	client client.CatalogClient
	cache  cache.Cache
}

func (f *cachedFitment) FitmentArticleIDs(ctx context.Context, vehicleID, productGroupID, countryID int64) ([]int64, error) {
	ids, err := f.cache.GetFitment(ctx, vehicleID, productGroupID, countryID)
	if err != nil {
		log.Warnf("⚠️ Fitment cache lookup failed for vehicle %d: %v", vehicleID, err)
	} else if ids != nil {
		return ids, nil
	}

	ids, err = f.client.FitmentArticleIDs(ctx, vehicleID, productGroupID, countryID)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		if err := f.cache.SetFitment(ctx, vehicleID, productGroupID, countryID, ids); err != nil {
			log.Warnf("⚠️ Failed to cache fitment for vehicle %d: %v", vehicleID, err)
		}
	}
	return ids, nil
}
