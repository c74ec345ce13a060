package service

import (
	"context"
	"fmt"

	"autoparts/catalog/internal/category"
	"autoparts/catalog/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const NoteNoCategories = "No categories found for this vehicle."

type versionResult struct {
	records []domain.CategoryRecord
	err     error
}

// CategoryTree returns the category tree of a vehicle. With an empty version
// every payload version is fetched and the first non-empty one, in preference
// order, is used.
func (s *Service) CategoryTree(ctx context.Context, q domain.VehicleQuery) (*domain.CategoryTree, error) {
	q.CountryID = s.country(q.CountryID)

	if tree, err := s.cache.GetCategoryTree(ctx, q); err != nil {
		log.Warnf("⚠️ Category cache lookup failed for vehicle %d: %v", q.VehicleID, err)
	} else if tree != nil {
		log.Debugf("Category tree for vehicle %d served from cache", q.VehicleID)
		return tree, nil
	}

	versions := domain.CategoryVersions
	if q.Version != "" {
		versions = []domain.CategoryVersion{q.Version}
	}

	results := make([]versionResult, len(versions))
	g, gctx := errgroup.WithContext(ctx)
	for i, version := range versions {
		g.Go(func() error {
			vq := q
			vq.Version = version
			results[i].records, results[i].err = s.fetchRecords(gctx, vq)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree := &domain.CategoryTree{Version: q.Version, Roots: []*domain.CategoryTreeNode{}}
	var firstErr error
	failed := 0
	for i, res := range results {
		if res.err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.err
			}
			log.Warnf("⚠️ Categories %s for vehicle %d unavailable: %v", versions[i], q.VehicleID, res.err)
			continue
		}
		if len(res.records) == 0 {
			continue
		}

		tree.Version = versions[i]
		tree.Roots = category.BuildTree(res.records)
		tree.RecordCount = len(res.records)
		tree.LeafCount = category.CountSelectable(tree.Roots)
		break
	}

	if tree.RecordCount == 0 {
		if failed == len(results) {
			return nil, firstErr
		}
		tree.Note = NoteNoCategories
		return tree, nil
	}

	if err := s.cache.SetCategoryTree(ctx, q, tree); err != nil {
		log.Warnf("⚠️ Failed to cache category tree for vehicle %d: %v", q.VehicleID, err)
	}

	log.Infof("🌳 Built %s category tree for vehicle %d: %d records, %d leaves",
		tree.Version, q.VehicleID, tree.RecordCount, tree.LeafCount)
	return tree, nil
}

func (s *Service) fetchRecords(ctx context.Context, q domain.VehicleQuery) ([]domain.CategoryRecord, error) {
	raw, err := s.client.GetCategories(ctx, q)
	if err != nil {
		return nil, err
	}

	records, err := category.Normalize(q.Version, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s categories: %w", q.Version, err)
	}
	return records, nil
}
