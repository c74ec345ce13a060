package equivalence

import "autoparts/catalog/internal/domain"

// seenSet tracks articles by id and by supplier key. Two articles are the same
// part when either matches.
type seenSet struct {
	ids  map[int64]struct{}
	keys map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{
		ids:  make(map[int64]struct{}),
		keys: make(map[string]struct{}),
	}
}

func (s *seenSet) contains(a *domain.ArticleDetails) bool {
	if _, ok := s.ids[a.ArticleID]; ok {
		return true
	}
	_, ok := s.keys[a.SupplierKey()]
	return ok
}

// add records a and reports whether it was new.
func (s *seenSet) add(a *domain.ArticleDetails) bool {
	if s.contains(a) {
		return false
	}
	s.ids[a.ArticleID] = struct{}{}
	s.keys[a.SupplierKey()] = struct{}{}
	return true
}

// Dedupe keeps the first occurrence of every part in articles.
func Dedupe(articles []domain.ArticleDetails) []domain.ArticleDetails {
	seen := newSeenSet()
	out := make([]domain.ArticleDetails, 0, len(articles))
	for i := range articles {
		if seen.add(&articles[i]) {
			out = append(out, articles[i])
		}
	}
	return out
}
