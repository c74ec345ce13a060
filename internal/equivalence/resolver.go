package equivalence

import (
	"context"
	"sort"
	"strings"

	"autoparts/catalog/internal/domain"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	NoteNoOEM             = "No OEM references were found for this article."
	NoteUnverifiedFitment = "These parts share OEM references with this article. Compatibility with your vehicle has not been verified."

	DefaultMaxResults        = 20
	DefaultSearchConcurrency = 4
)

// OEMSearcher looks up catalog articles by OEM number.
type OEMSearcher interface {
	SearchByOEM(ctx context.Context, oem string, countryID int64) ([]domain.ArticleDetails, error)
}

// FitmentLookup returns the ids of the articles of a product group known to fit a vehicle.
type FitmentLookup interface {
	FitmentArticleIDs(ctx context.Context, vehicleID, productGroupID, countryID int64) ([]int64, error)
}

type Config struct {
	// OEMsPerBrand caps how many OEM numbers are searched per manufacturer
	// brand. Values below 1 mean one.
	OEMsPerBrand      int
	MaxResults        int
	SearchConcurrency int
}

// Resolver finds parts from other suppliers that share OEM references with a base article.
type Resolver struct {
	searcher OEMSearcher
	fitment  FitmentLookup
	config   Config
}

// NewResolver creates a resolver. fitment may be nil, which disables the vehicle filter.
func NewResolver(searcher OEMSearcher, fitment FitmentLookup, cfg Config) *Resolver {
	if cfg.OEMsPerBrand < 1 {
		cfg.OEMsPerBrand = 1
	}
	if cfg.MaxResults < 1 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.SearchConcurrency < 1 {
		cfg.SearchConcurrency = DefaultSearchConcurrency
	}

	return &Resolver{
		searcher: searcher,
		fitment:  fitment,
		config:   cfg,
	}
}

// Stream searches every OEM variant of base one after another and emits each
// newly found part as an article event, followed by one complete event. The
// channel is closed afterwards. If ctx is cancelled the run stops and the
// channel is closed without a complete event.
func (r *Resolver) Stream(ctx context.Context, base domain.ArticleDetails, q domain.EquivalenceQuery) <-chan domain.EquivalenceEvent {
	events := make(chan domain.EquivalenceEvent)

	go func() {
		defer close(events)

		send := func(ev domain.EquivalenceEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		result := newResult(base)
		plan := r.searchPlan(base.OEMNumbers)
		if len(plan) == 0 {
			result.Note = NoteNoOEM
			send(domain.EquivalenceEvent{Type: domain.EquivalenceEventComplete, Result: result})
			return
		}

		seen := seenWithBase(&base)
		for _, variant := range plan {
			if ctx.Err() != nil {
				return
			}

			found, err := r.searcher.SearchByOEM(ctx, variant, q.CountryID)
			if err != nil {
				log.Debugf("OEM search for %q failed, skipping: %v", variant, err)
				continue
			}

			for _, article := range collect(found, &base, seen) {
				result.Equivalents = append(result.Equivalents, article)
				if !send(domain.EquivalenceEvent{Type: domain.EquivalenceEventArticle, Article: &article}) {
					return
				}
			}
		}

		if q.VehicleID == 0 {
			result.Note = NoteUnverifiedFitment
		}
		send(domain.EquivalenceEvent{Type: domain.EquivalenceEventComplete, Result: result})
	}()

	return events
}

// BuildSection collects the equivalents of base in one go. Searches run
// concurrently but are folded in the same order Stream uses. With a vehicle the
// list is narrowed to parts known to fit it, unless fitment data is missing.
// The result is sorted by supplier name and article number and capped.
func (r *Resolver) BuildSection(ctx context.Context, base domain.ArticleDetails, q domain.EquivalenceQuery) (*domain.EquivalenceResult, error) {
	result := newResult(base)
	plan := r.searchPlan(base.OEMNumbers)
	if len(plan) == 0 {
		result.Note = NoteNoOEM
		return result, nil
	}

	responses := make([][]domain.ArticleDetails, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.SearchConcurrency)

	for i, variant := range plan {
		g.Go(func() error {
			found, err := r.searcher.SearchByOEM(gctx, variant, q.CountryID)
			if err != nil {
				log.Debugf("OEM search for %q failed, skipping: %v", variant, err)
				return nil
			}
			responses[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := seenWithBase(&base)
	for _, found := range responses {
		result.Equivalents = append(result.Equivalents, collect(found, &base, seen)...)
	}

	verified := false
	if q.VehicleID != 0 {
		result.Equivalents, verified = r.filterByFitment(ctx, &base, q, result.Equivalents)
	}

	sortArticles(result.Equivalents)
	if len(result.Equivalents) > r.config.MaxResults {
		result.Equivalents = result.Equivalents[:r.config.MaxResults]
	}

	if !verified {
		result.Note = NoteUnverifiedFitment
	}
	return result, nil
}

// searchPlan picks the OEM numbers to search, at most OEMsPerBrand per brand,
// grouped by brand in order of first appearance, and expands them into unique
// search strings.
func (r *Resolver) searchPlan(oems []domain.OEMNumber) []string {
	var brands []string
	numbers := make(map[string][]string)

	for _, oem := range oems {
		number := strings.TrimSpace(oem.Number)
		if number == "" {
			continue
		}
		picked, known := numbers[oem.Brand]
		if !known {
			brands = append(brands, oem.Brand)
		}
		if len(picked) >= r.config.OEMsPerBrand {
			continue
		}
		numbers[oem.Brand] = append(picked, number)
	}

	planned := make(map[string]struct{})
	var plan []string
	for _, brand := range brands {
		for _, number := range numbers[brand] {
			for _, variant := range ExpandVariants(number) {
				if _, ok := planned[variant]; ok {
					continue
				}
				planned[variant] = struct{}{}
				plan = append(plan, variant)
			}
		}
	}
	return plan
}

// seenWithBase starts the run's seen set with the base, so the base is never
// yielded under another article id either.
func seenWithBase(base *domain.ArticleDetails) *seenSet {
	seen := newSeenSet()
	seen.add(base)
	return seen
}

// collect dedupes one search response, keeps parts of the base's product group
// other than the base itself, and returns those not seen earlier in the run.
func collect(found []domain.ArticleDetails, base *domain.ArticleDetails, seen *seenSet) []domain.ArticleDetails {
	var fresh []domain.ArticleDetails
	for _, article := range Dedupe(found) {
		if article.ProductGroupID != base.ProductGroupID || article.ArticleID == base.ArticleID {
			continue
		}
		if !seen.add(&article) {
			continue
		}
		fresh = append(fresh, article)
	}
	return fresh
}

// filterByFitment keeps the articles known to fit the vehicle. Missing or
// failing fitment data leaves the list untouched and reports false.
func (r *Resolver) filterByFitment(ctx context.Context, base *domain.ArticleDetails, q domain.EquivalenceQuery, articles []domain.ArticleDetails) ([]domain.ArticleDetails, bool) {
	if r.fitment == nil {
		return articles, false
	}

	ids, err := r.fitment.FitmentArticleIDs(ctx, q.VehicleID, base.ProductGroupID, q.CountryID)
	if err != nil {
		log.Warnf("Fitment lookup for vehicle %d failed, skipping filter: %v", q.VehicleID, err)
		return articles, false
	}
	if len(ids) == 0 {
		log.Debugf("No fitment data for vehicle %d and product group %d", q.VehicleID, base.ProductGroupID)
		return articles, false
	}

	fits := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		fits[id] = struct{}{}
	}

	filtered := make([]domain.ArticleDetails, 0, len(articles))
	for _, a := range articles {
		if _, ok := fits[a.ArticleID]; ok {
			filtered = append(filtered, a)
		}
	}
	return filtered, true
}

func sortArticles(articles []domain.ArticleDetails) {
	c := collate.New(language.Und)
	sort.SliceStable(articles, func(i, j int) bool {
		if cmp := c.CompareString(articles[i].SupplierName, articles[j].SupplierName); cmp != 0 {
			return cmp < 0
		}
		return c.CompareString(articles[i].ArticleNo, articles[j].ArticleNo) < 0
	})
}

func newResult(base domain.ArticleDetails) *domain.EquivalenceResult {
	refs := make([]domain.OEMNumber, len(base.OEMNumbers))
	copy(refs, base.OEMNumbers)

	return &domain.EquivalenceResult{
		Base:          base,
		OEMReferences: refs,
		Equivalents:   make([]domain.ArticleDetails, 0),
	}
}
