package service

import (
	"time"

	"autoparts/catalog/internal/cache"
	"autoparts/catalog/internal/client"
	"autoparts/catalog/internal/config"
	"autoparts/catalog/internal/equivalence"
	"autoparts/catalog/internal/queue"
	"autoparts/catalog/internal/repository"
)

// Options carries the settings the service needs besides its collaborators.
type Options struct {
	Equivalence      config.EquivalenceConfig
	DefaultCountryID int64
	MinIdleTime      time.Duration
}

const (
	defaultPollBackoff = 500 * time.Millisecond
	maxPollBackoff     = 30 * time.Second
)

type Service struct {
	repository       repository.EquivalenceRepository
	client           client.CatalogClient
	cache            cache.Cache
	queue            queue.Queue
	resolver         *equivalence.Resolver
	defaultCountryID int64
	maxRetries       int
	minIdleTime      time.Duration
	pollBackoff      time.Duration
	sectionTTL       time.Duration
}

func NewService(
	repository repository.EquivalenceRepository,
	client client.CatalogClient,
	cache cache.Cache,
	queue queue.Queue,
	opts Options,
) *Service {
	resolver := equivalence.NewResolver(client, &cachedFitment{client: client, cache: cache}, equivalence.Config{
		OEMsPerBrand:      opts.Equivalence.OEMsPerBrand,
		MaxResults:        opts.Equivalence.MaxResults,
		SearchConcurrency: opts.Equivalence.SearchConcurrency,
	})

	minIdleTime := opts.MinIdleTime
	if minIdleTime <= 0 {
		minIdleTime = 2 * time.Minute
	}

	return &Service{
		repository:       repository,
		client:           client,
		cache:            cache,
		queue:            queue,
		resolver:         resolver,
		defaultCountryID: opts.DefaultCountryID,
		maxRetries:       opts.Equivalence.MaxRetries,
		minIdleTime:      minIdleTime,
		pollBackoff:      defaultPollBackoff,
		sectionTTL:       time.Duration(opts.Equivalence.SectionTTL) * time.Second,
	}
}

func (s *Service) country(countryID int64) int64 {
	if countryID == 0 {
		return s.defaultCountryID
	}
	return countryID
}
