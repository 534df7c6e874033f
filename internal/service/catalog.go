package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/assessment-server/internal/repository/models"
	"github.com/godilite/assessment-server/pkg/cache"
)

const (
	DefaultQuestionsPerCategory = 25
	defaultCatalogTTL           = 10 * time.Minute

	// Catalog entries are refreshed on the first hit after 80% of their TTL.
	catalogRefreshAhead = 0.8
)

// CatalogService serves band question catalogs through the read-through
// cache and samples questions from them.
type CatalogService struct {
	storage     CatalogStore
	loader      *cache.Loader
	ttl         time.Duration
	perCategory int
	shuffle     func(n int, swap func(i, j int))
	logger      *zap.Logger
}

// NewCatalogService creates a CatalogService. A nil cache disables caching;
// non-positive ttl and perCategory fall back to defaults.
func NewCatalogService(storage CatalogStore, c cache.Cacher, logger *zap.Logger, ttl time.Duration, perCategory int) *CatalogService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	if perCategory <= 0 {
		perCategory = DefaultQuestionsPerCategory
	}
	logger = logger.Named("catalog")
	return &CatalogService{
		storage:     storage,
		loader:      cache.NewLoader(c, ttl, cache.WithRefreshAhead(catalogRefreshAhead), cache.WithLoaderLogger(logger)),
		ttl:         ttl,
		perCategory: perCategory,
		shuffle:     rand.Shuffle,
		logger:      logger,
	}
}

// LoadCatalog returns the full catalog of a band. A band whose table is
// missing or holds no categories is NotFound.
func (s *CatalogService) LoadCatalog(ctx context.Context, band string) (models.BandCatalog, error) {
	normalized, err := normalizeBand(band)
	if err != nil {
		return models.BandCatalog{}, err
	}

	key := "catalog:" + strings.ToLower(normalized)
	return cache.FindAndCache(ctx, s.loader, key,
		func(fetchCtx context.Context) (models.BandCatalog, error) {
			dbCtx, cancel := context.WithTimeout(fetchCtx, dbTimeout)
			defer cancel()

			catalog, err := s.storage.LoadCatalog(dbCtx, normalized)
			if err != nil {
				return models.BandCatalog{}, storageError(err, "band "+normalized)
			}
			if len(catalog.Categories) == 0 {
				return models.BandCatalog{}, fmt.Errorf("categories for band %s: %w", normalized, ErrNotFound)
			}
			return catalog, nil
		})
}

// SampleQuestions draws up to perCategory questions from every category
// without replacement and shuffles the combined set.
func (s *CatalogService) SampleQuestions(ctx context.Context, band string) (QuestionSet, error) {
	catalog, err := s.LoadCatalog(ctx, band)
	if err != nil {
		return QuestionSet{}, err
	}

	set := QuestionSet{
		Band:       catalog.Band,
		Categories: make([]string, 0, len(catalog.Categories)),
		Questions:  make([]SampledQuestion, 0, len(catalog.Categories)*s.perCategory),
	}
	for _, c := range catalog.Categories {
		set.Categories = append(set.Categories, c.Category)
		for _, q := range s.sample(c.Questions) {
			set.Questions = append(set.Questions, SampledQuestion{
				Band:     catalog.Band,
				Category: c.Category,
				Question: q,
			})
		}
	}
	s.shuffle(len(set.Questions), func(i, j int) {
		set.Questions[i], set.Questions[j] = set.Questions[j], set.Questions[i]
	})

	s.logger.Debug("sampled questions",
		zap.String("band", catalog.Band),
		zap.Int("categories", len(set.Categories)),
		zap.Int("questions", len(set.Questions)))

	return set, nil
}

// SampleCategory draws up to perCategory questions from one category.
// The category name must match exactly after trimming.
func (s *CatalogService) SampleCategory(ctx context.Context, band, category string) (CategorySample, error) {
	catalog, err := s.LoadCatalog(ctx, band)
	if err != nil {
		return CategorySample{}, err
	}

	category = strings.TrimSpace(category)
	for _, c := range catalog.Categories {
		if c.Category != category {
			continue
		}
		return CategorySample{
			Band:      catalog.Band,
			Category:  c.Category,
			Questions: s.sample(c.Questions),
		}, nil
	}
	return CategorySample{}, fmt.Errorf("questions for category %q in band %s: %w", category, catalog.Band, ErrNotFound)
}

// ExpectedAnswers is the answer count that completes a band: its number of
// categories times the per-category question count.
func (s *CatalogService) ExpectedAnswers(ctx context.Context, band string) (int, error) {
	catalog, err := s.LoadCatalog(ctx, band)
	if err != nil {
		return 0, err
	}
	return len(catalog.Categories) * s.perCategory, nil
}

func (s *CatalogService) sample(questions []string) []string {
	picked := make([]string, len(questions))
	copy(picked, questions)
	s.shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	if len(picked) > s.perCategory {
		picked = picked[:s.perCategory]
	}
	return picked
}
