package service

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

// DefaultMinSubgroupSize is the smallest filtered cohort compared against
// before falling back to the full population.
const DefaultMinSubgroupSize = 5

// subgroupStatsCacheSize bounds the per-filter statistics cache. The filter
// space is tiny (age groups × complexities) so this never evicts in
// practice, but the bound keeps the cache honest.
const subgroupStatsCacheSize = 64

// PopulationAnalyzer compares patient scores against the synthetic baseline
// cohort, globally or per subgroup. The cohort is generated once and
// read-only afterward, safe for unsynchronized concurrent reads.
type PopulationAnalyzer struct {
	logger          *logrus.Logger
	profiles        []domain.BaselinePatientProfile
	stats           domain.PopulationStats
	minSubgroupSize int

	subgroupCache *lru.Cache[string, subgroupStats]
}

type subgroupStats struct {
	stats domain.PopulationStats
	size  int
}

// NewPopulationAnalyzer builds an analyzer over an already generated cohort.
func NewPopulationAnalyzer(logger *logrus.Logger, profiles []domain.BaselinePatientProfile, minSubgroupSize int) *PopulationAnalyzer {
	if minSubgroupSize <= 0 {
		minSubgroupSize = DefaultMinSubgroupSize
	}
	cache, _ := lru.New[string, subgroupStats](subgroupStatsCacheSize)
	return &PopulationAnalyzer{
		logger:          logger,
		profiles:        profiles,
		stats:           ComputePopulationStats(profiles),
		minSubgroupSize: minSubgroupSize,
		subgroupCache:   cache,
	}
}

// Profiles returns the read-only baseline cohort.
func (p *PopulationAnalyzer) Profiles() []domain.BaselinePatientProfile {
	return p.profiles
}

// FilteredProfiles returns the cohort members matching the filter.
func (p *PopulationAnalyzer) FilteredProfiles(filter domain.CohortFilter) []domain.BaselinePatientProfile {
	var out []domain.BaselinePatientProfile
	for i := range p.profiles {
		if filter.Matches(&p.profiles[i]) {
			out = append(out, p.profiles[i])
		}
	}
	return out
}

// Stats returns the full-population statistics.
func (p *PopulationAnalyzer) Stats() domain.PopulationStats {
	return p.stats
}

// CompareToPopulation locates a score within the full baseline cohort.
// Percentile estimation uses the Abramowitz-Stegun normal CDF approximation.
func (p *PopulationAnalyzer) CompareToPopulation(score float64, category domain.RiskCategory) (*domain.PopulationComparison, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCategory, category)
	}
	cs, err := p.stats.Stats(category)
	if err != nil {
		return nil, err
	}
	return p.compare(score, category, cs, len(p.profiles)), nil
}

// CompareToSubgroup locates a score within a filtered cohort. Subgroups
// smaller than the configured minimum fall back to the full population.
func (p *PopulationAnalyzer) CompareToSubgroup(score float64, category domain.RiskCategory, filter domain.CohortFilter) (*domain.PopulationComparison, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCategory, category)
	}

	sub := p.subgroupStatsFor(filter)
	if sub.size < p.minSubgroupSize {
		p.logger.WithFields(logrus.Fields{
			"age_group":  filter.AgeGroup,
			"complexity": filter.SurgeryComplexity,
			"size":       sub.size,
		}).Debug("Subgroup below minimum size, falling back to full population")
		return p.CompareToPopulation(score, category)
	}

	cs, err := sub.stats.Stats(category)
	if err != nil {
		return nil, err
	}
	return p.compare(score, category, cs, sub.size), nil
}

func (p *PopulationAnalyzer) subgroupStatsFor(filter domain.CohortFilter) subgroupStats {
	key := string(filter.AgeGroup) + "|" + string(filter.SurgeryComplexity)
	if cached, ok := p.subgroupCache.Get(key); ok {
		return cached
	}

	members := p.FilteredProfiles(filter)
	sub := subgroupStats{
		stats: ComputePopulationStats(members),
		size:  len(members),
	}
	p.subgroupCache.Add(key, sub)
	return sub
}

func (p *PopulationAnalyzer) compare(score float64, category domain.RiskCategory, cs domain.CategoryStats, cohortSize int) *domain.PopulationComparison {
	z := 0.0
	if cs.StdDev != 0 {
		z = (score - cs.Mean) / cs.StdDev
	}
	return &domain.PopulationComparison{
		Category:       category,
		PatientScore:   score,
		PopulationMean: cs.Mean,
		PopulationStd:  cs.StdDev,
		ZScore:         z,
		Percentile:     normalCDF(z) * 100,
		CohortSize:     cohortSize,
	}
}

// normalCDF evaluates the standard normal CDF via the Abramowitz-Stegun
// rational approximation 26.2.17 (absolute error < 7.5e-8).
func normalCDF(z float64) float64 {
	if z < 0 {
		return 1 - normalCDF(-z)
	}
	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)
	t := 1 / (1 + p*z)
	pdf := math.Exp(-z*z/2) / math.Sqrt(2*math.Pi)
	poly := t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	return 1 - pdf*poly
}
