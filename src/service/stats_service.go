package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/repository"
	"tradingjournal/src/stats"
)

const (
	// DefaultStatsDays is the window used when the caller does not ask for one.
	DefaultStatsDays = 30
	// MaxStatsDays caps the window a caller may request.
	MaxStatsDays = 365

	statsCacheTTL = 5 * time.Minute
)

type statsCacheEntry struct {
	report    stats.Report
	expiresAt time.Time
}

// StatsService builds the trading stats report from the read replica.
// Reports are cached per user and window for a few minutes since the
// underlying aggregation touches every closed position.
type StatsService struct {
	repo    *repository.StatsRepository
	lotSize int64

	mu    sync.Mutex
	cache map[string]statsCacheEntry
}

// NewStatsService creates a service reading from the read-only database,
// with the lot size taken from the environment.
func NewStatsService() *StatsService {
	return NewStatsServiceWithDB(database.ReadOnlyDB, GetConfig().LotSize)
}

// NewStatsServiceWithDB allows overriding the database and lot size.
// Useful for tests.
func NewStatsServiceWithDB(db *gorm.DB, lotSize int64) *StatsService {
	return &StatsService{
		repo:    repository.NewStatsRepository().WithDB(db),
		lotSize: lotSize,
		cache:   map[string]statsCacheEntry{},
	}
}

// Report assembles the stats report for the user over the last `days` days.
// Out-of-range values fall back to the default window.
func (s *StatsService) Report(
	ctx context.Context,
	userID uint,
	days int,
) (stats.Report, error) {

	if days < 1 || days > MaxStatsDays {
		days = DefaultStatsDays
	}

	key := fmt.Sprintf("%d:%d", userID, days)
	if report, ok := s.cached(key); ok {
		return report, nil
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))

	positions, err := s.repo.ClosedPositions(ctx, userID)
	if err != nil {
		return stats.Report{}, err
	}
	transactions, err := s.repo.ClosedTransactions(ctx, userID, from, to)
	if err != nil {
		return stats.Report{}, err
	}
	openTrades, err := s.repo.CountOpenPositions(ctx, userID)
	if err != nil {
		return stats.Report{}, err
	}

	report := stats.BuildReport(positions, transactions, from, to, openTrades, s.lotSize)
	s.store(key, report)

	logger.WithFields(map[string]interface{}{
		"service": "StatsService",
		"op":      "Report",
		"user_id": userID,
		"days":    days,
		"trades":  report.Summary.Overview.TotalTrades,
	}).Debug("Stats report built")

	return report, nil
}

func (s *StatsService) cached(key string) (stats.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return stats.Report{}, false
	}
	return entry.report, true
}

func (s *StatsService) store(key string, report stats.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = statsCacheEntry{
		report:    report,
		expiresAt: time.Now().Add(statsCacheTTL),
	}
}
