package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

// StatsRepository computes the dashboard disease statistics from the test
// record table. All queries are read-only conditional aggregates; the
// snapshot is composed from four independent statements without a wrapping
// transaction, so read skew across them is accepted.
type StatsRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(db *pgxpool.Pool, logger *logrus.Logger) *StatsRepository {
	return &StatsRepository{
		db:  db,
		log: logger,
	}
}

// ComputeDiseaseStats produces one DiseaseStatsSnapshot from the current
// contents of the test record table. Any query failure is reported whole as
// ErrAggregationFailed; no partial snapshot is ever returned.
func (r *StatsRepository) ComputeDiseaseStats(ctx context.Context) (*domain.DiseaseStatsSnapshot, error) {
	var totalTests int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM water_ml_tests`).Scan(&totalTests); err != nil {
		return nil, r.fail("total tests", err)
	}

	var (
		onchoPos, schistoPos, lfPos, helminthsPos     int64
		onchoTot, schistoTot, lfTot, helminthsTot     int64
		anyDisease                                    int64
	)
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(CASE WHEN oncho = 'positive' THEN 1 END),
			COUNT(CASE WHEN schistosomiasis = 'positive' THEN 1 END),
			COUNT(CASE WHEN lf = 'positive' THEN 1 END),
			COUNT(CASE WHEN helminths = 'positive' THEN 1 END),
			COUNT(CASE WHEN oncho IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN schistosomiasis IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN lf IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN helminths IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN oncho = 'positive' OR schistosomiasis = 'positive'
				OR lf = 'positive' OR helminths = 'positive' THEN 1 END)
		FROM water_ml_tests`,
	).Scan(
		&onchoPos, &schistoPos, &lfPos, &helminthsPos,
		&onchoTot, &schistoTot, &lfTot, &helminthsTot,
		&anyDisease,
	)
	if err != nil {
		return nil, r.fail("per-disease counts", err)
	}

	var co domain.CoInfectionStats
	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(CASE WHEN oncho = 'positive' AND schistosomiasis = 'positive' THEN 1 END),
			COUNT(CASE WHEN oncho = 'positive' AND lf = 'positive' THEN 1 END),
			COUNT(CASE WHEN oncho = 'positive' AND helminths = 'positive' THEN 1 END),
			COUNT(CASE WHEN schistosomiasis = 'positive' AND lf = 'positive' THEN 1 END),
			COUNT(CASE WHEN schistosomiasis = 'positive' AND helminths = 'positive' THEN 1 END),
			COUNT(CASE WHEN lf = 'positive' AND helminths = 'positive' THEN 1 END),
			COUNT(CASE WHEN oncho = 'positive' AND schistosomiasis = 'positive'
				AND lf = 'positive' AND helminths = 'positive' THEN 1 END)
		FROM water_ml_tests`,
	).Scan(
		&co.OnchoSchisto, &co.OnchoLF, &co.OnchoHelminths,
		&co.SchistoLF, &co.SchistoHelminths, &co.LFHelminths,
		&co.AllFour,
	)
	if err != nil {
		return nil, r.fail("co-infection counts", err)
	}

	var recentTests, recentPositives int64
	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(CASE WHEN created_at >= NOW() - INTERVAL '30 days' THEN 1 END),
			COUNT(CASE WHEN created_at >= NOW() - INTERVAL '30 days'
				AND (oncho = 'positive' OR schistosomiasis = 'positive'
					OR lf = 'positive' OR helminths = 'positive') THEN 1 END)
		FROM water_ml_tests`,
	).Scan(&recentTests, &recentPositives)
	if err != nil {
		return nil, r.fail("recent activity counts", err)
	}

	snapshot := &domain.DiseaseStatsSnapshot{
		TotalTests:            totalTests,
		AnyDiseaseCount:       anyDisease,
		AnyDiseaseProbability: domain.FormatRate(anyDisease, totalTests),
		Diseases: map[domain.DiseaseType]domain.DiseaseStat{
			domain.DiseaseOncho: {
				Positive: onchoPos,
				Total:    onchoTot,
				Rate:     domain.FormatRate(onchoPos, onchoTot),
			},
			domain.DiseaseSchistosomiasis: {
				Positive: schistoPos,
				Total:    schistoTot,
				Rate:     domain.FormatRate(schistoPos, schistoTot),
			},
			domain.DiseaseLF: {
				Positive: lfPos,
				Total:    lfTot,
				Rate:     domain.FormatRate(lfPos, lfTot),
			},
			domain.DiseaseHelminths: {
				Positive: helminthsPos,
				Total:    helminthsTot,
				Rate:     domain.FormatRate(helminthsPos, helminthsTot),
			},
		},
		CoInfections: co,
		Recent: domain.RecentActivity{
			Tests:     recentTests,
			Positives: recentPositives,
			Rate:      domain.FormatRate(recentPositives, recentTests),
		},
	}

	r.log.WithFields(logrus.Fields{
		"total_tests": snapshot.TotalTests,
		"any_disease": snapshot.AnyDiseaseCount,
	}).Debug("Disease stats computed")

	return snapshot, nil
}

func (r *StatsRepository) fail(stage string, err error) error {
	r.log.WithFields(logrus.Fields{
		"stage": stage,
		"error": err,
	}).Error("Failed to compute disease stats")
	return fmt.Errorf("%s: %w", stage, domain.ErrAggregationFailed)
}
