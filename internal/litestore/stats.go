package litestore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

// ComputeDiseaseStats produces one DiseaseStatsSnapshot from the current
// contents of the test table. Same statement structure as the Postgres
// repository: four independent aggregates, no wrapping transaction.
func (s *Store) ComputeDiseaseStats(ctx context.Context) (*domain.DiseaseStatsSnapshot, error) {
	var totalTests int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM water_ml_tests`).Scan(&totalTests); err != nil {
		return nil, s.statsFail("total tests", err)
	}

	var (
		onchoPos, schistoPos, lfPos, helminthsPos int64
		onchoTot, schistoTot, lfTot, helminthsTot int64
		anyDisease                                int64
	)
	err := s.db.QueryRowContext(ctx, `
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
		return nil, s.statsFail("per-disease counts", err)
	}

	var co domain.CoInfectionStats
	err = s.db.QueryRowContext(ctx, `
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
		return nil, s.statsFail("co-infection counts", err)
	}

	cutoff := s.now().AddDate(0, 0, -30)
	var recentTests, recentPositives int64
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN created_at >= ? THEN 1 END),
			COUNT(CASE WHEN created_at >= ?
				AND (oncho = 'positive' OR schistosomiasis = 'positive'
					OR lf = 'positive' OR helminths = 'positive') THEN 1 END)
		FROM water_ml_tests`,
		cutoff, cutoff,
	).Scan(&recentTests, &recentPositives)
	if err != nil {
		return nil, s.statsFail("recent activity counts", err)
	}

	return &domain.DiseaseStatsSnapshot{
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
	}, nil
}

func (s *Store) statsFail(stage string, err error) error {
	s.log.WithFields(logrus.Fields{
		"stage": stage,
		"error": err,
	}).Error("Failed to compute disease stats")
	return fmt.Errorf("%s: %w", stage, domain.ErrAggregationFailed)
}
