package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/water-ml-server/internal/domain"
)

// forecastPointRequest is one point of a bulk forecast save.
type forecastPointRequest struct {
	DiseaseType string `json:"diseaseType" binding:"required"`
	Month       string `json:"month" binding:"required"`
	IsForecast  bool   `json:"isForecast"`

	TotalTests    *int `json:"totalTests"`
	PositiveCases *int `json:"positiveCases"`
	InfectionRate *int `json:"infectionRate"`

	ForecastedTotalTests    *int `json:"forecastedTotalTests"`
	ForecastedPositiveCases *int `json:"forecastedPositiveCases"`
	ForecastedInfectionRate *int `json:"forecastedInfectionRate"`
}

// handleGetForecast serves the per-disease monthly series. A disease with no
// rows is a "no_data" result, not an error.
func (s *Server) handleGetForecast(c *gin.Context) {
	disease := domain.DiseaseType(c.Query("disease"))
	if disease == "" {
		badRequest(c, "Missing disease parameter")
		return
	}

	var (
		points []*domain.ForecastPoint
		err    error
	)
	if raw := c.Query("months"); raw != "" {
		months, convErr := strconv.Atoi(raw)
		if convErr != nil || months <= 0 {
			badRequest(c, "Invalid months parameter")
			return
		}
		points, err = s.deps.Forecast.WindowedSeries(c.Request.Context(), disease, months)
	} else {
		points, err = s.deps.Forecast.Series(c.Request.Context(), disease)
	}

	if err != nil {
		if errors.Is(err, domain.ErrNoForecastData) {
			c.JSON(http.StatusOK, gin.H{"data": nil, "status": "no_data"})
			return
		}
		s.fail(c, err)
		return
	}
	ok(c, points)
}

// handleSaveForecast bulk-saves points written by the out-of-band forecaster.
func (s *Server) handleSaveForecast(c *gin.Context) {
	var reqs []forecastPointRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		badRequest(c, "Invalid forecast payload")
		return
	}
	if len(reqs) == 0 {
		badRequest(c, "Empty forecast payload")
		return
	}

	points := make([]*domain.ForecastPoint, 0, len(reqs))
	for _, req := range reqs {
		disease := domain.DiseaseType(req.DiseaseType)
		if !disease.IsValid() {
			badRequest(c, "Invalid disease type: "+req.DiseaseType)
			return
		}
		if _, err := time.Parse("2006-01", req.Month); err != nil {
			badRequest(c, "Invalid month: "+req.Month)
			return
		}
		points = append(points, &domain.ForecastPoint{
			DiseaseType:             disease,
			Month:                   req.Month,
			IsForecast:              req.IsForecast,
			TotalTests:              req.TotalTests,
			PositiveCases:           req.PositiveCases,
			InfectionRate:           req.InfectionRate,
			ForecastedTotalTests:    req.ForecastedTotalTests,
			ForecastedPositiveCases: req.ForecastedPositiveCases,
			ForecastedInfectionRate: req.ForecastedInfectionRate,
		})
	}

	saved, err := s.deps.Forecast.Save(c.Request.Context(), points)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"saved": saved})
}

// handleTrimForecast deletes stale forecast rows for a disease. Historical
// rows are never affected.
func (s *Server) handleTrimForecast(c *gin.Context) {
	disease := domain.DiseaseType(c.Query("disease"))
	if disease == "" {
		badRequest(c, "Missing disease parameter")
		return
	}

	keepMonths := 12
	if raw := c.Query("keep_months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "Invalid keep_months parameter")
			return
		}
		keepMonths = n
	}

	if err := s.deps.Forecast.TrimOld(c.Request.Context(), disease, keepMonths); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"disease": disease, "keepMonths": keepMonths})
}
