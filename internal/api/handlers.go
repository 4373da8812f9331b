package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/postop-risk-server/internal/domain"
	"github.com/postop-risk-server/internal/review"
)

func (s *Server) errorResponse(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": vErr.Message,
			"field": vErr.Field,
			"value": vErr.Value,
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCategory), errors.Is(err, domain.ErrInvalidMetric):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) repoRequired(c *gin.Context) bool {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assessment persistence is not configured"})
		return false
	}
	return true
}

func (s *Server) reviewsRequired(c *gin.Context) bool {
	if s.reviews == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert review store is not configured"})
		return false
	}
	return true
}

// handleAssess runs a full assessment, persists it when a repository is
// configured, and fans raised alerts out to subscribers and the notifier.
func (s *Server) handleAssess(c *gin.Context) {
	var input domain.PatientRiskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	assessment, err := s.engine.AssessRisk(c.Request.Context(), &input)
	if err != nil {
		s.errorResponse(c, err)
		return
	}

	if s.repo != nil {
		if err := s.repo.SaveAssessment(c.Request.Context(), assessment); err != nil {
			// Persistence failure doesn't invalidate the computed result.
			s.log.WithError(err).Error("Failed to persist assessment")
		}
	}

	for i := range assessment.Alerts {
		alert := &assessment.Alerts[i]
		s.hub.Broadcast(alert)
		if err := s.notifier.Notify(c.Request.Context(), alert); err != nil {
			s.log.WithError(err).Warn("Alert notification failed")
		}
	}

	c.JSON(http.StatusCreated, assessment)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	if !s.repoRequired(c) {
		return
	}

	assessment, err := s.repo.GetAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 20
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Server) handleListAssessments(c *gin.Context) {
	if !s.repoRequired(c) {
		return
	}

	limit, offset := paginationParams(c)
	assessments, err := s.repo.ListAssessments(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

func (s *Server) handleListAlerts(c *gin.Context) {
	if !s.repoRequired(c) {
		return
	}

	limit, offset := paginationParams(c)
	alerts, err := s.repo.ListAlerts(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) handleAcknowledgeAlert(c *gin.Context) {
	if !s.repoRequired(c) {
		return
	}

	if err := s.repo.AcknowledgeAlert(c.Request.Context(), c.Param("id")); err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

func (s *Server) handleTrend(c *gin.Context) {
	category := domain.RiskCategory(c.DefaultQuery("category", string(domain.CategoryOverall)))

	daysBack := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		daysBack = parsed
	}

	analysis, err := s.engine.AnalyzeTrend(c.Request.Context(), c.Param("id"), category, daysBack)
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleAssessmentCount(c *gin.Context) {
	count, err := s.engine.AssessmentCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"patientId": c.Param("id"),
		"count":     count,
	})
}

func (s *Server) handleResetPriors(c *gin.Context) {
	if err := s.engine.ResetPriors(c.Request.Context(), c.Param("id")); err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (s *Server) handleClearPatient(c *gin.Context) {
	if err := s.engine.ClearPatientData(c.Request.Context(), c.Param("id")); err != nil {
		s.errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePopulationCompare(c *gin.Context) {
	category := domain.RiskCategory(c.DefaultQuery("category", string(domain.CategoryOverall)))

	score, err := strconv.ParseFloat(c.Query("score"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be a number"})
		return
	}

	filter := domain.CohortFilter{
		AgeGroup:          domain.AgeGroup(c.Query("ageGroup")),
		SurgeryComplexity: domain.SurgeryComplexity(c.Query("surgeryComplexity")),
	}

	var comparison *domain.PopulationComparison
	if filter.AgeGroup != "" || filter.SurgeryComplexity != "" {
		comparison, err = s.engine.CompareToSubgroup(score, category, filter)
	} else {
		comparison, err = s.engine.CompareToPopulation(score, category)
	}
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

func (s *Server) handlePopulationStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.PopulationStats())
}

func (s *Server) handleBaselineProfiles(c *gin.Context) {
	filter := domain.CohortFilter{
		AgeGroup:          domain.AgeGroup(c.Query("ageGroup")),
		SurgeryComplexity: domain.SurgeryComplexity(c.Query("surgeryComplexity")),
	}

	profiles := s.engine.FilteredProfiles(filter)
	c.JSON(http.StatusOK, gin.H{
		"count":    len(profiles),
		"profiles": profiles,
	})
}

func (s *Server) handleListThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"thresholds": s.engine.AlertThresholds()})
}

func (s *Server) handleAddThreshold(c *gin.Context) {
	var threshold domain.AlertThreshold
	if err := c.ShouldBindJSON(&threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := s.engine.AddAlertThreshold(threshold); err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, threshold)
}

func (s *Server) handleUpdateThreshold(c *gin.Context) {
	var threshold domain.AlertThreshold
	if err := c.ShouldBindJSON(&threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	threshold.Metric = domain.AlertMetric(c.Param("metric"))

	if err := s.engine.UpdateAlertThreshold(threshold); err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, threshold)
}

func (s *Server) handleRemoveThreshold(c *gin.Context) {
	if removed := s.engine.RemoveAlertThreshold(domain.AlertMetric(c.Param("metric"))); !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "threshold not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

type charlsonRequest struct {
	Comorbidities []string `json:"comorbidities"`
	AgeYears      int      `json:"ageYears"`
}

func (s *Server) handleCharlson(c *gin.Context) {
	var req charlsonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"charlsonIndex": s.engine.ComputeCharlsonIndex(req.Comorbidities, req.AgeYears),
	})
}

type laceRequest struct {
	LengthOfStayDays    int  `json:"lengthOfStayDays"`
	EmergencyAdmission  bool `json:"emergencyAdmission"`
	CharlsonIndex       int  `json:"charlsonIndex"`
	EDVisitsLast6Months int  `json:"edVisitsLast6Months"`
}

func (s *Server) handleLACE(c *gin.Context) {
	var req laceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"laceIndex": s.engine.ComputeLACEIndex(
			req.LengthOfStayDays, req.EmergencyAdmission, req.CharlsonIndex, req.EDVisitsLast6Months),
	})
}

func (s *Server) handleSaveReview(c *gin.Context) {
	if !s.reviewsRequired(c) {
		return
	}

	var rv review.Review
	if err := c.ShouldBindJSON(&rv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if rv.AlertID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert_id is required"})
		return
	}

	if err := s.reviews.Save(c.Request.Context(), &rv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rv)
}

func (s *Server) handleGetReview(c *gin.Context) {
	if !s.reviewsRequired(c) {
		return
	}

	rv, err := s.reviews.Get(c.Request.Context(), c.Param("alertID"))
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	if rv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}
	c.JSON(http.StatusOK, rv)
}

func (s *Server) handleListReviews(c *gin.Context) {
	if !s.reviewsRequired(c) {
		return
	}

	limit, offset := paginationParams(c)
	reviews, err := s.reviews.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.errorResponse(c, err)
		return
	}

	count, err := s.reviews.Count(c.Request.Context())
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":   count,
		"reviews": reviews,
	})
}

func (s *Server) handleExportReviews(c *gin.Context) {
	if !s.reviewsRequired(c) {
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="alert_reviews.json"`)
	if err := s.reviews.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.log.WithError(err).Error("Review export failed")
	}
}

func (s *Server) handleImportReviews(c *gin.Context) {
	if !s.reviewsRequired(c) {
		return
	}

	imported, skipped, err := s.reviews.ImportJSON(c.Request.Context(), c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
	})
}
