package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/report"
	"github.com/autogt/autogt/internal/report/archive"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	filter := database.AnalysisFilter{}

	if v := c.Query("status"); v != "" {
		status := models.AnalysisStatus(v)
		if !models.IsValidAnalysisStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid status %q", v)})
			return
		}
		filter.Status = &status
	}
	if v := c.Query("vehicle"); v != "" {
		filter.Vehicle = &v
	}
	if v := c.Query("step"); v != "" {
		step := models.TaraStep(v)
		if !models.IsValidTaraStep(step) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid step %q", v)})
			return
		}
		filter.CompletedStep = &step
	}

	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analyses, err := s.db.ListAnalyses(c.Request.Context(), filter)
	if err != nil {
		s.log.Error("Listing analyses failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list analyses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"analyses": analyses, "count": len(analyses)})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	analysis, err := s.db.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleListRisks(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := s.db.GetAnalysis(ctx, id); err != nil {
		s.respondLookupError(c, err)
		return
	}

	filter := database.RiskFilter{}
	if v := c.Query("level"); v != "" {
		level := models.RiskLevel(v)
		if !models.IsValidRiskLevel(level) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid risk level %q", v)})
			return
		}
		filter.Level = &level
	}
	if v := c.Query("asset"); v != "" {
		filter.AssetID = &v
	}
	if v := c.Query("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid min_score %q", v)})
			return
		}
		filter.MinScore = &score
	}

	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	values, err := s.db.ListRiskValues(ctx, id, filter)
	if err != nil {
		s.log.Error("Listing risk values failed", "analysis_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list risks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"risks": values, "count": len(values)})
}

// handleRecalculate re-derives every stored risk value from the ratings it
// references. Values whose impact or feasibility rating has been deleted are
// skipped rather than failing the batch.
func (s *Server) handleRecalculate(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := s.db.GetAnalysis(ctx, id); err != nil {
		s.respondLookupError(c, err)
		return
	}

	values, err := s.db.ListRiskValues(ctx, id, database.RiskFilter{})
	if err != nil {
		s.log.Error("Listing risk values failed", "analysis_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list risks"})
		return
	}

	impacts, err := s.db.ListImpactRatings(ctx, id)
	if err != nil {
		s.log.Error("Listing impact ratings failed", "analysis_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ratings"})
		return
	}
	feasibilities, err := s.db.ListFeasibilityRatings(ctx, id)
	if err != nil {
		s.log.Error("Listing feasibility ratings failed", "analysis_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ratings"})
		return
	}

	impactByAsset := make(map[string]*models.ImpactRating, len(impacts))
	for _, rating := range impacts {
		impactByAsset[rating.AssetID] = rating
	}
	feasibilityByThreat := make(map[string]*models.FeasibilityRating, len(feasibilities))
	for _, rating := range feasibilities {
		feasibilityByThreat[rating.ThreatID] = rating
	}

	recalculated, skipped := 0, 0
	for _, value := range values {
		impact := impactByAsset[value.AssetID]
		feasibility := feasibilityByThreat[value.ThreatID]
		if impact == nil || feasibility == nil {
			skipped++
			continue
		}

		fresh, err := s.engine.Recalculate(value, impact, feasibility)
		if err != nil {
			s.log.Error("Recalculating risk failed", "risk_id", value.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "recalculation failed"})
			return
		}
		if err := s.db.SaveRiskValue(ctx, fresh); err != nil {
			s.log.Error("Saving recalculated risk failed", "risk_id", value.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "recalculation failed"})
			return
		}
		recalculated++
	}

	s.log.Info("Risk recalculation complete",
		"analysis_id", id, "recalculated", recalculated, "skipped", skipped)
	c.JSON(http.StatusOK, gin.H{"recalculated": recalculated, "skipped": skipped})
}

func (s *Server) handleExport(c *gin.Context) {
	id := c.Param("id")
	name := c.Param("format")

	format, err := report.GetFormat(name, s.log)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rep, err := s.builder.Build(c.Request.Context(), id)
	if err != nil {
		s.respondLookupError(c, err)
		return
	}

	filename := fmt.Sprintf("tara-%s.%s", id, format.Extension())
	c.Header("Content-Type", archive.ContentTypeFor(filename))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := format.Generate(rep, c.Writer); err != nil {
		// Headers are already on the wire; all we can do is record it.
		s.log.Error("Report generation failed mid-stream",
			"analysis_id", id, "format", name, "error", err)
	}
}

// respondLookupError maps a missing analysis to 404 and anything else to 500.
func (s *Server) respondLookupError(c *gin.Context, err error) {
	if strings.Contains(err.Error(), "not found") {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	s.log.Error("Analysis lookup failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis lookup failed"})
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}
