package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/immunization-audit-server/internal/domain"
	"github.com/immunization-audit-server/internal/service"
	"github.com/immunization-audit-server/internal/store"
)

// RecordView is one record row with its derived classification and the
// ledger's acknowledged state, ready for table rendering.
type RecordView struct {
	Record     domain.ImmunizationRecord `json:"record"`
	Assessment *service.Assessment       `json:"assessment"`
	Reviewed   bool                      `json:"reviewed"`
	ReviewedAt *time.Time                `json:"reviewed_at,omitempty"`
}

// parseSelection reads the from/to/mode query parameters into a selection.
func parseSelection(c *gin.Context) (store.Selection, error) {
	sel := store.Selection{
		From: c.Query("from"),
		To:   c.Query("to"),
	}

	for _, day := range []string{sel.From, sel.To} {
		if day == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return store.Selection{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", day)
		}
	}

	mode, err := domain.ParseFilterMode(c.Query("mode"))
	if err != nil {
		return store.Selection{}, err
	}
	sel.Mode = mode
	return sel, nil
}

// activeRecords resolves the selection into the filtered record subset,
// applying ledger- and classification-aware predicates for view modes.
func (s *Server) activeRecords(c *gin.Context, sel store.Selection) []domain.ImmunizationRecord {
	ctx := c.Request.Context()

	var keep func(*domain.ImmunizationRecord) bool
	switch sel.Mode {
	case domain.FilterAttention:
		keep = func(r *domain.ImmunizationRecord) bool {
			return !s.classifier.IsComplete(r) && !s.ledger.IsReviewed(ctx, r.DocID)
		}
	case domain.FilterReviewed:
		keep = func(r *domain.ImmunizationRecord) bool {
			return !s.classifier.IsComplete(r) && s.ledger.IsReviewed(ctx, r.DocID)
		}
	case domain.FilterComplete:
		keep = func(r *domain.ImmunizationRecord) bool {
			return s.classifier.IsComplete(r)
		}
	}

	s.store.SetSelection(sel)
	return s.store.ActiveSubset(sel, keep)
}

// handleRecords returns the filtered records with per-record assessments.
func (s *Server) handleRecords(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := s.activeRecords(c, sel)
	ctx := c.Request.Context()

	views := make([]RecordView, 0, len(records))
	for i := range records {
		record := records[i]
		view := RecordView{
			Record:     record,
			Assessment: s.classifier.Assess(&record),
			Reviewed:   s.ledger.IsReviewed(ctx, record.DocID),
		}
		if ts, ok := s.ledger.ReviewedAt(ctx, record.DocID); ok {
			view.ReviewedAt = &ts
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"selection": sel,
		"total":     len(views),
		"records":   views,
	})
}

// handleSummary returns tier counts and the aggregate quality score.
func (s *Server) handleSummary(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary := s.aggregator.SummarizeSet(s.activeRecords(c, sel))
	c.JSON(http.StatusOK, summary)
}

// handleLots returns the lot usage table with anomaly flags.
func (s *Server) handleLots(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lots := s.aggregator.AggregateLotUsage(s.activeRecords(c, sel))
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

// handleMissingByDate returns the time-bucketed missing-field counts.
func (s *Server) handleMissingByDate(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buckets := s.aggregator.BucketMissingByDate(s.activeRecords(c, sel))
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

// handleEligibility returns the vfc_status breakdown for waterfall charts.
func (s *Server) handleEligibility(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	breakdown := s.aggregator.BucketMissingByEligibility(s.activeRecords(c, sel))
	c.JSON(http.StatusOK, breakdown)
}

// handleGuidance returns the static field guidance catalog.
func (s *Server) handleGuidance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"guidance": domain.GuidanceCatalog()})
}

// handleNarrative returns the deterministic phrase selection for the
// current filter parameters.
func (s *Server) handleNarrative(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, service.SeedNarrative(sel.From, sel.To, sel.Mode))
}

// handleExport streams the filtered set as CSV.
func (s *Server) handleExport(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := s.activeRecords(c, sel)

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="immunization-audit.csv"`)
	if err := s.exporter.Write(c.Request.Context(), c.Writer, records); err != nil {
		s.logger.WithError(err).Error("CSV export failed")
	}
}

// setReviewedRequest is the toggle payload.
type setReviewedRequest struct {
	Reviewed bool `json:"reviewed"`
}

// handleSetReviewed toggles the acknowledged state for a record. Complete
// records are exempt: they have nothing outstanding to acknowledge.
func (s *Server) handleSetReviewed(c *gin.Context) {
	docID := c.Param("id")

	var req setReviewedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, ok := s.store.Get(docID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
		return
	}

	if s.classifier.IsComplete(record) {
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrRecordComplete.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := s.ledger.SetReviewed(ctx, docID, req.Reviewed); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"doc_id":   docID,
			"reviewed": req.Reviewed,
		}).Error("Ledger write failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review ledger unavailable"})
		return
	}

	// A toggle changes aggregates but no other record's classification;
	// connected dashboards only need to recompute summaries.
	s.hub.Broadcast(EventSummaryInvalidated)

	resp := gin.H{"doc_id": docID, "reviewed": req.Reviewed}
	if ts, ok := s.ledger.ReviewedAt(ctx, docID); ok {
		resp["reviewed_at"] = ts.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
